// Command voxnav drives a web page by voice: it attaches to a browser page,
// streams microphone audio to a speech-to-text provider, resolves the
// transcripts into page commands, and speaks feedback through the page's own
// speech synthesis.
//
// Microphone audio is read as raw PCM from stdin, e.g.:
//
//	arecord -f S16_LE -r 16000 -c 1 | voxnav -config config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxnav/voxnav/internal/config"
	"github.com/voxnav/voxnav/internal/engine"
	"github.com/voxnav/voxnav/internal/intent"
	"github.com/voxnav/voxnav/internal/matcher"
	"github.com/voxnav/voxnav/internal/observe"
	"github.com/voxnav/voxnav/internal/resilience"
	"github.com/voxnav/voxnav/internal/speech"
	"github.com/voxnav/voxnav/pkg/dom/rodpage"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
	"github.com/voxnav/voxnav/pkg/provider/nlu/llmparse"
	"github.com/voxnav/voxnav/pkg/provider/nlu/spacy"
	"github.com/voxnav/voxnav/pkg/provider/stt"
	"github.com/voxnav/voxnav/pkg/provider/stt/deepgram"
	"github.com/voxnav/voxnav/pkg/provider/tts/webspeech"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxnav: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxnav: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("voxnav starting", "version", version, "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxnav",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("metrics init failed", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("metrics shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg.Server.MetricsAddr)
	}

	// ── Browser page ──────────────────────────────────────────────────────
	page, browserClose, err := openPage(ctx, cfg.Browser)
	if err != nil {
		slog.Error("browser attach failed", "err", err)
		return 1
	}
	defer browserClose()

	doc, err := rodpage.Attach(page)
	if err != nil {
		slog.Error("page instrumentation failed", "err", err)
		return 1
	}
	defer doc.Close()

	// ── Providers ─────────────────────────────────────────────────────────
	sttP, err := buildSTT(cfg.STT)
	if err != nil {
		slog.Error("stt setup failed", "err", err)
		return 1
	}

	ttsP, err := webspeech.New(page)
	if err != nil {
		slog.Error("tts setup failed", "err", err)
		return 1
	}

	parser, err := buildParser(ctx, cfg.Parser)
	if err != nil {
		slog.Error("parser setup failed", "err", err)
		return 1
	}

	// ── Supervisor and engine ─────────────────────────────────────────────
	supOpts := []speech.Option{
		speech.WithStreamConfig(stt.StreamConfig{
			Language:       cfg.STT.Language,
			InterimResults: false,
		}),
		speech.WithRestartHook(func() {
			metrics.SessionRestarts.Add(ctx, 1)
		}),
	}
	if cfg.Speech.MaxRetries > 0 && cfg.Speech.Backoff > 0 {
		supOpts = append(supOpts, speech.WithRetry(cfg.Speech.MaxRetries, cfg.Speech.Backoff, 15*time.Second))
	}
	if cfg.Speech.SettleDelay > 0 {
		supOpts = append(supOpts, speech.WithSettleDelay(cfg.Speech.SettleDelay))
	}
	sup := speech.New(sttP, supOpts...)

	engOpts := []engine.Option{engine.WithMetrics(metrics)}
	if cfg.Engine.Debounce > 0 {
		engOpts = append(engOpts, engine.WithDebounce(cfg.Engine.Debounce))
	}
	if cfg.Engine.ConfirmTTL > 0 {
		engOpts = append(engOpts, engine.WithConfirmTTL(cfg.Engine.ConfirmTTL))
	}
	if cfg.Engine.PacingDelay > 0 {
		engOpts = append(engOpts, engine.WithPacing(cfg.Engine.PacingDelay))
	}
	if cfg.Engine.ScrollInterval > 0 {
		engOpts = append(engOpts, engine.WithScrollInterval(cfg.Engine.ScrollInterval))
	}
	if cfg.Engine.FeedbackSeed != 0 {
		engOpts = append(engOpts, engine.WithFeedbackSeed(cfg.Engine.FeedbackSeed))
	}
	if cfg.TTS.Rate != 0 || cfg.TTS.Voice != "" {
		engOpts = append(engOpts, engine.WithVoiceProfile(cfg.TTS.Rate, cfg.TTS.Voice))
	}
	eng := engine.New(doc, parser, sup, ttsP, engOpts...)

	eng.Start(ctx)
	slog.Info("listening — press Ctrl+C to stop")

	<-ctx.Done()
	slog.Info("shutting down")
	eng.Teardown()
	slog.Info("goodbye")
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics server stopped", "err", err)
	}
}

// openPage connects to (or launches) a browser and returns the page to drive.
func openPage(ctx context.Context, cfg config.BrowserConfig) (*rod.Page, func(), error) {
	controlURL := cfg.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect to browser: %w", err)
	}
	closeBrowser := func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser close", "err", err)
		}
	}

	if cfg.PageURL != "" {
		page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.PageURL})
		if err != nil {
			closeBrowser()
			return nil, nil, fmt.Errorf("open %q: %w", cfg.PageURL, err)
		}
		return page, closeBrowser, nil
	}

	pages, err := browser.Pages()
	if err != nil || len(pages) == 0 {
		closeBrowser()
		return nil, nil, fmt.Errorf("no page to attach to: %v", err)
	}
	return pages[0], closeBrowser, nil
}

func buildSTT(cfg config.STTConfig) (stt.Provider, error) {
	switch cfg.Provider {
	case "", "deepgram":
		var opts []deepgram.Option
		if cfg.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.Model))
		}
		return deepgram.New(cfg.APIKey, stdinSource, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}

// stdinSource feeds microphone PCM piped into the process. The reader is
// shared across sessions, so Close must not close stdin itself.
func stdinSource(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(os.Stdin), nil
}

// buildParser assembles the parsing chain in configured preference order.
// The local keyword parser is always the final fallback.
func buildParser(ctx context.Context, cfg config.ParserConfig) (nlu.ElementAwareParser, error) {
	local := intent.NewParser(matcher.New())
	if len(cfg.Backends) == 0 {
		return local, nil
	}

	var chain *resilience.ParserFallback
	add := func(name string, p nlu.ElementAwareParser) {
		if chain == nil {
			chain = resilience.NewParserFallback(p, name, resilience.FallbackConfig{})
		} else {
			chain.AddFallback(name, p)
		}
	}

	sawLocal := false
	for _, b := range cfg.Backends {
		switch b {
		case config.ParserSpacy:
			var opts []spacy.Option
			if cfg.Timeout > 0 {
				opts = append(opts, spacy.WithTimeout(cfg.Timeout))
			}
			client, err := spacy.New(cfg.Spacy.BaseURL, opts...)
			if err != nil {
				return nil, fmt.Errorf("spacy backend: %w", err)
			}
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := client.Health(probeCtx); err != nil {
				slog.Warn("parse service unreachable, will keep retrying", "err", err)
			}
			cancel()
			add("spacy", client)
		case config.ParserLLM:
			backend, err := createLLMBackend(cfg.LLM)
			if err != nil {
				return nil, fmt.Errorf("llm backend: %w", err)
			}
			p, err := llmparse.New(backend, cfg.LLM.Model)
			if err != nil {
				return nil, fmt.Errorf("llm backend: %w", err)
			}
			add("llm", p)
		case config.ParserLocal:
			add("local", local)
			sawLocal = true
		}
	}
	if !sawLocal {
		add("local", local)
	}
	return chain, nil
}

func createLLMBackend(cfg config.LLMConfig) (anyllmlib.Provider, error) {
	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	switch cfg.Provider {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q; supported: openai, anthropic, gemini, ollama", cfg.Provider)
	}
}
