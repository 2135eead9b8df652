// Package engine is the command dispatcher: one Engine per surface, wiring
// transcripts from the listening supervisor through intent resolution to
// document actions and spoken feedback.
//
// All mutable command state (element cache, confirmation gate, context memory,
// action history) is owned by a single dispatcher goroutine. Transcripts are
// handled strictly in arrival order; one command completes before the next is
// read. External collaborators deliver work over channels, so no locks guard
// the command state itself.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxnav/voxnav/internal/confirm"
	"github.com/voxnav/voxnav/internal/convo"
	"github.com/voxnav/voxnav/internal/elements"
	"github.com/voxnav/voxnav/internal/feedback"
	"github.com/voxnav/voxnav/internal/history"
	"github.com/voxnav/voxnav/internal/intent"
	"github.com/voxnav/voxnav/internal/matcher"
	"github.com/voxnav/voxnav/internal/observe"
	"github.com/voxnav/voxnav/internal/speech"
	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
	"github.com/voxnav/voxnav/pkg/provider/tts"
)

const (
	// defaultPacing is the pause between answering a confirmation and
	// executing the confirmed action, so spoken feedback and page reaction
	// don't pile on top of each other.
	defaultPacing = 400 * time.Millisecond

	// defaultScrollStep is the one-shot scroll distance in CSS pixels.
	defaultScrollStep = 400

	// defaultScrollInterval is the tick period for continuous scrolling.
	defaultScrollInterval = 150 * time.Millisecond

	// continuousStep is the per-tick scroll distance during continuous
	// scrolling. Smaller than a one-shot step so the motion reads as smooth.
	continuousStep = 120

	// clarifyLimit caps how many near-miss candidates a clarification
	// prompt offers.
	clarifyLimit = 5

	// lowConfidence is the parse confidence below which the engine asks the
	// user to repeat instead of acting.
	lowConfidence = 0.4
)

// Option configures an Engine during construction.
type Option func(*Engine)

// WithMetrics attaches engine metrics. Without it nothing is recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPacing overrides the describe-to-execute pause. Zero disables it,
// which tests rely on.
func WithPacing(d time.Duration) Option {
	return func(e *Engine) { e.pacing = d }
}

// WithScrollStep overrides the one-shot scroll distance in CSS pixels.
func WithScrollStep(px float64) Option {
	return func(e *Engine) { e.scrollStep = px }
}

// WithScrollInterval overrides the continuous-scroll tick period.
func WithScrollInterval(d time.Duration) Option {
	return func(e *Engine) { e.scrollInterval = d }
}

// WithFeedbackSeed seeds the spoken-response picker deterministically.
func WithFeedbackSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithConfirmTTL overrides how long a confirmation question stays answerable.
func WithConfirmTTL(d time.Duration) Option {
	return func(e *Engine) { e.confirmTTL = d }
}

// WithDebounce overrides the element-cache mutation debounce.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithMatcher substitutes the descriptor matcher, e.g. with extra synonyms.
func WithMatcher(m *matcher.Matcher) Option {
	return func(e *Engine) { e.match = m }
}

// WithVoiceProfile sets the spoken-feedback rate and preferred voice.
func WithVoiceProfile(rate float64, voiceHint string) Option {
	return func(e *Engine) {
		e.voiceRate = rate
		e.voiceHint = voiceHint
	}
}

// Engine interprets voice commands against one document surface.
//
// Start is idempotent: a duplicate activation is a no-op, not a second
// dispatcher. Teardown stops listening, removes overlays, and discards all
// state; nothing survives it.
type Engine struct {
	doc      dom.Document
	parser   nlu.ElementAwareParser
	sup      *speech.Supervisor
	speaker  *speech.Speaker
	resolver *intent.Resolver

	cache   *elements.Cache
	match   *matcher.Matcher
	gate    *confirm.Gate
	memory  *convo.Memory
	trail   *history.Trail
	voice   *feedback.Voice
	metrics *observe.Metrics

	// parsePath names the backend that served the last parse, when the
	// parser exposes one.
	parsePath func() string

	pacing         time.Duration
	scrollStep     float64
	scrollInterval time.Duration
	seed           int64
	confirmTTL     time.Duration
	debounce       time.Duration
	voiceRate      float64
	voiceHint      string

	started atomic.Bool
	torn    atomic.Bool
	cancel  context.CancelFunc
	g       *errgroup.Group

	// Continuous-scroll state, touched only by the dispatcher goroutine.
	contTick       *time.Ticker
	contDX, contDY float64
}

// New assembles an Engine over one document surface. The parser is typically
// a resilience.ParserFallback chain ending in the local keyword parser; sup
// owns the listening session and ttsP produces spoken feedback.
func New(doc dom.Document, parser nlu.ElementAwareParser, sup *speech.Supervisor, ttsP tts.Provider, opts ...Option) *Engine {
	e := &Engine{
		doc:            doc,
		parser:         parser,
		sup:            sup,
		pacing:         defaultPacing,
		scrollStep:     defaultScrollStep,
		scrollInterval: defaultScrollInterval,
		seed:           time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(e)
	}

	if e.match == nil {
		e.match = matcher.New()
	}
	var cacheOpts []elements.Option
	if e.debounce > 0 {
		cacheOpts = append(cacheOpts, elements.WithDebounce(e.debounce))
	}
	e.cache = elements.NewCache(doc, cacheOpts...)

	var gateOpts []confirm.Option
	if e.confirmTTL > 0 {
		gateOpts = append(gateOpts, confirm.WithTTL(e.confirmTTL))
	}
	e.gate = confirm.New(gateOpts...)

	e.memory = convo.New()
	e.trail = history.New()
	e.voice = feedback.New(e.seed)
	e.resolver = intent.NewResolver(parser)
	e.speaker = speech.NewSpeaker(ttsP, sup, e.memory.RecordSpoken)
	if e.voiceRate != 0 || e.voiceHint != "" {
		e.speaker.SetVoice(e.voiceRate, e.voiceHint)
	}

	if lb, ok := parser.(interface{ LastBackend() string }); ok {
		e.parsePath = lb.LastBackend
	}
	return e
}

// Start spins up the dispatcher and the listening session. Calling Start on
// an already-started engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		slog.Debug("engine already started")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	g, runCtx := errgroup.WithContext(runCtx)
	e.g = g

	if e.metrics != nil {
		e.metrics.ActiveEngines.Add(runCtx, 1)
	}
	e.sup.Start(runCtx)
	g.Go(func() error {
		e.run(runCtx)
		return nil
	})
	slog.Info("engine started")
}

// Teardown stops the dispatcher, closes the listening session, and removes
// any overlays still on the page. Safe to call multiple times.
func (e *Engine) Teardown() {
	if !e.started.Load() || !e.torn.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	_ = e.g.Wait()
	e.sup.Stop()
	e.cache.CancelPending()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.doc.ClearHighlights(ctx); err != nil {
		slog.Warn("clearing highlights on teardown", "error", err)
	}
	if e.metrics != nil {
		e.metrics.ActiveEngines.Add(ctx, -1)
	}
	slog.Info("engine stopped")
}

// run is the dispatcher loop. It owns all command state; everything arrives
// over channels and is handled one item at a time.
func (e *Engine) run(ctx context.Context) {
	defer e.stopContinuous()

	if err := e.cache.Refresh(ctx); err != nil {
		slog.Warn("initial element refresh failed", "error", err)
	}

	events := e.doc.Events()
	transcripts := e.sup.Transcripts()
	for {
		var tick <-chan time.Time
		if e.contTick != nil {
			tick = e.contTick.C
		}
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-transcripts:
			if !ok {
				return
			}
			if !ev.IsFinal {
				continue
			}
			e.handleTranscript(ctx, ev.Text)
		case dev, ok := <-events:
			if !ok {
				return
			}
			e.handleDocEvent(ctx, dev)
			if dev.Kind == dom.EventTeardown {
				return
			}
		case <-tick:
			if err := e.doc.Scroll(ctx, e.contDX, e.contDY); err != nil {
				slog.Warn("continuous scroll failed", "error", err)
				e.stopContinuous()
			}
		}
	}
}

func (e *Engine) handleDocEvent(ctx context.Context, ev dom.Event) {
	e.cache.HandleEvent(ctx, ev)
	switch ev.Kind {
	case dom.EventHidden:
		e.stopContinuous()
		e.sup.Suspend()
	case dom.EventVisible:
		e.sup.Resume()
	case dom.EventTeardown:
		e.stopContinuous()
	}
}

func (e *Engine) startContinuous(dx, dy float64) {
	if e.contTick != nil {
		e.contTick.Stop()
	}
	e.contDX, e.contDY = dx, dy
	e.contTick = time.NewTicker(e.scrollInterval)
}

func (e *Engine) stopContinuous() {
	if e.contTick != nil {
		e.contTick.Stop()
		e.contTick = nil
	}
}

// sleepPacing pauses between describing an action and executing it. Purely
// for UX rhythm; cancellation cuts it short.
func (e *Engine) sleepPacing(ctx context.Context) {
	if e.pacing <= 0 {
		return
	}
	t := time.NewTimer(e.pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
