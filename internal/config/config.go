// Package config provides the configuration schema and loader for the
// voxnav voice navigation engine.
package config

import "time"

// LogLevel controls log verbosity for the voxnav process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ParserBackend selects a command-parsing implementation.
type ParserBackend string

const (
	// ParserSpacy sends commands to the external parse service over HTTP.
	ParserSpacy ParserBackend = "spacy"

	// ParserLLM uses a chat-completion model to extract intents.
	ParserLLM ParserBackend = "llm"

	// ParserLocal uses the built-in keyword parser. Always available.
	ParserLocal ParserBackend = "local"
)

// IsValid reports whether b is a recognised parser backend.
func (b ParserBackend) IsValid() bool {
	switch b {
	case ParserSpacy, ParserLLM, ParserLocal:
		return true
	}
	return false
}

// Config is the root configuration structure for voxnav.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	STT     STTConfig     `yaml:"stt"`
	TTS     TTSConfig     `yaml:"tts"`
	Parser  ParserConfig  `yaml:"parser"`
	Engine  EngineConfig  `yaml:"engine"`
	Speech  SpeechConfig  `yaml:"speech"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the address the Prometheus metrics endpoint listens on
	// (e.g., ":9464"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// BrowserConfig describes the browser page voxnav attaches to.
type BrowserConfig struct {
	// ControlURL is the DevTools websocket URL of a running browser.
	// Empty launches a managed browser instead.
	ControlURL string `yaml:"control_url"`

	// PageURL is the page to open on startup. Empty attaches to the first
	// existing page.
	PageURL string `yaml:"page_url"`

	// Headless runs the managed browser without a visible window.
	// Ignored when ControlURL is set.
	Headless bool `yaml:"headless"`
}

// STTConfig configures the speech-to-text provider.
type STTConfig struct {
	// Provider selects the implementation (e.g., "deepgram").
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider's API.
	APIKey string `yaml:"api_key"`

	// Model selects a specific model (e.g., "nova-2").
	Model string `yaml:"model"`

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	Language string `yaml:"language"`
}

// TTSConfig configures spoken feedback.
type TTSConfig struct {
	// Provider selects the implementation (e.g., "webspeech").
	Provider string `yaml:"provider"`

	// Voice is the provider-specific voice name. Empty uses the default voice.
	Voice string `yaml:"voice"`

	// Rate adjusts speaking rate in the range [0.5, 2.0]. 0 means default.
	Rate float64 `yaml:"rate"`
}

// ParserConfig configures intent parsing backends in preference order.
// The local keyword parser is always wired as the final fallback.
type ParserConfig struct {
	// Backends lists the parsing backends to try, most preferred first.
	// Empty means local-only.
	Backends []ParserBackend `yaml:"backends"`

	// Spacy configures the external parse service backend.
	Spacy SpacyConfig `yaml:"spacy"`

	// LLM configures the chat-completion backend.
	LLM LLMConfig `yaml:"llm"`

	// Timeout bounds a single parse or resolve call. Zero uses the default.
	Timeout time.Duration `yaml:"timeout"`
}

// SpacyConfig holds settings for the HTTP parse service.
type SpacyConfig struct {
	// BaseURL is the service root (e.g., "http://localhost:8765").
	BaseURL string `yaml:"base_url"`
}

// LLMConfig holds settings for the chat-completion parsing backend.
type LLMConfig struct {
	// Provider selects the model host (e.g., "openai", "ollama").
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`
}

// EngineConfig tunes dispatcher behaviour.
type EngineConfig struct {
	// Debounce is how long to coalesce page mutations before refreshing the
	// element cache. Zero uses the default.
	Debounce time.Duration `yaml:"debounce"`

	// ConfirmTTL is how long a pending confirmation question stays answerable.
	// Zero uses the default.
	ConfirmTTL time.Duration `yaml:"confirm_ttl"`

	// PacingDelay is the pause inserted before asking a confirmation question,
	// giving the page time to settle after the previous action.
	PacingDelay time.Duration `yaml:"pacing_delay"`

	// ScrollInterval is the tick period for continuous scrolling.
	// Zero uses the default.
	ScrollInterval time.Duration `yaml:"scroll_interval"`

	// FeedbackSeed seeds the spoken-response picker. Zero seeds from time.
	FeedbackSeed int64 `yaml:"feedback_seed"`
}

// SpeechConfig tunes the listening session supervisor.
type SpeechConfig struct {
	// MaxRetries bounds consecutive network-failure restarts. Zero uses the
	// default.
	MaxRetries int `yaml:"max_retries"`

	// Backoff is the initial delay between network-failure restarts.
	// Zero uses the default.
	Backoff time.Duration `yaml:"backoff"`

	// SettleDelay is how long transcripts are ignored after spoken feedback
	// ends, so the engine does not transcribe its own voice.
	SettleDelay time.Duration `yaml:"settle_delay"`
}
