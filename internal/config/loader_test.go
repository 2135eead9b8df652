package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/voxnav/voxnav/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: debug
  metrics_addr: ":9464"
browser:
  page_url: "https://example.com"
  headless: true
stt:
  provider: deepgram
  api_key: dg-secret
  model: nova-2
  language: en-US
tts:
  provider: webspeech
  rate: 1.2
parser:
  backends: [spacy, llm, local]
  spacy:
    base_url: "http://localhost:8765"
  llm:
    provider: ollama
    model: llama3
  timeout: 4s
engine:
  debounce: 300ms
  confirm_ttl: 45s
speech:
  max_retries: 5
  settle_delay: 250ms
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.STT.Model != "nova-2" {
		t.Errorf("stt.model = %q, want nova-2", cfg.STT.Model)
	}
	if len(cfg.Parser.Backends) != 3 || cfg.Parser.Backends[0] != config.ParserSpacy {
		t.Errorf("parser.backends = %v", cfg.Parser.Backends)
	}
	if cfg.Parser.Timeout != 4*time.Second {
		t.Errorf("parser.timeout = %v, want 4s", cfg.Parser.Timeout)
	}
	if cfg.Engine.Debounce != 300*time.Millisecond {
		t.Errorf("engine.debounce = %v, want 300ms", cfg.Engine.Debounce)
	}
	if cfg.Speech.MaxRetries != 5 {
		t.Errorf("speech.max_retries = %d, want 5", cfg.Speech.MaxRetries)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_levle: debug
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_SpacyBackendRequiresBaseURL(t *testing.T) {
	t.Parallel()
	yaml := `
parser:
  backends: [spacy]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for spacy backend without base_url, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should mention base_url, got: %v", err)
	}
}

func TestValidate_LLMBackendRequiresProviderAndModel(t *testing.T) {
	t.Parallel()
	yaml := `
parser:
  backends: [llm]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for llm backend without provider/model, got nil")
	}
	if !strings.Contains(err.Error(), "parser.llm.provider") {
		t.Errorf("error should mention parser.llm.provider, got: %v", err)
	}
	if !strings.Contains(err.Error(), "parser.llm.model") {
		t.Errorf("error should mention parser.llm.model, got: %v", err)
	}
}

func TestValidate_DeepgramRequiresAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  provider: deepgram
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for deepgram without api_key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_TTSRateOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
tts:
  rate: 3.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range tts rate, got nil")
	}
	if !strings.Contains(err.Error(), "tts.rate") {
		t.Errorf("error should mention tts.rate, got: %v", err)
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	t.Parallel()
	yaml := `
parser:
  backends: [regex]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown parser backend, got nil")
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg == nil {
		t.Fatal("config is nil")
	}
}
