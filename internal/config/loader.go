package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.TTS.Rate != 0 {
		if cfg.TTS.Rate < 0.5 || cfg.TTS.Rate > 2.0 {
			errs = append(errs, fmt.Errorf("tts.rate %.2f is out of range [0.5, 2.0]", cfg.TTS.Rate))
		}
	}

	for i, b := range cfg.Parser.Backends {
		prefix := fmt.Sprintf("parser.backends[%d]", i)
		if !b.IsValid() {
			errs = append(errs, fmt.Errorf("%s %q is invalid; valid values: spacy, llm, local", prefix, b))
			continue
		}
		switch b {
		case ParserSpacy:
			if cfg.Parser.Spacy.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s: backend %q requires parser.spacy.base_url", prefix, b))
			}
		case ParserLLM:
			if cfg.Parser.LLM.Provider == "" {
				errs = append(errs, fmt.Errorf("%s: backend %q requires parser.llm.provider", prefix, b))
			}
			if cfg.Parser.LLM.Model == "" {
				errs = append(errs, fmt.Errorf("%s: backend %q requires parser.llm.model", prefix, b))
			}
		}
	}

	if cfg.STT.Provider == "deepgram" && cfg.STT.APIKey == "" {
		errs = append(errs, errors.New("stt.api_key is required when stt.provider is deepgram"))
	}

	if len(cfg.Parser.Backends) == 0 {
		slog.Warn("no parser backends configured; using the local keyword parser only")
	}

	if cfg.Engine.Debounce < 0 {
		errs = append(errs, fmt.Errorf("engine.debounce must not be negative"))
	}
	if cfg.Engine.ConfirmTTL < 0 {
		errs = append(errs, fmt.Errorf("engine.confirm_ttl must not be negative"))
	}
	if cfg.Speech.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("speech.max_retries must not be negative"))
	}

	return errors.Join(errs...)
}
