// Package llmparse provides an nlu.ElementAwareParser backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider LLM interface.
//
// It asks the model for a single JSON object per transcript and decodes it
// into an nlu.ParsedIntent. Useful for phrasings the keyword and service
// parsers miss; the resolver treats it as a lower-priority backend.
package llmparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

const systemPrompt = `You turn spoken web-page commands into JSON. Respond with exactly one JSON object and nothing else, with these keys:
  "action": one of click, show, scroll, open, close, navigate, zoom, reload, back, forward, stop, fill, read, count, find, undo, help, greet, thank, cancel, or "" if unclear
  "target": the thing the command refers to, lowercased, or ""
  "direction": "up", "down", "left", "right", or ""
  "number": an ordinal if one was spoken ("the third link" -> 3), else 0
  "descriptor": a qualifying word like a color or position, or ""
  "confidence": your confidence from 0.0 to 1.0
  "success": true if you understood the command
If page elements are listed, also include "matched_id" with the id of the best matching element (or -1) and "match_confidence" from 0.0 to 1.0.`

// Option configures a Parser.
type Option func(*Parser)

// WithTemperature sets the sampling temperature. Default 0 (deterministic).
func WithTemperature(t float64) Option {
	return func(p *Parser) { p.temperature = t }
}

// Parser implements nlu.ElementAwareParser over an any-llm-go backend.
type Parser struct {
	backend     anyllmlib.Provider
	model       string
	temperature float64
}

// New creates a Parser using the given any-llm-go backend and model name.
func New(backend anyllmlib.Provider, model string, opts ...Option) (*Parser, error) {
	if backend == nil {
		return nil, errors.New("llmparse: backend must not be nil")
	}
	if model == "" {
		return nil, errors.New("llmparse: model must not be empty")
	}
	p := &Parser{backend: backend, model: model}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

var _ nlu.ElementAwareParser = (*Parser)(nil)

// Parse implements nlu.Parser.
func (p *Parser) Parse(ctx context.Context, text string) (nlu.ParsedIntent, error) {
	out, err := p.complete(ctx, "Command: "+text)
	if err != nil {
		return nlu.ParsedIntent{}, err
	}
	intent, _, err := decodeIntent(out)
	return intent, err
}

// ParseBatch implements nlu.Parser by issuing one completion per transcript.
func (p *Parser) ParseBatch(ctx context.Context, texts []string) ([]nlu.ParsedIntent, error) {
	intents := make([]nlu.ParsedIntent, 0, len(texts))
	for _, t := range texts {
		intent, err := p.Parse(ctx, t)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// Resolve implements nlu.ElementAwareParser, passing the candidate inventory
// in the prompt so the model can name a matched element id directly.
func (p *Parser) Resolve(ctx context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	var sb strings.Builder
	sb.WriteString("Command: ")
	sb.WriteString(text)
	if len(candidates) > 0 {
		sb.WriteString("\nPage elements:\n")
		for _, c := range candidates {
			fmt.Fprintf(&sb, "  id=%d type=%s text=%q\n", c.ID, c.Type, c.Text)
		}
	}

	out, err := p.complete(ctx, sb.String())
	if err != nil {
		return nlu.Resolution{}, err
	}
	intent, match, err := decodeIntent(out)
	if err != nil {
		return nlu.Resolution{}, err
	}
	res := nlu.Resolution{Intent: intent, MatchedID: -1}
	if match != nil {
		res.MatchedID = match.id
		res.MatchConfidence = match.confidence
	}
	return res, nil
}

func (p *Parser) complete(ctx context.Context, userMsg string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: userMsg},
		},
	}
	if p.temperature != 0 {
		t := p.temperature
		params.Temperature = &t
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llmparse: completion: %v: %w", err, nlu.ErrUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmparse: empty choices: %w", nlu.ErrUnavailable)
	}
	return resp.Choices[0].Message.ContentString(), nil
}

type elementMatch struct {
	id         int
	confidence float64
}

// decodeIntent extracts the JSON object from model output, tolerating
// surrounding prose or code fences.
func decodeIntent(out string) (nlu.ParsedIntent, *elementMatch, error) {
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start < 0 || end <= start {
		return nlu.ParsedIntent{}, nil, fmt.Errorf("llmparse: no JSON object in output: %w", nlu.ErrUnavailable)
	}

	var wire struct {
		nlu.ParsedIntent
		MatchedID       *int    `json:"matched_id"`
		MatchConfidence float64 `json:"match_confidence"`
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &wire); err != nil {
		return nlu.ParsedIntent{}, nil, fmt.Errorf("llmparse: malformed output: %v: %w", err, nlu.ErrUnavailable)
	}

	intent := wire.ParsedIntent
	if intent.Confidence > 1 {
		intent.Confidence = 1
	}
	if intent.Confidence < 0 {
		intent.Confidence = 0
	}

	if wire.MatchedID != nil && *wire.MatchedID >= 0 {
		return intent, &elementMatch{id: *wire.MatchedID, confidence: wire.MatchConfidence}, nil
	}
	return intent, nil, nil
}
