package resilience

import (
	"context"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// ParserFallback implements [nlu.ElementAwareParser] with automatic failover
// across several parsing backends, typically the remote service first and a
// local keyword parser last. Each backend has its own circuit breaker, so a
// dead service stops being dialled after a few refused connections.
type ParserFallback struct {
	group *FallbackGroup[nlu.ElementAwareParser]
}

var _ nlu.ElementAwareParser = (*ParserFallback)(nil)

// NewParserFallback creates a [ParserFallback] with primary as the preferred
// backend.
func NewParserFallback(primary nlu.ElementAwareParser, primaryName string, cfg FallbackConfig) *ParserFallback {
	return &ParserFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional parsing backend.
func (f *ParserFallback) AddFallback(name string, parser nlu.ElementAwareParser) {
	f.group.AddFallback(name, parser)
}

// LastBackend names the backend that served the most recent successful call.
func (f *ParserFallback) LastBackend() string {
	return f.group.LastBackend()
}

// Parse implements nlu.Parser.
func (f *ParserFallback) Parse(ctx context.Context, text string) (nlu.ParsedIntent, error) {
	return ExecuteWithResult(f.group, func(p nlu.ElementAwareParser) (nlu.ParsedIntent, error) {
		return p.Parse(ctx, text)
	})
}

// ParseBatch implements nlu.Parser.
func (f *ParserFallback) ParseBatch(ctx context.Context, texts []string) ([]nlu.ParsedIntent, error) {
	return ExecuteWithResult(f.group, func(p nlu.ElementAwareParser) ([]nlu.ParsedIntent, error) {
		return p.ParseBatch(ctx, texts)
	})
}

// Resolve implements nlu.ElementAwareParser.
func (f *ParserFallback) Resolve(ctx context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	return ExecuteWithResult(f.group, func(p nlu.ElementAwareParser) (nlu.Resolution, error) {
		return p.Resolve(ctx, text, candidates)
	})
}
