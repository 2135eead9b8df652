// Package mock provides a scriptable nlu.ElementAwareParser for tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// Parser is a test double for nlu.ElementAwareParser. Responses are scripted
// through the exported fields before use; calls are recorded.
type Parser struct {
	mu sync.Mutex

	// Intents are returned by Parse in order. When exhausted, Parse returns
	// the zero intent.
	Intents []nlu.ParsedIntent
	// ParseErr, when set, is returned by every Parse and ParseBatch call.
	ParseErr error

	// Resolutions are returned by Resolve in order. When exhausted, Resolve
	// returns a resolution with MatchedID -1.
	Resolutions []nlu.Resolution
	// ResolveErr, when set, is returned by every Resolve call.
	ResolveErr error

	// Parsed records every text handed to Parse or ParseBatch.
	Parsed []string
	// Resolved records every text handed to Resolve.
	Resolved []string
	// LastCandidates holds the candidate set from the most recent Resolve.
	LastCandidates []nlu.Candidate

	parseIdx   int
	resolveIdx int
}

var _ nlu.ElementAwareParser = (*Parser)(nil)

// Parse implements nlu.Parser.
func (p *Parser) Parse(_ context.Context, text string) (nlu.ParsedIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Parsed = append(p.Parsed, text)
	if p.ParseErr != nil {
		return nlu.ParsedIntent{}, p.ParseErr
	}
	if p.parseIdx < len(p.Intents) {
		intent := p.Intents[p.parseIdx]
		p.parseIdx++
		return intent, nil
	}
	return nlu.ParsedIntent{}, nil
}

// ParseBatch implements nlu.Parser.
func (p *Parser) ParseBatch(ctx context.Context, texts []string) ([]nlu.ParsedIntent, error) {
	out := make([]nlu.ParsedIntent, 0, len(texts))
	for _, t := range texts {
		intent, err := p.Parse(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	return out, nil
}

// Resolve implements nlu.ElementAwareParser.
func (p *Parser) Resolve(_ context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Resolved = append(p.Resolved, text)
	p.LastCandidates = candidates
	if p.ResolveErr != nil {
		return nlu.Resolution{}, p.ResolveErr
	}
	if p.resolveIdx < len(p.Resolutions) {
		res := p.Resolutions[p.resolveIdx]
		p.resolveIdx++
		return res, nil
	}
	return nlu.Resolution{MatchedID: -1}, nil
}
