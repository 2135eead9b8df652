package intent

import (
	"context"
	"time"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// defaultResolveTimeout bounds one resolution end to end. Past this point a
// spoken command feels ignored, so the deadline covers remote and fallback
// attempts together.
const defaultResolveTimeout = 5 * time.Second

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimeout overrides the per-resolution deadline.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// Resolver is the dual-path front door for turning a transcript into a
// resolution. The parser it wraps is normally a fallback group with the
// remote service first and the local [Parser] last, so Resolve degrades
// rather than fails when the service is down.
type Resolver struct {
	parser  nlu.ElementAwareParser
	timeout time.Duration
}

// NewResolver wraps parser with a resolution deadline.
func NewResolver(parser nlu.ElementAwareParser, opts ...ResolverOption) *Resolver {
	r := &Resolver{parser: parser, timeout: defaultResolveTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve parses text, using extended mode (element-aware resolution) when a
// candidate inventory is supplied and plain parsing otherwise.
func (r *Resolver) Resolve(ctx context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if len(candidates) > 0 {
		return r.parser.Resolve(ctx, text, candidates)
	}
	intent, err := r.parser.Parse(ctx, text)
	if err != nil {
		return nlu.Resolution{}, err
	}
	return nlu.Resolution{Intent: intent, MatchedID: -1}, nil
}
