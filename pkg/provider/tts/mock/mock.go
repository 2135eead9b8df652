// Package mock provides a recording test double for the tts package.
package mock

import (
	"context"
	"sync"

	"github.com/voxnav/voxnav/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider. It records every spoken
// utterance and cancel call. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Spoken lists every utterance passed to Speak, in order.
	Spoken []tts.Utterance

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// Cancels counts Cancel invocations.
	Cancels int

	// Block, when non-nil, is received from inside Speak before returning;
	// tests use it to hold an utterance "in flight".
	Block chan struct{}
}

var _ tts.Provider = (*Provider)(nil)

// Speak records u and returns SpeakErr.
func (p *Provider) Speak(ctx context.Context, u tts.Utterance) error {
	p.mu.Lock()
	p.Spoken = append(p.Spoken, u)
	block := p.Block
	err := p.SpeakErr
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Cancel records the call.
func (p *Provider) Cancel(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cancels++
	return nil
}

// Texts returns the texts of all spoken utterances.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Spoken))
	for i, u := range p.Spoken {
		out[i] = u.Text
	}
	return out
}
