// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify session starts and to script a sequence of sessions
// (e.g., one that fails transiently followed by one that succeeds). Use
// Session to feed controlled transcript events and end the session with a
// chosen error.
package mock

import (
	"context"
	"sync"

	"github.com/voxnav/voxnav/pkg/provider/stt"
)

// Session is a mock implementation of stt.SessionHandle.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events. If nil, a buffered channel
	// is created on first use. Tests send events on it and call End (or
	// Close) to finish the session.
	EventsCh chan stt.TranscriptEvent

	// EndErr is the error reported by Err after the session ends.
	EndErr error

	ended  bool
	closed bool
}

var _ stt.SessionHandle = (*Session)(nil)

// Events returns EventsCh, creating it if unset.
func (s *Session) Events() <-chan stt.TranscriptEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EventsCh == nil {
		s.EventsCh = make(chan stt.TranscriptEvent, 16)
	}
	return s.EventsCh
}

// Emit delivers one final transcript event.
func (s *Session) Emit(text string) {
	s.Events() // ensure channel
	s.mu.Lock()
	ch := s.EventsCh
	s.mu.Unlock()
	ch <- stt.TranscriptEvent{Text: text, IsFinal: true, Confidence: 1}
}

// End finishes the session with err (may be nil for a natural end).
func (s *Session) End(err error) {
	s.Events() // ensure channel
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.EndErr = err
	close(s.EventsCh)
}

// Err reports the session-ending error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EndErr
}

// Close ends the session cleanly.
func (s *Session) Close() error {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if !ended {
		s.End(nil)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Provider is a mock implementation of stt.Provider. Start returns the queued
// sessions in order, then falls back to fresh default sessions.
type Provider struct {
	mu sync.Mutex

	// Sessions are returned by successive Start calls, in order.
	Sessions []*Session

	// StartErrs are returned by successive Start calls before any sessions
	// are handed out; a nil entry means that call succeeds.
	StartErrs []error

	// Starts counts Start invocations.
	Starts int

	// LastConfig is the StreamConfig of the most recent Start.
	LastConfig stt.StreamConfig
}

var _ stt.Provider = (*Provider)(nil)

// StartCount reports how many times Start was invoked.
func (p *Provider) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Starts
}

// Start returns the next scripted error or session.
func (p *Provider) Start(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Starts++
	p.LastConfig = cfg

	if len(p.StartErrs) > 0 {
		err := p.StartErrs[0]
		p.StartErrs = p.StartErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(p.Sessions) > 0 {
		s := p.Sessions[0]
		p.Sessions = p.Sessions[1:]
		return s, nil
	}
	return &Session{}, nil
}
