// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a real-time transcription engine and exposes a uniform
// session interface: once started, a session emits [TranscriptEvent] values —
// low-latency partials for responsiveness and authoritative finals for command
// processing — until it ends naturally, is closed, or fails.
//
// Session failures carry an [ErrorKind] so that the supervisor can distinguish
// benign, retryable conditions (no speech heard, a navigation-induced abort, a
// network blip) from terminal ones (microphone permission denied, unsupported
// engine).
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TranscriptEvent is one recognition result.
type TranscriptEvent struct {
	// Text is the recognised utterance.
	Text string

	// IsFinal reports whether the engine has committed to this result.
	// Only final events may drive command execution.
	IsFinal bool

	// Confidence is the engine's confidence in Text, in [0,1]. Zero when the
	// engine does not report confidence.
	Confidence float64

	// At is when the event was produced.
	At time.Time
}

// ErrorKind classifies a session failure.
type ErrorKind string

const (
	// KindNoSpeech: the engine timed out waiting for speech. Benign.
	KindNoSpeech ErrorKind = "no-speech"

	// KindAborted: the session was torn down externally, typically by a
	// page navigation. Benign.
	KindAborted ErrorKind = "aborted"

	// KindNetwork: a transient network failure. Retryable.
	KindNetwork ErrorKind = "network"

	// KindAudioCapture: the audio device failed mid-session. Retryable.
	KindAudioCapture ErrorKind = "audio-capture"

	// KindNotAllowed: microphone permission was denied. Terminal.
	KindNotAllowed ErrorKind = "not-allowed"

	// KindUnsupported: no usable speech engine is available. Terminal.
	KindUnsupported ErrorKind = "unsupported"
)

// SessionError is a session failure with a classification.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stt: session error (%s)", e.Kind)
	}
	return fmt.Sprintf("stt: session error (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error { return e.Err }

// Terminal reports whether the failure must not be retried.
func (e *SessionError) Terminal() bool {
	return e.Kind == KindNotAllowed || e.Kind == KindUnsupported
}

// Classify extracts the ErrorKind from err. Errors that are not a
// [SessionError] are treated as network-class transients.
func Classify(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetwork
}

// StreamConfig describes the recognition parameters for a new session.
type StreamConfig struct {
	// Language is the BCP-47 language tag (e.g., "en-US"). Empty lets the
	// engine auto-detect, if supported.
	Language string

	// SampleRate is the audio sample rate in Hz. Zero uses the provider
	// default.
	SampleRate int

	// InterimResults requests partial transcripts in addition to finals.
	InterimResults bool
}

// SessionHandle is one open recognition session.
//
// The Events channel is closed when the session ends for any reason; after it
// closes, Err reports why. All methods are safe for concurrent use.
type SessionHandle interface {
	// Events returns the transcript stream. Closed when the session ends.
	Events() <-chan TranscriptEvent

	// Err reports why the session ended: nil for a natural end-of-turn or an
	// explicit Close, a *SessionError otherwise. Valid once Events is closed.
	Err() error

	// Close terminates the session and releases its resources. Safe to call
	// multiple times.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Start opens a new recognition session. The returned handle emits
	// events immediately. The caller owns the handle and must Close it.
	Start(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
