// Package tts defines the Provider interface for speech-synthesis backends.
//
// The engine speaks short feedback utterances, one at a time. Speak blocks
// until playback finishes or ctx is cancelled; Cancel aborts whatever is
// playing. Serialisation (never overlapping utterances, never speaking while
// listening) is the caller's responsibility — see the engine's speaker.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Utterance is one synthesis request.
type Utterance struct {
	// Text is the plain text to speak.
	Text string

	// Rate is the speaking rate multiplier. Zero means the backend default
	// (1.0).
	Rate float64

	// VoiceHint names a preferred voice. Backends match it best-effort and
	// fall back to their default voice.
	VoiceHint string
}

// Provider is the abstraction over any speech-synthesis backend.
type Provider interface {
	// Speak synthesises and plays u, blocking until playback completes.
	// Cancelling ctx aborts playback and returns ctx.Err().
	Speak(ctx context.Context, u Utterance) error

	// Cancel aborts any in-flight utterance. A no-op when idle.
	Cancel(ctx context.Context) error
}
