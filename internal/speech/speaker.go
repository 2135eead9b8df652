package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxnav/voxnav/pkg/provider/tts"
)

// Speaker serializes spoken output. A new utterance cancels whatever is
// still playing; users correcting themselves should not wait for the old
// sentence to finish. While an utterance plays, the supervisor is suspended
// so the microphone does not pick it up.
type Speaker struct {
	provider tts.Provider
	sup      *Supervisor
	onSpoken func(text string)

	// rate and voiceHint apply to every utterance. Zero values use the
	// provider defaults.
	rate      float64
	voiceHint string

	mu sync.Mutex
}

// NewSpeaker creates a Speaker. sup may be nil when no listening loop needs
// pausing (tests, one-shot tools). onSpoken, if non-nil, is called with each
// utterance before playback, so conversational memory can replay it later.
func NewSpeaker(provider tts.Provider, sup *Supervisor, onSpoken func(string)) *Speaker {
	return &Speaker{provider: provider, sup: sup, onSpoken: onSpoken}
}

// SetVoice configures the speaking rate and preferred voice for all
// subsequent utterances. Call before the first Say.
func (s *Speaker) SetVoice(rate float64, voiceHint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.voiceHint = voiceHint
}

// Say speaks text, cancelling any utterance still in flight. Blocks until
// playback completes or ctx ends. Empty text is a no-op.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	// Cut off the current utterance before queueing ours.
	if err := s.provider.Cancel(ctx); err != nil {
		slog.Debug("cancel in-flight utterance", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onSpoken != nil {
		s.onSpoken(text)
	}
	if s.sup != nil {
		s.sup.Suspend()
		defer s.sup.Resume()
	}
	return s.provider.Speak(ctx, tts.Utterance{Text: text, Rate: s.rate, VoiceHint: s.voiceHint})
}

// Cancel stops any utterance in flight without speaking a new one.
func (s *Speaker) Cancel(ctx context.Context) error {
	return s.provider.Cancel(ctx)
}
