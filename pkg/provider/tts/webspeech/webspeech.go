// Package webspeech provides a tts.Provider backed by the page's own
// speechSynthesis engine, driven through go-rod.
//
// Speaking through the surface keeps synthesis and recognition on the same
// machine as the user, which is what makes the engine's speak/listen mutual
// exclusion meaningful: the voice the microphone must not transcribe is the
// one this provider produces.
package webspeech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/voxnav/voxnav/pkg/provider/tts"
)

// pollInterval is how often Speak checks whether playback has finished.
const pollInterval = 100 * time.Millisecond

// Provider implements tts.Provider via window.speechSynthesis on a rod page.
type Provider struct {
	page *rod.Page
}

// New wraps page as a speech-synthesis provider.
func New(page *rod.Page) (*Provider, error) {
	if page == nil {
		return nil, errors.New("webspeech: page must not be nil")
	}
	return &Provider{page: page}, nil
}

var _ tts.Provider = (*Provider)(nil)

// Speak queues u on the page's synthesis engine, cancelling anything already
// playing, and blocks until the utterance finishes or ctx is cancelled.
func (p *Provider) Speak(ctx context.Context, u tts.Utterance) error {
	rate := u.Rate
	if rate == 0 {
		rate = 1.0
	}

	_, err := p.page.Context(ctx).Eval(`(text, rate, voiceHint) => {
		const synth = window.speechSynthesis;
		if (!synth) throw new Error('speechSynthesis unavailable');
		synth.cancel();
		const utt = new SpeechSynthesisUtterance(text);
		utt.rate = rate;
		if (voiceHint) {
			const voice = synth.getVoices().find(v => v.name.toLowerCase().includes(voiceHint.toLowerCase()));
			if (voice) utt.voice = voice;
		}
		window.__voxnavSpeaking = true;
		utt.onend = () => { window.__voxnavSpeaking = false; };
		utt.onerror = () => { window.__voxnavSpeaking = false; };
		synth.speak(utt);
	}`, u.Text, rate, u.VoiceHint)
	if err != nil {
		return fmt.Errorf("webspeech: queue utterance: %w", err)
	}

	// Poll until the utterance completes. speechSynthesis has no await-able
	// completion across the eval boundary, so the finished flag is checked
	// on a short interval.
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = p.Cancel(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			res, err := p.page.Context(ctx).Eval(`() => window.__voxnavSpeaking === true`)
			if err != nil {
				return fmt.Errorf("webspeech: poll playback: %w", err)
			}
			if !res.Value.Bool() {
				return nil
			}
		}
	}
}

// Cancel aborts any in-flight utterance.
func (p *Provider) Cancel(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => {
		if (window.speechSynthesis) window.speechSynthesis.cancel();
		window.__voxnavSpeaking = false;
	}`)
	if err != nil {
		return fmt.Errorf("webspeech: cancel: %w", err)
	}
	return nil
}
