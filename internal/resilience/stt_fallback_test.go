package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/voxnav/voxnav/pkg/provider/stt"
	sttmock "github.com/voxnav/voxnav/pkg/provider/stt/mock"
)

func TestSTTFallback_FailsOverToSecondary(t *testing.T) {
	primary := &sttmock.Provider{StartErrs: []error{errBoom}}
	want := &sttmock.Session{}
	secondary := &sttmock.Provider{Sessions: []*sttmock.Session{want}}

	sf := NewSTTFallback(primary, "deepgram", FallbackConfig{})
	sf.AddFallback("webspeech", secondary)

	got, err := sf.Start(context.Background(), stt.StreamConfig{Language: "en-US"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got != want {
		t.Fatal("session did not come from the secondary backend")
	}
	if primary.StartCount() != 1 || secondary.StartCount() != 1 {
		t.Fatalf("starts = %d/%d, want 1/1", primary.StartCount(), secondary.StartCount())
	}
	if secondary.LastConfig.Language != "en-US" {
		t.Fatalf("secondary saw language %q, want en-US", secondary.LastConfig.Language)
	}
}

func TestSTTFallback_AllBackendsDown(t *testing.T) {
	primary := &sttmock.Provider{StartErrs: []error{errBoom}}
	secondary := &sttmock.Provider{StartErrs: []error{errBoom}}

	sf := NewSTTFallback(primary, "deepgram", FallbackConfig{})
	sf.AddFallback("webspeech", secondary)

	if _, err := sf.Start(context.Background(), stt.StreamConfig{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
