package speech

import (
	"context"
	"testing"

	ttsmock "github.com/voxnav/voxnav/pkg/provider/tts/mock"
)

func TestSpeaker_SpeaksAndRecords(t *testing.T) {
	prov := &ttsmock.Provider{}
	var recorded []string
	sp := NewSpeaker(prov, nil, func(text string) { recorded = append(recorded, text) })

	if err := sp.Say(context.Background(), "Clicking Login"); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if got := prov.Texts(); len(got) != 1 || got[0] != "Clicking Login" {
		t.Fatalf("spoken = %v", got)
	}
	if len(recorded) != 1 || recorded[0] != "Clicking Login" {
		t.Fatalf("recorded = %v", recorded)
	}
}

func TestSpeaker_EmptyTextIsNoop(t *testing.T) {
	prov := &ttsmock.Provider{}
	sp := NewSpeaker(prov, nil, nil)
	if err := sp.Say(context.Background(), ""); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if len(prov.Texts()) != 0 {
		t.Fatal("empty text was spoken")
	}
	if prov.Cancels != 0 {
		t.Fatal("empty text cancelled in-flight speech")
	}
}

func TestSpeaker_CancelsInFlight(t *testing.T) {
	prov := &ttsmock.Provider{}
	sp := NewSpeaker(prov, nil, nil)

	sp.Say(context.Background(), "first")
	sp.Say(context.Background(), "second")

	if prov.Cancels != 2 {
		t.Fatalf("Cancels = %d, want one per Say", prov.Cancels)
	}
	if got := prov.Texts(); len(got) != 2 || got[1] != "second" {
		t.Fatalf("spoken = %v", got)
	}
}

func TestSpeaker_SuspendsSupervisorWhileSpeaking(t *testing.T) {
	prov := &ttsmock.Provider{}
	// A supervisor that was never started still tracks suspend state.
	sup := New(nil)
	sp := NewSpeaker(prov, sup, nil)

	if err := sp.Say(context.Background(), "hello"); err != nil {
		t.Fatalf("Say: %v", err)
	}
	// After Say returns the supervisor must be resumed.
	if sup.suspendedNow() {
		t.Fatal("supervisor left suspended")
	}
}
