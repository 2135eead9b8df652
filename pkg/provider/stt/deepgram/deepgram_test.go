package deepgram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/voxnav/voxnav/pkg/provider/stt"
)

// nopSource satisfies AudioSource in construction-only tests.
func nopSource(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func TestParseResult_Final(t *testing.T) {
	msg := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {"alternatives": [{"transcript": "click the login button", "confidence": 0.93}]}
	}`)

	ev, ok := parseResult(msg)
	if !ok {
		t.Fatal("expected message to parse")
	}
	if !ev.IsFinal {
		t.Error("IsFinal = false, want true")
	}
	if ev.Text != "click the login button" {
		t.Errorf("Text = %q", ev.Text)
	}
	if ev.Confidence != 0.93 {
		t.Errorf("Confidence = %v, want 0.93", ev.Confidence)
	}
}

func TestParseResult_Ignorable(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"metadata message", `{"type": "Metadata"}`},
		{"no alternatives", `{"type": "Results", "channel": {"alternatives": []}}`},
		{"empty transcript", `{"type": "Results", "channel": {"alternatives": [{"transcript": ""}]}}`},
		{"malformed json", `{nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := parseResult([]byte(tc.data)); ok {
				t.Errorf("parseResult(%q) parsed, want ignored", tc.data)
			}
		})
	}
}

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("key", nopSource)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := p.buildURL(stt.StreamConfig{InterimResults: true})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	for _, want := range []string{"model=nova-3", "language=en", "sample_rate=16000", "interim_results=true", "encoding=linear16"} {
		if !strings.Contains(u, want) {
			t.Errorf("URL %q missing %q", u, want)
		}
	}
}

func TestBuildURL_Overrides(t *testing.T) {
	p, err := New("key", nopSource, WithModel("base"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := p.buildURL(stt.StreamConfig{Language: "de-DE", SampleRate: 48000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	for _, want := range []string{"model=base", "language=de-DE", "sample_rate=48000", "interim_results=false"} {
		if !strings.Contains(u, want) {
			t.Errorf("URL %q missing %q", u, want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", nopSource); err == nil {
		t.Error("New with empty key succeeded, want error")
	}
	if _, err := New("key", nil); err == nil {
		t.Error("New with nil source succeeded, want error")
	}
}

func TestClassifyReadError_PlainFailure(t *testing.T) {
	err := classifyReadError(errors.New("plain failure"))
	if err == nil {
		t.Fatal("expected a session error for a plain failure")
	}
	if kind := stt.Classify(err); kind != stt.KindNetwork {
		t.Errorf("kind = %v, want %v", kind, stt.KindNetwork)
	}
}
