package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
	nlumock "github.com/voxnav/voxnav/pkg/provider/nlu/mock"
)

func TestFallbackGroup_PrimarySucceeds(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	got, err := ExecuteWithResult(fg, func(s string) (string, error) {
		return s, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "primary" {
		t.Fatalf("got %q, want primary", got)
	}
}

func TestFallbackGroup_FallsThrough(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	got, err := ExecuteWithResult(fg, func(s string) (string, error) {
		if s == "primary" {
			return "", errBoom
		}
		return s, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "secondary" {
		t.Fatalf("got %q, want secondary", got)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	err := fg.Execute(func(string) error { return errBoom })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 1},
	})
	fg.AddFallback("secondary", "secondary")

	// Trip the primary's breaker.
	fg.Execute(func(s string) error {
		if s == "primary" {
			return errBoom
		}
		return nil
	})

	calls := []string{}
	err := fg.Execute(func(s string) error {
		calls = append(calls, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(calls) != 1 || calls[0] != "secondary" {
		t.Fatalf("calls = %v, want [secondary]", calls)
	}
}

func TestParserFallback_FailsOverToLocal(t *testing.T) {
	remote := &nlumock.Parser{ParseErr: nlu.ErrUnavailable}
	local := &nlumock.Parser{Intents: []nlu.ParsedIntent{
		{Action: nlu.ActionClick, Target: "login", Confidence: 0.7, Success: true},
	}}

	pf := NewParserFallback(remote, "remote", FallbackConfig{})
	pf.AddFallback("local", local)

	intent, err := pf.Parse(context.Background(), "click login")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if intent.Action != nlu.ActionClick {
		t.Fatalf("action = %q, want click", intent.Action)
	}
	if len(remote.Parsed) != 1 {
		t.Errorf("remote tried %d times, want 1", len(remote.Parsed))
	}
	if len(local.Parsed) != 1 {
		t.Errorf("local tried %d times, want 1", len(local.Parsed))
	}
}

func TestParserFallback_ResolvePrefersRemote(t *testing.T) {
	remote := &nlumock.Parser{Resolutions: []nlu.Resolution{
		{Intent: nlu.ParsedIntent{Action: nlu.ActionClick, Success: true}, MatchedID: 2, MatchConfidence: 0.9},
	}}
	local := &nlumock.Parser{}

	pf := NewParserFallback(remote, "remote", FallbackConfig{})
	pf.AddFallback("local", local)

	res, err := pf.Resolve(context.Background(), "click login", []nlu.Candidate{{ID: 2, Text: "Login", Type: "button"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchedID != 2 {
		t.Fatalf("MatchedID = %d, want 2", res.MatchedID)
	}
	if len(local.Resolved) != 0 {
		t.Errorf("local was consulted %d times, want 0", len(local.Resolved))
	}
}
