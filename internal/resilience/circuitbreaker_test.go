package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingCall() error { return errBoom }
func okCall() error      { return nil }

func TestBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "test"})
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 3})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(failingCall); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := cb.Execute(okCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 3})

	cb.Execute(failingCall)
	cb.Execute(failingCall)
	cb.Execute(okCall)
	cb.Execute(failingCall)
	cb.Execute(failingCall)

	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed after streak reset", got)
	}
}

func TestBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})

	cb.Execute(failingCall)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}
}

func TestBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 5 * time.Millisecond,
		ProbeMax:     2,
	})

	cb.Execute(failingCall)
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(okCall); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_ReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 5 * time.Millisecond,
	})

	cb.Execute(failingCall)
	time.Sleep(10 * time.Millisecond)

	if err := cb.Execute(failingCall); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want boom", err)
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 1})
	cb.Execute(failingCall)
	cb.Reset()
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed after Reset", got)
	}
	if err := cb.Execute(okCall); err != nil {
		t.Fatalf("Execute after Reset: %v", err)
	}
}
