package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has
// an open breaker.
var ErrAllFailed = errors.New("all backends failed")

// FallbackConfig configures the per-entry breaker created for each backend in
// a [FallbackGroup].
type FallbackConfig struct {
	Breaker BreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback backends of the
// same type. When the primary fails or its breaker is open, the next healthy
// fallback is tried in registration order.
//
// FallbackGroup is safe for concurrent use once assembled; AddFallback must
// happen before the first Execute.
type FallbackGroup[T any] struct {
	mu      sync.RWMutex
	entries []fallbackEntry[T]
	cfg     FallbackConfig
	served  string
}

// NewFallbackGroup creates a group with primary as the first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	bc := cfg.Breaker
	bc.Name = primaryName
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{{
			name:    primaryName,
			value:   primary,
			breaker: NewCircuitBreaker(bc),
		}},
		cfg: cfg,
	}
}

// AddFallback appends a backend, tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	bc := fg.cfg.Breaker
	bc.Name = name
	fg.mu.Lock()
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(bc),
	})
	fg.mu.Unlock()
}

// LastBackend names the entry that served the most recent successful call.
// Empty before the first success.
func (fg *FallbackGroup[T]) LastBackend() string {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	return fg.served
}

func (fg *FallbackGroup[T]) noteServed(name string) {
	fg.mu.Lock()
	fg.served = name
	fg.mu.Unlock()
}

// Execute tries fn against each entry in order until one succeeds. Entries
// with open breakers are skipped. Returns [ErrAllFailed] wrapping the last
// error if every entry fails.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry until one succeeds, returning
// its result. A package-level function because Go methods cannot introduce
// type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	fg.mu.RLock()
	entries := fg.entries
	fg.mu.RUnlock()

	var (
		lastErr error
		zero    R
	)
	for i := range entries {
		entry := &entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			fg.noteServed(entry.name)
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend (circuit open)", "backend", entry.name)
		} else {
			slog.Warn("backend failed, trying next",
				"backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
