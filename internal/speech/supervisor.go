// Package speech supervises the continuous listening loop and serializes
// spoken output.
//
// The [Supervisor] owns one transcription session at a time and restarts it
// whenever it ends: immediately after routine endings (silence timeouts,
// aborts) and with exponential backoff after network failures, up to a retry
// budget. Permission and capability failures are terminal; restarting cannot
// fix a denied microphone.
//
// The [Speaker] sits on the other side of the conversation. While an
// utterance plays, the supervisor is suspended so the engine does not
// transcribe its own voice, and acceptance resumes only after a short settle
// delay absorbs the playback tail.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxnav/voxnav/pkg/provider/stt"
)

// Default restart parameters.
const (
	defaultMaxRetries  = 8
	defaultBackoff     = 500 * time.Millisecond
	defaultMaxBackoff  = 15 * time.Second
	defaultSettleDelay = 300 * time.Millisecond
)

// State is the supervisor's lifecycle phase.
type State int32

const (
	// StateIdle means Start has not been called (or Stop has).
	StateIdle State = iota

	// StateListening means a transcription session is live.
	StateListening

	// StateSuspended means listening is paused while speech plays.
	StateSuspended

	// StateError is terminal: permission denied, unsupported, or the retry
	// budget is exhausted.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSuspended:
		return "suspended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithStreamConfig sets the transcription stream configuration.
func WithStreamConfig(cfg stt.StreamConfig) Option {
	return func(s *Supervisor) { s.cfg = cfg }
}

// WithRetry overrides the restart budget and backoff bounds.
func WithRetry(maxRetries int, backoff, maxBackoff time.Duration) Option {
	return func(s *Supervisor) {
		s.maxRetries = maxRetries
		s.backoff = backoff
		s.maxBackoff = maxBackoff
	}
}

// WithSettleDelay overrides how long after Resume transcripts stay ignored.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.settleDelay = d }
}

// WithRestartHook registers fn to run after every session restart, e.g. to
// bump a restart counter.
func WithRestartHook(fn func()) Option {
	return func(s *Supervisor) { s.onRestart = fn }
}

// Supervisor keeps exactly one transcription session alive. Safe for
// concurrent use.
type Supervisor struct {
	provider    stt.Provider
	cfg         stt.StreamConfig
	maxRetries  int
	backoff     time.Duration
	maxBackoff  time.Duration
	settleDelay time.Duration

	out       chan stt.TranscriptEvent
	state     atomic.Int32
	restarts  atomic.Int64
	onRestart func()

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	lastErr     error
	suspended   bool
	ignoreUntil time.Time

	wg sync.WaitGroup
}

// New creates a Supervisor over provider.
func New(provider stt.Provider, opts ...Option) *Supervisor {
	s := &Supervisor{
		provider:    provider,
		maxRetries:  defaultMaxRetries,
		backoff:     defaultBackoff,
		maxBackoff:  defaultMaxBackoff,
		settleDelay: defaultSettleDelay,
		out:         make(chan stt.TranscriptEvent, 16),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins continuous listening. Calling Start on a running supervisor
// is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx)
}

// Transcripts returns the stream of transcript events from whichever session
// is currently live. The channel closes when the supervisor stops or hits a
// terminal error.
func (s *Supervisor) Transcripts() <-chan stt.TranscriptEvent {
	return s.out
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Err returns the terminal error, if the supervisor is in StateError.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Restarts reports how many times a session has been restarted.
func (s *Supervisor) Restarts() int64 {
	return s.restarts.Load()
}

// Suspend pauses transcript acceptance while speech output plays. The
// underlying session keeps running; its events are dropped.
func (s *Supervisor) Suspend() {
	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	if s.State() == StateListening {
		s.state.Store(int32(StateSuspended))
	}
}

// Resume re-enables transcript acceptance after the settle delay, so the
// tail of our own utterance is not transcribed as a command.
func (s *Supervisor) Resume() {
	s.mu.Lock()
	s.suspended = false
	s.ignoreUntil = time.Now().Add(s.settleDelay)
	s.mu.Unlock()
	if s.State() == StateSuspended {
		s.state.Store(int32(StateListening))
	}
}

// Stop shuts the supervisor down and waits for the session to close.
// Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// accepting reports whether transcripts should be forwarded right now.
func (s *Supervisor) accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.suspended && time.Now().After(s.ignoreUntil)
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.out)

	retries := 0
	backoff := s.backoff

	for ctx.Err() == nil {
		handle, err := s.provider.Start(ctx, s.cfg)
		if err != nil {
			if terminal(err) {
				s.fail(err)
				return
			}
			retries++
			if retries > s.maxRetries {
				s.fail(err)
				return
			}
			slog.Warn("listening session failed to start, retrying",
				"attempt", retries, "backoff", backoff, "error", err)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, s.maxBackoff)
			continue
		}

		if !s.suspendedNow() {
			s.state.Store(int32(StateListening))
		}
		retries = 0
		backoff = s.backoff

	consume:
		for {
			select {
			case ev, ok := <-handle.Events():
				if !ok {
					break consume
				}
				if !s.accepting() {
					continue
				}
				select {
				case s.out <- ev:
				case <-ctx.Done():
					handle.Close()
					return
				}
			case <-ctx.Done():
				handle.Close()
				return
			}
		}

		sessionErr := handle.Err()
		handle.Close()

		if ctx.Err() != nil {
			return
		}
		if terminal(sessionErr) {
			s.fail(sessionErr)
			return
		}

		s.restarts.Add(1)
		if s.onRestart != nil {
			s.onRestart()
		}
		var kind stt.ErrorKind
		if sessionErr != nil {
			kind = stt.Classify(sessionErr)
		}
		if kind == stt.KindNetwork {
			// Network drops back off; silence timeouts restart at once.
			retries++
			if retries > s.maxRetries {
				s.fail(sessionErr)
				return
			}
			slog.Warn("listening session dropped, restarting",
				"attempt", retries, "backoff", backoff, "error", sessionErr)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, s.maxBackoff)
		} else {
			slog.Debug("listening session ended, restarting", "kind", kind)
		}
	}
}

func (s *Supervisor) suspendedNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.state.Store(int32(StateError))
	slog.Error("listening stopped permanently", "error", err)
}

// terminal reports whether err can never be fixed by restarting.
func terminal(err error) bool {
	if err == nil {
		return false
	}
	var se *stt.SessionError
	if errors.As(err, &se) {
		return se.Terminal()
	}
	return false
}

// sleep waits for d, returning false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
