// Package confirm implements the yes/no gate that sits in front of
// consequential actions.
//
// A click or form fill is never executed straight from a transcript; the
// engine asks the user first and parks the action in the [Gate]. The gate
// holds at most one pending request — a new question replaces the old one
// rather than queueing behind it — and every request carries a generation
// number so an answer arriving after the page changed can be recognised as
// stale and discarded.
package confirm

import (
	"sync"
	"time"

	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// defaultTTL is how long an unanswered question stays valid. Past this the
// user has almost certainly moved on.
const defaultTTL = 30 * time.Second

// Request is one action awaiting confirmation.
type Request struct {
	// Element is the resolved target.
	Element dom.Element

	// Action is what will happen on "yes", typically click or fill.
	Action nlu.Action

	// Text is the value for fill actions.
	Text string

	// Description is the spoken prompt already asked, kept so "what did you
	// say" can replay it.
	Description string
}

// Decision is the outcome of answering the gate.
type Decision int

const (
	// DecisionNone means there was nothing pending (or it had expired).
	DecisionNone Decision = iota

	// DecisionConfirmed means the pending action should execute.
	DecisionConfirmed

	// DecisionRejected means the pending action is dropped.
	DecisionRejected
)

// Option configures a Gate.
type Option func(*Gate)

// WithTTL overrides how long an unanswered question stays valid.
func WithTTL(d time.Duration) Option {
	return func(g *Gate) { g.ttl = d }
}

// WithClock substitutes the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// Gate holds at most one action awaiting confirmation. Safe for concurrent
// use.
type Gate struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending bool
	req     Request
	asked   time.Time
	gen     uint64
}

// New creates an empty gate.
func New(opts ...Option) *Gate {
	g := &Gate{ttl: defaultTTL, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Ask parks req as the pending action, replacing any earlier question, and
// returns the generation number identifying it.
func (g *Gate) Ask(req Request) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.pending = true
	g.req = req
	g.asked = g.now()
	return g.gen
}

// Pending returns the outstanding request, if any. An expired question
// counts as absent and is cleared.
func (g *Gate) Pending() (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pendingLocked() {
		return Request{}, false
	}
	return g.req, true
}

// Generation returns the identifier of the current question, or of the most
// recent one if nothing is pending. Callers capture it before a slow parse
// and compare after, discarding work when the gate moved on underneath them.
func (g *Gate) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// Answer resolves the pending question with a confirmation word ("yes" or
// "no") and clears the gate. With nothing pending it reports DecisionNone.
func (g *Gate) Answer(confirmation string) (Request, Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pendingLocked() {
		return Request{}, DecisionNone
	}

	req := g.req
	switch confirmation {
	case "yes":
		g.clearLocked()
		return req, DecisionConfirmed
	case "no":
		g.clearLocked()
		return req, DecisionRejected
	default:
		// Not a recognisable answer; the question stands and the caller
		// re-prompts.
		return req, DecisionNone
	}
}

// Cancel drops any pending question.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
}

// pendingLocked reports liveness, expiring overdue questions. Must be
// called with g.mu held.
func (g *Gate) pendingLocked() bool {
	if !g.pending {
		return false
	}
	if g.ttl > 0 && g.now().Sub(g.asked) > g.ttl {
		g.clearLocked()
		return false
	}
	return true
}

// clearLocked must be called with g.mu held.
func (g *Gate) clearLocked() {
	g.pending = false
	g.req = Request{}
	g.gen++
}
