// Package elements maintains the in-memory inventory of actionable page
// elements.
//
// The [Cache] refreshes from the document in response to document events:
// important mutations (menus, dialogs opening) refresh immediately, ordinary
// mutations are debounced so a burst of DOM churn costs one enumeration, and
// scrolling only refreshes an inventory that has had time to go stale. A
// failed refresh keeps the previous inventory; stale elements a user can
// still see beat an empty list.
package elements

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

const (
	// debounceDelay coalesces bursts of ordinary mutations.
	debounceDelay = 200 * time.Millisecond

	// scrollStaleAge is the minimum inventory age before a scroll event
	// triggers a refresh.
	scrollStaleAge = 2 * time.Second

	// ensureStaleAge is the age past which Ensure forces a refresh before
	// answering.
	ensureStaleAge = 5 * time.Second
)

// Option configures a Cache.
type Option func(*Cache)

// WithDebounce overrides the mutation debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Cache) { c.debounceDelay = d }
}

// WithClock substitutes the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache holds the current element inventory for one document. Safe for
// concurrent use.
type Cache struct {
	doc           dom.Document
	debounceDelay time.Duration
	now           func() time.Time

	mu        sync.Mutex
	elems     []dom.Element
	fetched   time.Time
	debounce  *time.Timer
	readyOnce bool
}

// NewCache creates a Cache over doc. The inventory starts empty; call
// Refresh or feed document events to populate it.
func NewCache(doc dom.Document, opts ...Option) *Cache {
	c := &Cache{
		doc:           doc,
		debounceDelay: debounceDelay,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refresh re-enumerates the document now. On failure the previous inventory
// is retained and the error returned.
func (c *Cache) Refresh(ctx context.Context) error {
	els, err := c.doc.Elements(ctx)
	if err != nil {
		slog.Warn("element refresh failed, keeping previous inventory", "error", err)
		return err
	}

	c.mu.Lock()
	c.elems = els
	c.fetched = c.now()
	c.mu.Unlock()

	slog.Debug("element inventory refreshed", "count", len(els))
	return nil
}

// Ensure returns the inventory, forcing a refresh first when it is older
// than 5 seconds or has never been populated. A refresh failure still
// returns the retained inventory alongside the error.
func (c *Cache) Ensure(ctx context.Context) ([]dom.Element, error) {
	c.mu.Lock()
	age := c.now().Sub(c.fetched)
	empty := c.fetched.IsZero()
	c.mu.Unlock()

	var err error
	if empty || age >= ensureStaleAge {
		err = c.Refresh(ctx)
	}
	return c.Snapshot(), err
}

// HandleEvent reacts to a document event, possibly scheduling or performing
// a refresh. ctx is captured for any deferred refresh the event schedules.
func (c *Cache) HandleEvent(ctx context.Context, ev dom.Event) {
	switch ev.Kind {
	case dom.EventMutationImportant:
		c.CancelPending()
		c.Refresh(ctx)

	case dom.EventMutation:
		c.scheduleDebounced(ctx)

	case dom.EventReady, dom.EventLoaded:
		// The first lifecycle event populates the inventory; later ones
		// (ready followed by loaded) go through the debounce.
		c.mu.Lock()
		first := !c.readyOnce
		c.readyOnce = true
		c.mu.Unlock()
		if first {
			c.Refresh(ctx)
		} else {
			c.scheduleDebounced(ctx)
		}

	case dom.EventScrolled:
		c.mu.Lock()
		stale := c.fetched.IsZero() || c.now().Sub(c.fetched) >= scrollStaleAge
		c.mu.Unlock()
		if stale {
			c.Refresh(ctx)
		}

	case dom.EventHidden, dom.EventTeardown:
		c.CancelPending()
	}
}

// CancelPending drops any debounced refresh that has not fired yet.
func (c *Cache) CancelPending() {
	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.mu.Unlock()
}

// scheduleDebounced (re)arms the debounce timer, so only the last mutation
// in a burst triggers the refresh.
func (c *Cache) scheduleDebounced(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.debounceDelay, func() {
		c.mu.Lock()
		c.debounce = nil
		c.mu.Unlock()
		if ctx.Err() == nil {
			c.Refresh(ctx)
		}
	})
}

// Snapshot returns a copy of the current inventory in document order.
func (c *Cache) Snapshot() []dom.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dom.Element, len(c.elems))
	copy(out, c.elems)
	return out
}

// Age reports how old the inventory is. Zero time means never populated.
func (c *Cache) Age() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetched.IsZero() {
		return 0
	}
	return c.now().Sub(c.fetched)
}

// ByRole returns the inventory filtered to one role.
func (c *Cache) ByRole(role dom.Role) []dom.Element {
	var out []dom.Element
	for _, el := range c.Snapshot() {
		if el.Role == role {
			out = append(out, el)
		}
	}
	return out
}

// Buttons returns the button partition.
func (c *Cache) Buttons() []dom.Element { return c.ByRole(dom.RoleButton) }

// Links returns the link partition.
func (c *Cache) Links() []dom.Element { return c.ByRole(dom.RoleLink) }

// Inputs returns the input partition.
func (c *Cache) Inputs() []dom.Element { return c.ByRole(dom.RoleInput) }

// Candidates converts elements into the wire shape the parsing service
// expects. Candidate IDs are indexes into the returned element slice, which
// holds the same elements in the same order; a resolution's MatchedID maps
// back through it. Elements without any spoken label are skipped; nothing
// could match them.
func Candidates(els []dom.Element) ([]nlu.Candidate, []dom.Element) {
	cands := make([]nlu.Candidate, 0, len(els))
	kept := make([]dom.Element, 0, len(els))
	for _, el := range els {
		if el.Text == "" {
			continue
		}
		cands = append(cands, nlu.Candidate{
			ID:   len(kept),
			Text: el.Text,
			Type: string(el.Role),
		})
		kept = append(kept, el)
	}
	return cands, kept
}
