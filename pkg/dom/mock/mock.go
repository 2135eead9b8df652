// Package mock provides a scriptable test double for the dom package.
//
// Use Document to feed controlled element inventories to the engine and to
// inspect which actions were dispatched. Elements can be detached mid-test
// via Detach to exercise stale-handle validation.
package mock

import (
	"context"
	"sync"

	"github.com/voxnav/voxnav/pkg/dom"
)

// ClickCall records a single invocation of Document.Click.
type ClickCall struct {
	Element dom.Element
}

// SetValueCall records a single invocation of Document.SetValue.
type SetValueCall struct {
	Element dom.Element
	Text    string
}

// ScrollCall records a single invocation of Document.Scroll.
type ScrollCall struct {
	DX, DY float64
}

// Document is a mock implementation of dom.Document.
//
// Set Live to the current element inventory; Elements returns a copy of it.
// All dispatched actions are recorded. Safe for concurrent use.
type Document struct {
	mu sync.Mutex

	// Live is the inventory returned by Elements.
	Live []dom.Element

	// ElementsErr, if non-nil, is returned by every Elements call.
	ElementsErr error

	// detached holds IDs that Attached reports as gone.
	detached map[string]bool

	// ElementsCalls counts invocations of Elements.
	ElementsCalls int

	// Recorded actions.
	Clicks      []ClickCall
	Focuses     []dom.Element
	SetValues   []SetValueCall
	Scrolls     []ScrollCall
	EdgeScrolls []bool
	Navigations []dom.NavDirection

	// Highlighted is the element set passed to the most recent Highlight
	// call; nil after ClearHighlights.
	Highlighted []dom.Element

	// EventsCh is the channel returned by Events. Callers own it and close
	// it in tests. If nil, a buffered channel is created on first use.
	EventsCh chan dom.Event

	closed bool
}

var _ dom.Document = (*Document)(nil)

// Elements returns a copy of Live.
func (d *Document) Elements(context.Context) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ElementsCalls++
	if d.ElementsErr != nil {
		return nil, d.ElementsErr
	}
	out := make([]dom.Element, len(d.Live))
	copy(out, d.Live)
	return out, nil
}

// Detach marks the element with the given ID as removed from the tree.
func (d *Document) Detach(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached == nil {
		d.detached = make(map[string]bool)
	}
	d.detached[id] = true
	live := d.Live[:0]
	for _, el := range d.Live {
		if el.ID != id {
			live = append(live, el)
		}
	}
	d.Live = live
}

// Attached reports whether el has not been detached.
func (d *Document) Attached(_ context.Context, el dom.Element) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.detached[el.ID], nil
}

// Click records the call.
func (d *Document) Click(_ context.Context, el dom.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clicks = append(d.Clicks, ClickCall{Element: el})
	return nil
}

// Focus records the call.
func (d *Document) Focus(_ context.Context, el dom.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Focuses = append(d.Focuses, el)
	return nil
}

// SetValue records the call.
func (d *Document) SetValue(_ context.Context, el dom.Element, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.SetValues = append(d.SetValues, SetValueCall{Element: el, Text: text})
	return nil
}

// Scroll records the call.
func (d *Document) Scroll(_ context.Context, dx, dy float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Scrolls = append(d.Scrolls, ScrollCall{DX: dx, DY: dy})
	return nil
}

// ScrollToEdge records the call.
func (d *Document) ScrollToEdge(_ context.Context, up bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EdgeScrolls = append(d.EdgeScrolls, up)
	return nil
}

// Navigate records the call.
func (d *Document) Navigate(_ context.Context, dir dom.NavDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigations = append(d.Navigations, dir)
	return nil
}

// Highlight records the overlay set.
func (d *Document) Highlight(_ context.Context, els []dom.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Highlighted = make([]dom.Element, len(els))
	copy(d.Highlighted, els)
	return nil
}

// ClearHighlights clears the recorded overlay set.
func (d *Document) ClearHighlights(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Highlighted = nil
	return nil
}

// Events returns EventsCh, creating a buffered channel if unset.
func (d *Document) Events() <-chan dom.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.EventsCh == nil {
		d.EventsCh = make(chan dom.Event, 16)
	}
	return d.EventsCh
}

// Close marks the document closed.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Clicked returns a copy of the recorded click calls.
func (d *Document) Clicked() []ClickCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ClickCall, len(d.Clicks))
	copy(out, d.Clicks)
	return out
}

// Scrolled returns a copy of the recorded scroll calls.
func (d *Document) Scrolled() []ScrollCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ScrollCall, len(d.Scrolls))
	copy(out, d.Scrolls)
	return out
}

// Navigated returns a copy of the recorded navigation calls.
func (d *Document) Navigated() []dom.NavDirection {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dom.NavDirection, len(d.Navigations))
	copy(out, d.Navigations)
	return out
}

// Focused returns a copy of the recorded focus calls.
func (d *Document) Focused() []dom.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dom.Element, len(d.Focuses))
	copy(out, d.Focuses)
	return out
}

// ValuesSet returns a copy of the recorded set-value calls.
func (d *Document) ValuesSet() []SetValueCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SetValueCall, len(d.SetValues))
	copy(out, d.SetValues)
	return out
}

// CurrentHighlights returns a copy of the active overlay set.
func (d *Document) CurrentHighlights() []dom.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dom.Element, len(d.Highlighted))
	copy(out, d.Highlighted)
	return out
}
