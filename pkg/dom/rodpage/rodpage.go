// Package rodpage implements dom.Document on top of a go-rod page.
//
// Interactive elements are discovered by an injected script that walks the
// role selectors (buttons, links, inputs, generic clickables), filters out
// hidden and zero-size nodes, derives a display text for each element, and
// stamps every discovered node with a stable data attribute so the engine can
// address it later. Surface events (mutations, readiness milestones, scroll,
// visibility changes) are forwarded from the page through an exposed callback
// into a Go channel.
package rodpage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/ysmood/gson"

	"github.com/voxnav/voxnav/pkg/dom"
)

// idAttr is the data attribute used to address discovered elements.
const idAttr = "data-voxnav-id"

// eventBuffer bounds the surface event channel. Events beyond the buffer are
// dropped; the cache treats events as refresh hints, not as a reliable log.
const eventBuffer = 64

// Page implements [dom.Document] over a rod page.
//
// All methods are safe for concurrent use.
type Page struct {
	page   *rod.Page
	prefix string

	events chan dom.Event

	mu        sync.Mutex
	closed    bool
	stopHook  func() error
	closeOnce sync.Once
}

// Attach wraps an already-navigated rod page as a [dom.Document] and installs
// the surface observer script. The caller retains ownership of the underlying
// browser; Close detaches the observer but does not close the page.
func Attach(page *rod.Page) (*Page, error) {
	p := &Page{
		page:   page,
		prefix: "vx-" + uuid.NewString()[:8] + "-",
		events: make(chan dom.Event, eventBuffer),
	}

	stop, err := page.Expose("__voxnavEmit", func(v gson.JSON) (any, error) {
		p.emit(v.Get("kind").Str())
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rodpage: expose event sink: %w", err)
	}
	p.stopHook = stop

	if _, err := page.Eval(observerScript); err != nil {
		_ = stop()
		return nil, fmt.Errorf("rodpage: install observer: %w", err)
	}

	return p, nil
}

// emit converts a script-side event name into a dom.Event and delivers it
// without blocking.
func (p *Page) emit(kind string) {
	var k dom.EventKind
	switch kind {
	case "mutation":
		k = dom.EventMutation
	case "mutation-important":
		k = dom.EventMutationImportant
	case "ready":
		k = dom.EventReady
	case "loaded":
		k = dom.EventLoaded
	case "scroll":
		k = dom.EventScrolled
	case "hidden":
		k = dom.EventHidden
	case "visible":
		k = dom.EventVisible
	case "teardown":
		k = dom.EventTeardown
	default:
		slog.Debug("rodpage: unknown surface event", "kind", kind)
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	select {
	case p.events <- dom.Event{Kind: k, At: time.Now()}:
	default:
		// Drop rather than block the page's event callback.
	}
}

// elementDTO mirrors the JSON emitted by the enumeration script.
type elementDTO struct {
	ID   string  `json:"id"`
	Role string  `json:"role"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Elements enumerates visible interactive elements and stamps them with
// addressable IDs.
func (p *Page) Elements(ctx context.Context) ([]dom.Element, error) {
	res, err := p.page.Context(ctx).Eval(enumerateScript, p.prefix)
	if err != nil {
		return nil, fmt.Errorf("rodpage: enumerate elements: %w", err)
	}

	var dtos []elementDTO
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), &dtos); err != nil {
		return nil, fmt.Errorf("rodpage: decode element list: %w", err)
	}

	now := time.Now()
	els := make([]dom.Element, 0, len(dtos))
	for _, d := range dtos {
		els = append(els, dom.Element{
			ID:   d.ID,
			Role: roleFromString(d.Role),
			Text: strings.TrimSpace(d.Text),
			Box:  dom.Rect{X: d.X, Y: d.Y, Width: d.W, Height: d.H},
			Seen: now,
		})
	}
	return els, nil
}

// roleFromString maps a script-side role string onto a dom.Role.
func roleFromString(s string) dom.Role {
	switch s {
	case "button":
		return dom.RoleButton
	case "link":
		return dom.RoleLink
	case "input":
		return dom.RoleInput
	default:
		return dom.RoleClickable
	}
}

// Attached reports whether el is still present in the tree.
func (p *Page) Attached(ctx context.Context, el dom.Element) (bool, error) {
	res, err := p.page.Context(ctx).Eval(
		`(id) => document.querySelector('[`+idAttr+`="' + CSS.escape(id) + '"]') !== null`,
		el.ID,
	)
	if err != nil {
		return false, fmt.Errorf("rodpage: attachment check: %w", err)
	}
	return res.Value.Bool(), nil
}

// Click dispatches a click on el. Detached elements produce an error.
func (p *Page) Click(ctx context.Context, el dom.Element) error {
	return p.withElement(ctx, el, "click", `el.click()`)
}

// Focus moves input focus to el.
func (p *Page) Focus(ctx context.Context, el dom.Element) error {
	return p.withElement(ctx, el, "focus", `el.focus()`)
}

// SetValue focuses el and replaces its value, emitting input/change events so
// framework-bound inputs observe the update.
func (p *Page) SetValue(ctx context.Context, el dom.Element, text string) error {
	_, err := p.page.Context(ctx).Eval(`(id, text) => {
		const el = document.querySelector('[`+idAttr+`="' + CSS.escape(id) + '"]');
		if (!el) throw new Error('element detached');
		el.focus();
		if (el.isContentEditable) {
			el.textContent = text;
		} else {
			el.value = text;
		}
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
	}`, el.ID, text)
	if err != nil {
		return fmt.Errorf("rodpage: set value on %q: %w", el.ID, err)
	}
	return nil
}

// withElement resolves el by ID and runs a one-line action on it.
func (p *Page) withElement(ctx context.Context, el dom.Element, what, action string) error {
	_, err := p.page.Context(ctx).Eval(`(id) => {
		const el = document.querySelector('[`+idAttr+`="' + CSS.escape(id) + '"]');
		if (!el) throw new Error('element detached');
		`+action+`;
	}`, el.ID)
	if err != nil {
		return fmt.Errorf("rodpage: %s on %q: %w", what, el.ID, err)
	}
	return nil
}

// Scroll scrolls the surface by (dx, dy) CSS pixels.
func (p *Page) Scroll(ctx context.Context, dx, dy float64) error {
	_, err := p.page.Context(ctx).Eval(
		`(dx, dy) => window.scrollBy({left: dx, top: dy, behavior: 'smooth'})`, dx, dy)
	if err != nil {
		return fmt.Errorf("rodpage: scroll: %w", err)
	}
	return nil
}

// ScrollToEdge scrolls to the top or bottom of the surface.
func (p *Page) ScrollToEdge(ctx context.Context, up bool) error {
	js := `() => window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'})`
	if up {
		js = `() => window.scrollTo({top: 0, behavior: 'smooth'})`
	}
	if _, err := p.page.Context(ctx).Eval(js); err != nil {
		return fmt.Errorf("rodpage: scroll to edge: %w", err)
	}
	return nil
}

// Navigate performs a history back/forward or a reload.
func (p *Page) Navigate(ctx context.Context, dir dom.NavDirection) error {
	var js string
	switch dir {
	case dom.NavBack:
		js = `() => history.back()`
	case dom.NavForward:
		js = `() => history.forward()`
	case dom.NavReload:
		js = `() => location.reload()`
	default:
		return fmt.Errorf("rodpage: unknown navigation %q", dir)
	}
	if _, err := p.page.Context(ctx).Eval(js); err != nil {
		return fmt.Errorf("rodpage: navigate %s: %w", dir, err)
	}
	return nil
}

// Highlight inserts overlay boxes over els, replacing previous overlays.
func (p *Page) Highlight(ctx context.Context, els []dom.Element) error {
	ids := make([]string, 0, len(els))
	for _, el := range els {
		ids = append(ids, el.ID)
	}
	if _, err := p.page.Context(ctx).Eval(highlightScript, ids); err != nil {
		return fmt.Errorf("rodpage: highlight: %w", err)
	}
	return nil
}

// ClearHighlights removes all overlays inserted by Highlight.
func (p *Page) ClearHighlights(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(
		`() => document.querySelectorAll('.voxnav-overlay').forEach(n => n.remove())`)
	if err != nil {
		return fmt.Errorf("rodpage: clear highlights: %w", err)
	}
	return nil
}

// Events returns the surface event stream.
func (p *Page) Events() <-chan dom.Event { return p.events }

// Close detaches the observer, removes residual overlays, and closes the
// event channel. Safe to call multiple times.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.ClearHighlights(ctx); err != nil {
			slog.Debug("rodpage: clear highlights on close", "err", err)
		}
		if p.stopHook != nil {
			_ = p.stopHook()
		}
		close(p.events)
	})
	return nil
}
