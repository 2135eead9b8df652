// Package dom defines the Document interface and its supporting types.
//
// A Document is the engine's window onto one interactive surface: a page of
// clickable, scrollable, navigable elements. The interface covers exactly the
// access the command engine needs — enumerating visible interactive elements,
// dispatching a click/focus/value-set on one resolved element, scrolling and
// history navigation, and transient highlight overlays. No other mutation is
// exposed.
//
// Elements returned by [Document.Elements] are snapshots. The underlying node
// may be removed from the tree at any time ("detached"); callers must re-check
// validity with [Document.Attached] before every use and must never assume a
// previously seen element is still live.
//
// Implementations are provided by backend-specific packages such as
// [github.com/voxnav/voxnav/pkg/dom/rodpage]. The interface is intentionally
// narrow so that the engine remains backend-agnostic and fully testable
// against [github.com/voxnav/voxnav/pkg/dom/mock].
package dom

import (
	"context"
	"time"
)

// Role classifies an interactive element by its inferred interaction kind.
type Role string

const (
	// RoleButton covers <button>, submit/button inputs, and role="button".
	RoleButton Role = "button"

	// RoleLink covers anchors with an href.
	RoleLink Role = "link"

	// RoleInput covers text inputs, textareas, and contenteditable regions.
	RoleInput Role = "input"

	// RoleClickable covers everything else with an explicit interaction
	// attribute or pointer-affordance styling.
	RoleClickable Role = "clickable"
)

// Rect is an element's bounding geometry in page coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is a handle into the current document snapshot.
//
// ID is opaque and backend-assigned; it remains resolvable for as long as the
// underlying node stays in the tree. Text is the derived display text: the
// truncated visible text, falling back through accessible name, title,
// placeholder, form name, and id.
type Element struct {
	// ID resolves the element within its Document. Opaque to callers.
	ID string

	// Role is the inferred interaction role.
	Role Role

	// Text is the derived, already-truncated display text. May be empty.
	Text string

	// Box is the bounding geometry at snapshot time.
	Box Rect

	// Seen is when this snapshot was taken.
	Seen time.Time
}

// NavDirection selects a history or reload navigation.
type NavDirection string

const (
	NavBack    NavDirection = "back"
	NavForward NavDirection = "forward"
	NavReload  NavDirection = "reload"
)

// EventKind classifies surface events delivered on [Document.Events].
type EventKind int

const (
	// EventMutation is an ordinary structural or attribute change.
	EventMutation EventKind = iota

	// EventMutationImportant is a structural change that introduced a
	// menu/dialog/nav-like subtree and warrants an immediate cache refresh.
	EventMutationImportant

	// EventReady fires once when the document reaches interactive readiness.
	EventReady

	// EventLoaded fires once when the document is fully loaded.
	EventLoaded

	// EventScrolled reports scroll activity (coalesced by the backend).
	EventScrolled

	// EventHidden reports that the surface became invisible.
	EventHidden

	// EventVisible reports that the surface became visible again.
	EventVisible

	// EventTeardown reports that the surface is going away. The Events
	// channel is closed after this event.
	EventTeardown
)

// Event is a surface notification.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Document is the abstraction over one interactive surface.
//
// Implementations must be safe for concurrent use. All methods that accept a
// [context.Context] respect cancellation.
type Document interface {
	// Elements enumerates the currently visible interactive elements:
	// semantic roles, explicit interaction attributes, or pointer-affordance
	// styling, filtered to non-zero-size and non-hidden nodes.
	Elements(ctx context.Context) ([]Element, error)

	// Attached reports whether el is still present in the tree.
	Attached(ctx context.Context, el Element) (bool, error)

	// Click dispatches a click on el. Returns an error if el is detached.
	Click(ctx context.Context, el Element) error

	// Focus moves input focus to el.
	Focus(ctx context.Context, el Element) error

	// SetValue focuses el and replaces its value with text. Only meaningful
	// for RoleInput elements.
	SetValue(ctx context.Context, el Element, text string) error

	// Scroll scrolls the surface by (dx, dy) CSS pixels.
	Scroll(ctx context.Context, dx, dy float64) error

	// ScrollToEdge scrolls to the top (up=true) or bottom of the surface.
	ScrollToEdge(ctx context.Context, up bool) error

	// Navigate performs a history back/forward or reload.
	Navigate(ctx context.Context, dir NavDirection) error

	// Highlight inserts transient overlays over the given elements,
	// replacing any overlays already present.
	Highlight(ctx context.Context, els []Element) error

	// ClearHighlights removes all overlays inserted by Highlight.
	ClearHighlights(ctx context.Context) error

	// Events returns the surface event stream. The channel is closed on
	// teardown; events are dropped rather than blocking a slow consumer.
	Events() <-chan Event

	// Close detaches from the surface and removes any residual overlays.
	// Safe to call multiple times.
	Close() error
}
