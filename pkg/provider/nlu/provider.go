// Package nlu defines the parsing-service boundary: the ParsedIntent wire
// type and the Parser interfaces implemented by the remote service client,
// the LLM-backed extended parser, and the engine's local keyword parser.
//
// Failure semantics at this boundary are deliberate: connection refused,
// timeout, and malformed responses all surface as errors wrapping
// [ErrUnavailable], which callers map to "fall back to the local parser" —
// never to a user-visible failure.
package nlu

import (
	"context"
	"errors"
)

// Action is a structured command kind.
type Action string

// The action vocabulary. Document actions operate on the surface; social and
// flow actions are handled entirely inside the engine.
const (
	ActionClick     Action = "click"
	ActionShow      Action = "show"
	ActionScroll    Action = "scroll"
	ActionOpen      Action = "open"
	ActionClose     Action = "close"
	ActionNavigate  Action = "navigate"
	ActionZoom      Action = "zoom"
	ActionReload    Action = "reload"
	ActionBack      Action = "back"
	ActionForward   Action = "forward"
	ActionStop      Action = "stop"
	ActionFill      Action = "fill"
	ActionRead      Action = "read"
	ActionCount     Action = "count"
	ActionFind      Action = "find"
	ActionUndo      Action = "undo"
	ActionHelp      Action = "help"
	ActionGreet     Action = "greet"
	ActionThank     Action = "thank"
	ActionCancel    Action = "cancel"
)

// ParsedIntent is the structured form of one transcript. Immutable once
// produced.
type ParsedIntent struct {
	// Action is the recognised command kind; empty when nothing matched.
	Action Action `json:"action"`

	// Target is the element type the command addresses ("button", "link",
	// "input", ...); empty when unspecified.
	Target string `json:"target"`

	// Direction is a movement or position modifier ("up", "down", "top",
	// "first", ...); empty when unspecified.
	Direction string `json:"direction"`

	// Ordinal selects the Nth element of a set, 1-based. Zero means none.
	Ordinal int `json:"number"`

	// Descriptor is the free-text phrase naming a desired element.
	Descriptor string `json:"descriptor"`

	// Confirmation is "yes" or "no" when the transcript is a confirmation
	// response; empty otherwise.
	Confirmation string `json:"confirmation"`

	// Confidence is the parser's confidence in this reading, in [0,1].
	Confidence float64 `json:"confidence"`

	// Success reports whether the parser produced a usable reading.
	Success bool `json:"success"`
}

// Candidate describes one addressable element forwarded to an element-aware
// parser in extended mode.
type Candidate struct {
	// ID indexes the candidate within the forwarded inventory.
	ID int `json:"id"`

	// Text is the element's derived display text.
	Text string `json:"text"`

	// Type is the element's role ("button", "link", ...).
	Type string `json:"type"`
}

// Resolution is the result of an element-aware parse: an intent plus,
// when the service named a best element, its candidate ID.
type Resolution struct {
	Intent ParsedIntent

	// MatchedID is the ID of the chosen candidate, or -1 when the service
	// did not pick one.
	MatchedID int

	// MatchConfidence is the service's confidence in the element choice.
	MatchConfidence float64

	// Response is an optional service-suggested spoken reply.
	Response string
}

// ErrUnavailable marks a parse failure that callers should treat as "no
// parse": fall back to the local path, do not surface an error.
var ErrUnavailable = errors.New("parsing service unavailable")

// Parser converts a transcript into a ParsedIntent.
type Parser interface {
	// Parse parses a single transcript. Implementations bound their own
	// latency via ctx; failures wrap ErrUnavailable when the caller should
	// fall back rather than fail.
	Parse(ctx context.Context, text string) (ParsedIntent, error)

	// ParseBatch parses several transcripts in one call. Implementations
	// without a batch endpoint loop over Parse.
	ParseBatch(ctx context.Context, texts []string) ([]ParsedIntent, error)
}

// ElementAwareParser additionally accepts the current element inventory so the
// service can name a best element directly (extended mode).
type ElementAwareParser interface {
	Parser

	// Resolve parses text with the candidate inventory available.
	Resolve(ctx context.Context, text string, candidates []Candidate) (Resolution, error)
}
