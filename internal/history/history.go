// Package history keeps the bounded trail of executed actions behind the
// "undo that" command.
package history

import (
	"sync"
	"time"

	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// maxRecords bounds the trail; an undo never reaches further back anyway.
const maxRecords = 20

// Record is one executed action.
type Record struct {
	// Action is what ran: click, fill, scroll, navigate, back, forward,
	// reload.
	Action nlu.Action

	// Element is set for element-directed actions.
	Element dom.Element

	// DX, DY hold the scroll delta for scroll records.
	DX, DY float64

	// Nav holds the direction for navigation records.
	Nav dom.NavDirection

	// At is when the action executed.
	At time.Time
}

// Trail is the bounded action history. Safe for concurrent use.
type Trail struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty trail.
func New() *Trail {
	return &Trail{}
}

// Append records an executed action, evicting the oldest once the trail
// holds twenty.
func (t *Trail) Append(r Record) {
	t.mu.Lock()
	if r.At.IsZero() {
		r.At = time.Now()
	}
	t.records = append(t.records, r)
	if len(t.records) > maxRecords {
		t.records = t.records[len(t.records)-maxRecords:]
	}
	t.mu.Unlock()
}

// Last returns the most recent record without removing it.
func (t *Trail) Last() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 {
		return Record{}, false
	}
	return t.records[len(t.records)-1], true
}

// Pop removes and returns the most recent record. The engine calls this for
// "undo that" and derives the inverse action from the record.
func (t *Trail) Pop() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 {
		return Record{}, false
	}
	r := t.records[len(t.records)-1]
	t.records = t.records[:len(t.records)-1]
	return r, true
}

// Len reports how many records the trail holds.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// All returns a copy of the trail, oldest first.
func (t *Trail) All() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Clear empties the trail.
func (t *Trail) Clear() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}
