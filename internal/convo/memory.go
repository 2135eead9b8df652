// Package convo holds the short-term conversational memory behind pronoun
// references and replay requests.
//
// Memory remembers what was recently shown, clicked, said, and heard, all in
// bounded rings; nothing here is durable. Element references are validated
// when read, not when stored, because the page may have changed in between.
package convo

import (
	"sync"
	"time"

	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

const (
	maxShown       = 10
	maxExchanges   = 30
	maxCorrections = 10
)

// Exchange is one heard/spoken turn.
type Exchange struct {
	Heard string
	Spoke string
	At    time.Time
}

// Correction records a command the user walked back.
type Correction struct {
	From string
	To   string
	At   time.Time
}

// Memory is the per-session conversational state. Safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	lastAction  nlu.Action
	lastTarget  string
	lastShown   []dom.Element
	lastClicked *dom.Element
	lastSpoken  string
	exchanges   []Exchange
	corrections []Correction
}

// New creates an empty Memory.
func New() *Memory {
	return &Memory{}
}

// RecordCommand notes the most recent understood action and target.
func (m *Memory) RecordCommand(action nlu.Action, target string) {
	m.mu.Lock()
	m.lastAction = action
	m.lastTarget = target
	m.mu.Unlock()
}

// RecordShown replaces the remembered highlight set, keeping at most the
// first ten elements.
func (m *Memory) RecordShown(els []dom.Element) {
	m.mu.Lock()
	n := min(len(els), maxShown)
	m.lastShown = make([]dom.Element, n)
	copy(m.lastShown, els[:n])
	m.mu.Unlock()
}

// RecordClicked notes the element an action just landed on.
func (m *Memory) RecordClicked(el dom.Element) {
	m.mu.Lock()
	clone := el
	m.lastClicked = &clone
	m.mu.Unlock()
}

// RecordSpoken notes the last utterance we produced, so "what did you say"
// can replay it.
func (m *Memory) RecordSpoken(text string) {
	m.mu.Lock()
	m.lastSpoken = text
	m.mu.Unlock()
}

// RecordExchange appends a heard/spoken turn, keeping the most recent
// thirty.
func (m *Memory) RecordExchange(heard, spoke string) {
	m.mu.Lock()
	m.exchanges = append(m.exchanges, Exchange{Heard: heard, Spoke: spoke, At: time.Now()})
	if len(m.exchanges) > maxExchanges {
		m.exchanges = m.exchanges[len(m.exchanges)-maxExchanges:]
	}
	m.mu.Unlock()
}

// RecordCorrection appends a correction, keeping the most recent ten.
func (m *Memory) RecordCorrection(from, to string) {
	m.mu.Lock()
	m.corrections = append(m.corrections, Correction{From: from, To: to, At: time.Now()})
	if len(m.corrections) > maxCorrections {
		m.corrections = m.corrections[len(m.corrections)-maxCorrections:]
	}
	m.mu.Unlock()
}

// LastAction returns the most recent understood action and target.
func (m *Memory) LastAction() (nlu.Action, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAction, m.lastTarget
}

// LastSpoken returns the last utterance we produced.
func (m *Memory) LastSpoken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSpoken
}

// LastShown returns a copy of the remembered highlight set.
func (m *Memory) LastShown() []dom.Element {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dom.Element, len(m.lastShown))
	copy(out, m.lastShown)
	return out
}

// Exchanges returns a copy of the conversation ring, oldest first.
func (m *Memory) Exchanges() []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// ResolveReference resolves a pronoun ("it", "that one") to an element.
// An explicit ordinal picks from the last shown set; otherwise the last
// clicked element wins, then the first of the last shown set. Every candidate
// is checked with attached before being returned, so a reference to something
// that left the page simply fails.
func (m *Memory) ResolveReference(ordinal int, attached func(dom.Element) bool) (dom.Element, bool) {
	m.mu.Lock()
	shown := m.lastShown
	clicked := m.lastClicked
	m.mu.Unlock()

	if ordinal > 0 {
		if ordinal <= len(shown) && attached(shown[ordinal-1]) {
			return shown[ordinal-1], true
		}
		return dom.Element{}, false
	}
	if clicked != nil && attached(*clicked) {
		return *clicked, true
	}
	if len(shown) > 0 && attached(shown[0]) {
		return shown[0], true
	}
	return dom.Element{}, false
}

// SoftReset clears element-referencing state after a navigation. The
// conversation ring survives; the elements it pointed at do not.
func (m *Memory) SoftReset() {
	m.mu.Lock()
	m.lastShown = nil
	m.lastClicked = nil
	m.lastAction = ""
	m.lastTarget = ""
	m.mu.Unlock()
}
