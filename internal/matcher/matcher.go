// Package matcher scores spoken descriptors against visible element labels.
//
// Scoring is tiered: an exact normalized match beats a substring containment,
// which beats token overlap, which beats raw character similarity. The first
// tier that applies decides the score, so a strong containment can never be
// outranked by a lucky character-level coincidence. Spoken phrases are
// expanded through a synonym table before scoring ("sign in" also tries
// "login"), and the best-scoring variant wins.
//
// A score must exceed 0.5 to be accepted as a match.
package matcher

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/voxnav/voxnav/pkg/dom"
)

// cutoff is the score a candidate must exceed to count as a match at all.
const cutoff = 0.5

// defaultSynonyms maps common spoken phrases to label variants worth trying.
// Keys and values are normalized (lowercase, single spaces).
var defaultSynonyms = map[string][]string{
	"login":    {"log in", "sign in", "signin", "enter", "access"},
	"logout":   {"log out", "sign out", "signout", "exit"},
	"search":   {"find", "lookup", "magnifier"},
	"home":     {"main", "start", "homepage"},
	"menu":     {"navigation", "nav", "hamburger"},
	"submit":   {"send", "go", "confirm"},
	"cancel":   {"close", "dismiss"},
	"back":     {"return", "previous"},
	"next":     {"continue", "forward"},
	"settings": {"preferences", "options"},
}

// Match pairs an element with the score its label earned.
type Match struct {
	Element dom.Element
	Score   float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSynonyms merges extra phrase → variants entries into the default
// synonym table. Keys should be normalized (lowercase).
func WithSynonyms(extra map[string][]string) Option {
	return func(m *Matcher) {
		for k, vs := range extra {
			m.synonyms[k] = append(m.synonyms[k], vs...)
		}
	}
}

// WithSubstringWeight overrides the score awarded when one normalized string
// contains the other. Default 0.9.
func WithSubstringWeight(w float64) Option {
	return func(m *Matcher) { m.substringWeight = w }
}

// WithTokenWeight overrides the multiplier applied to the token-overlap
// fraction. Default 0.7.
func WithTokenWeight(w float64) Option {
	return func(m *Matcher) { m.tokenWeight = w }
}

// Matcher scores descriptors against element labels. Safe for concurrent use
// after construction.
type Matcher struct {
	synonyms        map[string][]string
	substringWeight float64
	tokenWeight     float64
}

// New creates a Matcher with the default synonym table and tier weights.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		synonyms:        map[string][]string{},
		substringWeight: 0.9,
		tokenWeight:     0.7,
	}
	for k, vs := range defaultSynonyms {
		m.synonyms[k] = append([]string(nil), vs...)
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Best returns the highest-scoring element for the spoken target, or ok=false
// when nothing clears the acceptance cutoff. Ties go to the element listed
// first, which follows document order.
func (m *Matcher) Best(target string, elems []dom.Element) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, el := range elems {
		s := m.Score(target, el.Text)
		if s <= cutoff {
			continue
		}
		if !found || s > best.Score {
			best = Match{Element: el, Score: s}
			found = true
		}
	}
	return best, found
}

// Rank returns every element clearing the cutoff, best first. Used to build
// clarification candidate lists when no single winner stands out.
func (m *Matcher) Rank(target string, elems []dom.Element) []Match {
	var out []Match
	for _, el := range elems {
		if s := m.Score(target, el.Text); s > cutoff {
			out = append(out, Match{Element: el, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// nearFloor is the minimum score for an element to count as a near miss.
const nearFloor = 0.3

// Near returns up to limit elements scoring above 0.3, best first, including
// ones below the acceptance cutoff. Clarification prompts are built from
// these when nothing matched outright.
func (m *Matcher) Near(target string, elems []dom.Element, limit int) []Match {
	var out []Match
	for _, el := range elems {
		if s := m.Score(target, el.Text); s > nearFloor {
			out = append(out, Match{Element: el, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Score rates how well a spoken target describes a label, in [0,1]. The
// target is tried alongside its synonym variants and the best variant's
// score is returned.
func (m *Matcher) Score(target, label string) float64 {
	t := normalize(target)
	l := normalize(label)
	if t == "" || l == "" {
		return 0
	}

	best := m.scoreOne(t, l)
	for _, v := range m.variants(t) {
		if s := m.scoreOne(v, l); s > best {
			best = s
		}
	}
	return best
}

// variants returns synonym expansions for a normalized phrase, checking both
// directions of the table.
func (m *Matcher) variants(t string) []string {
	var out []string
	if vs, ok := m.synonyms[t]; ok {
		out = append(out, vs...)
	}
	for key, vs := range m.synonyms {
		for _, v := range vs {
			if v == t {
				out = append(out, key)
				for _, sib := range vs {
					if sib != t {
						out = append(out, sib)
					}
				}
				break
			}
		}
	}
	return out
}

// scoreOne applies the tier ladder to a single normalized pair.
func (m *Matcher) scoreOne(t, l string) float64 {
	if t == l {
		return 1.0
	}
	if strings.Contains(l, t) || strings.Contains(t, l) {
		return m.substringWeight
	}
	if frac := tokenOverlap(t, l); frac > 0.5 {
		return m.tokenWeight * frac
	}
	// Character similarity alone is weak evidence; cap it below the
	// acceptance cutoff so it can only rank, never match.
	return min(matchr.JaroWinkler(t, l, false), cutoff)
}

// tokenOverlap returns the fraction of the descriptor's distinct words that
// appear among the label's words. The denominator is always the descriptor
// side, so padding a short label cannot inflate the fraction.
func tokenOverlap(descriptor, label string) float64 {
	dw := make(map[string]struct{})
	for _, w := range strings.Fields(descriptor) {
		dw[w] = struct{}{}
	}
	if len(dw) == 0 {
		return 0
	}
	lw := make(map[string]struct{})
	for _, w := range strings.Fields(label) {
		lw[w] = struct{}{}
	}
	shared := 0
	for w := range dw {
		if _, ok := lw[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(dw))
}

// normalize lowercases, trims, and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
