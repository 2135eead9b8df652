// Package intent turns transcripts into structured commands.
//
// The local [Parser] is keyword-driven and never fails: it extracts an
// action, target type, direction, ordinal, and descriptor from a transcript
// and assigns a confidence from what it found. It backs the remote parsing
// service as the always-available fallback, and also answers the fast path
// for confirmations and cancels where a network round trip would feel
// sluggish.
//
// [Resolver] is the dual-path front door: remote service first, local parser
// when the service is unavailable, all bounded by a single deadline.
package intent

import (
	"context"
	"strconv"
	"strings"

	"github.com/voxnav/voxnav/internal/matcher"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// Parser is the local keyword parser. It implements nlu.ElementAwareParser
// so it can stand in for the remote service in a fallback group. Safe for
// concurrent use.
type Parser struct {
	match *matcher.Matcher
}

// NewParser creates a local parser scoring element candidates with m.
func NewParser(m *matcher.Matcher) *Parser {
	return &Parser{match: m}
}

var _ nlu.ElementAwareParser = (*Parser)(nil)

// Parse implements nlu.Parser. It never returns an error; a transcript it
// cannot interpret comes back with Success false and floor confidence.
func (p *Parser) Parse(_ context.Context, text string) (nlu.ParsedIntent, error) {
	norm := normalize(text)
	tokens := tokenSet(norm)

	if containsAny(norm, tokens, cancelWords) {
		return nlu.ParsedIntent{
			Action:     nlu.ActionCancel,
			Confidence: 0.95,
			Success:    true,
		}, nil
	}

	intent := nlu.ParsedIntent{
		Action:       extractAction(norm, tokens),
		Target:       extractTarget(norm, tokens),
		Direction:    extractDirection(norm, tokens),
		Ordinal:      extractNumber(norm),
		Confirmation: Confirmation(text),
	}
	intent.Descriptor = extractDescriptor(norm, intent)

	conf := 0.0
	if intent.Action != "" {
		conf += 0.4
	}
	if intent.Target != "" {
		conf += 0.3
	}
	if intent.Direction != "" || intent.Ordinal > 0 || intent.Descriptor != "" {
		conf += 0.2
	}
	if intent.Confirmation != "" {
		conf = 0.9
	}
	intent.Confidence = max(conf, 0.1)
	intent.Success = intent.Action != "" || intent.Confirmation != ""
	return intent, nil
}

// ParseBatch implements nlu.Parser.
func (p *Parser) ParseBatch(ctx context.Context, texts []string) ([]nlu.ParsedIntent, error) {
	out := make([]nlu.ParsedIntent, 0, len(texts))
	for _, t := range texts {
		intent, err := p.Parse(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	return out, nil
}

// Resolve implements nlu.ElementAwareParser: parse locally, then score the
// candidate inventory against the descriptor (or, failing that, the spoken
// target type).
func (p *Parser) Resolve(ctx context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	intent, _ := p.Parse(ctx, text)
	res := nlu.Resolution{Intent: intent, MatchedID: -1}

	phrase := intent.Descriptor
	if phrase == "" {
		phrase = intent.Target
	}
	if phrase == "" {
		return res, nil
	}

	bestScore := 0.0
	for _, c := range candidates {
		if s := p.match.Score(phrase, c.Text); s > bestScore {
			bestScore = s
			res.MatchedID = c.ID
		}
	}
	if bestScore <= 0.5 {
		res.MatchedID = -1
		return res, nil
	}
	res.MatchConfidence = bestScore
	return res, nil
}

// Confirmation reports "yes" or "no" when the transcript is an unambiguous
// confirmation, and "" otherwise. A transcript containing words from both
// sets counts as neither.
func Confirmation(text string) string {
	norm := normalize(text)
	tokens := tokenSet(norm)
	hasYes := containsAny(norm, tokens, yesWords)
	hasNo := containsAny(norm, tokens, noWords)
	switch {
	case hasYes && !hasNo:
		return "yes"
	case hasNo && !hasYes:
		return "no"
	default:
		return ""
	}
}

// IsCancel reports whether the transcript aborts whatever is pending.
func IsCancel(text string) bool {
	norm := normalize(text)
	return containsAny(norm, tokenSet(norm), cancelWords)
}

func extractAction(norm string, tokens map[string]struct{}) nlu.Action {
	for _, entry := range actionVocab {
		if containsAny(norm, tokens, entry.keywords) {
			return entry.action
		}
	}
	return ""
}

func extractTarget(norm string, tokens map[string]struct{}) string {
	for _, entry := range targetVocab {
		if containsAny(norm, tokens, entry.keywords) {
			return entry.target
		}
	}
	return ""
}

func extractDirection(norm string, tokens map[string]struct{}) string {
	for _, entry := range directionVocab {
		if containsAny(norm, tokens, entry.keywords) {
			return entry.direction
		}
	}
	return ""
}

// extractNumber finds the first digit token or spelled number, including
// ordinals like "third".
func extractNumber(norm string) int {
	for _, tok := range strings.Fields(norm) {
		if n, err := strconv.Atoi(tok); err == nil && n > 0 {
			return n
		}
		if n, ok := numberWords[tok]; ok {
			return n
		}
		if n, ok := ordinalWords[tok]; ok {
			return n
		}
	}
	return 0
}

// extractDescriptor keeps whatever the transcript says beyond the recognized
// action, target, direction, and filler words. That leftover is usually the
// element's spoken name.
func extractDescriptor(norm string, intent nlu.ParsedIntent) string {
	skip := map[string]struct{}{}
	addWords := func(keywords []string) {
		for _, kw := range keywords {
			for _, w := range strings.Fields(kw) {
				skip[w] = struct{}{}
			}
		}
	}
	for _, entry := range actionVocab {
		if entry.action == intent.Action {
			addWords(entry.keywords)
		}
	}
	for _, entry := range targetVocab {
		if entry.target == intent.Target {
			addWords(entry.keywords)
		}
	}
	for _, entry := range directionVocab {
		if entry.direction == intent.Direction {
			addWords(entry.keywords)
		}
	}

	var kept []string
	for _, tok := range strings.Fields(norm) {
		if _, ok := fillerWords[tok]; ok {
			continue
		}
		if _, ok := skip[tok]; ok {
			continue
		}
		if _, ok := numberWords[tok]; ok {
			continue
		}
		if _, ok := ordinalWords[tok]; ok {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// containsAny reports whether any keyword appears in the transcript.
// Multi-word keywords match as phrases, single words as whole tokens, so
// "hi" does not fire inside "this".
func containsAny(norm string, tokens map[string]struct{}, keywords []string) bool {
	padded := " " + norm + " "
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(padded, " "+kw+" ") {
				return true
			}
			continue
		}
		if _, ok := tokens[kw]; ok {
			return true
		}
	}
	return false
}

func tokenSet(norm string) map[string]struct{} {
	fields := strings.Fields(norm)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// normalize lowercases and strips punctuation that speech engines sometimes
// attach to transcripts.
func normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
