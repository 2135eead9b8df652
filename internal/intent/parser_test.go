package intent

import (
	"context"
	"testing"

	"github.com/voxnav/voxnav/internal/matcher"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

func newParser() *Parser {
	return NewParser(matcher.New())
}

func parse(t *testing.T, text string) nlu.ParsedIntent {
	t.Helper()
	intent, err := newParser().Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return intent
}

func TestParse_Click(t *testing.T) {
	intent := parse(t, "click the login button")
	if intent.Action != nlu.ActionClick {
		t.Errorf("action = %q, want click", intent.Action)
	}
	if intent.Target != "button" {
		t.Errorf("target = %q, want button", intent.Target)
	}
	if intent.Descriptor != "login" {
		t.Errorf("descriptor = %q, want login", intent.Descriptor)
	}
	// action 0.4 + target 0.3 + descriptor 0.2
	if intent.Confidence < 0.89 || intent.Confidence > 0.91 {
		t.Errorf("confidence = %v, want 0.9", intent.Confidence)
	}
	if !intent.Success {
		t.Error("expected success")
	}
}

func TestParse_ScrollDown(t *testing.T) {
	intent := parse(t, "scroll down")
	if intent.Action != nlu.ActionScroll {
		t.Errorf("action = %q, want scroll", intent.Action)
	}
	if intent.Direction != "down" {
		t.Errorf("direction = %q, want down", intent.Direction)
	}
}

func TestParse_ShowButtons(t *testing.T) {
	intent := parse(t, "show me all the buttons")
	if intent.Action != nlu.ActionShow {
		t.Errorf("action = %q, want show", intent.Action)
	}
	if intent.Target != "button" && intent.Target != "all" {
		t.Errorf("target = %q, want button or all", intent.Target)
	}
}

func TestParse_Ordinal(t *testing.T) {
	intent := parse(t, "click the third link")
	if intent.Ordinal != 3 {
		t.Errorf("ordinal = %d, want 3", intent.Ordinal)
	}
	if intent.Target != "link" {
		t.Errorf("target = %q, want link", intent.Target)
	}
}

func TestParse_DigitOrdinal(t *testing.T) {
	intent := parse(t, "click number 2")
	if intent.Ordinal != 2 {
		t.Errorf("ordinal = %d, want 2", intent.Ordinal)
	}
}

func TestParse_SpelledNumber(t *testing.T) {
	intent := parse(t, "click link five")
	if intent.Ordinal != 5 {
		t.Errorf("ordinal = %d, want 5", intent.Ordinal)
	}
}

func TestParse_SpelledTens(t *testing.T) {
	for _, tc := range []struct {
		word string
		want int
	}{
		{"thirty", 30},
		{"forty", 40},
		{"fifty", 50},
	} {
		intent := parse(t, "click link "+tc.word)
		if intent.Ordinal != tc.want {
			t.Errorf("ordinal for %q = %d, want %d", tc.word, intent.Ordinal, tc.want)
		}
	}
}

func TestParse_Cancel(t *testing.T) {
	intent := parse(t, "never mind")
	if intent.Action != nlu.ActionCancel {
		t.Errorf("action = %q, want cancel", intent.Action)
	}
	if intent.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", intent.Confidence)
	}
}

func TestParse_ConfirmationYes(t *testing.T) {
	intent := parse(t, "yes please")
	if intent.Confirmation != "yes" {
		t.Errorf("confirmation = %q, want yes", intent.Confirmation)
	}
	if intent.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", intent.Confidence)
	}
}

func TestParse_ConfirmationNo(t *testing.T) {
	intent := parse(t, "nope")
	if intent.Confirmation != "no" {
		t.Errorf("confirmation = %q, want no", intent.Confirmation)
	}
}

func TestParse_AmbiguousConfirmation(t *testing.T) {
	// Both a yes word and a no word: treat as neither.
	intent := parse(t, "yes no wait")
	if intent.Confirmation != "" {
		t.Errorf("confirmation = %q, want empty", intent.Confirmation)
	}
}

func TestParse_Gibberish(t *testing.T) {
	intent := parse(t, "purple elephant marmalade")
	if intent.Success {
		t.Error("expected failure for gibberish")
	}
	if intent.Confidence < 0.1 {
		t.Errorf("confidence = %v, want floor of 0.1", intent.Confidence)
	}
	if intent.Confidence > 0.31 {
		t.Errorf("confidence = %v, too high for gibberish", intent.Confidence)
	}
}

func TestParse_GreetNotTriggeredBySubstring(t *testing.T) {
	// "hi" appears inside "this" but must not fire the greeting.
	intent := parse(t, "click this")
	if intent.Action == nlu.ActionGreet {
		t.Error("greet fired from substring")
	}
}

func TestParse_GoBackIsBack(t *testing.T) {
	intent := parse(t, "go back")
	if intent.Action != nlu.ActionBack {
		t.Errorf("action = %q, want back", intent.Action)
	}
}

func TestParse_Undo(t *testing.T) {
	intent := parse(t, "undo that")
	if intent.Action != nlu.ActionUndo {
		t.Errorf("action = %q, want undo", intent.Action)
	}
}

func TestIsCancel(t *testing.T) {
	if !IsCancel("cancel") {
		t.Error("cancel not detected")
	}
	if !IsCancel("never mind that") {
		t.Error("never mind not detected")
	}
	if IsCancel("click the login button") {
		t.Error("false positive")
	}
}

func TestConfirmation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"yes", "yes"},
		{"yeah sure", "yes"},
		{"go ahead", "yes"},
		{"no", "no"},
		{"absolutely not that one", ""},
		{"click the button", ""},
	}
	for _, c := range cases {
		if got := Confirmation(c.in); got != c.want {
			t.Errorf("Confirmation(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolve_MatchesCandidate(t *testing.T) {
	p := newParser()
	res, err := p.Resolve(context.Background(), "click the login button", []nlu.Candidate{
		{ID: 0, Text: "Home", Type: "link"},
		{ID: 1, Text: "Login", Type: "button"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchedID != 1 {
		t.Fatalf("MatchedID = %d, want 1", res.MatchedID)
	}
	if res.MatchConfidence <= 0.5 {
		t.Errorf("MatchConfidence = %v, want > 0.5", res.MatchConfidence)
	}
}

func TestResolve_NoCandidateMatch(t *testing.T) {
	p := newParser()
	res, err := p.Resolve(context.Background(), "click the subscribe button", []nlu.Candidate{
		{ID: 0, Text: "Weather", Type: "link"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchedID != -1 {
		t.Fatalf("MatchedID = %d, want -1", res.MatchedID)
	}
}

func TestParseBatch(t *testing.T) {
	p := newParser()
	intents, err := p.ParseBatch(context.Background(), []string{"scroll up", "click login"})
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("got %d intents, want 2", len(intents))
	}
	if intents[0].Action != nlu.ActionScroll || intents[1].Action != nlu.ActionClick {
		t.Errorf("intents = %+v", intents)
	}
}
