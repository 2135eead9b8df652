package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxnav/voxnav/internal/engine"
	"github.com/voxnav/voxnav/internal/intent"
	"github.com/voxnav/voxnav/internal/matcher"
	"github.com/voxnav/voxnav/internal/speech"
	"github.com/voxnav/voxnav/pkg/dom"
	dommock "github.com/voxnav/voxnav/pkg/dom/mock"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
	nlumock "github.com/voxnav/voxnav/pkg/provider/nlu/mock"
	sttmock "github.com/voxnav/voxnav/pkg/provider/stt/mock"
	ttsmock "github.com/voxnav/voxnav/pkg/provider/tts/mock"
)

func el(id string, role dom.Role, text string) dom.Element {
	return dom.Element{ID: id, Role: role, Text: text, Seen: time.Now()}
}

// loginPage is a small inventory with a clear click target.
func loginPage() []dom.Element {
	return []dom.Element{
		el("b1", dom.RoleButton, "Login"),
		el("b2", dom.RoleButton, "Search"),
		el("l1", dom.RoleLink, "Home"),
		el("i1", dom.RoleInput, "Username"),
	}
}

type harness struct {
	eng  *engine.Engine
	doc  *dommock.Document
	sess *sttmock.Session
	stt  *sttmock.Provider
	tts  *ttsmock.Provider
	sup  *speech.Supervisor
}

func newHarness(t *testing.T, live []dom.Element, parser nlu.ElementAwareParser, opts ...engine.Option) *harness {
	t.Helper()
	doc := &dommock.Document{Live: live, EventsCh: make(chan dom.Event, 16)}
	sess := &sttmock.Session{}
	sttP := &sttmock.Provider{Sessions: []*sttmock.Session{sess}}
	sup := speech.New(sttP, speech.WithSettleDelay(0))
	ttsP := &ttsmock.Provider{}

	opts = append([]engine.Option{
		engine.WithPacing(0),
		engine.WithFeedbackSeed(7),
	}, opts...)
	eng := engine.New(doc, parser, sup, ttsP, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng.Start(ctx)
	t.Cleanup(eng.Teardown)

	return &harness{eng: eng, doc: doc, sess: sess, stt: sttP, tts: ttsP, sup: sup}
}

func localParser() *intent.Parser {
	return intent.NewParser(matcher.New())
}

// awaitSpoken polls until at least n utterances have been spoken.
func (h *harness) awaitSpoken(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if texts := h.tts.Texts(); len(texts) >= n {
			return texts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d utterances, have %v", n, h.tts.Texts())
	return nil
}

func TestShowButtons(t *testing.T) {
	live := []dom.Element{
		el("b1", dom.RoleButton, "One"),
		el("b2", dom.RoleButton, "Two"),
		el("b3", dom.RoleButton, "Three"),
		el("b4", dom.RoleButton, "Four"),
		el("b5", dom.RoleButton, "Five"),
		el("l1", dom.RoleLink, "Home"),
		el("l2", dom.RoleLink, "About"),
		el("l3", dom.RoleLink, "Contact"),
	}
	h := newHarness(t, live, localParser())

	h.sess.Emit("show me the buttons")
	texts := h.awaitSpoken(t, 1)

	if !strings.Contains(texts[0], "5") {
		t.Errorf("spoken %q should report 5 buttons", texts[0])
	}
	hl := h.doc.CurrentHighlights()
	if len(hl) != 5 {
		t.Fatalf("highlighted %d elements, want 5", len(hl))
	}
	for _, e := range hl {
		if e.Role != dom.RoleButton {
			t.Errorf("highlighted %q has role %q, want button", e.Text, e.Role)
		}
	}
}

func TestClickIsGatedBehindConfirmation(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	texts := h.awaitSpoken(t, 1)
	if !strings.Contains(texts[0], "Login") {
		t.Errorf("question %q should name the Login element", texts[0])
	}
	if got := h.doc.Clicked(); len(got) != 0 {
		t.Fatalf("clicked before confirmation: %v", got)
	}

	h.sess.Emit("yes")
	h.awaitSpoken(t, 2)
	clicks := h.doc.Clicked()
	if len(clicks) != 1 || clicks[0].Element.Text != "Login" {
		t.Fatalf("clicks = %v, want one click on Login", clicks)
	}
}

func TestClickRejected(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("nope")
	h.awaitSpoken(t, 2)

	if got := h.doc.Clicked(); len(got) != 0 {
		t.Fatalf("rejected inquiry still clicked: %v", got)
	}
	if hl := h.doc.CurrentHighlights(); len(hl) != 0 {
		t.Errorf("highlights not cleared after rejection: %v", hl)
	}
}

func TestUnknownAnswerReprompts(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("banana")
	h.awaitSpoken(t, 2)

	// The question must still be answerable.
	h.sess.Emit("yes")
	h.awaitSpoken(t, 3)
	clicks := h.doc.Clicked()
	if len(clicks) != 1 || clicks[0].Element.Text != "Login" {
		t.Fatalf("clicks = %v, want one click on Login", clicks)
	}
}

func TestNewInquiryReplacesPending(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("click the search button")
	h.awaitSpoken(t, 2)

	h.sess.Emit("yes")
	h.awaitSpoken(t, 3)
	clicks := h.doc.Clicked()
	if len(clicks) != 1 || clicks[0].Element.Text != "Search" {
		t.Fatalf("clicks = %v, want one click on Search (replaced inquiry)", clicks)
	}
}

func TestCancelClearsPendingInquiry(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("cancel that")
	h.awaitSpoken(t, 2)

	if hl := h.doc.CurrentHighlights(); len(hl) != 0 {
		t.Errorf("highlights not cleared on cancel: %v", hl)
	}

	// A stray "yes" afterwards must not execute the cancelled click.
	h.sess.Emit("yes")
	h.awaitSpoken(t, 3)
	if got := h.doc.Clicked(); len(got) != 0 {
		t.Fatalf("cancelled inquiry still clicked: %v", got)
	}
}

func TestScrollDown(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("scroll down")
	h.awaitSpoken(t, 1)

	scrolls := h.doc.Scrolled()
	if len(scrolls) != 1 {
		t.Fatalf("scrolls = %v, want one", scrolls)
	}
	if scrolls[0].DY <= 0 {
		t.Errorf("scroll dy = %v, want positive (downward)", scrolls[0].DY)
	}
}

func TestUndoReversesScroll(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("scroll down")
	h.awaitSpoken(t, 1)
	h.sess.Emit("undo that")
	h.awaitSpoken(t, 2)

	scrolls := h.doc.Scrolled()
	if len(scrolls) != 2 {
		t.Fatalf("scrolls = %v, want two", scrolls)
	}
	if scrolls[1].DY != -scrolls[0].DY {
		t.Errorf("undo scrolled %v, want inverse of %v", scrolls[1].DY, scrolls[0].DY)
	}
}

func TestUndoWithEmptyHistory(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("undo that")
	texts := h.awaitSpoken(t, 1)

	if len(h.doc.Scrolled()) != 0 || len(h.doc.Navigated()) != 0 {
		t.Fatal("undo with no history dispatched an action")
	}
	if texts[0] == "" {
		t.Error("expected a spoken acknowledgement")
	}
}

func TestContinuousScrollStops(t *testing.T) {
	h := newHarness(t, loginPage(), localParser(),
		engine.WithScrollInterval(10*time.Millisecond))

	h.sess.Emit("keep scrolling down")
	h.awaitSpoken(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(h.doc.Scrolled()) < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	if len(h.doc.Scrolled()) < 3 {
		t.Fatalf("continuous scroll produced %d ticks, want >= 3", len(h.doc.Scrolled()))
	}

	h.sess.Emit("stop")
	h.awaitSpoken(t, 2)
	time.Sleep(50 * time.Millisecond)
	n1 := len(h.doc.Scrolled())
	time.Sleep(50 * time.Millisecond)
	n2 := len(h.doc.Scrolled())
	if n1 != n2 {
		t.Errorf("scrolling continued after stop: %d then %d", n1, n2)
	}
}

func TestGoBackNavigates(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("go back")
	h.awaitSpoken(t, 1)

	navs := h.doc.Navigated()
	if len(navs) != 1 || navs[0] != dom.NavBack {
		t.Fatalf("navigations = %v, want [back]", navs)
	}
}

func TestClickItUsesLastClicked(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("yes")
	h.awaitSpoken(t, 2)

	h.sess.Emit("click it")
	h.awaitSpoken(t, 3)
	h.sess.Emit("yes")
	h.awaitSpoken(t, 4)

	clicks := h.doc.Clicked()
	if len(clicks) != 2 {
		t.Fatalf("clicks = %v, want two", clicks)
	}
	if clicks[1].Element.Text != "Login" {
		t.Errorf("second click hit %q, want Login", clicks[1].Element.Text)
	}
}

func TestClickItAfterShowTargetsFirstShown(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("show me the buttons")
	h.awaitSpoken(t, 1)
	h.sess.Emit("click it")
	texts := h.awaitSpoken(t, 2)

	if !strings.Contains(texts[1], "Login") {
		t.Errorf("question %q should name the first shown button", texts[1])
	}
	if len(h.doc.Clicked()) != 0 {
		t.Fatal("clicked before confirmation")
	}

	h.sess.Emit("yes")
	h.awaitSpoken(t, 3)
	clicks := h.doc.Clicked()
	if len(clicks) != 1 || clicks[0].Element.Text != "Login" {
		t.Fatalf("clicks = %v, want one click on Login", clicks)
	}
}

func TestUnrelatedCommandCancelsPendingInquiry(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the login button")
	h.awaitSpoken(t, 1)
	h.sess.Emit("scroll down")
	h.awaitSpoken(t, 2)
	if got := h.doc.Scrolled(); len(got) != 1 {
		t.Fatalf("scrolls = %v, want one", got)
	}

	// The superseded question must no longer be answerable.
	h.sess.Emit("yes")
	h.awaitSpoken(t, 3)
	if got := h.doc.Clicked(); len(got) != 0 {
		t.Fatalf("superseded inquiry still clicked: %v", got)
	}
}

func TestWhatDidYouSayReplaysVerbatim(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("scroll down")
	texts := h.awaitSpoken(t, 1)
	first := texts[0]

	h.sess.Emit("what did you say")
	texts = h.awaitSpoken(t, 2)
	if texts[1] != first {
		t.Errorf("replay = %q, want verbatim %q", texts[1], first)
	}
}

func TestBareNoWithNothingPendingIsSoftReset(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("show me the buttons")
	h.awaitSpoken(t, 1)
	h.sess.Emit("no")
	texts := h.awaitSpoken(t, 2)

	if len(h.doc.Clicked()) != 0 {
		t.Fatal("soft reset dispatched a click")
	}
	if texts[1] == "" {
		t.Error("soft reset should be acknowledged out loud")
	}
	if hl := h.doc.CurrentHighlights(); len(hl) != 0 {
		t.Errorf("highlights not cleared on soft reset: %v", hl)
	}
}

func TestRemoteNamedElementIsGated(t *testing.T) {
	parser := &nlumock.Parser{
		Resolutions: []nlu.Resolution{{
			Intent:          nlu.ParsedIntent{Action: nlu.ActionClick, Confidence: 0.9, Success: true},
			MatchedID:       1,
			MatchConfidence: 0.92,
		}},
	}
	h := newHarness(t, loginPage(), parser)

	h.sess.Emit("press the second thing")
	texts := h.awaitSpoken(t, 1)
	if !strings.Contains(texts[0], "Search") {
		t.Errorf("question %q should name Search", texts[0])
	}
	if len(h.doc.Clicked()) != 0 {
		t.Fatal("clicked before confirmation")
	}

	h.sess.Emit("yes")
	h.awaitSpoken(t, 2)
	clicks := h.doc.Clicked()
	if len(clicks) != 1 || clicks[0].Element.Text != "Search" {
		t.Fatalf("clicks = %v, want one click on Search", clicks)
	}
}

func TestLowConfidenceAsksToRepeat(t *testing.T) {
	parser := &nlumock.Parser{
		Resolutions: []nlu.Resolution{{
			Intent:    nlu.ParsedIntent{Action: nlu.ActionScroll, Direction: "down", Confidence: 0.2, Success: true},
			MatchedID: -1,
		}},
	}
	h := newHarness(t, loginPage(), parser)

	h.sess.Emit("mumble mumble down")
	h.awaitSpoken(t, 1)

	if got := h.doc.Scrolled(); len(got) != 0 {
		t.Fatalf("low-confidence intent executed anyway: %v", got)
	}
}

func TestHiddenSuspendsListening(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.doc.EventsCh <- dom.Event{Kind: dom.EventHidden, At: time.Now()}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && h.sup.State() != speech.StateSuspended {
		time.Sleep(5 * time.Millisecond)
	}
	if h.sup.State() != speech.StateSuspended {
		t.Fatalf("supervisor state = %v, want suspended", h.sup.State())
	}

	h.sess.Emit("scroll down")
	time.Sleep(100 * time.Millisecond)
	if got := h.doc.Scrolled(); len(got) != 0 {
		t.Fatalf("command executed while hidden: %v", got)
	}

	h.doc.EventsCh <- dom.Event{Kind: dom.EventVisible, At: time.Now()}
	for time.Now().Before(deadline) && h.sup.State() != speech.StateListening {
		time.Sleep(5 * time.Millisecond)
	}
	h.sess.Emit("scroll down")
	h.awaitSpoken(t, 1)
	if got := h.doc.Scrolled(); len(got) != 1 {
		t.Fatalf("command after resume: scrolls = %v, want one", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.eng.Start(context.Background())
	h.eng.Start(context.Background())

	if got := h.stt.StartCount(); got != 1 {
		t.Fatalf("stt sessions started = %d, want 1", got)
	}
}

func TestTeardownRemovesOverlaysAndClosesSession(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("show me the buttons")
	h.awaitSpoken(t, 1)
	if len(h.doc.CurrentHighlights()) == 0 {
		t.Fatal("expected highlights before teardown")
	}

	h.eng.Teardown()
	if hl := h.doc.CurrentHighlights(); len(hl) != 0 {
		t.Errorf("highlights left behind after teardown: %v", hl)
	}
	if !h.sess.Closed() {
		t.Error("stt session not closed on teardown")
	}
	// Second teardown is a no-op.
	h.eng.Teardown()
}

func TestNoMatchSpeaksWithoutActing(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("click the flux capacitor")
	texts := h.awaitSpoken(t, 1)

	if len(h.doc.Clicked()) != 0 {
		t.Fatal("no-match dispatched a click")
	}
	if texts[0] == "" {
		t.Error("expected spoken feedback for a miss")
	}
}

func TestCountLinks(t *testing.T) {
	h := newHarness(t, loginPage(), localParser())

	h.sess.Emit("how many links are there")
	texts := h.awaitSpoken(t, 1)
	if !strings.Contains(texts[0], "1") {
		t.Errorf("spoken %q should report 1 link", texts[0])
	}
}
