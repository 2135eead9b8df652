package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/voxnav/voxnav/internal/confirm"
	"github.com/voxnav/voxnav/internal/elements"
	"github.com/voxnav/voxnav/internal/history"
	"github.com/voxnav/voxnav/internal/intent"
	"github.com/voxnav/voxnav/pkg/dom"
	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// replayPhrases request a verbatim repeat of the last spoken utterance,
// bypassing the resolver entirely.
var replayPhrases = []string{
	"what did you say",
	"say that again",
	"repeat that",
	"come again",
	"pardon",
}

// pronounPhrases address the previously referenced element.
var pronounPhrases = []string{
	"click it",
	"click that",
	"click on it",
	"that one",
	"same thing",
	"do it again",
	"again",
	"it",
}

// handleTranscript processes one final transcript end to end. It runs on the
// dispatcher goroutine; nothing else touches command state while it does.
func (e *Engine) handleTranscript(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	slog.Debug("transcript", "text", text)

	if isReplayRequest(text) {
		if last := e.memory.LastSpoken(); last != "" {
			e.say(ctx, text, last)
		} else {
			e.say(ctx, text, e.voice.Unknown())
		}
		return
	}

	if intent.IsCancel(text) {
		e.cancelAll(ctx)
		e.say(ctx, text, e.voice.Cancel())
		e.countCommand(ctx, nlu.ActionCancel, "ok")
		return
	}

	// Confirmation words short-circuit the resolver while a question is
	// pending; a bare negative with nothing pending is a soft reset. Any
	// other input while a question stands is tried as a fresh command
	// first — a successful command supersedes the pending question — and
	// only re-prompts when it doesn't parse.
	hadPending := e.gatePending()
	if word := intent.Confirmation(text); word != "" {
		if e.answerGate(ctx, text, word) {
			return
		}
	}

	e.resolveAndDispatch(ctx, text, hadPending)
}

func (e *Engine) gatePending() bool {
	_, ok := e.gate.Pending()
	return ok
}

// answerGate handles a recognised confirmation word. It reports whether the
// transcript was consumed.
func (e *Engine) answerGate(ctx context.Context, heard, word string) bool {
	if !e.gatePending() {
		switch word {
		case "no":
			// Correction with nothing pending: drop selection state and
			// acknowledge.
			e.memory.SoftReset()
			if err := e.doc.ClearHighlights(ctx); err != nil {
				slog.Warn("clearing highlights", "error", err)
			}
			e.say(ctx, heard, e.voice.Cancel())
			return true
		case "yes":
			e.say(ctx, heard, e.voice.Unknown())
			return true
		}
		return false
	}

	req, dec := e.gate.Answer(word)
	switch dec {
	case confirm.DecisionConfirmed:
		e.executeConfirmed(ctx, heard, req)
	case confirm.DecisionRejected:
		e.memory.RecordCorrection(req.Description, heard)
		if err := e.doc.ClearHighlights(ctx); err != nil {
			slog.Warn("clearing highlights", "error", err)
		}
		e.say(ctx, heard, e.voice.Reject())
		e.countCommand(ctx, req.Action, "rejected")
	default:
		e.say(ctx, heard, e.voice.Reprompt())
	}
	return true
}

// executeConfirmed runs the action the user just approved.
func (e *Engine) executeConfirmed(ctx context.Context, heard string, req confirm.Request) {
	e.sleepPacing(ctx)
	defer func() {
		if err := e.doc.ClearHighlights(ctx); err != nil {
			slog.Warn("clearing highlights", "error", err)
		}
	}()

	switch req.Action {
	case nlu.ActionFill:
		if err := e.doc.Focus(ctx, req.Element); err != nil {
			slog.Warn("focus failed", "element", req.Element.Text, "error", err)
			e.say(ctx, heard, e.voice.NoMatch(req.Element.Text))
			e.countCommand(ctx, req.Action, "detached")
			return
		}
		if req.Text != "" {
			if err := e.doc.SetValue(ctx, req.Element, req.Text); err != nil {
				slog.Warn("set value failed", "element", req.Element.Text, "error", err)
				e.countCommand(ctx, req.Action, "error")
				return
			}
		}
		e.trail.Append(history.Record{Action: nlu.ActionFill, Element: req.Element})
		e.memory.RecordCommand(nlu.ActionFill, string(req.Element.Role))
		e.say(ctx, heard, e.voice.Fill())
		e.countCommand(ctx, req.Action, "ok")
	default:
		if err := e.doc.Click(ctx, req.Element); err != nil {
			slog.Warn("click failed", "element", req.Element.Text, "error", err)
			e.say(ctx, heard, e.voice.NoMatch(req.Element.Text))
			e.countCommand(ctx, req.Action, "detached")
			return
		}
		e.trail.Append(history.Record{Action: nlu.ActionClick, Element: req.Element})
		e.memory.RecordClicked(req.Element)
		e.memory.RecordCommand(nlu.ActionClick, string(req.Element.Role))
		e.say(ctx, heard, e.voice.Click(req.Element.Text))
		e.countCommand(ctx, req.Action, "ok")
	}
}

// resolveAndDispatch parses the transcript and routes the intent. The gate
// generation is captured before the (possibly slow) parse; if the gate moved
// on while the parse was outstanding, the late result is discarded.
func (e *Engine) resolveAndDispatch(ctx context.Context, text string, hadPending bool) {
	gen := e.gate.Generation()

	t0 := time.Now()
	els, err := e.cache.Ensure(ctx)
	if err != nil {
		slog.Warn("element refresh failed, using retained inventory", "error", err)
	}
	if e.metrics != nil {
		e.metrics.CacheRefreshDuration.Record(ctx, time.Since(t0).Seconds())
		e.metrics.CacheElements.Record(ctx, int64(len(els)))
	}
	cands, kept := elements.Candidates(els)

	res, err := e.resolver.Resolve(ctx, text, cands)
	if err != nil {
		slog.Warn("intent resolution failed", "error", err)
		if hadPending && e.gatePending() {
			e.say(ctx, text, e.voice.Reprompt())
		} else {
			e.say(ctx, text, e.voice.Unknown())
		}
		e.countCommand(ctx, "", "parse-failed")
		return
	}
	if e.metrics != nil && e.parsePath != nil {
		e.metrics.RecordParsePath(ctx, e.parsePath())
	}

	if e.gate.Generation() != gen {
		slog.Debug("discarding stale parse", "text", text)
		return
	}

	in := res.Intent
	if !in.Success || in.Action == "" {
		// While a question stands, unparseable input re-prompts instead of
		// disturbing it.
		if hadPending && e.gatePending() {
			e.say(ctx, text, e.voice.Reprompt())
		} else {
			e.say(ctx, text, e.voice.Unknown())
		}
		e.countCommand(ctx, "", "no-parse")
		return
	}
	if in.Confidence > 0 && in.Confidence < lowConfidence {
		e.say(ctx, text, e.voice.Hedged(gist(in)))
		e.countCommand(ctx, in.Action, "low-confidence")
		return
	}

	// A different command supersedes an open question: cancel the inquiry so
	// a later "yes" cannot land on an element the conversation moved past.
	if e.gatePending() {
		e.gate.Cancel()
		if err := e.doc.ClearHighlights(ctx); err != nil {
			slog.Warn("clearing highlights", "error", err)
		}
	}

	switch in.Action {
	case nlu.ActionClick, nlu.ActionOpen, nlu.ActionNavigate, nlu.ActionClose:
		e.handleClick(ctx, text, in, res, kept)
	case nlu.ActionFill:
		e.handleFill(ctx, text, in, res, kept)
	case nlu.ActionShow:
		e.handleShow(ctx, text, in)
	case nlu.ActionCount:
		e.handleCount(ctx, text, in)
	case nlu.ActionFind:
		e.handleFind(ctx, text, in)
	case nlu.ActionRead:
		e.handleRead(ctx, text, in, res, kept)
	case nlu.ActionScroll:
		e.handleScroll(ctx, text, in)
	case nlu.ActionStop:
		e.stopContinuous()
		e.say(ctx, text, e.voice.StopScroll())
		e.countCommand(ctx, in.Action, "ok")
	case nlu.ActionBack:
		e.handleNavigate(ctx, text, dom.NavBack)
	case nlu.ActionForward:
		e.handleNavigate(ctx, text, dom.NavForward)
	case nlu.ActionReload:
		e.handleNavigate(ctx, text, dom.NavReload)
	case nlu.ActionUndo:
		e.handleUndo(ctx, text)
	case nlu.ActionCancel:
		e.cancelAll(ctx)
		e.say(ctx, text, e.voice.Cancel())
		e.countCommand(ctx, in.Action, "ok")
	case nlu.ActionGreet:
		e.say(ctx, text, e.voice.Greet())
		e.countCommand(ctx, in.Action, "ok")
	case nlu.ActionThank:
		e.say(ctx, text, e.voice.Thank())
		e.countCommand(ctx, in.Action, "ok")
	case nlu.ActionHelp:
		e.say(ctx, text, e.voice.Help())
		e.countCommand(ctx, in.Action, "ok")
	default:
		// Recognised but not executable against this surface (e.g. zoom).
		e.say(ctx, text, e.voice.Unknown())
		e.countCommand(ctx, in.Action, "unsupported")
	}
}

// handleClick resolves a target element and raises a confirmation question.
// Clicks never execute ungated.
func (e *Engine) handleClick(ctx context.Context, heard string, in nlu.ParsedIntent, res nlu.Resolution, kept []dom.Element) {
	// The element-aware parse already named a best element.
	if res.MatchedID >= 0 && res.MatchedID < len(kept) {
		e.inquire(ctx, heard, kept[res.MatchedID], res.MatchConfidence, nlu.ActionClick, res.Response)
		return
	}

	// Ordinal over the last shown set ("click the third one").
	if in.Ordinal > 0 {
		if el, ok := e.memory.ResolveReference(in.Ordinal, e.attachedFn(ctx)); ok {
			e.inquire(ctx, heard, el, 1.0, nlu.ActionClick, "")
		} else {
			e.say(ctx, heard, e.voice.NoContext())
			e.countCommand(ctx, in.Action, "no-context")
		}
		return
	}

	phrase := in.Descriptor
	if phrase == "" {
		phrase = in.Target
	}

	// Pronoun-style reference with no usable descriptor.
	if phrase == "" || isPronounReference(heard) {
		if el, ok := e.memory.ResolveReference(0, e.attachedFn(ctx)); ok {
			e.inquire(ctx, heard, el, 1.0, nlu.ActionClick, "")
		} else {
			e.say(ctx, heard, e.voice.NoContext())
			e.countCommand(ctx, in.Action, "no-context")
		}
		return
	}

	pool := e.poolForTarget(in.Target)
	if m, ok := e.match.Best(phrase, pool); ok {
		if e.metrics != nil {
			e.metrics.MatchScore.Record(ctx, m.Score)
		}
		e.inquire(ctx, heard, m.Element, m.Score, nlu.ActionClick, "")
		return
	}

	// Nothing cleared the cutoff: offer the closest candidates instead of
	// guessing.
	near := e.match.Near(phrase, pool, clarifyLimit)
	if len(near) > 0 {
		shown := make([]dom.Element, len(near))
		for i, m := range near {
			shown[i] = m.Element
		}
		if err := e.doc.Highlight(ctx, shown); err != nil {
			slog.Warn("highlight failed", "error", err)
		}
		e.memory.RecordShown(shown)
		e.say(ctx, heard, e.voice.Clarify(len(shown)))
		e.countCommand(ctx, in.Action, "clarify")
		return
	}

	e.say(ctx, heard, e.voice.NoMatch(phrase))
	e.countCommand(ctx, in.Action, "no-match")
}

// inquire raises a confirmation question for a state-changing action on el.
func (e *Engine) inquire(ctx context.Context, heard string, el dom.Element, score float64, action nlu.Action, serviceResponse string) {
	question := serviceResponse
	if question == "" {
		switch action {
		case nlu.ActionFill:
			question = e.voice.ConfirmFill(el.Text)
		default:
			question = e.voice.ConfirmClick(el.Text)
		}
	}
	if score > 0 && score < lowConfidence {
		question = e.voice.Hedged(el.Text)
	}

	e.gate.Ask(confirm.Request{
		Element:     el,
		Action:      action,
		Description: question,
	})
	if err := e.doc.Highlight(ctx, []dom.Element{el}); err != nil {
		slog.Warn("highlight failed", "error", err)
	}
	e.memory.RecordShown([]dom.Element{el})
	e.memory.RecordCommand(action, string(el.Role))
	e.say(ctx, heard, question)
}

func (e *Engine) handleFill(ctx context.Context, heard string, in nlu.ParsedIntent, res nlu.Resolution, kept []dom.Element) {
	if res.MatchedID >= 0 && res.MatchedID < len(kept) {
		e.inquire(ctx, heard, kept[res.MatchedID], res.MatchConfidence, nlu.ActionFill, res.Response)
		return
	}
	phrase := in.Descriptor
	if phrase == "" {
		phrase = in.Target
	}
	pool := e.cache.Inputs()
	if len(pool) == 0 {
		e.say(ctx, heard, e.voice.NoMatch(phrase))
		e.countCommand(ctx, in.Action, "no-match")
		return
	}
	if phrase == "" {
		// Sole input on the page is unambiguous.
		if len(pool) == 1 {
			e.inquire(ctx, heard, pool[0], 1.0, nlu.ActionFill, "")
		} else {
			e.say(ctx, heard, e.voice.Clarify(len(pool)))
			e.memory.RecordShown(pool)
			e.countCommand(ctx, in.Action, "clarify")
		}
		return
	}
	if m, ok := e.match.Best(phrase, pool); ok {
		e.inquire(ctx, heard, m.Element, m.Score, nlu.ActionFill, "")
		return
	}
	e.say(ctx, heard, e.voice.NoMatch(phrase))
	e.countCommand(ctx, in.Action, "no-match")
}

func (e *Engine) handleShow(ctx context.Context, heard string, in nlu.ParsedIntent) {
	pool, kind := e.poolAndKind(in.Target)
	if len(pool) == 0 {
		e.say(ctx, heard, e.voice.Show(0, kind))
		e.countCommand(ctx, in.Action, "empty")
		return
	}
	if err := e.doc.Highlight(ctx, pool); err != nil {
		slog.Warn("highlight failed", "error", err)
	}
	e.memory.RecordShown(pool)
	e.memory.RecordCommand(in.Action, in.Target)
	e.say(ctx, heard, e.voice.Show(len(pool), kind))
	e.countCommand(ctx, in.Action, "ok")
}

func (e *Engine) handleCount(ctx context.Context, heard string, in nlu.ParsedIntent) {
	pool, kind := e.poolAndKind(in.Target)
	e.memory.RecordCommand(in.Action, in.Target)
	e.say(ctx, heard, e.voice.Count(len(pool), kind))
	e.countCommand(ctx, in.Action, "ok")
}

func (e *Engine) handleFind(ctx context.Context, heard string, in nlu.ParsedIntent) {
	phrase := in.Descriptor
	if phrase == "" {
		phrase = in.Target
	}
	if phrase == "" {
		e.say(ctx, heard, e.voice.Unknown())
		e.countCommand(ctx, in.Action, "no-parse")
		return
	}
	if m, ok := e.match.Best(phrase, e.cache.Snapshot()); ok {
		if err := e.doc.Highlight(ctx, []dom.Element{m.Element}); err != nil {
			slog.Warn("highlight failed", "error", err)
		}
		e.memory.RecordShown([]dom.Element{m.Element})
		e.memory.RecordCommand(in.Action, in.Target)
		e.say(ctx, heard, e.voice.Found(m.Element.Text))
		e.countCommand(ctx, in.Action, "ok")
		return
	}
	e.say(ctx, heard, e.voice.NoMatch(phrase))
	e.countCommand(ctx, in.Action, "no-match")
}

func (e *Engine) handleRead(ctx context.Context, heard string, in nlu.ParsedIntent, res nlu.Resolution, kept []dom.Element) {
	var (
		el dom.Element
		ok bool
	)
	switch {
	case res.MatchedID >= 0 && res.MatchedID < len(kept):
		el, ok = kept[res.MatchedID], true
	case in.Descriptor != "":
		if best, found := e.match.Best(in.Descriptor, e.cache.Snapshot()); found {
			el, ok = best.Element, true
		}
	default:
		el, ok = e.memory.ResolveReference(in.Ordinal, e.attachedFn(ctx))
	}
	if !ok || el.Text == "" {
		e.say(ctx, heard, e.voice.Unknown())
		e.countCommand(ctx, in.Action, "no-match")
		return
	}
	e.memory.RecordCommand(in.Action, string(el.Role))
	e.say(ctx, heard, e.voice.Read(el.Text))
	e.countCommand(ctx, in.Action, "ok")
}

func (e *Engine) handleScroll(ctx context.Context, heard string, in nlu.ParsedIntent) {
	dir := in.Direction
	if dir == "" {
		dir = "down"
	}

	if isContinuousScroll(heard) {
		dx, dy := scrollDelta(dir, continuousStep)
		if dx == 0 && dy == 0 {
			dy = continuousStep
		}
		e.startContinuous(dx, dy)
		e.say(ctx, heard, e.voice.ScrollContinuous())
		e.countCommand(ctx, in.Action, "ok")
		return
	}

	switch dir {
	case "top", "bottom":
		if err := e.doc.ScrollToEdge(ctx, dir == "top"); err != nil {
			slog.Warn("scroll to edge failed", "error", err)
			e.countCommand(ctx, in.Action, "error")
			return
		}
	default:
		dx, dy := scrollDelta(dir, e.scrollStep)
		if err := e.doc.Scroll(ctx, dx, dy); err != nil {
			slog.Warn("scroll failed", "error", err)
			e.countCommand(ctx, in.Action, "error")
			return
		}
		e.trail.Append(history.Record{Action: nlu.ActionScroll, DX: dx, DY: dy})
	}
	e.memory.RecordCommand(in.Action, dir)
	e.say(ctx, heard, e.voice.Scroll(dir))
	e.countCommand(ctx, in.Action, "ok")
}

func (e *Engine) handleNavigate(ctx context.Context, heard string, dir dom.NavDirection) {
	var action nlu.Action
	switch dir {
	case dom.NavBack:
		action = nlu.ActionBack
	case dom.NavForward:
		action = nlu.ActionForward
	default:
		action = nlu.ActionReload
	}

	if err := e.doc.Navigate(ctx, dir); err != nil {
		slog.Warn("navigation failed", "direction", dir, "error", err)
		e.say(ctx, heard, e.voice.Unknown())
		e.countCommand(ctx, action, "error")
		return
	}
	if dir != dom.NavReload {
		e.trail.Append(history.Record{Action: action, Nav: dir})
	}
	// Navigation invalidates every element reference held so far.
	e.memory.SoftReset()
	e.gate.Cancel()

	switch dir {
	case dom.NavBack:
		e.say(ctx, heard, e.voice.Back())
	case dom.NavForward:
		e.say(ctx, heard, e.voice.Forward())
	default:
		e.say(ctx, heard, e.voice.Reload())
	}
	e.countCommand(ctx, action, "ok")
}

// handleUndo pops the newest action record and applies its inverse,
// best effort.
func (e *Engine) handleUndo(ctx context.Context, heard string) {
	rec, ok := e.trail.Pop()
	if !ok {
		e.say(ctx, heard, e.voice.UndoEmpty())
		e.countCommand(ctx, nlu.ActionUndo, "empty")
		return
	}

	var err error
	switch rec.Action {
	case nlu.ActionScroll:
		err = e.doc.Scroll(ctx, -rec.DX, -rec.DY)
	case nlu.ActionBack:
		err = e.doc.Navigate(ctx, dom.NavForward)
	case nlu.ActionForward:
		err = e.doc.Navigate(ctx, dom.NavBack)
	case nlu.ActionFill:
		err = e.doc.SetValue(ctx, rec.Element, "")
	default:
		// A click may have navigated; going back is the closest inverse.
		err = e.doc.Navigate(ctx, dom.NavBack)
	}
	if err != nil {
		slog.Warn("undo failed", "action", rec.Action, "error", err)
		e.say(ctx, heard, e.voice.UndoEmpty())
		e.countCommand(ctx, nlu.ActionUndo, "error")
		return
	}
	e.say(ctx, heard, e.voice.Undo())
	e.countCommand(ctx, nlu.ActionUndo, "ok")
}

// cancelAll synchronously clears the confirmation gate, highlight overlays,
// pending cache refreshes, and any continuous scroll.
func (e *Engine) cancelAll(ctx context.Context) {
	e.gate.Cancel()
	e.cache.CancelPending()
	e.stopContinuous()
	if err := e.doc.ClearHighlights(ctx); err != nil {
		slog.Warn("clearing highlights", "error", err)
	}
}

// say speaks text and records the exchange. Listening is suspended for the
// duration by the speaker.
func (e *Engine) say(ctx context.Context, heard, text string) {
	if text == "" {
		return
	}
	if err := e.speaker.Say(ctx, text); err != nil {
		slog.Warn("speech output failed", "error", err)
	}
	e.memory.RecordExchange(heard, text)
}

func (e *Engine) countCommand(ctx context.Context, action nlu.Action, status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordCommand(ctx, string(action), status)
}

// attachedFn adapts Document.Attached for context-memory validation.
func (e *Engine) attachedFn(ctx context.Context) func(dom.Element) bool {
	return func(el dom.Element) bool {
		ok, err := e.doc.Attached(ctx, el)
		return err == nil && ok
	}
}

// poolForTarget narrows the inventory by the spoken element type.
func (e *Engine) poolForTarget(target string) []dom.Element {
	switch target {
	case "button":
		return e.cache.Buttons()
	case "link", "menu", "page":
		if pool := e.cache.Links(); len(pool) > 0 {
			return pool
		}
		return e.cache.Snapshot()
	case "input":
		return e.cache.Inputs()
	default:
		return e.cache.Snapshot()
	}
}

// poolAndKind narrows the inventory and names it for spoken feedback.
func (e *Engine) poolAndKind(target string) ([]dom.Element, string) {
	switch target {
	case "button":
		return e.cache.Buttons(), "buttons"
	case "link":
		return e.cache.Links(), "links"
	case "input":
		return e.cache.Inputs(), "input fields"
	default:
		return e.cache.Snapshot(), "elements"
	}
}

func gist(in nlu.ParsedIntent) string {
	parts := []string{string(in.Action)}
	if in.Descriptor != "" {
		parts = append(parts, in.Descriptor)
	} else if in.Target != "" {
		parts = append(parts, in.Target)
	}
	return strings.Join(parts, " ")
}

func scrollDelta(dir string, step float64) (dx, dy float64) {
	switch dir {
	case "up":
		return 0, -step
	case "down":
		return 0, step
	case "left":
		return -step, 0
	case "right":
		return step, 0
	}
	return 0, 0
}

func isReplayRequest(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "?.!")
	for _, p := range replayPhrases {
		if t == p || strings.Contains(t, p) {
			return true
		}
	}
	return false
}

func isPronounReference(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "?.!")
	for _, p := range pronounPhrases {
		if t == p {
			return true
		}
	}
	return false
}

func isContinuousScroll(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "keep scrolling") ||
		strings.Contains(t, "keep going") ||
		strings.Contains(t, "start scrolling") ||
		strings.Contains(t, "continuous")
}
