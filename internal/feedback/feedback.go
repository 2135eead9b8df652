// Package feedback generates the spoken acknowledgements for executed
// commands.
//
// Each action has a small pool of phrasings so consecutive commands do not
// sound robotic. Selection is driven by a seedable source, which keeps tests
// deterministic.
package feedback

import (
	"fmt"
	"math/rand"
	"sync"
)

var (
	clickPool = []string{
		"Clicking %s",
		"Got it! Clicking %s",
		"Pressing %s now",
		"Done! Clicked %s",
	}
	clickBarePool = []string{
		"Clicking that for you",
		"Got it! Clicking now",
		"Click activated!",
		"Done! Clicked it",
	}
	scrollPool = []string{
		"Scrolling %s",
		"Moving %s",
		"Going %s",
		"Got it! Scrolling %s",
	}
	scrollBarePool = []string{
		"Scrolling for you",
		"Moving the page",
		"Here we go, scrolling!",
	}
	scrollContinuousPool = []string{
		"Starting continuous scroll",
		"Auto-scrolling now",
		"Keeping it scrolling",
		"Will keep scrolling",
	}
	stopScrollPool = []string{
		"Stopping scroll",
		"Scroll stopped",
		"Halting auto-scroll",
		"Done scrolling",
	}
	showPool = []string{
		"Here you go! Found %d %s",
		"Showing %d %s",
		"Got it! Highlighting %d %s",
		"There you go, %d %s",
	}
	showEmptyPool = []string{
		"I couldn't find any %s on this page",
		"No %s here, sorry",
	}
	countPool = []string{
		"I count %d %s on this page",
		"There are %d %s",
		"Found %d %s in total",
	}
	fillPool = []string{
		"Filling that in for you",
		"Entering the text",
		"Got it, filling now",
		"Text entered!",
	}
	readPool = []string{
		"Here's what it says: %s",
		"It reads: %s",
		"Reading now: %s",
	}
	backPool = []string{
		"Going back now",
		"Taking you to the previous page",
		"Heading back",
		"Back we go!",
	}
	forwardPool = []string{
		"Moving forward",
		"Next page!",
		"Going ahead",
		"Taking you forward",
	}
	reloadPool = []string{
		"Refreshing the page for you",
		"Reloading now",
		"Fresh content coming up!",
	}
	undoPool = []string{
		"Undoing that for you",
		"Reverting",
		"Undo complete!",
	}
	undoEmptyPool = []string{
		"Nothing to undo",
		"There's nothing to take back",
	}
	cancelPool = []string{
		"Cancelled!",
		"Okay, cancelling",
		"All clear!",
		"Cancelled that for you",
	}
	rejectPool = []string{
		"Okay, cancelling",
		"No problem, cancelled",
		"Understood, won't do that",
		"Alright, skipping that",
	}
	greetPool = []string{
		"Hello! How can I help you?",
		"Hi there! What would you like to do?",
		"Hey! I'm ready to assist!",
		"Hello! Ready when you are!",
	}
	thankPool = []string{
		"You're welcome!",
		"Happy to help!",
		"My pleasure!",
		"Anytime!",
	}
	helpPool = []string{
		"You can say things like: click the login button, show me all links, scroll down, or go back.",
		"Try: click, show, scroll, fill, read, count, or undo. For example, say show me the buttons.",
	}
	confirmAskPool = []string{
		"Should I click %s?",
		"Do you want me to click %s?",
		"Click %s, yes or no?",
	}
	confirmFillAskPool = []string{
		"Should I type that into %s?",
		"Fill %s with your text, yes or no?",
	}
	repromptPool = []string{
		"Sorry, was that a yes or a no?",
		"I didn't catch that. Yes or no?",
	}
	clarifyPool = []string{
		"I found %d possible matches. Say a number to pick one.",
		"There are %d candidates. Which number do you want?",
	}
	noContextPool = []string{
		"I have no prior context for that. Tell me what to click.",
		"I don't know what you're referring to yet. Name the element.",
	}
	unknownPool = []string{
		"Sorry, I didn't understand that",
		"I'm not sure what you meant",
		"Could you rephrase that?",
	}
	noMatchPool = []string{
		"I couldn't find %q on this page",
		"Nothing here matches %q",
	}
	hedgedPool = []string{
		"I think you want me to %s, but I'm not sure. Say it again to confirm.",
		"Did you mean %s? Say it again if so.",
	}
	foundPool = []string{
		"Found it! Highlighting %s",
		"There it is: %s",
		"Located %s for you",
	}
)

// Voice produces spoken acknowledgements. Safe for concurrent use.
type Voice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Voice seeded for deterministic phrase selection.
func New(seed int64) *Voice {
	return &Voice{rng: rand.New(rand.NewSource(seed))}
}

func (v *Voice) pick(pool []string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return pool[v.rng.Intn(len(pool))]
}

// Click acknowledges a click on the labelled element.
func (v *Voice) Click(label string) string {
	if label == "" {
		return v.pick(clickBarePool)
	}
	return fmt.Sprintf(v.pick(clickPool), label)
}

// Scroll acknowledges a one-shot scroll.
func (v *Voice) Scroll(direction string) string {
	if direction == "" {
		return v.pick(scrollBarePool)
	}
	return fmt.Sprintf(v.pick(scrollPool), direction)
}

// ScrollContinuous acknowledges the start of an auto-scroll.
func (v *Voice) ScrollContinuous() string { return v.pick(scrollContinuousPool) }

// StopScroll acknowledges stopping an auto-scroll.
func (v *Voice) StopScroll() string { return v.pick(stopScrollPool) }

// Show reports a highlight result. kind is the plural element type, e.g.
// "buttons".
func (v *Voice) Show(count int, kind string) string {
	if count == 0 {
		return fmt.Sprintf(v.pick(showEmptyPool), kind)
	}
	return fmt.Sprintf(v.pick(showPool), count, kind)
}

// Count reports an element tally.
func (v *Voice) Count(count int, kind string) string {
	return fmt.Sprintf(v.pick(countPool), count, kind)
}

// Fill acknowledges a form fill.
func (v *Voice) Fill() string { return v.pick(fillPool) }

// Read wraps text being read aloud.
func (v *Voice) Read(text string) string {
	return fmt.Sprintf(v.pick(readPool), text)
}

// Back, Forward, and Reload acknowledge history navigation.
func (v *Voice) Back() string    { return v.pick(backPool) }
func (v *Voice) Forward() string { return v.pick(forwardPool) }
func (v *Voice) Reload() string  { return v.pick(reloadPool) }

// Undo acknowledges an undo; UndoEmpty answers when the trail is empty.
func (v *Voice) Undo() string      { return v.pick(undoPool) }
func (v *Voice) UndoEmpty() string { return v.pick(undoEmptyPool) }

// Cancel acknowledges a cancel command; Reject acknowledges a "no" answer.
func (v *Voice) Cancel() string { return v.pick(cancelPool) }
func (v *Voice) Reject() string { return v.pick(rejectPool) }

// Greet, Thank, and Help answer conversational commands.
func (v *Voice) Greet() string { return v.pick(greetPool) }
func (v *Voice) Thank() string { return v.pick(thankPool) }
func (v *Voice) Help() string  { return v.pick(helpPool) }

// ConfirmClick asks permission to click the labelled element.
func (v *Voice) ConfirmClick(label string) string {
	return fmt.Sprintf(v.pick(confirmAskPool), label)
}

// ConfirmFill asks permission to fill the labelled input.
func (v *Voice) ConfirmFill(label string) string {
	return fmt.Sprintf(v.pick(confirmFillAskPool), label)
}

// Reprompt nudges after an answer that was neither yes nor no.
func (v *Voice) Reprompt() string { return v.pick(repromptPool) }

// Clarify asks the user to pick from n highlighted candidates.
func (v *Voice) Clarify(n int) string {
	return fmt.Sprintf(v.pick(clarifyPool), n)
}

// Unknown answers a transcript nothing could interpret.
func (v *Voice) Unknown() string { return v.pick(unknownPool) }

// NoContext declines a pronoun reference when nothing was clicked or shown.
func (v *Voice) NoContext() string { return v.pick(noContextPool) }

// NoMatch answers a descriptor that matched nothing on the page.
func (v *Voice) NoMatch(phrase string) string {
	return fmt.Sprintf(v.pick(noMatchPool), phrase)
}

// Hedged acknowledges a low-confidence parse without acting on it.
func (v *Voice) Hedged(gist string) string {
	return fmt.Sprintf(v.pick(hedgedPool), gist)
}

// Found acknowledges locating a single element.
func (v *Voice) Found(label string) string {
	return fmt.Sprintf(v.pick(foundPool), label)
}
