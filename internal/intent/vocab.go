package intent

import "github.com/voxnav/voxnav/pkg/provider/nlu"

// actionVocab lists the keyword sets tried for each action. Order matters:
// the first action whose keyword appears in the transcript wins, so broader
// verbs ("go") sit behind the more specific actions that contain them.
var actionVocab = []struct {
	action   nlu.Action
	keywords []string
}{
	{nlu.ActionClick, []string{"click", "press", "tap", "select", "push", "hit", "activate", "choose", "pick", "press on"}},
	{nlu.ActionShow, []string{"show", "list", "display", "see", "reveal", "highlight", "point out", "show me", "let me see"}},
	{nlu.ActionScroll, []string{"scroll", "scrolling", "swipe", "slide", "glide", "scroll down", "scroll up", "page down", "page up", "move down", "move up"}},
	{nlu.ActionOpen, []string{"open", "launch", "start", "begin", "open up"}},
	{nlu.ActionNavigate, []string{"navigate", "go to", "visit", "browse to", "take me to"}},
	{nlu.ActionClose, []string{"close", "shut", "dismiss", "close it", "shut it"}},
	{nlu.ActionZoom, []string{"zoom", "enlarge", "magnify", "shrink", "bigger", "smaller", "zoom in", "zoom out", "make bigger", "make smaller"}},
	{nlu.ActionReload, []string{"reload", "refresh", "reload page", "refresh page"}},
	{nlu.ActionBack, []string{"back", "return", "previous"}},
	{nlu.ActionForward, []string{"forward", "next", "advance", "continue", "proceed"}},
	{nlu.ActionStop, []string{"stop", "pause", "deactivate", "silence", "halt", "freeze"}},
	{nlu.ActionFill, []string{"fill", "enter", "type", "input", "write", "insert"}},
	{nlu.ActionRead, []string{"read", "say", "tell", "speak", "announce", "recite"}},
	{nlu.ActionCount, []string{"count", "how many", "number of", "total", "tally"}},
	{nlu.ActionFind, []string{"find", "search", "locate", "look for", "where is", "look up", "find me"}},
	{nlu.ActionUndo, []string{"undo", "undo that", "revert", "reverse", "rollback", "cancel last", "take back", "undo it"}},
	{nlu.ActionHelp, []string{"help", "assist", "guide", "what can you do", "how do i"}},
	{nlu.ActionGreet, []string{"hello", "hey", "greetings", "good morning", "good afternoon", "good evening"}},
	{nlu.ActionThank, []string{"thank you", "thanks", "thank", "appreciate it", "thanks a lot"}},
}

// targetVocab maps spoken element-type words to the canonical target name.
var targetVocab = []struct {
	target   string
	keywords []string
}{
	{"button", []string{"button", "buttons", "btn", "submit button"}},
	{"link", []string{"link", "links", "hyperlink", "url", "anchor"}},
	{"menu", []string{"menu", "menus", "dropdown", "navigation", "nav", "navbar", "menu bar"}},
	{"input", []string{"input", "inputs", "field", "fields", "textbox", "textarea", "form field", "search box"}},
	{"heading", []string{"heading", "header", "headings", "title"}},
	{"page", []string{"page", "site", "website", "webpage", "web page"}},
	{"image", []string{"image", "images", "picture", "pictures", "photo", "photos", "thumbnail"}},
	{"text", []string{"text", "paragraph", "content", "sentence"}},
	{"all", []string{"all", "everything", "clickable", "clickables", "all of them"}},
	{"element", []string{"element", "thing", "item", "object"}},
}

// directionVocab maps spoken modifiers to the canonical direction or
// position. "up" and "down" come first so "scroll down to the bottom"
// resolves as a downward scroll, not a jump to the bottom edge.
var directionVocab = []struct {
	direction string
	keywords  []string
}{
	{"up", []string{"up", "upward", "upwards", "above", "higher"}},
	{"down", []string{"down", "downward", "downwards", "below", "lower"}},
	{"left", []string{"left", "leftward"}},
	{"right", []string{"right", "rightward"}},
	{"top", []string{"top", "beginning"}},
	{"bottom", []string{"bottom", "end"}},
	{"first", []string{"first", "initial", "1st"}},
	{"second", []string{"second", "2nd"}},
	{"third", []string{"third", "3rd"}},
	{"last", []string{"last", "final"}},
	{"middle", []string{"middle", "center", "central"}},
}

// numberWords maps spoken numbers to their values.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50,
}

// ordinalWords maps position words to one-based indexes, used when a
// direction like "third" should select from a candidate list.
var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// yesWords and noWords decide confirmations. A transcript containing words
// from both sets is ambiguous and treated as neither.
var yesWords = []string{
	"yes", "yep", "yeah", "yup", "sure", "okay", "ok", "affirmative",
	"confirm", "proceed", "absolutely", "definitely", "correct", "right",
	"go ahead", "do it", "exactly", "uh huh", "yay",
}

var noWords = []string{
	"no", "nope", "nah", "never", "don't", "negative",
	"abort", "skip", "wrong", "incorrect", "stop", "halt",
	"not that", "wait", "hold on", "uh uh", "nay",
}

// cancelWords abort whatever is pending: an open confirmation, highlights,
// a running scroll.
var cancelWords = []string{
	"cancel", "nevermind", "never mind", "forget it", "dismiss",
	"clear that", "quit", "turn off",
}

// fillerWords are stripped before the leftover text becomes a descriptor.
var fillerWords = map[string]struct{}{
	"could": {}, "you": {}, "please": {}, "kindly": {}, "want": {},
	"would": {}, "like": {}, "need": {}, "the": {}, "a": {}, "an": {},
	"this": {}, "that": {}, "just": {}, "go": {}, "ahead": {},
	"me": {}, "to": {}, "on": {}, "of": {}, "for": {}, "i": {}, "it": {},
}
