package assistant

import (
	"strings"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/actions"
)

// DefaultExitPhrases stop the assistant when contained in an utterance.
var DefaultExitPhrases = []string{"shutdown", "terminate", "exit", "goodbye"}

// devBuildPhrases trigger the developer-assistant delegation path. The
// generic "create a"/"make a" entries deliberately over-match; the original
// behaviour resolves the ambiguity in favour of the build path.
var devBuildPhrases = []string{
	"i want to build", "i want to make", "i went to build", "i need to build",
	"create a login page", "make a login page", "create a", "make a",
}

// keyboardShortcuts maps spoken editing phrases to the key combination the
// desktop adapter synthesises. Matched by containment, first entry wins.
var keyboardShortcuts = []struct {
	Phrase   string
	Shortcut string
}{
	{"select all", "ctrl+a"},
	{"screenshot", "print"},
	{"new tab", "ctrl+t"},
	{"next tab", "ctrl+Tab"},
	{"switch window", "alt+Tab"},
	{"copy", "ctrl+c"},
	{"paste", "ctrl+v"},
	{"cut", "ctrl+x"},
	{"undo", "ctrl+z"},
	{"redo", "ctrl+y"},
	{"save", "ctrl+s"},
	{"press enter", "enter"},
}

// rule is one entry of the ordered classification table. Rules are
// evaluated top to bottom; the first match wins and later rules never
// override it.
type rule struct {
	name  string
	match func(c *Classifier, cmd string) (Command, bool)
}

var rules = []rule{
	{"exit", matchExit},
	{"standby", matchStandby},
	{"file-manager", matchLiteral("open file manager", Command{Kind: KindOpenFileManager})},
	{"recycle-bin", matchLiteral("open recycle bin", Command{Kind: KindOpenRecycleBin})},
	{"dev-build", matchDevBuild},
	{"open-google", matchLiteral("open google", Command{Kind: KindBrowserSearch, Engine: actions.EngineGoogle})},
	{"open-youtube", matchLiteral("open youtube", Command{Kind: KindBrowserSearch, Engine: actions.EngineYouTube})},
	{"play-media", matchPlayMedia},
	{"close-app", matchCloseApp},
	{"keyboard-shortcut", matchKeyboardShortcut},
	{"time-query", matchTimeQuery},
}

// Classifier maps a normalized utterance to a [Command] using the ordered
// rule table. Classification is deterministic and total; only the exit
// phrase set is configurable (and hot-reloadable), everything else is
// fixed vocabulary.
//
// Safe for concurrent use.
type Classifier struct {
	mu          sync.RWMutex
	exitPhrases []string
}

// NewClassifier creates a Classifier with the given exit phrase set. An
// empty set selects [DefaultExitPhrases].
func NewClassifier(exitPhrases []string) *Classifier {
	c := &Classifier{}
	c.SetExitPhrases(exitPhrases)
	return c
}

// SetExitPhrases replaces the exit phrase set. Used by config hot reload.
func (c *Classifier) SetExitPhrases(phrases []string) {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalize(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultExitPhrases...)
	}
	c.mu.Lock()
	c.exitPhrases = normalized
	c.mu.Unlock()
}

// Classify maps one utterance to its Command. Empty or whitespace-only
// input is a handled no-op, not Unclassified.
func (c *Classifier) Classify(utterance string) Command {
	cmd := normalize(utterance)
	if cmd == "" {
		return Command{Kind: KindNoop}
	}
	for _, r := range rules {
		if out, ok := r.match(c, cmd); ok {
			return out
		}
	}
	return Command{Kind: KindUnclassified, Raw: cmd}
}

// normalize lowercases and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func matchExit(c *Classifier, cmd string) (Command, bool) {
	c.mu.RLock()
	phrases := c.exitPhrases
	c.mu.RUnlock()
	for _, p := range phrases {
		if strings.Contains(cmd, p) {
			return Command{Kind: KindExit}, true
		}
	}
	return Command{}, false
}

func matchStandby(_ *Classifier, cmd string) (Command, bool) {
	if strings.Contains(cmd, "wait") || strings.Contains(cmd, "hold") {
		return Command{Kind: KindStandby}, true
	}
	return Command{}, false
}

func matchLiteral(phrase string, out Command) func(*Classifier, string) (Command, bool) {
	return func(_ *Classifier, cmd string) (Command, bool) {
		if strings.Contains(cmd, phrase) {
			return out, true
		}
		return Command{}, false
	}
}

func matchDevBuild(_ *Classifier, cmd string) (Command, bool) {
	for _, p := range devBuildPhrases {
		if strings.Contains(cmd, p) {
			return Command{Kind: KindDevBuild, Raw: cmd}, true
		}
	}
	return Command{}, false
}

func matchPlayMedia(_ *Classifier, cmd string) (Command, bool) {
	if !strings.Contains(cmd, "play") || !strings.Contains(cmd, "youtube") {
		return Command{}, false
	}
	query := strings.ReplaceAll(cmd, "play", "")
	query = strings.ReplaceAll(query, "on youtube", "")
	query = normalize(query)
	return Command{Kind: KindPlayMedia, Query: query}, true
}

func matchCloseApp(_ *Classifier, cmd string) (Command, bool) {
	if cmd != "close" && !strings.HasPrefix(cmd, "close ") {
		return Command{}, false
	}
	name := strings.TrimSpace(strings.TrimPrefix(cmd, "close"))
	return Command{Kind: KindCloseApp, App: name}, true
}

func matchKeyboardShortcut(_ *Classifier, cmd string) (Command, bool) {
	for _, k := range keyboardShortcuts {
		if strings.Contains(cmd, k.Phrase) {
			return Command{Kind: KindKeyboardShortcut, Shortcut: k.Shortcut}, true
		}
	}
	return Command{}, false
}

func matchTimeQuery(_ *Classifier, cmd string) (Command, bool) {
	if strings.Contains(cmd, "time") {
		return Command{Kind: KindTimeQuery}, true
	}
	return Command{}, false
}
