package assistant

import (
	"testing"

	"github.com/pmeredith/vessa/pkg/provider/actions"
)

func TestClassify_RuleTable(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name      string
		utterance string
		want      Command
	}{
		{"empty", "", Command{Kind: KindNoop}},
		{"whitespace only", "   \t ", Command{Kind: KindNoop}},
		{"exit shutdown", "please shutdown now", Command{Kind: KindExit}},
		{"exit goodbye", "goodbye", Command{Kind: KindExit}},
		{"standby wait", "wait a moment", Command{Kind: KindStandby}},
		{"standby hold", "hold on", Command{Kind: KindStandby}},
		{"file manager", "open file manager please", Command{Kind: KindOpenFileManager}},
		{"recycle bin", "open recycle bin", Command{Kind: KindOpenRecycleBin}},
		{"dev build want", "i want to build a website", Command{Kind: KindDevBuild, Raw: "i want to build a website"}},
		{"dev build login page", "create a login page", Command{Kind: KindDevBuild, Raw: "create a login page"}},
		{"dev build misheard", "i went to build something", Command{Kind: KindDevBuild, Raw: "i went to build something"}},
		{"open google", "open google", Command{Kind: KindBrowserSearch, Engine: actions.EngineGoogle}},
		{"open youtube", "open youtube", Command{Kind: KindBrowserSearch, Engine: actions.EngineYouTube}},
		{"play with query", "play shape of you on youtube", Command{Kind: KindPlayMedia, Query: "shape of you"}},
		{"play without query", "play on youtube", Command{Kind: KindPlayMedia, Query: ""}},
		{"close with app", "close notepad", Command{Kind: KindCloseApp, App: "notepad"}},
		{"close without app", "close ", Command{Kind: KindCloseApp, App: ""}},
		{"shortcut select all", "select all", Command{Kind: KindKeyboardShortcut, Shortcut: "ctrl+a"}},
		{"shortcut copy", "copy that", Command{Kind: KindKeyboardShortcut, Shortcut: "ctrl+c"}},
		{"time query", "what time is it", Command{Kind: KindTimeQuery}},
		{"unclassified", "tell me a joke", Command{Kind: KindUnclassified, Raw: "tell me a joke"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.utterance)
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.utterance, got, tt.want)
			}
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name      string
		utterance string
		want      Kind
	}{
		{"exit beats browser", "exit and open youtube", KindExit},
		{"standby beats browser", "wait then open google", KindStandby},
		{"dev build beats media", "make a playlist on youtube", KindDevBuild},
		{"browser beats media", "open youtube and play something on youtube", KindBrowserSearch},
		{"close beats shortcut", "close save dialog", KindCloseApp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.utterance); got.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.utterance, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(nil)
	first := c.Classify("play shape of you on youtube")
	for i := 0; i < 10; i++ {
		if got := c.Classify("play shape of you on youtube"); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestClassify_CaseAndWhitespaceNormalized(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify("  OPEN   YouTube ")
	if got.Kind != KindBrowserSearch || got.Engine != actions.EngineYouTube {
		t.Errorf("got %+v, want browser search on youtube", got)
	}
}

func TestClassifier_SetExitPhrases(t *testing.T) {
	c := NewClassifier(nil)
	c.SetExitPhrases([]string{"power off"})

	if got := c.Classify("goodbye"); got.Kind == KindExit {
		t.Error("goodbye should no longer classify as exit")
	}
	if got := c.Classify("power off now"); got.Kind != KindExit {
		t.Errorf("got %v, want exit", got.Kind)
	}

	// An all-empty set falls back to the defaults.
	c.SetExitPhrases([]string{"  "})
	if got := c.Classify("goodbye"); got.Kind != KindExit {
		t.Errorf("got %v, want exit via default phrases", got.Kind)
	}
}
