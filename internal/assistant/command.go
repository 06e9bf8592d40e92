package assistant

import "github.com/pmeredith/vessa/pkg/provider/actions"

// Kind identifies a classified command variant. The string value is used as
// the metric attribute for dispatch counters.
type Kind string

const (
	KindExit             Kind = "exit"
	KindStandby          Kind = "standby"
	KindNoop             Kind = "noop"
	KindOpenFileManager  Kind = "open_file_manager"
	KindOpenRecycleBin   Kind = "open_recycle_bin"
	KindBrowserSearch    Kind = "browser_search"
	KindPlayMedia        Kind = "play_media"
	KindCloseApp         Kind = "close_app"
	KindKeyboardShortcut Kind = "keyboard_shortcut"
	KindTimeQuery        Kind = "time_query"
	KindDevBuild         Kind = "dev_build"
	KindUnclassified     Kind = "unclassified"
)

// Command is the classified form of one utterance. Only the fields relevant
// to the Kind are populated; a Command is produced by [Classifier.Classify]
// and consumed immediately by the dispatch pipeline, never stored.
type Command struct {
	Kind Kind

	// Engine is set for KindBrowserSearch.
	Engine actions.SearchEngine

	// Query is the media search query for KindPlayMedia. May be empty, in
	// which case dispatch asks for it through a follow-up prompt.
	Query string

	// App is the application name for KindCloseApp. May be empty, in which
	// case dispatch asks which application without calling the adapter.
	App string

	// Shortcut is the key combination for KindKeyboardShortcut
	// (e.g., "ctrl+a").
	Shortcut string

	// Raw is the normalized utterance, set for KindDevBuild and
	// KindUnclassified.
	Raw string
}
