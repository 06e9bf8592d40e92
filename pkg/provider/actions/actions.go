// Package actions defines the Desktop interface for OS-level assistant
// actions: opening applications and folders, launching browser searches,
// playing media, closing windows, and sending keyboard shortcuts.
//
// The assistant core only ever calls these operations through the interface;
// how they reach the OS (shell tools, D-Bus, a remote agent) is an
// implementation concern. Failures are non-fatal to the dispatch pipeline —
// the core converts them into spoken apologies.
//
// Implementations must be safe for concurrent use.
package actions

import "context"

// SearchEngine identifies a supported browser search target.
type SearchEngine string

const (
	EngineGoogle  SearchEngine = "google"
	EngineYouTube SearchEngine = "youtube"
)

// IsValid reports whether e is a recognised search engine.
func (e SearchEngine) IsValid() bool {
	return e == EngineGoogle || e == EngineYouTube
}

// FolderKind identifies a well-known system folder.
type FolderKind string

const (
	FolderHome       FolderKind = "home"
	FolderDownloads  FolderKind = "downloads"
	FolderDocuments  FolderKind = "documents"
	FolderRecycleBin FolderKind = "recycle-bin"
)

// Desktop is the abstraction over OS-level actions.
type Desktop interface {
	// OpenBrowserSearch opens the given engine in the default browser. When
	// query is non-empty, the engine's search results page for it is opened
	// instead of the landing page.
	OpenBrowserSearch(ctx context.Context, engine SearchEngine, query string) error

	// PlayMedia opens playback of the best match for query (YouTube search
	// autoplay). query must be non-empty.
	PlayMedia(ctx context.Context, query string) error

	// OpenFileManager opens the system file manager at the user's home.
	OpenFileManager(ctx context.Context) error

	// OpenSystemFolder opens a well-known folder in the file manager.
	OpenSystemFolder(ctx context.Context, kind FolderKind) error

	// CloseApp closes the frontmost window of the named application. name
	// must be non-empty.
	CloseApp(ctx context.Context, name string) error

	// RunKeyboardShortcut sends the key combination described by spec
	// (e.g., "ctrl+a", "alt+Tab"). It reports whether the shortcut was
	// actually delivered; false with nil error means the backend has no way
	// to synthesise input.
	RunKeyboardShortcut(ctx context.Context, spec string) (bool, error)
}
