// Package mock provides a test double for the actions.Desktop interface.
//
// Every invocation is recorded so tests can assert which OS action the
// dispatch pipeline executed and with what arguments. Set the per-method
// error fields to exercise the pipeline's failure handling.
package mock

import (
	"context"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/actions"
)

// BrowserSearchCall records one OpenBrowserSearch invocation.
type BrowserSearchCall struct {
	Engine actions.SearchEngine
	Query  string
}

// Desktop is a mock implementation of actions.Desktop.
type Desktop struct {
	mu sync.Mutex

	// Recorded calls, in order.
	BrowserSearches []BrowserSearchCall
	MediaQueries    []string
	FileManagerOpen int
	FoldersOpened   []actions.FolderKind
	AppsClosed      []string
	Shortcuts       []string

	// Injected errors per method. Nil means success.
	BrowserSearchErr error
	PlayMediaErr     error
	FileManagerErr   error
	SystemFolderErr  error
	CloseAppErr      error
	ShortcutErr      error

	// ShortcutHandled is returned from RunKeyboardShortcut when
	// ShortcutErr is nil. Defaults true via [NewDesktop].
	ShortcutHandled bool
}

var _ actions.Desktop = (*Desktop)(nil)

// NewDesktop returns a mock Desktop whose shortcuts report handled.
func NewDesktop() *Desktop {
	return &Desktop{ShortcutHandled: true}
}

func (d *Desktop) OpenBrowserSearch(ctx context.Context, engine actions.SearchEngine, query string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.BrowserSearches = append(d.BrowserSearches, BrowserSearchCall{Engine: engine, Query: query})
	return d.BrowserSearchErr
}

func (d *Desktop) PlayMedia(ctx context.Context, query string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.MediaQueries = append(d.MediaQueries, query)
	return d.PlayMediaErr
}

func (d *Desktop) OpenFileManager(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FileManagerOpen++
	return d.FileManagerErr
}

func (d *Desktop) OpenSystemFolder(ctx context.Context, kind actions.FolderKind) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FoldersOpened = append(d.FoldersOpened, kind)
	return d.SystemFolderErr
}

func (d *Desktop) CloseApp(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AppsClosed = append(d.AppsClosed, name)
	return d.CloseAppErr
}

func (d *Desktop) RunKeyboardShortcut(ctx context.Context, spec string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Shortcuts = append(d.Shortcuts, spec)
	if d.ShortcutErr != nil {
		return false, d.ShortcutErr
	}
	return d.ShortcutHandled, nil
}
