// Package desktop implements actions.Desktop for Linux desktops using
// standard tooling: xdg-open for URLs and folders, wmctrl for window
// management, and xdotool for synthetic keyboard input. Missing tools
// degrade gracefully — RunKeyboardShortcut reports unhandled, the rest
// return descriptive errors the dispatch pipeline converts to apologies.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pmeredith/vessa/pkg/provider/actions"
)

// runFunc executes one external command. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) error

// Option is a functional option for configuring a [Desktop].
type Option func(*Desktop)

// WithRunner replaces the command runner. Intended for tests.
func WithRunner(run runFunc) Option {
	return func(d *Desktop) { d.run = run }
}

// Desktop implements actions.Desktop via external tools.
type Desktop struct {
	run runFunc
}

var _ actions.Desktop = (*Desktop)(nil)

// New creates a Desktop action adapter.
func New(opts ...Option) *Desktop {
	d := &Desktop{
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// OpenBrowserSearch opens the engine's landing page or its results page for
// query.
func (d *Desktop) OpenBrowserSearch(ctx context.Context, engine actions.SearchEngine, query string) error {
	var target string
	switch engine {
	case actions.EngineGoogle:
		if query == "" {
			target = "https://www.google.com"
		} else {
			target = "https://www.google.com/search?q=" + url.QueryEscape(query)
		}
	case actions.EngineYouTube:
		if query == "" {
			target = "https://www.youtube.com"
		} else {
			target = "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
		}
	default:
		return fmt.Errorf("desktop: unknown search engine %q", engine)
	}
	if err := d.run(ctx, "xdg-open", target); err != nil {
		return fmt.Errorf("desktop: open %s: %w", engine, err)
	}
	return nil
}

// PlayMedia opens the YouTube search results for query; the first result
// autoplays on most desktop browsers via the results page's watch link.
func (d *Desktop) PlayMedia(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("desktop: media query must not be empty")
	}
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
	if err := d.run(ctx, "xdg-open", target); err != nil {
		return fmt.Errorf("desktop: play media: %w", err)
	}
	return nil
}

// OpenFileManager opens the user's home directory.
func (d *Desktop) OpenFileManager(ctx context.Context) error {
	return d.OpenSystemFolder(ctx, actions.FolderHome)
}

// OpenSystemFolder opens a well-known folder.
func (d *Desktop) OpenSystemFolder(ctx context.Context, kind actions.FolderKind) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("desktop: resolve home: %w", err)
	}

	var target string
	switch kind {
	case actions.FolderHome:
		target = home
	case actions.FolderDownloads:
		target = filepath.Join(home, "Downloads")
	case actions.FolderDocuments:
		target = filepath.Join(home, "Documents")
	case actions.FolderRecycleBin:
		target = "trash:///"
	default:
		return fmt.Errorf("desktop: unknown folder kind %q", kind)
	}
	if err := d.run(ctx, "xdg-open", target); err != nil {
		return fmt.Errorf("desktop: open folder %s: %w", kind, err)
	}
	return nil
}

// CloseApp closes the frontmost window whose title matches name.
func (d *Desktop) CloseApp(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("desktop: application name must not be empty")
	}
	if err := d.run(ctx, "wmctrl", "-c", name); err != nil {
		return fmt.Errorf("desktop: close %q: %w", name, err)
	}
	return nil
}

// RunKeyboardShortcut sends a key combination via xdotool. spec uses
// xdotool's key syntax ("ctrl+a", "alt+Tab").
func (d *Desktop) RunKeyboardShortcut(ctx context.Context, spec string) (bool, error) {
	if strings.TrimSpace(spec) == "" {
		return false, errors.New("desktop: shortcut spec must not be empty")
	}
	if _, err := exec.LookPath("xdotool"); err != nil {
		return false, nil
	}
	if err := d.run(ctx, "xdotool", "key", spec); err != nil {
		return false, fmt.Errorf("desktop: shortcut %q: %w", spec, err)
	}
	return true, nil
}
