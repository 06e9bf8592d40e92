// Package tts defines the Speaker interface for text-to-speech backends.
//
// A speaker turns a short text into audible speech and blocks until playback
// completes (or ctx is cancelled). The assistant core treats speech as fire
// and forget: failures are logged and converted into returned text, never
// propagated through the dispatch pipeline.
//
// Implementations must be safe for concurrent use; concurrent Speak calls
// may be serialised internally to avoid overlapping playback.
package tts

import "context"

// Speaker is the abstraction over any TTS backend.
type Speaker interface {
	// Speak synthesises and plays text. It returns once playback has
	// finished or ctx is cancelled. An empty text is a no-op.
	Speak(ctx context.Context, text string) error
}
