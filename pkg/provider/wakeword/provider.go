// Package wakeword defines the Engine interface for offline wake-word
// recognition backends.
//
// A wake-word engine is a small, always-on speech recognizer: it accepts raw
// PCM frames and emits finalized short utterances. Deciding whether an
// utterance actually contains the wake word is the caller's job (the
// assistant's wake-word loop) — the engine only turns audio into text, so
// the wake-word set stays configurable without touching the backend.
//
// Implementations must be safe for concurrent use; a single SessionHandle is
// owned by exactly one consumer.
package wakeword

import "context"

// SessionConfig describes the audio format for a new recognition session.
type SessionConfig struct {
	// SampleRate is the PCM sample rate in Hz. Wake-word models are
	// typically trained at 16000.
	SampleRate int

	// Channels is the channel count of frames passed to Accept. Multi-channel
	// input is down-mixed to mono before inference.
	Channels int

	// Language is the recognition language code (e.g., "en"). Empty selects
	// the engine default.
	Language string
}

// SessionHandle is an open wake-word recognition session.
//
// Callers must call Close when done; sessions own inference state and a
// processing goroutine. All methods are safe for concurrent use.
type SessionHandle interface {
	// Accept delivers one chunk of raw PCM16LE audio for accumulation.
	// Calling Accept after Close returns an error.
	Accept(chunk []byte) error

	// Finals returns the channel of finalized utterances (lowercased,
	// trimmed). Empty recognitions are filtered out. The channel is closed
	// when the session ends.
	Finals() <-chan string

	// Close flushes pending audio and releases session resources. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Engine is the abstraction over any wake-word recognition backend.
type Engine interface {
	// NewSession opens a recognition session with the given audio format.
	NewSession(ctx context.Context, cfg SessionConfig) (SessionHandle, error)

	// Close releases the engine's model resources. All sessions must be
	// closed first.
	Close() error
}
