// Package stt defines the Recognizer interface for one-shot speech
// recognition backends.
//
// A recognizer wraps a transcription service (e.g., Deepgram streaming) and
// exposes a single blocking operation: capture one utterance from an audio
// source and return its transcript. The assistant's active-listening loop
// calls ListenOnce repeatedly; the dispatch pipeline calls it for follow-up
// prompts ("Which song, sir?").
//
// Recognition failures are classified into three kinds the caller must
// distinguish, because they drive different loop behaviour:
//
//   - [ErrTimeout]: no speech arrived within the configured window. The
//     active-listening loop treats this as terminal.
//   - [ErrUnintelligible]: audio was captured but produced no usable text.
//     Transient; the loop continues.
//   - [*BackendError]: the recognition service or capture device failed.
//     Terminal for the loop.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by ListenOnce. Use errors.Is to test for them.
var (
	// ErrTimeout indicates no speech was detected before the listen window
	// elapsed.
	ErrTimeout = errors.New("stt: no speech before timeout")

	// ErrUnintelligible indicates audio was captured but the backend could
	// not produce a usable transcript.
	ErrUnintelligible = errors.New("stt: speech not understood")
)

// BackendError wraps a failure of the recognition service itself (network,
// authentication, device). It is terminal for a listening loop.
type BackendError struct {
	// Provider names the backend that failed (e.g., "deepgram").
	Provider string

	// Err is the underlying failure.
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("stt: %s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transcript is the result of one successful recognition.
type Transcript struct {
	// Text is the recognized utterance, as returned by the backend.
	Text string

	// Confidence is the backend's confidence in [0, 1], or 0 if the backend
	// does not report one.
	Confidence float64

	// ReceivedAt is when the final result arrived.
	ReceivedAt time.Time
}

// ListenConfig bounds a single ListenOnce call.
type ListenConfig struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// Empty selects the recognizer default.
	Language string

	// NoInputTimeout is the maximum wait for speech to begin. When it
	// elapses with no speech, ListenOnce returns [ErrTimeout].
	// Zero selects the recognizer default.
	NoInputTimeout time.Duration

	// PhraseLimit caps the length of a single utterance once speech has
	// begun. Zero selects the recognizer default.
	PhraseLimit time.Duration
}

// Recognizer is the abstraction over any one-shot speech recognition backend.
type Recognizer interface {
	// ListenOnce captures a single utterance and returns its transcript.
	// It blocks until an utterance completes, a bound in cfg is hit, ctx is
	// cancelled, or the backend fails. See the package documentation for
	// the error taxonomy.
	ListenOnce(ctx context.Context, cfg ListenConfig) (Transcript, error)
}
