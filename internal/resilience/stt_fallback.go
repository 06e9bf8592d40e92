package resilience

import (
	"context"
	"errors"

	"github.com/pmeredith/vessa/pkg/provider/stt"
)

// STTFallback implements [stt.Recognizer] with automatic failover across
// multiple recognition backends.
//
// Only backend failures trigger failover. [stt.ErrTimeout] and
// [stt.ErrUnintelligible] describe what the user did (or didn't) say, not the
// health of the backend: they are returned to the caller directly, do not
// count against the circuit breaker, and never cause another backend to be
// tried.
type STTFallback struct {
	group *FallbackGroup[stt.Recognizer]
}

// Compile-time interface assertion.
var _ stt.Recognizer = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Recognizer, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *STTFallback) AddFallback(name string, recognizer stt.Recognizer) {
	f.group.AddFallback(name, recognizer)
}

// ListenOnce captures one utterance through the first healthy backend.
func (f *STTFallback) ListenOnce(ctx context.Context, cfg stt.ListenConfig) (stt.Transcript, error) {
	var (
		transcript  stt.Transcript
		semanticErr error
	)
	err := f.group.Execute(func(r stt.Recognizer) error {
		t, err := r.ListenOnce(ctx, cfg)
		if errors.Is(err, stt.ErrTimeout) || errors.Is(err, stt.ErrUnintelligible) {
			// The backend worked; the utterance didn't. Report success to
			// the breaker and hand the error straight back.
			semanticErr = err
			return nil
		}
		if err != nil {
			return err
		}
		transcript = t
		semanticErr = nil
		return nil
	})
	if err != nil {
		return stt.Transcript{}, err
	}
	if semanticErr != nil {
		return stt.Transcript{}, semanticErr
	}
	return transcript, nil
}
