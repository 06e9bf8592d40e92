// Package mock provides a test double for the tts.Speaker interface.
//
// Spoken texts are recorded in order so tests can assert on the assistant's
// voice output without synthesising audio.
package mock

import (
	"context"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/tts"
)

// Speaker is a mock implementation of tts.Speaker.
type Speaker struct {
	mu sync.Mutex

	// Spoken records every non-empty text passed to Speak, in order.
	Spoken []string

	// Err, if non-nil, is returned from every Speak call (the text is
	// still recorded).
	Err error
}

var _ tts.Speaker = (*Speaker)(nil)

// Speak records text and returns the configured error.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text != "" {
		s.Spoken = append(s.Spoken, text)
	}
	return s.Err
}

// Texts returns a copy of the recorded texts.
func (s *Speaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}

// Reset clears the recorded texts.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Spoken = nil
}
