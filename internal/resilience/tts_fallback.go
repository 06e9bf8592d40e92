package resilience

import (
	"context"

	"github.com/pmeredith/vessa/pkg/provider/tts"
)

// TTSFallback implements [tts.Speaker] with automatic failover across multiple
// speech-synthesis backends.
type TTSFallback struct {
	group *FallbackGroup[tts.Speaker]
}

// Compile-time interface assertion.
var _ tts.Speaker = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Speaker, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional speaker as a fallback.
func (f *TTSFallback) AddFallback(name string, speaker tts.Speaker) {
	f.group.AddFallback(name, speaker)
}

// Speak synthesises and plays text through the first healthy backend.
func (f *TTSFallback) Speak(ctx context.Context, text string) error {
	return f.group.Execute(func(s tts.Speaker) error {
		return s.Speak(ctx, text)
	})
}
