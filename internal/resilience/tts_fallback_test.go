package resilience

import (
	"context"
	"errors"
	"testing"

	ttsmock "github.com/pmeredith/vessa/pkg/provider/tts/mock"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Speaker{}
	secondary := &ttsmock.Speaker{}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if err := fb.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := primary.Texts(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("primary spoke %v, want [hello]", got)
	}
	if got := secondary.Texts(); len(got) != 0 {
		t.Errorf("secondary spoke %v, want none", got)
	}
}

func TestTTSFallback_Failover(t *testing.T) {
	primary := &ttsmock.Speaker{Err: errors.New("synth down")}
	secondary := &ttsmock.Speaker{}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if err := fb.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := secondary.Texts(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("secondary spoke %v, want [hello]", got)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Speaker{Err: errors.New("a down")}
	secondary := &ttsmock.Speaker{Err: errors.New("b down")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	err := fb.Speak(context.Background(), "hello")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
}
