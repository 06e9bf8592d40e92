// Package resilience provides failover primitives for the assistant's
// provider backends.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a speech or AI backend once it starts failing.
// [FallbackGroup] chains several backends of one provider type behind
// per-backend breakers, so an unhealthy primary is bypassed instead of
// stalling a listen or a spoken reply.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls to decide
	// whether the backend has recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker]. Zero
// fields take defaults sized for interactive voice calls, where waiting out
// a long recovery window mid-conversation is worse than retrying early.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is the consecutive-failure count that opens the
	// breaker. Default: 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing the
	// backend again. Default: 15s.
	ResetTimeout time.Duration

	// HalfOpenMax is how many probe calls may run (and must all succeed)
	// before the breaker closes again. Default: 2.
	HalfOpenMax int
}

// CircuitBreaker tracks consecutive failures of one backend and short-circuits
// calls while the backend is considered down.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu              sync.Mutex
	state           State
	failures        int       // consecutive failures while closed
	reopenAt        time.Time // when an open breaker may probe again
	probesStarted   int
	probesSucceeded int
}

// NewCircuitBreaker creates a breaker from cfg, filling in defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 15 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 2
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Execute runs fn unless the breaker refuses the call. Open-state calls fail
// fast with [ErrCircuitOpen]; half-open admits at most HalfOpenMax probes.
// fn's error is returned unchanged when fn does run.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Now().Before(cb.reopenAt) {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probesStarted = 0
		cb.probesSucceeded = 0
		slog.Info("circuit breaker probing backend", "name", cb.name)

	case StateHalfOpen:
		if cb.probesStarted >= cb.halfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	probing := cb.state == StateHalfOpen
	if probing {
		cb.probesStarted++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(probing)
	} else {
		cb.onSuccess(probing)
	}
	return err
}

// onFailure updates counters after a failed call. Caller holds cb.mu.
func (cb *CircuitBreaker) onFailure(probing bool) {
	if probing {
		// One bad probe is enough evidence the backend is still down.
		cb.open()
		slog.Warn("circuit breaker re-opened after failed probe", "name", cb.name)
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.open()
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.failures)
	}
}

// onSuccess updates counters after a successful call. Caller holds cb.mu.
func (cb *CircuitBreaker) onSuccess(probing bool) {
	if probing {
		cb.probesSucceeded++
		if cb.probesSucceeded >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			slog.Info("circuit breaker closed", "name", cb.name)
		}
		return
	}
	cb.failures = 0
}

// open transitions to StateOpen and schedules the next probe window.
// Caller holds cb.mu.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.failures = cb.maxFailures
	cb.reopenAt = time.Now().Add(cb.resetTimeout)
}

// State reports the breaker's effective state. An open breaker whose reset
// timeout has elapsed reports [StateHalfOpen]; the stored transition happens
// on the next [Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && !time.Now().Before(cb.reopenAt) {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probesStarted = 0
	cb.probesSucceeded = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
