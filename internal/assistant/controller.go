package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pmeredith/vessa/internal/observe"
	"github.com/pmeredith/vessa/pkg/audio"
	"github.com/pmeredith/vessa/pkg/provider/stt"
	"github.com/pmeredith/vessa/pkg/provider/tts"
	"github.com/pmeredith/vessa/pkg/provider/wakeword"
)

// wakeSampleRate is the capture rate fed to the wake-word engine.
const wakeSampleRate = 16000

// Default loop timing.
const (
	defaultLoopTimeout     = 8 * time.Second
	defaultLoopPhraseLimit = 10 * time.Second
	defaultWakeCooldown    = 2 * time.Second
)

// LoopState is the lifecycle state of one background loop.
type LoopState int

const (
	LoopStopped LoopState = iota
	LoopRunning
	LoopStopRequested
)

func (s LoopState) String() string {
	switch s {
	case LoopRunning:
		return "running"
	case LoopStopRequested:
		return "stop_requested"
	default:
		return "stopped"
	}
}

// CapabilitySet reports which optional backends were configured, resolved
// once at startup and exposed read-only to the control surface.
type CapabilitySet struct {
	SpeechRecognition bool `json:"speech_recognition_available"`
	WakeWord          bool `json:"wake_word_available"`
	TTS               bool `json:"tts_available"`
}

// loopHandle tracks one background loop.
type loopHandle struct {
	state  LoopState
	cancel context.CancelFunc
	done   chan struct{}
}

// ControllerConfig wires a [Controller]. State and Dispatcher are required.
// Recognizer, WakeEngine, and Frames are optional; a start operation whose
// backend is absent fails with [ErrCapabilityUnavailable].
type ControllerConfig struct {
	State      *State
	Dispatcher *Dispatcher
	Recognizer stt.Recognizer
	WakeEngine wakeword.Engine
	Frames     audio.Source
	Speaker    tts.Speaker
	Matcher    *WakeMatcher

	// Language is the recognition language for loop listens and wake
	// sessions.
	Language string

	// LoopTimeout / LoopPhraseLimit bound each active-loop listen.
	// Zero selects 8s / 10s.
	LoopTimeout     time.Duration
	LoopPhraseLimit time.Duration

	// WakeCooldown is the pause after a wake trigger before the loop
	// resumes consuming audio, so the spoken acknowledgment cannot
	// re-trigger it. Zero selects 2s.
	WakeCooldown time.Duration

	Metrics *observe.Metrics
}

// Controller owns the lifecycle of the two exclusive background loops:
// wake-word detection and active listening. Start and stop operations are
// idempotent and return the resulting loop state; cancellation is
// cooperative, observed at loop iteration boundaries.
//
// All methods are safe for concurrent use.
type Controller struct {
	state      *State
	dispatcher *Dispatcher
	recognizer stt.Recognizer
	wake       wakeword.Engine
	frames     audio.Source
	speaker    tts.Speaker
	matcher    *WakeMatcher
	language   string
	metrics    *observe.Metrics

	mu       sync.Mutex
	active   loopHandle
	wakeLoop loopHandle

	timingMu    sync.Mutex
	loopTimeout time.Duration
	loopPhrase  time.Duration
	cooldown    time.Duration
}

// NewController creates a Controller from cfg.
func NewController(cfg ControllerConfig) *Controller {
	loopTimeout := cfg.LoopTimeout
	if loopTimeout <= 0 {
		loopTimeout = defaultLoopTimeout
	}
	loopPhrase := cfg.LoopPhraseLimit
	if loopPhrase <= 0 {
		loopPhrase = defaultLoopPhraseLimit
	}
	cooldown := cfg.WakeCooldown
	if cooldown <= 0 {
		cooldown = defaultWakeCooldown
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = NewWakeMatcher(nil)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Controller{
		state:       cfg.State,
		dispatcher:  cfg.Dispatcher,
		recognizer:  cfg.Recognizer,
		wake:        cfg.WakeEngine,
		frames:      cfg.Frames,
		speaker:     cfg.Speaker,
		matcher:     matcher,
		language:    cfg.Language,
		metrics:     metrics,
		loopTimeout: loopTimeout,
		loopPhrase:  loopPhrase,
		cooldown:    cooldown,
	}
}

// Capabilities reports which backends this controller was built with.
func (c *Controller) Capabilities() CapabilitySet {
	return CapabilitySet{
		SpeechRecognition: c.recognizer != nil,
		WakeWord:          c.wake != nil && c.frames != nil,
		TTS:               c.speaker != nil,
	}
}

// SetTiming updates the loop listen bounds and wake cooldown. Used by
// config hot reload; values <= 0 leave the current setting unchanged.
func (c *Controller) SetTiming(loopTimeout, loopPhrase, cooldown time.Duration) {
	c.timingMu.Lock()
	defer c.timingMu.Unlock()
	if loopTimeout > 0 {
		c.loopTimeout = loopTimeout
	}
	if loopPhrase > 0 {
		c.loopPhrase = loopPhrase
	}
	if cooldown > 0 {
		c.cooldown = cooldown
	}
}

// StartActiveListening starts the active-listening loop. A no-op when the
// loop is already running. Returns [ErrCapabilityUnavailable] when no
// speech recognizer is configured.
//
// The loop runs detached from ctx's cancellation; it stops via
// [Controller.StopActiveListening] or by its own terminal conditions.
func (c *Controller) StartActiveListening(ctx context.Context) (LoopState, error) {
	if c.recognizer == nil {
		return LoopStopped, fmt.Errorf("%w: speech recognition", ErrCapabilityUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active.state == LoopRunning {
		return LoopRunning, nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.active = loopHandle{state: LoopRunning, cancel: cancel, done: done}
	c.recomputeModeLocked()

	go c.runActiveLoop(loopCtx, done)
	return LoopRunning, nil
}

// StopActiveListening requests cancellation of the active-listening loop.
// Best effort: the loop observes it at its next listen boundary. A no-op
// when the loop is not running.
func (c *Controller) StopActiveListening() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active.state != LoopRunning {
		return LoopStopped
	}
	c.active.state = LoopStopRequested
	c.active.cancel()
	c.recomputeModeLocked()
	return LoopStopRequested
}

// StartWakeWord starts the wake-word loop. A no-op when the loop is
// already running. Returns [ErrCapabilityUnavailable] when the wake-word
// engine or the audio source is absent.
func (c *Controller) StartWakeWord(ctx context.Context) (LoopState, error) {
	if c.wake == nil || c.frames == nil {
		return LoopStopped, fmt.Errorf("%w: wake word detection", ErrCapabilityUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wakeLoop.state == LoopRunning {
		return LoopRunning, nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.wakeLoop = loopHandle{state: LoopRunning, cancel: cancel, done: done}
	c.recomputeModeLocked()

	go c.runWakeLoop(loopCtx, done)
	return LoopRunning, nil
}

// StopWakeWord requests cancellation of the wake-word loop. A no-op when
// the loop is not running.
func (c *Controller) StopWakeWord() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wakeLoop.state != LoopRunning {
		return LoopStopped
	}
	c.wakeLoop.state = LoopStopRequested
	c.wakeLoop.cancel()
	c.recomputeModeLocked()
	return LoopStopRequested
}

// StopAll requests cancellation of both loops. Called by the dispatch
// pipeline when an Exit command turns the system Offline, and by shutdown.
func (c *Controller) StopAll() {
	c.StopActiveListening()
	c.StopWakeWord()
}

// Wait blocks until both loops have fully stopped or ctx expires.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	activeDone := c.active.done
	wakeDone := c.wakeLoop.done
	c.mu.Unlock()

	for _, done := range []chan struct{}{activeDone, wakeDone} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ActiveListeningState returns the active-listening loop state.
func (c *Controller) ActiveListeningState() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.state
}

// WakeWordState returns the wake-word loop state.
func (c *Controller) WakeWordState() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeLoop.state
}

// recomputeModeLocked derives the session listening mode from the two loop
// states. Active listening shadows an armed wake loop. Callers hold c.mu.
func (c *Controller) recomputeModeLocked() {
	switch {
	case c.active.state == LoopRunning:
		c.state.SetListeningMode(ModeActiveListening)
	case c.wakeLoop.state == LoopRunning:
		c.state.SetListeningMode(ModeWakeWordArmed)
	default:
		c.state.SetListeningMode(ModeIdle)
	}
}

// finishActive clears the loop handle when it still belongs to this loop
// instance; a replacement loop started after a StopRequested must not be
// clobbered by the old instance winding down.
func (c *Controller) finishActive(done chan struct{}, reason string) {
	c.mu.Lock()
	if c.active.done == done {
		c.active = loopHandle{}
		c.recomputeModeLocked()
	}
	c.mu.Unlock()
	slog.Info("active listening stopped", "reason", reason)
}

func (c *Controller) finishWake(done chan struct{}, reason string) {
	c.mu.Lock()
	if c.wakeLoop.done == done {
		c.wakeLoop = loopHandle{}
		c.recomputeModeLocked()
	}
	c.mu.Unlock()
	slog.Info("wake word detection stopped", "reason", reason)
}

func (c *Controller) listenConfig() stt.ListenConfig {
	c.timingMu.Lock()
	defer c.timingMu.Unlock()
	return stt.ListenConfig{
		Language:       c.language,
		NoInputTimeout: c.loopTimeout,
		PhraseLimit:    c.loopPhrase,
	}
}

func (c *Controller) wakeCooldown() time.Duration {
	c.timingMu.Lock()
	defer c.timingMu.Unlock()
	return c.cooldown
}

// runActiveLoop is the active-listening loop body: listen once, dispatch,
// repeat until cancelled or a terminal condition.
func (c *Controller) runActiveLoop(ctx context.Context, done chan struct{}) {
	c.metrics.RecordLoopStart(ctx, "active_listening")
	reason := "cancelled"
	defer func() {
		c.metrics.RecordLoopStop(ctx, "active_listening", reason)
		c.finishActive(done, reason)
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if c.state.SystemStatus() == StatusOffline {
			reason = "offline"
			return
		}

		t, err := c.recognizer.ListenOnce(ctx, c.listenConfig())
		switch {
		case err == nil:
			c.dispatcher.Dispatch(ctx, t.Text)
			if c.state.SystemStatus() == StatusOffline {
				reason = "offline"
				return
			}

		case ctx.Err() != nil:
			return

		case errors.Is(err, stt.ErrTimeout):
			c.say(ctx, "No input detected. Returning to standby.")
			reason = "timeout"
			return

		case errors.Is(err, stt.ErrUnintelligible):
			c.say(ctx, "I did not understand, sir.")

		default:
			slog.Error("recognition backend failed", "error", err)
			c.metrics.RecordProviderError(ctx, "stt", "listen")
			c.say(ctx, "Microphone or network error, sir.")
			reason = "backend_error"
			return
		}
	}
}

// runWakeLoop is the wake-word loop body: pump capture frames into a
// recognition session and check each finalized utterance for the wake
// word. On trigger it acknowledges, starts active listening, and cools
// down before resuming.
func (c *Controller) runWakeLoop(ctx context.Context, done chan struct{}) {
	c.metrics.RecordLoopStart(ctx, "wake_word")
	reason := "cancelled"
	defer func() {
		c.metrics.RecordLoopStop(ctx, "wake_word", reason)
		c.finishWake(done, reason)
		close(done)
	}()

	stream, err := c.frames.Open(ctx, audio.StreamConfig{SampleRate: wakeSampleRate, Channels: 1})
	if err != nil {
		slog.Error("audio capture failed", "error", err)
		c.say(ctx, "Wake word detection is unavailable, sir.")
		reason = "capture_error"
		return
	}
	defer stream.Close()

	session, err := c.wake.NewSession(ctx, wakeword.SessionConfig{
		SampleRate: wakeSampleRate,
		Channels:   1,
		Language:   c.language,
	})
	if err != nil {
		slog.Error("wake word session failed", "error", err)
		c.say(ctx, "Failed to load the wake word model, sir.")
		reason = "session_error"
		return
	}
	defer session.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case f, ok := <-stream.Frames():
			if !ok {
				reason = "capture_closed"
				return
			}
			if err := session.Accept(f.Data); err != nil {
				slog.Error("wake word session rejected audio", "error", err)
				reason = "session_error"
				return
			}

		case text, ok := <-session.Finals():
			if !ok {
				reason = "session_closed"
				return
			}
			if c.matcher.Matches(text) {
				slog.Info("wake word detected", "utterance", text)
				c.metrics.WakeTriggers.Add(ctx, 1)
				c.say(ctx, "Yes, sir.")
				if _, err := c.StartActiveListening(ctx); err != nil {
					slog.Warn("could not start active listening", "error", err)
				}
				// Cooldown so our own acknowledgment audio cannot
				// re-trigger the detector.
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.wakeCooldown()):
				}
			}
		}

		if c.state.SystemStatus() == StatusOffline {
			reason = "offline"
			return
		}
	}
}

func (c *Controller) say(ctx context.Context, text string) {
	if c.speaker == nil {
		return
	}
	if err := c.speaker.Speak(ctx, text); err != nil {
		slog.Warn("speech synthesis failed", "error", err)
		c.metrics.RecordProviderError(ctx, "tts", "speak")
	}
}
