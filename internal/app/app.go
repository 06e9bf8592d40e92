// Package app wires all Vessa subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP control surface and blocks, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithDesktop, WithMetrics, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pmeredith/vessa/internal/assistant"
	"github.com/pmeredith/vessa/internal/config"
	"github.com/pmeredith/vessa/internal/devassist"
	"github.com/pmeredith/vessa/internal/health"
	"github.com/pmeredith/vessa/internal/httpapi"
	"github.com/pmeredith/vessa/internal/observe"
	"github.com/pmeredith/vessa/pkg/audio"
	"github.com/pmeredith/vessa/pkg/provider/actions"
	"github.com/pmeredith/vessa/pkg/provider/actions/desktop"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	"github.com/pmeredith/vessa/pkg/provider/stt"
	"github.com/pmeredith/vessa/pkg/provider/tts"
	"github.com/pmeredith/vessa/pkg/provider/wakeword"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured and the capability degrades gracefully.
// Populated by main.go via the config registry.
type Providers struct {
	STT      stt.Recognizer
	TTS      tts.Speaker
	AI       llm.Provider
	WakeWord wakeword.Engine
	Audio    audio.Source
	Delegate devassist.Delegate
}

// App owns all subsystem lifetimes and orchestrates the Vessa assistant.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	state      *assistant.State
	classifier *assistant.Classifier
	matcher    *assistant.WakeMatcher
	dispatcher *assistant.Dispatcher
	controller *assistant.Controller
	desktop    actions.Desktop
	server     *http.Server
	watcher    *config.Watcher

	metrics  *observe.Metrics
	logLevel *slog.LevelVar

	// configPath enables hot reload when non-empty.
	configPath string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDesktop injects a desktop adapter instead of creating the OS-backed one.
func WithDesktop(d actions.Desktop) Option {
	return func(a *App) { a.desktop = d }
}

// WithMetrics injects a metrics set instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel injects the level var backing the root logger so hot reload
// can adjust verbosity. Without it, log level changes require a restart.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithConfigReload watches path and applies hot-reloadable changes
// (vocabulary, timing bounds, log level) while the app runs.
func WithConfigReload(path string) Option {
	return func(a *App) { a.configPath = path }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if providers == nil {
		providers = &Providers{}
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.desktop == nil {
		a.desktop = desktop.New()
	}

	// ── 1. Assistant core ────────────────────────────────────────────────
	a.state = assistant.NewState()
	a.classifier = assistant.NewClassifier(cfg.Assistant.ExitPhrases)
	a.matcher = assistant.NewWakeMatcher(cfg.Assistant.WakeWords)

	a.dispatcher = assistant.NewDispatcher(assistant.DispatcherConfig{
		State:             a.state,
		Classifier:        a.classifier,
		Speaker:           providers.TTS,
		Recognizer:        providers.STT,
		Desktop:           a.desktop,
		Fallback:          providers.AI,
		Delegate:          providers.Delegate,
		Language:          cfg.Assistant.Language,
		PromptTimeout:     cfg.Assistant.PromptListenTimeout(),
		PromptPhraseLimit: cfg.Assistant.PromptPhraseLimit(),
		Metrics:           a.metrics,
	})

	a.controller = assistant.NewController(assistant.ControllerConfig{
		State:           a.state,
		Dispatcher:      a.dispatcher,
		Recognizer:      providers.STT,
		WakeEngine:      providers.WakeWord,
		Frames:          providers.Audio,
		Speaker:         providers.TTS,
		Matcher:         a.matcher,
		Language:        cfg.Assistant.Language,
		LoopTimeout:     cfg.Assistant.LoopListenTimeout(),
		LoopPhraseLimit: cfg.Assistant.LoopPhraseLimit(),
		WakeCooldown:    cfg.Assistant.WakeCooldown(),
		Metrics:         a.metrics,
	})

	// An exit command must stop both background loops.
	a.dispatcher.SetOnExit(a.controller.StopAll)

	// ── 2. HTTP control surface ──────────────────────────────────────────
	caps := a.controller.Capabilities()
	checks := health.New(
		health.Available("speech_recognition", caps.SpeechRecognition),
		health.Available("tts", caps.TTS),
		health.Available("wake_word", caps.WakeWord),
		health.Available("ai", providers.AI != nil),
	)

	api := httpapi.New(httpapi.Config{
		State:       a.state,
		Dispatcher:  a.dispatcher,
		Controller:  a.controller,
		Speaker:     providers.TTS,
		AIAvailable: providers.AI != nil,
		Health:      checks,
		Metrics:     a.metrics,
	})

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── 3. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyReload)
		if err != nil {
			return nil, fmt.Errorf("app: watch config: %w", err)
		}
		a.watcher = w
		a.closers = append(a.closers, func() error {
			w.Stop()
			return nil
		})
	}

	return a, nil
}

// State exposes the session state, mainly for tests.
func (a *App) State() *assistant.State { return a.state }

// Controller exposes the mode controller, mainly for tests.
func (a *App) Controller() *assistant.Controller { return a.controller }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP control surface and blocks until ctx is cancelled or
// the server fails. When a wake-word engine and audio source are configured,
// the wake-word loop is armed on boot so the assistant starts in standby.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Assistant.GreetOnStart && a.providers.TTS != nil {
		go a.greet(ctx)
	}

	if a.providers.WakeWord != nil && a.providers.Audio != nil {
		if _, err := a.controller.StartWakeWord(ctx); err != nil {
			slog.Warn("wake word loop not armed", "err", err)
		} else {
			slog.Info("wake word loop armed")
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("control surface listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: %w", err)
	}
	return ctx.Err()
}

// greet speaks the time-of-day greeting. Best effort.
func (a *App) greet(ctx context.Context) {
	text := assistant.StartupGreeting(time.Now())
	if err := a.providers.TTS.Speak(ctx, text); err != nil {
		slog.Warn("startup greeting failed", "err", err)
	}
}

// applyReload applies hot-reloadable config changes. Provider selection and
// server topology require a restart and are ignored.
func (a *App) applyReload(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.VocabularyChanged {
		a.classifier.SetExitPhrases(d.NewExitPhrases)
		a.matcher.SetWords(d.NewWakeWords)
		slog.Info("vocabulary reloaded",
			"wake_words", len(d.NewWakeWords), "exit_phrases", len(d.NewExitPhrases))
	}

	if d.TimingChanged {
		a.controller.SetTiming(
			new.Assistant.LoopListenTimeout(),
			new.Assistant.LoopPhraseLimit(),
			new.Assistant.WakeCooldown(),
		)
		a.dispatcher.SetPromptBounds(
			new.Assistant.PromptListenTimeout(),
			new.Assistant.PromptPhraseLimit(),
		)
		slog.Info("listen timing reloaded")
	}
}

// slogLevel maps a config log level to a slog level.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It stops both listening loops
// and waits for them within the context deadline, then closes the remaining
// subsystems. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.controller.StopAll()
		if err := a.controller.Wait(ctx); err != nil {
			slog.Warn("loops did not stop in time", "err", err)
			shutdownErr = err
		}

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
