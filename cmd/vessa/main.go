// Command vessa is the main entry point for the Vessa voice assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/pmeredith/vessa/internal/app"
	"github.com/pmeredith/vessa/internal/config"
	"github.com/pmeredith/vessa/internal/devassist"
	"github.com/pmeredith/vessa/internal/observe"
	"github.com/pmeredith/vessa/internal/resilience"
	"github.com/pmeredith/vessa/pkg/audio"
	"github.com/pmeredith/vessa/pkg/audio/mic"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	"github.com/pmeredith/vessa/pkg/provider/llm/anyllm"
	"github.com/pmeredith/vessa/pkg/provider/stt"
	"github.com/pmeredith/vessa/pkg/provider/stt/deepgram"
	"github.com/pmeredith/vessa/pkg/provider/tts"
	oatts "github.com/pmeredith/vessa/pkg/provider/tts/openai"
	"github.com/pmeredith/vessa/pkg/provider/wakeword"
	"github.com/pmeredith/vessa/pkg/provider/wakeword/whispercpp"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vessa: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vessa: %v\n", err)
		}
		return 1
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "vessa: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := &slog.LevelVar{}
	logger := newLogger(cfg.Server.LogLevel, logLevel)
	slog.SetDefault(logger)

	slog.Info("vessa starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "vessa"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Audio capture ─────────────────────────────────────────────────────────
	source := newMicSource()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, source)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	providers.Audio = source

	// ── Dev-assistant delegate ────────────────────────────────────────────────
	if srv := cfg.DevAssist.Server; srv != nil {
		client, err := devassist.Connect(ctx, devassist.ServerConfig{
			Name:      srv.Name,
			Transport: srv.Transport,
			Command:   srv.Command,
			URL:       srv.URL,
			Tool:      srv.Tool,
			Env:       srv.Env,
		})
		if err != nil {
			slog.Error("failed to connect dev-assistant server", "name", srv.Name, "err", err)
			return 1
		}
		defer func() {
			if err := client.Close(); err != nil {
				slog.Warn("dev-assistant close error", "err", err)
			}
		}()
		providers.Delegate = client
		slog.Info("dev-assistant connected", "name", srv.Name, "transport", srv.Transport)
	} else if providers.AI != nil {
		providers.Delegate = devassist.NewAIDelegate(providers.AI)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithLogLevel(logLevel),
		app.WithConfigReload(*configPath),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with Vessa. Used for startup logging.
var builtinProviders = map[string][]string{
	"ai":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":       {"deepgram"},
	"tts":       {"openai"},
	"wake_word": {"whispercpp"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages. The STT factory captures the
// shared microphone source.
func registerBuiltinProviders(reg *config.Registry, source audio.Source) {
	// ── AI ────────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterAI(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterAI("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, source, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []oatts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oatts.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oatts.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, oatts.WithVoice(voice))
		}
		return oatts.New(entry.APIKey, opts...)
	})

	// ── Wake word ─────────────────────────────────────────────────────────────

	reg.RegisterWakeWord("whispercpp", func(entry config.ProviderEntry) (wakeword.Engine, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whispercpp.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whispercpp.WithLanguage(lang))
		}
		return whispercpp.New(modelPath, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "stt", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		} else {
			ps.STT = p
			slog.Info("provider created", "kind", "stt", "name", name)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "tts", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ps.TTS = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	if name := cfg.Providers.AI.Name; name != "" {
		p, err := reg.CreateAI(cfg.Providers.AI)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "ai", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create ai provider %q: %w", name, err)
		} else {
			ps.AI = withAIFallback(p, cfg.Providers.AI)
			slog.Info("provider created", "kind", "ai", "name", name)
		}
	}

	if name := cfg.Providers.WakeWord.Name; name != "" {
		p, err := reg.CreateWakeWord(cfg.Providers.WakeWord)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "wake_word", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create wake word provider %q: %w", name, err)
		} else {
			ps.WakeWord = p
			slog.Info("provider created", "kind", "wake_word", "name", name)
		}
	}

	return ps, nil
}

// withAIFallback wraps the primary AI provider in a circuit-broken fallback
// chain when the entry's options name a fallback provider/model. Without one,
// the primary is returned unwrapped.
func withAIFallback(primary llm.Provider, entry config.ProviderEntry) llm.Provider {
	fbName := optString(entry.Options, "fallback_provider")
	if fbName == "" {
		return primary
	}
	fbModel := optString(entry.Options, "fallback_model")

	var opts []anyllmlib.Option
	if key := optString(entry.Options, "fallback_api_key"); key != "" {
		opts = append(opts, anyllmlib.WithAPIKey(key))
	}
	if url := optString(entry.Options, "fallback_base_url"); url != "" {
		opts = append(opts, anyllmlib.WithBaseURL(url))
	}
	fb, err := anyllm.New(fbName, fbModel, opts...)
	if err != nil {
		slog.Warn("fallback ai provider unavailable", "name", fbName, "err", err)
		return primary
	}

	group := resilience.NewLLMFallback(primary, entry.Name, resilience.FallbackConfig{})
	group.AddFallback(fbName, fb)
	slog.Info("ai fallback chain enabled", "primary", entry.Name, "fallback", fbName)
	return group
}

// newMicSource builds the microphone capture source. The device can be
// overridden via VESSA_AUDIO_DEVICE for non-default ALSA setups.
func newMicSource() *mic.Source {
	var opts []mic.Option
	if dev := os.Getenv("VESSA_AUDIO_DEVICE"); dev != "" {
		opts = append(opts, mic.WithDevice(dev))
	}
	return mic.New(opts...)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Vessa — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("AI", cfg.Providers.AI.Name, cfg.Providers.AI.Model)
	printProvider("Wake word", cfg.Providers.WakeWord.Name, cfg.Providers.WakeWord.Model)
	switch {
	case cfg.DevAssist.Server != nil:
		fmt.Printf("║  Dev assist      : %-19s ║\n", "mcp")
	case cfg.Providers.AI.Name != "":
		fmt.Printf("║  Dev assist      : %-19s ║\n", "ai")
	default:
		fmt.Printf("║  Dev assist      : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Wake words      : %-19d ║\n", len(cfg.Assistant.WakeWords))
	fmt.Printf("║  Exit phrases    : %-19d ║\n", len(cfg.Assistant.ExitPhrases))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel, lv *slog.LevelVar) *slog.Logger {
	switch level {
	case config.LogDebug:
		lv.Set(slog.LevelDebug)
	case config.LogWarn:
		lv.Set(slog.LevelWarn)
	case config.LogError:
		lv.Set(slog.LevelError)
	default:
		lv.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
