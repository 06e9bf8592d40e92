package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/pmeredith/vessa/internal/devassist"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":       {"deepgram"},
	"tts":       {"openai"},
	"ai":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"wake_word": {"whispercpp"},
}

// Defaults for AssistantConfig fields left at their zero value.
var (
	DefaultWakeWords   = []string{"hey"}
	DefaultExitPhrases = []string{"shutdown", "terminate", "exit", "goodbye"}
)

const (
	defaultListenAddr             = ":8080"
	defaultLanguage               = "en"
	defaultPromptListenTimeoutSec = 6
	defaultPromptPhraseLimitSec   = 6
	defaultLoopListenTimeoutSec   = 8
	defaultLoopPhraseLimitSec     = 10
	defaultWakeCooldownSec        = 2
)

// Load reads the YAML configuration file at path and returns a validated [Config]
// with defaults applied. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields of cfg with the assistant's defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}

	a := &cfg.Assistant
	if len(a.WakeWords) == 0 {
		a.WakeWords = slices.Clone(DefaultWakeWords)
	}
	if len(a.ExitPhrases) == 0 {
		a.ExitPhrases = slices.Clone(DefaultExitPhrases)
	}
	if a.Language == "" {
		a.Language = defaultLanguage
	}
	if a.PromptListenTimeoutSec == 0 {
		a.PromptListenTimeoutSec = defaultPromptListenTimeoutSec
	}
	if a.PromptPhraseLimitSec == 0 {
		a.PromptPhraseLimitSec = defaultPromptPhraseLimitSec
	}
	if a.LoopListenTimeoutSec == 0 {
		a.LoopListenTimeoutSec = defaultLoopListenTimeoutSec
	}
	if a.LoopPhraseLimitSec == 0 {
		a.LoopPhraseLimitSec = defaultLoopPhraseLimitSec
	}
	if a.WakeCooldownSec == 0 {
		a.WakeCooldownSec = defaultWakeCooldownSec
	}

	if srv := cfg.DevAssist.Server; srv != nil && srv.Tool == "" {
		srv.Tool = "open_workspace"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("ai", cfg.Providers.AI.Name)
	validateProviderName("wake_word", cfg.Providers.WakeWord.Name)

	// Capability availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; continuous and wake-word listening will be unavailable")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; spoken responses will be skipped")
	}
	if cfg.Providers.AI.Name == "" {
		slog.Warn("no AI provider configured; unrecognised commands will get a canned reply")
	}
	if cfg.Providers.WakeWord.Name != "" && cfg.Providers.WakeWord.Model == "" {
		errs = append(errs, fmt.Errorf("providers.wake_word.model is required for provider %q (path to the model file)", cfg.Providers.WakeWord.Name))
	}

	// Assistant
	a := cfg.Assistant
	for i, w := range a.WakeWords {
		if w == "" {
			errs = append(errs, fmt.Errorf("assistant.wake_words[%d] is empty", i))
		}
	}
	for i, e := range a.ExitPhrases {
		if e == "" {
			errs = append(errs, fmt.Errorf("assistant.exit_phrases[%d] is empty", i))
		}
	}
	for _, f := range []struct {
		name string
		val  int
	}{
		{"assistant.prompt_listen_timeout_sec", a.PromptListenTimeoutSec},
		{"assistant.prompt_phrase_limit_sec", a.PromptPhraseLimitSec},
		{"assistant.loop_listen_timeout_sec", a.LoopListenTimeoutSec},
		{"assistant.loop_phrase_limit_sec", a.LoopPhraseLimitSec},
		{"assistant.wake_cooldown_sec", a.WakeCooldownSec},
	} {
		if f.val < 0 {
			errs = append(errs, fmt.Errorf("%s %d must not be negative", f.name, f.val))
		}
	}

	// Dev-assistant MCP server
	if srv := cfg.DevAssist.Server; srv != nil {
		if srv.Name == "" {
			errs = append(errs, errors.New("dev_assist.server.name is required"))
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("dev_assist.server.transport %q is invalid; valid values: stdio, streamable-http", srv.Transport))
		}
		if srv.Transport == devassist.TransportStdio && srv.Command == "" {
			errs = append(errs, errors.New("dev_assist.server.command is required when transport is stdio"))
		}
		if srv.Transport == devassist.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, errors.New("dev_assist.server.url is required when transport is streamable-http"))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
