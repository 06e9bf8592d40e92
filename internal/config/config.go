// Package config provides the configuration schema, loader, and provider registry
// for the Vessa voice assistant.
package config

import (
	"time"

	"github.com/pmeredith/vessa/internal/devassist"
)

// LogLevel controls log verbosity for the Vessa server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Vessa.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Assistant AssistantConfig `yaml:"assistant"`
	DevAssist DevAssistConfig `yaml:"dev_assist"`
}

// ServerConfig holds network and logging settings for the Vessa server.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP control surface listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// capability. Each field selects a named provider registered in the [Registry].
// An empty Name means the capability is unavailable and the assistant degrades
// gracefully (wake word and listening refuse to start, Speak is a no-op).
type ProvidersConfig struct {
	STT      ProviderEntry `yaml:"stt"`
	TTS      ProviderEntry `yaml:"tts"`
	AI       ProviderEntry `yaml:"ai"`
	WakeWord ProviderEntry `yaml:"wake_word"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// May be injected from the environment via [ApplyEnvOverrides].
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "gpt-4o-mini", "nova-3", or a whisper model file path).
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// AssistantConfig tunes the assistant's vocabulary and listening behaviour.
// Zero values are replaced by defaults when loading, see [ApplyDefaults].
type AssistantConfig struct {
	// WakeWords lists the phrases that arm the assistant from standby.
	WakeWords []string `yaml:"wake_words"`

	// ExitPhrases lists the exact utterances that shut the assistant down.
	ExitPhrases []string `yaml:"exit_phrases"`

	// Language is the BCP-47 language hint passed to recognition backends.
	Language string `yaml:"language"`

	// GreetOnStart speaks a time-of-day greeting when the server boots.
	GreetOnStart bool `yaml:"greet_on_start"`

	// PromptListenTimeoutSec bounds the wait for speech to begin when the
	// assistant asks a follow-up question.
	PromptListenTimeoutSec int `yaml:"prompt_listen_timeout_sec"`

	// PromptPhraseLimitSec caps the length of a follow-up answer.
	PromptPhraseLimitSec int `yaml:"prompt_phrase_limit_sec"`

	// LoopListenTimeoutSec bounds the wait for speech to begin inside the
	// continuous listening loop.
	LoopListenTimeoutSec int `yaml:"loop_listen_timeout_sec"`

	// LoopPhraseLimitSec caps the length of an utterance inside the
	// continuous listening loop.
	LoopPhraseLimitSec int `yaml:"loop_phrase_limit_sec"`

	// WakeCooldownSec is how long the wake-word loop sleeps after a trigger
	// before listening for the wake word again.
	WakeCooldownSec int `yaml:"wake_cooldown_sec"`
}

// PromptListenTimeout returns the follow-up listen timeout as a duration.
func (a AssistantConfig) PromptListenTimeout() time.Duration {
	return time.Duration(a.PromptListenTimeoutSec) * time.Second
}

// PromptPhraseLimit returns the follow-up phrase cap as a duration.
func (a AssistantConfig) PromptPhraseLimit() time.Duration {
	return time.Duration(a.PromptPhraseLimitSec) * time.Second
}

// LoopListenTimeout returns the loop listen timeout as a duration.
func (a AssistantConfig) LoopListenTimeout() time.Duration {
	return time.Duration(a.LoopListenTimeoutSec) * time.Second
}

// LoopPhraseLimit returns the loop phrase cap as a duration.
func (a AssistantConfig) LoopPhraseLimit() time.Duration {
	return time.Duration(a.LoopPhraseLimitSec) * time.Second
}

// WakeCooldown returns the wake-trigger cooldown as a duration.
func (a AssistantConfig) WakeCooldown() time.Duration {
	return time.Duration(a.WakeCooldownSec) * time.Second
}

// DevAssistConfig describes the MCP server handling development-environment
// requests. When Server is nil, dev-build requests fall back to the AI provider.
type DevAssistConfig struct {
	Server *DevAssistServerConfig `yaml:"server"`
}

// DevAssistServerConfig describes how to connect to the dev-assistant MCP server.
type DevAssistServerConfig struct {
	// Name is a unique human-readable identifier for this server (used in logs).
	Name string `yaml:"name"`

	// Transport specifies the connection mechanism.
	Transport devassist.Transport `yaml:"transport"`

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio". Ignored for streamable-http transport.
	Command string `yaml:"command"`

	// URL is the MCP endpoint address used when Transport is "streamable-http"
	// (e.g., "https://mcp.example.com/mcp"). Ignored for stdio transport.
	URL string `yaml:"url"`

	// Tool is the MCP tool invoked for each request. Defaults to "open_workspace".
	Tool string `yaml:"tool"`

	// Env holds additional environment variables injected into the subprocess
	// when Transport is "stdio". May be nil.
	Env map[string]string `yaml:"env"`
}
