package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envSecrets collects API keys that may be supplied via the environment
// instead of the YAML file, so secrets stay out of checked-in configs.
type envSecrets struct {
	STTAPIKey      string `env:"VESSA_STT_API_KEY"`
	TTSAPIKey      string `env:"VESSA_TTS_API_KEY"`
	AIAPIKey       string `env:"VESSA_AI_API_KEY"`
	WakeWordAPIKey string `env:"VESSA_WAKE_WORD_API_KEY"`
}

// ApplyEnvOverrides replaces provider API keys in cfg with values from the
// environment when the corresponding VESSA_*_API_KEY variable is set.
func ApplyEnvOverrides(cfg *Config) error {
	var s envSecrets
	if err := env.Parse(&s); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if s.STTAPIKey != "" {
		cfg.Providers.STT.APIKey = s.STTAPIKey
	}
	if s.TTSAPIKey != "" {
		cfg.Providers.TTS.APIKey = s.TTSAPIKey
	}
	if s.AIAPIKey != "" {
		cfg.Providers.AI.APIKey = s.AIAPIKey
	}
	if s.WakeWordAPIKey != "" {
		cfg.Providers.WakeWord.APIKey = s.WakeWordAPIKey
	}
	return nil
}
