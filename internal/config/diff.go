package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VocabularyChanged is true when the wake-word or exit-phrase sets differ.
	VocabularyChanged bool
	NewWakeWords      []string
	NewExitPhrases    []string

	// TimingChanged is true when any listen timeout, phrase cap, or the wake
	// cooldown differ. New values are read from the new config directly.
	TimingChanged bool
}

// Changed reports whether the diff carries any hot-reloadable change.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.VocabularyChanged || d.TimingChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; provider
// selection and server topology require a restart and are ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Assistant.WakeWords, new.Assistant.WakeWords) ||
		!slices.Equal(old.Assistant.ExitPhrases, new.Assistant.ExitPhrases) {
		d.VocabularyChanged = true
		d.NewWakeWords = slices.Clone(new.Assistant.WakeWords)
		d.NewExitPhrases = slices.Clone(new.Assistant.ExitPhrases)
	}

	if old.Assistant.PromptListenTimeoutSec != new.Assistant.PromptListenTimeoutSec ||
		old.Assistant.PromptPhraseLimitSec != new.Assistant.PromptPhraseLimitSec ||
		old.Assistant.LoopListenTimeoutSec != new.Assistant.LoopListenTimeoutSec ||
		old.Assistant.LoopPhraseLimitSec != new.Assistant.LoopPhraseLimitSec ||
		old.Assistant.WakeCooldownSec != new.Assistant.WakeCooldownSec {
		d.TimingChanged = true
	}

	return d
}
