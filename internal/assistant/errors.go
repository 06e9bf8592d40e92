package assistant

import "errors"

// ErrCapabilityUnavailable is returned by controller start operations when
// the backend a loop depends on (speech recognition, wake-word engine, audio
// capture) was not configured or failed to initialise at startup. The loop
// never starts; the caller reports the condition synchronously.
var ErrCapabilityUnavailable = errors.New("assistant: capability unavailable")
