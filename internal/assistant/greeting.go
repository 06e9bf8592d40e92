package assistant

import "time"

// TimeGreeting returns the time-of-day greeting for t: morning before noon,
// afternoon until 18:00, evening otherwise.
func TimeGreeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// StartupGreeting is the full sentence spoken on boot.
func StartupGreeting(t time.Time) string {
	return TimeGreeting(t) + ", sir. Always at your service."
}
