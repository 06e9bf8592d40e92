package assistant

import "testing"

func TestWakeMatcher_ExactContainment(t *testing.T) {
	m := NewWakeMatcher([]string{"hey"})

	tests := []struct {
		utterance string
		want      bool
	}{
		{"hey", true},
		{"hey vessa", true},
		{"oh hey there", true},
		{"  HEY  ", true},
		{"good morning", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.Matches(tt.utterance); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
}

func TestWakeMatcher_PhoneticMatch(t *testing.T) {
	m := NewWakeMatcher([]string{"vessa"})

	// "vesa" shares the Double Metaphone code of "vessa" and scores well
	// above the Jaro-Winkler threshold.
	if !m.Matches("hey vesa") {
		t.Error("near-homophone should trigger phonetically")
	}
	if m.Matches("open the window") {
		t.Error("unrelated utterance should not trigger")
	}
}

func TestWakeMatcher_SetWords(t *testing.T) {
	m := NewWakeMatcher([]string{"hey"})
	m.SetWords([]string{"jarvis"})

	if m.Matches("hey there") {
		t.Error("old word should no longer trigger")
	}
	if !m.Matches("jarvis are you there") {
		t.Error("new word should trigger")
	}

	got := m.Words()
	if len(got) != 1 || got[0] != "jarvis" {
		t.Errorf("Words() = %v", got)
	}

	// An all-empty set falls back to the defaults.
	m.SetWords(nil)
	if !m.Matches("hey") {
		t.Error("default wake word should trigger after reset")
	}
}
