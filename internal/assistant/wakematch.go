package assistant

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// defaultWakeThreshold is the minimum Jaro-Winkler score for a phonetic
// candidate to count as a wake trigger.
const defaultWakeThreshold = 0.80

// DefaultWakeWords is the wake vocabulary used when none is configured.
var DefaultWakeWords = []string{"hey"}

// WakeMatcher decides whether a finalized wake-loop utterance contains a
// wake word. Exact containment is checked first; remaining tokens are then
// tested phonetically (Double Metaphone candidate filtering ranked by
// Jaro-Winkler), so near-homophones like "hay" still trigger.
//
// Safe for concurrent use; the word set is hot-reloadable.
type WakeMatcher struct {
	threshold float64

	mu    sync.RWMutex
	words []string
}

// NewWakeMatcher creates a matcher over the given wake words. An empty set
// selects [DefaultWakeWords].
func NewWakeMatcher(words []string) *WakeMatcher {
	m := &WakeMatcher{threshold: defaultWakeThreshold}
	m.SetWords(words)
	return m
}

// SetWords replaces the wake word set. Used by config hot reload.
func (m *WakeMatcher) SetWords(words []string) {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		if w = normalize(w); w != "" {
			normalized = append(normalized, w)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultWakeWords...)
	}
	m.mu.Lock()
	m.words = normalized
	m.mu.Unlock()
}

// Words returns a copy of the current wake word set.
func (m *WakeMatcher) Words() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.words))
	copy(out, m.words)
	return out
}

// Matches reports whether utterance contains a wake word, exactly or
// phonetically.
func (m *WakeMatcher) Matches(utterance string) bool {
	cmd := normalize(utterance)
	if cmd == "" {
		return false
	}

	m.mu.RLock()
	words := m.words
	m.mu.RUnlock()

	for _, w := range words {
		if strings.Contains(cmd, w) {
			return true
		}
	}

	tokens := strings.Fields(cmd)
	for _, w := range words {
		wp, ws := matchr.DoubleMetaphone(w)
		for _, t := range tokens {
			tp, ts := matchr.DoubleMetaphone(t)
			if !codesOverlap(wp, ws, tp, ts) {
				continue
			}
			if matchr.JaroWinkler(t, w, false) >= m.threshold {
				return true
			}
		}
	}
	return false
}

// codesOverlap reports whether the two Double Metaphone code pairs share a
// non-empty code.
func codesOverlap(ap, as, bp, bs string) bool {
	for _, a := range [2]string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}
