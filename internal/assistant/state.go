package assistant

import (
	"sync"
	"time"
)

// historyLimit bounds the chat history; appending beyond it evicts the
// oldest entry.
const historyLimit = 100

// ListeningMode is the assistant's current audio posture. ActiveListening
// and WakeWordArmed are mutually exclusive by controller policy.
type ListeningMode string

const (
	ModeIdle            ListeningMode = "idle"
	ModeActiveListening ListeningMode = "active_listening"
	ModeWakeWordArmed   ListeningMode = "wake_word_armed"
)

// SystemStatus is the assistant's lifecycle status. Once Offline, both
// background loops terminate at their next suspension point.
type SystemStatus string

const (
	StatusOnline  SystemStatus = "online"
	StatusOffline SystemStatus = "offline"
)

// Chat history senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is one entry of the bounded conversation history.
type ChatMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Snapshot is a consistent copy of the session state for the control
// surface.
type Snapshot struct {
	ListeningMode ListeningMode
	SystemStatus  SystemStatus
	Processing    bool
	HistoryLen    int
}

// State is the single shared session state. One instance lives for the
// whole process and is mutated concurrently by the dispatch pipeline, both
// background loops, and the control surface.
//
// The mutex is held only for field access, never across a blocking adapter
// call. All methods are safe for concurrent use.
type State struct {
	mu            sync.Mutex
	listeningMode ListeningMode
	systemStatus  SystemStatus
	processing    bool
	history       []ChatMessage

	now func() time.Time // test hook
}

// NewState creates session state in the Idle/Online starting position.
func NewState() *State {
	return &State{
		listeningMode: ModeIdle,
		systemStatus:  StatusOnline,
		now:           time.Now,
	}
}

// ListeningMode returns the current listening mode.
func (s *State) ListeningMode() ListeningMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeningMode
}

// SetListeningMode records the current listening mode.
func (s *State) SetListeningMode(mode ListeningMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeningMode = mode
}

// SystemStatus returns the current lifecycle status.
func (s *State) SystemStatus() SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemStatus
}

// MarkOffline transitions the status to Offline. It reports whether this
// call performed the transition, so an Exit dispatch flips the status
// exactly once no matter how often it races.
func (s *State) MarkOffline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.systemStatus == StatusOffline {
		return false
	}
	s.systemStatus = StatusOffline
	return true
}

// MarkOnline resets the status to Online (explicit restart action).
func (s *State) MarkOnline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemStatus = StatusOnline
}

// Processing returns whether a dispatch is currently in flight.
func (s *State) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// SetProcessing records whether a dispatch is in flight.
func (s *State) SetProcessing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = v
}

// AddMessage appends a history entry with the current wall-clock timestamp,
// evicting the oldest entry once the bound is reached.
func (s *State) AddMessage(sender, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, ChatMessage{
		Sender:    sender,
		Message:   message,
		Timestamp: s.now().Format("15:04:05"),
	})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// History returns a copy of the current chat history, oldest first.
func (s *State) History() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory empties the chat history.
func (s *State) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Snapshot returns a consistent copy of the mode, status, and processing
// flag for status reporting.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ListeningMode: s.listeningMode,
		SystemStatus:  s.systemStatus,
		Processing:    s.processing,
		HistoryLen:    len(s.history),
	}
}
