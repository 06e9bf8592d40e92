package assistant

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestState_HistoryBounded(t *testing.T) {
	s := NewState()
	for i := 0; i < historyLimit+5; i++ {
		s.AddMessage(SenderUser, fmt.Sprintf("m%d", i))
	}

	h := s.History()
	if len(h) != historyLimit {
		t.Fatalf("history length = %d, want %d", len(h), historyLimit)
	}
	if h[0].Message != "m5" {
		t.Errorf("oldest entry = %q, want m5 (first five evicted)", h[0].Message)
	}
	if h[len(h)-1].Message != fmt.Sprintf("m%d", historyLimit+4) {
		t.Errorf("newest entry = %q", h[len(h)-1].Message)
	}
}

func TestState_HistoryTimestampFormat(t *testing.T) {
	s := NewState()
	s.now = func() time.Time { return time.Date(2026, 8, 31, 14, 5, 9, 0, time.UTC) }
	s.AddMessage(SenderAssistant, "hello")

	if got := s.History()[0].Timestamp; got != "14:05:09" {
		t.Errorf("timestamp = %q, want 14:05:09", got)
	}
}

func TestState_MarkOfflineOnce(t *testing.T) {
	s := NewState()
	if !s.MarkOffline() {
		t.Error("first MarkOffline should report the transition")
	}
	if s.MarkOffline() {
		t.Error("second MarkOffline should be a no-op")
	}
	if got := s.SystemStatus(); got != StatusOffline {
		t.Errorf("status = %v, want offline", got)
	}

	s.MarkOnline()
	if got := s.SystemStatus(); got != StatusOnline {
		t.Errorf("status = %v, want online after restart", got)
	}
}

func TestState_Snapshot(t *testing.T) {
	s := NewState()
	s.SetListeningMode(ModeWakeWordArmed)
	s.SetProcessing(true)
	s.AddMessage(SenderUser, "hi")

	snap := s.Snapshot()
	if snap.ListeningMode != ModeWakeWordArmed {
		t.Errorf("mode = %v", snap.ListeningMode)
	}
	if snap.SystemStatus != StatusOnline {
		t.Errorf("status = %v", snap.SystemStatus)
	}
	if !snap.Processing {
		t.Error("processing should be true")
	}
	if snap.HistoryLen != 1 {
		t.Errorf("history len = %d", snap.HistoryLen)
	}
}

func TestState_ClearHistory(t *testing.T) {
	s := NewState()
	s.AddMessage(SenderUser, "hi")
	s.ClearHistory()
	if len(s.History()) != 0 {
		t.Error("history should be empty after clear")
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.AddMessage(SenderUser, "x")
				s.SetProcessing(j%2 == 0)
				_ = s.Snapshot()
				_ = s.History()
			}
		}()
	}
	wg.Wait()

	if len(s.History()) != historyLimit {
		t.Errorf("history length = %d, want %d", len(s.History()), historyLimit)
	}
}
