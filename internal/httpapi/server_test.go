package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pmeredith/vessa/internal/assistant"
	"github.com/pmeredith/vessa/internal/health"
	actionsmock "github.com/pmeredith/vessa/pkg/provider/actions/mock"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	llmmock "github.com/pmeredith/vessa/pkg/provider/llm/mock"
	sttmock "github.com/pmeredith/vessa/pkg/provider/stt/mock"
	ttsmock "github.com/pmeredith/vessa/pkg/provider/tts/mock"
)

type fixture struct {
	state      *assistant.State
	speaker    *ttsmock.Speaker
	recognizer *sttmock.Recognizer
	desktop    *actionsmock.Desktop
	controller *assistant.Controller
	server     *Server
	handler    http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		state:      assistant.NewState(),
		speaker:    &ttsmock.Speaker{},
		recognizer: &sttmock.Recognizer{},
		desktop:    actionsmock.NewDesktop(),
	}
	dispatcher := assistant.NewDispatcher(assistant.DispatcherConfig{
		State:      f.state,
		Classifier: assistant.NewClassifier(nil),
		Speaker:    f.speaker,
		Recognizer: f.recognizer,
		Desktop:    f.desktop,
		Fallback:   &llmmock.Provider{Response: &llm.CompletionResponse{Content: "Certainly, sir."}},
	})
	f.controller = assistant.NewController(assistant.ControllerConfig{
		State:      f.state,
		Dispatcher: dispatcher,
		Recognizer: f.recognizer,
		Speaker:    f.speaker,
	})
	dispatcher.SetOnExit(f.controller.StopAll)

	f.server = New(Config{
		State:       f.state,
		Dispatcher:  dispatcher,
		Controller:  f.controller,
		Speaker:     f.speaker,
		AIAvailable: true,
		Health: health.New(
			health.Available("speech_recognition", true),
		),
	})
	f.handler = f.server.Handler()
	return f
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHandleCommand(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/command", `{"command": "open youtube"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[apiResponse](t, rec)
	if !body.Success || body.Response != "Opening YouTube, sir." {
		t.Errorf("body = %+v", body)
	}
	if len(f.desktop.BrowserSearches) != 1 {
		t.Errorf("browser searches = %d, want 1", len(f.desktop.BrowserSearches))
	}
}

func TestHandleCommand_Empty(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/command", `{"command": "  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCommand_BadJSON(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/command", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCommand_ExitCarriesShutdownAction(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/command", `{"command": "goodbye"}`)
	body := decode[apiResponse](t, rec)
	if body.Action != assistant.ActionShutdown {
		t.Errorf("action = %q, want %q", body.Action, assistant.ActionShutdown)
	}
	if f.state.SystemStatus() != assistant.StatusOffline {
		t.Error("status should be offline")
	}
}

func TestHandleSpeak(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/speak", `{"text": "Hello, sir."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[apiResponse](t, rec)
	if !body.Success || body.Message != "Speech initiated" {
		t.Errorf("body = %+v", body)
	}

	// Playback happens in the background.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.speaker.Texts()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	texts := f.speaker.Texts()
	if len(texts) != 1 || texts[0] != "Hello, sir." {
		t.Errorf("spoken = %v", texts)
	}
}

func TestHandleSpeak_NoText(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/speak", `{"text": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListen_StartStopContinuous(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/listen", `{"type": "start_continuous"}`)
	body := decode[apiResponse](t, rec)
	if !body.Success || body.Message != "Continuous listening started" {
		t.Errorf("body = %+v", body)
	}

	rec = f.post(t, "/api/listen", `{"type": "stop_continuous"}`)
	body = decode[apiResponse](t, rec)
	if !body.Success || body.Message != "Continuous listening stopped" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleListen_WakeWordUnavailable(t *testing.T) {
	f := newFixture() // no wake engine configured

	rec := f.post(t, "/api/listen", `{"type": "start_wake_word"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[apiResponse](t, rec)
	if body.Success || !strings.Contains(body.Error, "capability unavailable") {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleListen_InvalidType(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/listen", `{"type": "levitate"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	body := decode[apiResponse](t, rec)
	if body.Error != "invalid listen type" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestHandleStatus(t *testing.T) {
	f := newFixture()
	f.server.now = func() time.Time {
		return time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	}

	rec := f.get(t, "/api/status")
	body := decode[statusResponse](t, rec)

	if body.Time != "03 : 04 : 05 PM" {
		t.Errorf("time = %q", body.Time)
	}
	if body.Components["speech_recognition"] != "READY" {
		t.Errorf("speech = %q", body.Components["speech_recognition"])
	}
	if body.Components["tts"] != "ONLINE" {
		t.Errorf("tts = %q", body.Components["tts"])
	}
	if body.Components["ai"] != "ONLINE" {
		t.Errorf("ai = %q", body.Components["ai"])
	}
	if body.Components["system"] != "ONLINE" {
		t.Errorf("system = %q", body.Components["system"])
	}
	if body.Processing {
		t.Error("processing should be false")
	}
}

func TestHandleStatus_OfflineSystem(t *testing.T) {
	f := newFixture()
	f.state.MarkOffline()

	rec := f.get(t, "/api/status")
	body := decode[statusResponse](t, rec)
	if body.Components["system"] != "OFFLINE" {
		t.Errorf("system = %q", body.Components["system"])
	}
}

func TestHandleCapabilities(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/api/capabilities")
	body := decode[assistant.CapabilitySet](t, rec)
	if !body.SpeechRecognition || !body.TTS {
		t.Errorf("caps = %+v", body)
	}
	if body.WakeWord {
		t.Error("wake word should be unavailable in this fixture")
	}
}

func TestHandleHistoryAndClear(t *testing.T) {
	f := newFixture()
	f.state.AddMessage(assistant.SenderUser, "hello")

	rec := f.get(t, "/api/history")
	body := decode[historyResponse](t, rec)
	if len(body.History) != 1 || body.History[0].Message != "hello" {
		t.Errorf("history = %+v", body.History)
	}

	f.post(t, "/api/clear-history", `{}`)

	rec = f.get(t, "/api/history")
	body = decode[historyResponse](t, rec)
	if len(body.History) != 0 {
		t.Errorf("history after clear = %+v", body.History)
	}
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture()

	if rec := f.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := f.get(t, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture()

	if rec := f.get(t, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture()

	rec := f.get(t, "/api/status")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry a request id")
	}
}
