// Package httpapi implements the HTTP control surface of the Vessa voice
// assistant: text command dispatch, asynchronous speech, listening-loop
// control, status and capability reporting, and chat history access, plus
// health probes and the Prometheus scrape endpoint.
//
// The control surface only issues requests into the assistant core; all
// session semantics live in internal/assistant.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmeredith/vessa/internal/assistant"
	"github.com/pmeredith/vessa/internal/health"
	"github.com/pmeredith/vessa/internal/observe"
	"github.com/pmeredith/vessa/pkg/provider/tts"
)

// Config wires a [Server]. State, Dispatcher, and Controller are required.
type Config struct {
	State      *assistant.State
	Dispatcher *assistant.Dispatcher
	Controller *assistant.Controller

	// Speaker serves POST /api/speak. Nil reports TTS unavailable.
	Speaker tts.Speaker

	// AIAvailable reports whether a fallback AI backend is configured;
	// surfaced in /api/status.
	AIAvailable bool

	// Health serves /healthz and /readyz when non-nil.
	Health *health.Handler

	Metrics *observe.Metrics
}

// Server holds the control surface handlers.
type Server struct {
	state       *assistant.State
	dispatcher  *assistant.Dispatcher
	controller  *assistant.Controller
	speaker     tts.Speaker
	aiAvailable bool
	healthh     *health.Handler
	metrics     *observe.Metrics

	now func() time.Time // test hook
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		state:       cfg.State,
		dispatcher:  cfg.Dispatcher,
		controller:  cfg.Controller,
		speaker:     cfg.Speaker,
		aiAvailable: cfg.AIAvailable,
		healthh:     cfg.Health,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Handler returns the full route tree wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.HandleFunc("POST /api/listen", s.handleListen)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/capabilities", s.handleCapabilities)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/clear-history", s.handleClearHistory)
	if s.healthh != nil {
		s.healthh.Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(s.metrics)(mux)
}

// apiResponse is the common response envelope.
type apiResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Action   string `json:"action,omitempty"`
}

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "no command provided"})
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), req.Command)
	writeJSON(w, http.StatusOK, apiResponse{
		Success:  res.Success,
		Response: res.Response,
		Action:   res.Action,
	})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "no text provided"})
		return
	}
	if s.speaker == nil {
		writeJSON(w, http.StatusOK, apiResponse{Error: "speech synthesis not available"})
		return
	}

	// Fire and forget; the request does not block on playback.
	go func(ctx context.Context, text string) {
		if err := s.speaker.Speak(ctx, text); err != nil {
			slog.Warn("speech synthesis failed", "error", err)
		}
	}(context.WithoutCancel(r.Context()), req.Text)

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Speech initiated"})
}

type listenRequest struct {
	Type string `json:"type"`

	// ModelPath is accepted for compatibility with older clients; the
	// wake-word model is loaded from configuration at startup.
	ModelPath string `json:"model_path,omitempty"`
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	var req listenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return
	}

	switch req.Type {
	case "start_continuous":
		if _, err := s.controller.StartActiveListening(r.Context()); err != nil {
			s.writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Continuous listening started"})

	case "stop_continuous":
		s.controller.StopActiveListening()
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Continuous listening stopped"})

	case "start_wake_word":
		if _, err := s.controller.StartWakeWord(r.Context()); err != nil {
			s.writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Wake word detection started"})

	case "stop_wake_word":
		s.controller.StopWakeWord()
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Wake word detection stopped"})

	default:
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid listen type"})
	}
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	if errors.Is(err, assistant.ErrCapabilityUnavailable) {
		writeJSON(w, http.StatusOK, apiResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, apiResponse{Error: err.Error()})
}

// statusResponse mirrors the legacy status payload.
type statusResponse struct {
	Success    bool              `json:"success"`
	Time       string            `json:"time"`
	Components map[string]string `json:"components"`
	Processing bool              `json:"processing"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	caps := s.controller.Capabilities()

	var speech string
	switch {
	case snap.ListeningMode == assistant.ModeActiveListening:
		speech = "LISTENING"
	case snap.ListeningMode == assistant.ModeWakeWordArmed:
		speech = "WAKE_WORD_ACTIVE"
	case caps.SpeechRecognition:
		speech = "READY"
	default:
		speech = "OFFLINE"
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Success: true,
		Time:    s.now().Format("03 : 04 : 05 PM"),
		Components: map[string]string{
			"speech_recognition": speech,
			"tts":                onlineWord(caps.TTS),
			"ai":                 onlineWord(s.aiAvailable),
			"system":             strings.ToUpper(string(snap.SystemStatus)),
		},
		Processing: snap.Processing,
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Capabilities())
}

type historyResponse struct {
	Success bool                    `json:"success"`
	History []assistant.ChatMessage `json:"history"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h := s.state.History()
	if h == nil {
		h = []assistant.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: h})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.state.ClearHistory()
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Chat history cleared"})
}

func onlineWord(available bool) string {
	if available {
		return "ONLINE"
	}
	return "OFFLINE"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encoding failed", "error", err)
	}
}
