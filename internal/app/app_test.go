package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pmeredith/vessa/internal/assistant"
	"github.com/pmeredith/vessa/internal/config"
	audiomock "github.com/pmeredith/vessa/pkg/audio/mock"
	actionsmock "github.com/pmeredith/vessa/pkg/provider/actions/mock"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	llmmock "github.com/pmeredith/vessa/pkg/provider/llm/mock"
	sttmock "github.com/pmeredith/vessa/pkg/provider/stt/mock"
	ttsmock "github.com/pmeredith/vessa/pkg/provider/tts/mock"
	wakemock "github.com/pmeredith/vessa/pkg/provider/wakeword/mock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ListenAddr = "127.0.0.1:0"
	config.ApplyDefaults(cfg)
	return cfg
}

func testProviders() *Providers {
	return &Providers{
		STT: &sttmock.Recognizer{},
		TTS: &ttsmock.Speaker{},
		AI:  &llmmock.Provider{Response: &llm.CompletionResponse{Content: "Certainly, sir."}},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_WiresSubsystems(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders(),
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	caps := a.Controller().Capabilities()
	if !caps.SpeechRecognition || !caps.TTS {
		t.Errorf("capabilities = %+v", caps)
	}
	if caps.WakeWord {
		t.Error("wake word should be unavailable without an engine")
	}
	if a.State().SystemStatus() != assistant.StatusOnline {
		t.Error("state should start online")
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders(),
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_GreetsOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Assistant.GreetOnStart = true
	providers := testProviders()
	speaker := providers.TTS.(*ttsmock.Speaker)

	a, err := New(context.Background(), cfg, providers,
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, "greeting", func() bool { return len(speaker.Texts()) > 0 })
	if got := speaker.Texts()[0]; !strings.HasPrefix(got, "Good ") {
		t.Errorf("greeting = %q", got)
	}
}

func TestRun_ArmsWakeWordOnBoot(t *testing.T) {
	providers := testProviders()
	providers.WakeWord = &wakemock.Engine{}
	providers.Audio = &audiomock.Source{KeepOpen: true}

	a, err := New(context.Background(), testConfig(), providers,
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	waitFor(t, "wake loop", func() bool {
		return a.Controller().WakeWordState() == assistant.LoopRunning
	})
	if mode := a.State().ListeningMode(); mode != assistant.ModeWakeWordArmed {
		t.Errorf("mode = %q, want wake_word_armed", mode)
	}
}

func TestApplyReload(t *testing.T) {
	lv := &slog.LevelVar{}
	a, err := New(context.Background(), testConfig(), testProviders(),
		WithDesktop(actionsmock.NewDesktop()), WithLogLevel(lv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	old := testConfig()
	updated := testConfig()
	updated.Server.LogLevel = config.LogDebug
	updated.Assistant.WakeWords = []string{"vessa"}
	updated.Assistant.ExitPhrases = []string{"power down"}
	updated.Assistant.LoopListenTimeoutSec = 3

	a.applyReload(old, updated)

	if lv.Level() != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", lv.Level())
	}
	if cmd := a.classifier.Classify("power down"); cmd.Kind != assistant.KindExit {
		t.Errorf("new exit phrase classified as %q", cmd.Kind)
	}
	if cmd := a.classifier.Classify("goodbye"); cmd.Kind == assistant.KindExit {
		t.Error("old exit phrase should no longer match")
	}
	if !a.matcher.Matches("hey vessa") {
		t.Error("new wake word should match")
	}
}

func TestApplyReload_NoChange(t *testing.T) {
	lv := &slog.LevelVar{}
	lv.Set(slog.LevelWarn)
	a, err := New(context.Background(), testConfig(), testProviders(),
		WithDesktop(actionsmock.NewDesktop()), WithLogLevel(lv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.applyReload(testConfig(), testConfig())

	if lv.Level() != slog.LevelWarn {
		t.Error("log level should be untouched when nothing changed")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders(),
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestShutdown_StopsLoops(t *testing.T) {
	providers := testProviders()
	providers.STT.(*sttmock.Recognizer).Script = []sttmock.Result{
		{Text: "hold on", Delay: 50 * time.Millisecond},
		{Text: "hold on", Delay: 50 * time.Millisecond},
		{Text: "hold on", Delay: 50 * time.Millisecond},
		{Text: "hold on", Delay: 50 * time.Millisecond},
	}

	a, err := New(context.Background(), testConfig(), providers,
		WithDesktop(actionsmock.NewDesktop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := a.Controller().StartActiveListening(context.Background()); err != nil {
		t.Fatalf("start listening: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if st := a.Controller().ActiveListeningState(); st != assistant.LoopStopped {
		t.Errorf("active loop state = %v, want stopped", st)
	}
}
