// Package assistant implements the session/mode concurrency core of the
// Vessa voice assistant: the utterance classifier, the dispatch pipeline,
// the shared session state, and the mode controller that owns the two
// mutually-exclusive background loops (wake-word detection and active
// listening).
//
// The package calls external capabilities (speech recognition, synthesis,
// desktop actions, the fallback LLM, the developer delegate) only through
// the narrow interfaces under pkg/provider and internal/devassist; adapter
// failures never propagate out of a dispatch, they become spoken apologies.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/pmeredith/vessa/internal/devassist"
	"github.com/pmeredith/vessa/internal/observe"
	"github.com/pmeredith/vessa/pkg/provider/actions"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	"github.com/pmeredith/vessa/pkg/provider/stt"
	"github.com/pmeredith/vessa/pkg/provider/tts"
)

// ActionShutdown marks an Exit response so the control surface can react.
const ActionShutdown = "shutdown"

// Default one-shot listen bounds for follow-up prompts.
const (
	defaultPromptTimeout     = 6 * time.Second
	defaultPromptPhraseLimit = 6 * time.Second
)

// Result is the outcome of one dispatch.
type Result struct {
	// Response is the user-facing reply, also spoken when a speaker is
	// configured.
	Response string

	// Success is false when the matched capability adapter failed.
	Success bool

	// Action is an optional marker for the control surface; currently only
	// [ActionShutdown].
	Action string
}

// DispatcherConfig wires a [Dispatcher]. State, Classifier, and Desktop are
// required; every other capability is optional and its absence degrades the
// matching command paths to apologies.
type DispatcherConfig struct {
	State      *State
	Classifier *Classifier

	// Speaker voices responses and follow-up prompts. Nil disables speech
	// output.
	Speaker tts.Speaker

	// Recognizer serves follow-up prompts ("Which song, sir?"). Nil skips
	// the prompt.
	Recognizer stt.Recognizer

	// Desktop executes OS-level actions.
	Desktop actions.Desktop

	// Fallback answers unclassified utterances.
	Fallback llm.Provider

	// Delegate handles developer-build requests asynchronously.
	Delegate devassist.Delegate

	// OnExit is called once when an Exit command flips the status Offline,
	// so the controller can stop both loops. May be nil.
	OnExit func()

	// Language is the recognition language for follow-up prompts.
	Language string

	// PromptTimeout / PromptPhraseLimit bound follow-up prompt listens.
	// Zero selects 6s / 6s.
	PromptTimeout     time.Duration
	PromptPhraseLimit time.Duration

	Metrics *observe.Metrics
}

// Dispatcher is the per-utterance pipeline: normalize, classify, execute
// via capability adapters, record history, respond. Safe for concurrent
// use; callers are expected to keep at most one loop feeding it.
type Dispatcher struct {
	state      *State
	classifier *Classifier
	speaker    tts.Speaker
	recognizer stt.Recognizer
	desktop    actions.Desktop
	fallback   llm.Provider
	delegate   devassist.Delegate
	onExit     func()

	language  string
	promptMu  sync.Mutex
	promptCfg stt.ListenConfig
	metrics   *observe.Metrics
	now       func() time.Time // test hook
}

// NewDispatcher creates a Dispatcher from cfg.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	promptTimeout := cfg.PromptTimeout
	if promptTimeout <= 0 {
		promptTimeout = defaultPromptTimeout
	}
	promptPhrase := cfg.PromptPhraseLimit
	if promptPhrase <= 0 {
		promptPhrase = defaultPromptPhraseLimit
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Dispatcher{
		state:      cfg.State,
		classifier: cfg.Classifier,
		speaker:    cfg.Speaker,
		recognizer: cfg.Recognizer,
		desktop:    cfg.Desktop,
		fallback:   cfg.Fallback,
		delegate:   cfg.Delegate,
		onExit:     cfg.OnExit,
		language:   cfg.Language,
		promptCfg: stt.ListenConfig{
			Language:       cfg.Language,
			NoInputTimeout: promptTimeout,
			PhraseLimit:    promptPhrase,
		},
		metrics: metrics,
		now:     time.Now,
	}
}

// SetOnExit installs the callback fired when an Exit command turns the
// system Offline. Must be called before the first dispatch; it exists so
// the controller (which needs the dispatcher to construct) can still be
// stopped by Exit.
func (d *Dispatcher) SetOnExit(fn func()) {
	d.onExit = fn
}

// SetPromptBounds updates the follow-up prompt listen bounds. Used by
// config hot reload.
func (d *Dispatcher) SetPromptBounds(timeout, phraseLimit time.Duration) {
	d.promptMu.Lock()
	defer d.promptMu.Unlock()
	if timeout > 0 {
		d.promptCfg.NoInputTimeout = timeout
	}
	if phraseLimit > 0 {
		d.promptCfg.PhraseLimit = phraseLimit
	}
}

// Dispatch classifies one utterance and executes it. It always completes:
// adapter failures are converted into apology responses and recorded as
// failed turns, never propagated. The processing flag is set for the
// duration of the call on every path.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) Result {
	start := d.now()
	d.state.SetProcessing(true)
	defer d.state.SetProcessing(false)

	cmd := d.classifier.Classify(utterance)
	if cmd.Kind != KindNoop {
		d.state.AddMessage(SenderUser, normalize(utterance))
	}

	res := d.execute(ctx, cmd)

	if res.Response != "" {
		d.state.AddMessage(SenderAssistant, res.Response)
		d.say(ctx, res.Response)
	}

	status := "ok"
	if !res.Success {
		status = "error"
	}
	d.metrics.RecordCommand(ctx, string(cmd.Kind), status)
	d.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("command", string(cmd.Kind))))
	return res
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) Result {
	switch cmd.Kind {
	case KindNoop:
		return Result{Success: true}

	case KindExit:
		if d.state.MarkOffline() && d.onExit != nil {
			d.onExit()
		}
		return Result{Response: "Shutting down. Goodbye, sir.", Success: true, Action: ActionShutdown}

	case KindStandby:
		return Result{Response: "Standing by, sir.", Success: true}

	case KindOpenFileManager:
		if err := d.desktop.OpenFileManager(ctx); err != nil {
			return d.apology(cmd, "I could not open the file manager, sir.", err)
		}
		return Result{Response: "Opening file manager, sir.", Success: true}

	case KindOpenRecycleBin:
		if err := d.desktop.OpenSystemFolder(ctx, actions.FolderRecycleBin); err != nil {
			return d.apology(cmd, "I could not open the Recycle Bin, sir.", err)
		}
		return Result{Response: "Opening Recycle Bin, sir.", Success: true}

	case KindBrowserSearch:
		return d.browserSearch(ctx, cmd)

	case KindPlayMedia:
		return d.playMedia(ctx, cmd)

	case KindCloseApp:
		if cmd.App == "" {
			return Result{Response: "Please tell me which application to close, sir.", Success: true}
		}
		if err := d.desktop.CloseApp(ctx, cmd.App); err != nil {
			return d.apology(cmd, fmt.Sprintf("I could not close %s, sir.", cmd.App), err)
		}
		return Result{Response: fmt.Sprintf("Attempting to close %s, sir.", cmd.App), Success: true}

	case KindKeyboardShortcut:
		handled, err := d.desktop.RunKeyboardShortcut(ctx, cmd.Shortcut)
		if err != nil {
			return d.apology(cmd, "I could not execute that command, sir.", err)
		}
		if !handled {
			return Result{Response: "Keyboard input is unavailable, sir.", Success: false}
		}
		return Result{Response: "Command executed, sir.", Success: true}

	case KindTimeQuery:
		return Result{
			Response: fmt.Sprintf("The current time is %s, sir.", d.now().Format("03:04 PM")),
			Success:  true,
		}

	case KindDevBuild:
		return d.devBuild(ctx, cmd)

	default:
		return d.askFallback(ctx, cmd)
	}
}

func (d *Dispatcher) browserSearch(ctx context.Context, cmd Command) Result {
	var prompt, response string
	switch cmd.Engine {
	case actions.EngineYouTube:
		prompt = "What shall I search for on YouTube, sir?"
		response = "Opening YouTube, sir."
	default:
		prompt = "What would you like to search, sir?"
		response = "Opening Google, sir."
	}
	query := d.listenPrompt(ctx, prompt)
	if err := d.desktop.OpenBrowserSearch(ctx, cmd.Engine, query); err != nil {
		return d.apology(cmd, "I could not open the browser, sir.", err)
	}
	return Result{Response: response, Success: true}
}

func (d *Dispatcher) playMedia(ctx context.Context, cmd Command) Result {
	query := cmd.Query
	if query == "" {
		query = d.listenPrompt(ctx, "Which song, sir?")
	}
	if query == "" {
		return Result{Response: "Please tell me which song to play, sir.", Success: true}
	}
	if err := d.desktop.PlayMedia(ctx, query); err != nil {
		return d.apology(cmd, "I could not start playback, sir.", err)
	}
	return Result{Response: fmt.Sprintf("Searching YouTube for %s, sir.", query), Success: true}
}

func (d *Dispatcher) devBuild(ctx context.Context, cmd Command) Result {
	if d.delegate == nil {
		return Result{Response: "The development environment is unavailable, sir.", Success: false}
	}
	// The delegate call may take minutes; reply immediately and run it
	// detached from the request context.
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := d.delegate.Handle(bg, cmd.Raw); err != nil {
			slog.Error("dev delegate failed", "error", err)
			d.metrics.RecordProviderError(bg, "devassist", "delegate")
		}
	}()
	return Result{
		Response: "I'll help you with that, sir. Opening the development environment.",
		Success:  true,
	}
}

func (d *Dispatcher) askFallback(ctx context.Context, cmd Command) Result {
	if d.fallback == nil {
		return Result{Response: "My conversational intelligence is unavailable, sir.", Success: false}
	}
	resp, err := d.fallback.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: cmd.Raw}},
	})
	if err != nil {
		d.metrics.RecordProviderError(ctx, "llm", "complete")
		return d.apology(cmd, "I'm having trouble reaching my intelligence, sir.", err)
	}
	return Result{Response: resp.Content, Success: true}
}

// apology logs an adapter failure and converts it into a failed-but-handled
// turn.
func (d *Dispatcher) apology(cmd Command, response string, err error) Result {
	slog.Warn("command adapter failed", "command", string(cmd.Kind), "error", err)
	return Result{Response: response, Success: false}
}

// listenPrompt speaks prompt and captures one short answer. Best effort:
// any failure yields an empty answer.
func (d *Dispatcher) listenPrompt(ctx context.Context, prompt string) string {
	d.say(ctx, prompt)
	if d.recognizer == nil {
		return ""
	}
	d.promptMu.Lock()
	cfg := d.promptCfg
	d.promptMu.Unlock()
	t, err := d.recognizer.ListenOnce(ctx, cfg)
	if err != nil {
		slog.Debug("follow-up prompt got no answer", "error", err)
		return ""
	}
	return normalize(t.Text)
}

// say voices text when a speaker is configured. Failures are logged, never
// returned.
func (d *Dispatcher) say(ctx context.Context, text string) {
	if d.speaker == nil || text == "" {
		return
	}
	start := d.now()
	if err := d.speaker.Speak(ctx, text); err != nil {
		slog.Warn("speech synthesis failed", "error", err)
		d.metrics.RecordProviderError(ctx, "tts", "speak")
		return
	}
	d.metrics.SpeakDuration.Record(ctx, time.Since(start).Seconds())
}
