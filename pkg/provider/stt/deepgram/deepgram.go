// Package deepgram implements stt.Recognizer against the Deepgram streaming
// WebSocket API. Each ListenOnce call opens a capture stream from the
// configured audio source, pumps PCM frames to Deepgram, and returns the
// first speech-final transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/pmeredith/vessa/pkg/audio"
	"github.com/pmeredith/vessa/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"
	sampleRate       = 16000

	defaultNoInputTimeout = 6 * time.Second
	defaultPhraseLimit    = 6 * time.Second

	// captureFrameDuration keeps streaming latency low; the wake-word
	// loop's larger frames are not suitable here.
	captureFrameDuration = 100 * time.Millisecond
)

// Option is a functional option for configuring the Recognizer.
type Option func(*Recognizer)

// WithModel sets the Deepgram model (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// WithLanguage sets the default BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(r *Recognizer) { r.language = language }
}

// Recognizer implements stt.Recognizer backed by the Deepgram streaming API.
type Recognizer struct {
	apiKey   string
	model    string
	language string
	source   audio.Source
}

var _ stt.Recognizer = (*Recognizer)(nil)

// New creates a Deepgram Recognizer capturing from source. apiKey must be
// non-empty.
func New(apiKey string, source audio.Source, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	if source == nil {
		return nil, errors.New("deepgram: audio source must not be nil")
	}
	r := &Recognizer{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		source:   source,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// ListenOnce captures one utterance and returns its transcript.
//
// The capture stream and the WebSocket connection are scoped to this call
// and released on every exit path. Timeout semantics follow the stt package
// taxonomy: no speech within cfg.NoInputTimeout returns stt.ErrTimeout; an
// utterance that completes with empty text returns stt.ErrUnintelligible;
// transport failures return a *stt.BackendError.
func (r *Recognizer) ListenOnce(ctx context.Context, cfg stt.ListenConfig) (stt.Transcript, error) {
	noInput := cfg.NoInputTimeout
	if noInput <= 0 {
		noInput = defaultNoInputTimeout
	}
	phraseLimit := cfg.PhraseLimit
	if phraseLimit <= 0 {
		phraseLimit = defaultPhraseLimit
	}

	// Hard ceiling for the whole call.
	callCtx, cancel := context.WithTimeout(ctx, noInput+phraseLimit)
	defer cancel()

	stream, err := r.source.Open(callCtx, audio.StreamConfig{
		SampleRate:    sampleRate,
		Channels:      1,
		FrameDuration: captureFrameDuration,
	})
	if err != nil {
		return stt.Transcript{}, &stt.BackendError{Provider: "deepgram", Err: fmt.Errorf("open capture: %w", err)}
	}
	defer stream.Close()

	conn, _, err := websocket.Dial(callCtx, r.buildURL(cfg.Language), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Token " + r.apiKey}},
	})
	if err != nil {
		return stt.Transcript{}, &stt.BackendError{Provider: "deepgram", Err: fmt.Errorf("dial: %w", err)}
	}
	defer conn.Close(websocket.StatusNormalClosure, "listen complete")

	// Writer: forward capture frames until the call ends.
	writeDone := make(chan error, 1)
	go func() {
		for {
			select {
			case <-callCtx.Done():
				writeDone <- nil
				return
			case frame, ok := <-stream.Frames():
				if !ok {
					_ = conn.Write(callCtx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
					writeDone <- nil
					return
				}
				if err := conn.Write(callCtx, websocket.MessageBinary, frame.Data); err != nil {
					writeDone <- err
					return
				}
			}
		}
	}()

	t, err := r.awaitFinal(callCtx, conn, noInput, phraseLimit)
	cancel() // stops the writer and the capture stream
	<-writeDone
	return t, err
}

// awaitFinal reads Deepgram messages until a speech-final result, a timeout,
// or a transport failure.
func (r *Recognizer) awaitFinal(ctx context.Context, conn *websocket.Conn, noInput, phraseLimit time.Duration) (stt.Transcript, error) {
	type parsed struct {
		text        string
		confidence  float64
		speechFinal bool
		isFinal     bool
	}
	results := make(chan parsed, 8)
	readErr := make(chan error, 1)

	go func() {
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			var resp response
			if err := json.Unmarshal(msg, &resp); err != nil || resp.Type != "Results" {
				continue
			}
			if len(resp.Channel.Alternatives) == 0 {
				continue
			}
			alt := resp.Channel.Alternatives[0]
			results <- parsed{
				text:        alt.Transcript,
				confidence:  alt.Confidence,
				speechFinal: resp.SpeechFinal,
				isFinal:     resp.IsFinal,
			}
		}
	}()

	noInputTimer := time.NewTimer(noInput)
	defer noInputTimer.Stop()
	var phraseTimer *time.Timer
	var phraseC <-chan time.Time

	var lastFinal parsed
	speechSeen := false

	for {
		select {
		case <-ctx.Done():
			return stt.Transcript{}, stt.ErrTimeout

		case <-noInputTimer.C:
			if !speechSeen {
				return stt.Transcript{}, stt.ErrTimeout
			}

		case <-phraseC:
			// Utterance ran into the phrase cap; take what we have.
			return finishTranscript(lastFinal.text, lastFinal.confidence)

		case err := <-readErr:
			if ctx.Err() != nil {
				return stt.Transcript{}, stt.ErrTimeout
			}
			return stt.Transcript{}, &stt.BackendError{Provider: "deepgram", Err: err}

		case p := <-results:
			if strings.TrimSpace(p.text) != "" && !speechSeen {
				speechSeen = true
				phraseTimer = time.NewTimer(phraseLimit)
				phraseC = phraseTimer.C
				defer phraseTimer.Stop()
			}
			if p.isFinal {
				lastFinal = p
			}
			if p.speechFinal {
				return finishTranscript(lastFinal.text, lastFinal.confidence)
			}
		}
	}
}

// finishTranscript converts an accumulated result into the final return
// value, mapping empty text to ErrUnintelligible.
func finishTranscript(text string, confidence float64) (stt.Transcript, error) {
	if strings.TrimSpace(text) == "" {
		return stt.Transcript{}, stt.ErrUnintelligible
	}
	return stt.Transcript{
		Text:       text,
		Confidence: confidence,
		ReceivedAt: time.Now(),
	}, nil
}

// buildURL constructs the streaming endpoint URL.
func (r *Recognizer) buildURL(language string) string {
	u, _ := url.Parse(deepgramEndpoint)
	if language == "" {
		language = r.language
	}
	q := u.Query()
	q.Set("model", r.model)
	q.Set("language", language)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

// response is the JSON structure Deepgram returns for a Results event.
type response struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}
