// Package openai provides a Speaker backed by the OpenAI speech synthesis
// API. Synthesised PCM is piped into an external playback process (aplay by
// default), keeping the binary free of CGO audio dependencies.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pmeredith/vessa/pkg/provider/tts"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = "gpt-4o-mini-tts"

// pcmSampleRate is the sample rate of the API's raw PCM response format.
const pcmSampleRate = 24000

// Ensure Speaker implements the tts.Speaker interface.
var _ tts.Speaker = (*Speaker)(nil)

// config holds optional configuration for the speaker.
type config struct {
	baseURL string
	model   string
	voice   string
	timeout time.Duration
	player  []string
}

// Option is a functional option for Speaker.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the speech model. Defaults to [DefaultModel].
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithVoice selects the synthesis voice (e.g., "alloy", "onyx").
func WithVoice(voice string) Option {
	return func(c *config) { c.voice = voice }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithPlayer replaces the default playback command. The argv must read raw
// PCM16LE mono at 24 kHz from stdin and play it to completion.
func WithPlayer(argv []string) Option {
	return func(c *config) { c.player = argv }
}

// Speaker implements tts.Speaker using the OpenAI API.
type Speaker struct {
	client oai.Client
	model  string
	voice  string
	player []string

	// playMu serialises playback so overlapping Speak calls don't talk
	// over each other.
	playMu sync.Mutex
}

// New constructs an OpenAI Speaker. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}

	cfg := &config{
		model: DefaultModel,
		voice: "alloy",
	}
	for _, o := range opts {
		o(cfg)
	}
	if len(cfg.player) == 0 {
		cfg.player = []string{
			"aplay", "--quiet",
			"--format", "S16_LE",
			"--rate", fmt.Sprintf("%d", pcmSampleRate),
			"--channels", "1",
			"--file-type", "raw",
		}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Speaker{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
		voice:  cfg.voice,
		player: cfg.player,
	}, nil
}

// Speak synthesises text and plays it through the playback command.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	resp, err := s.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          s.model,
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return fmt.Errorf("openai tts: synthesise: %w", err)
	}
	defer resp.Body.Close()

	return s.play(ctx, resp.Body)
}

// play pipes PCM into the playback process and waits for it to finish.
func (s *Speaker) play(ctx context.Context, pcm io.Reader) error {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	cmd := exec.CommandContext(ctx, s.player[0], s.player[1:]...)
	cmd.Stdin = pcm
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("openai tts: playback %q: %w", s.player[0], err)
	}
	return nil
}
