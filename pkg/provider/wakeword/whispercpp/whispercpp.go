// Package whispercpp implements wakeword.Engine using the whisper.cpp CGO
// bindings. The model is loaded once at engine construction and shared
// across sessions; each session runs its own accumulation goroutine with
// RMS-based end-of-utterance detection.
//
// The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH. A small model
// (tiny/base) is recommended — the engine only needs to spot short trigger
// phrases, not produce exact transcripts.
package whispercpp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/pmeredith/vessa/pkg/provider/wakeword"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// rmsThreshold separates speech from silence on normalised samples.
	rmsThreshold = 0.015

	// silenceThresholdMs of trailing silence finalizes an utterance.
	silenceThresholdMs = 500

	// maxBufferDurationMs forces a flush; wake phrases are short.
	maxBufferDurationMs = 4000
)

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithLanguage sets the recognition language code. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// Engine implements wakeword.Engine backed by a shared whisper.cpp model.
type Engine struct {
	model    whisperlib.Model
	language string
}

var _ wakeword.Engine = (*Engine)(nil)

// New loads the whisper.cpp model at modelPath. The caller must call Close
// when the engine is no longer needed.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whispercpp: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}
	e := &Engine{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Close releases the whisper model.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// NewSession opens a recognition session. Each session creates fresh
// whisper.cpp contexts per inference, so multiple sessions can run
// concurrently against the shared model.
func (e *Engine) NewSession(ctx context.Context, cfg wakeword.SessionConfig) (wakeword.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whispercpp: context already cancelled: %w", err)
	}

	sr := cfg.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}
	lang := cfg.Language
	if lang == "" {
		lang = e.language
	}

	s := &session{
		model:      e.model,
		language:   lang,
		sampleRate: sr,
		channels:   ch,
		audioCh:    make(chan []byte, 64),
		finals:     make(chan string, 16),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.processLoop(ctx)
	return s, nil
}

// session is a live wake-word recognition session. Accumulation state is
// confined to the processLoop goroutine.
type session struct {
	model      whisperlib.Model
	language   string
	sampleRate int
	channels   int

	audioCh chan []byte
	finals  chan string

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var _ wakeword.SessionHandle = (*session)(nil)

// Accept queues a chunk of raw PCM16LE audio for analysis.
func (s *session) Accept(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whispercpp: session is closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return errors.New("whispercpp: session is closed")
	}
}

// Finals returns the channel of finalized utterances.
func (s *session) Finals() <-chan string { return s.finals }

// Close flushes pending speech and releases the session.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// processLoop buffers speech chunks and flushes them through whisper.cpp
// whenever trailing silence or the buffer cap is hit.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.finals)

	var (
		buffer    []byte
		hadSpeech bool
		silenceMs int
	)

	bytesPerMs := s.sampleRate * s.channels * 2 / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := maxBufferDurationMs * bytesPerMs

	flush := func() {
		if len(buffer) == 0 || !hadSpeech {
			buffer = nil
			hadSpeech = false
			silenceMs = 0
			return
		}
		pcm := buffer
		buffer = nil
		hadSpeech = false
		silenceMs = 0

		text, err := s.infer(pcm)
		if err != nil {
			slog.Error("wakeword inference failed", "err", err)
			return
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			return
		}
		select {
		case s.finals <- text:
		default:
			// Consumer is behind; wake phrases are ephemeral, drop.
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-s.done:
			flush()
			return
		case chunk := <-s.audioCh:
			rms := computeRMS(chunk)
			chunkMs := len(chunk) / bytesPerMs

			if rms < rmsThreshold {
				if hadSpeech {
					silenceMs += chunkMs
					buffer = append(buffer, chunk...)
					if silenceMs >= silenceThresholdMs {
						flush()
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buffer = append(buffer, chunk...)
				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					flush()
				}
			}
		}
	}
}

// infer converts buffered PCM to float32, runs whisper.cpp on a fresh
// context, and returns the concatenated segment text.
func (s *session) infer(pcm []byte) (string, error) {
	samples := pcmToFloat32Mono(pcm, s.channels)

	// Contexts are not thread-safe; the shared model is.
	wctx, err := s.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whispercpp: create context: %w", err)
	}
	if err := wctx.SetLanguage(s.language); err != nil {
		slog.Warn("whispercpp: failed to set language, using default", "language", s.language, "err", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whispercpp: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whispercpp: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// pcmToFloat32Mono down-mixes 16-bit PCM to mono float32 samples normalised
// to [-1.0, 1.0].
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// computeRMS returns the root-mean-square amplitude of a PCM16LE chunk,
// normalised to [0, 1].
func computeRMS(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		sample := float64(int16(binary.LittleEndian.Uint16(chunk[i*2:i*2+2]))) / 32768.0
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(n))
}
