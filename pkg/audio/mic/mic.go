// Package mic implements [audio.Source] on top of an external capture
// process (arecord by default). The child process writes raw PCM16LE to its
// stdout, which is sliced into fixed-duration frames.
//
// Running capture through a child process keeps the binary free of CGO audio
// dependencies; any tool that can emit raw PCM to stdout works (arecord,
// ffmpeg, sox). The command template is configurable via [WithCommand].
package mic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/pmeredith/vessa/pkg/audio"
)

const (
	defaultSampleRate    = 16000
	defaultChannels      = 1
	defaultFrameDuration = 500 * time.Millisecond
)

// Option is a functional option for configuring a [Source].
type Option func(*Source)

// WithCommand replaces the default capture command. The returned argv must
// write raw PCM16LE for the given format to stdout until killed.
func WithCommand(build func(sampleRate, channels int) []string) Option {
	return func(s *Source) { s.buildCmd = build }
}

// WithDevice selects the ALSA capture device passed to the default arecord
// command (e.g., "hw:1,0"). Ignored when [WithCommand] is used.
func WithDevice(device string) Option {
	return func(s *Source) { s.device = device }
}

// Source implements [audio.Source] by spawning a capture process per stream.
type Source struct {
	device   string
	buildCmd func(sampleRate, channels int) []string
}

var _ audio.Source = (*Source)(nil)

// New creates a microphone Source. The zero configuration captures from the
// default ALSA device via arecord.
func New(opts ...Option) *Source {
	s := &Source{}
	for _, o := range opts {
		o(s)
	}
	if s.buildCmd == nil {
		s.buildCmd = s.defaultCommand
	}
	return s
}

func (s *Source) defaultCommand(sampleRate, channels int) []string {
	argv := []string{
		"arecord",
		"--quiet",
		"--format", "S16_LE",
		"--rate", strconv.Itoa(sampleRate),
		"--channels", strconv.Itoa(channels),
		"--file-type", "raw",
	}
	if s.device != "" {
		argv = append(argv, "--device", s.device)
	}
	return argv
}

// Open spawns the capture process and starts the frame reader goroutine.
// The stream ends when ctx is cancelled, Close is called, or the process
// exits (device unplugged, tool missing).
func (s *Source) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = defaultChannels
	}
	frameDur := cfg.FrameDuration
	if frameDur <= 0 {
		frameDur = defaultFrameDuration
	}

	argv := s.buildCmd(sr, ch)
	if len(argv) == 0 {
		return nil, errors.New("mic: capture command is empty")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(streamCtx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mic: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("mic: start %q: %w", argv[0], err)
	}

	frameBytes := int(frameDur.Seconds() * float64(sr) * float64(ch) * 2)

	st := &stream{
		cancel: cancel,
		done:   make(chan struct{}),
		frames: make(chan audio.Frame, 4),
	}
	go st.readLoop(stdout, cmd, sr, ch, frameBytes)
	return st, nil
}

// stream is a single capture process plus its reader goroutine.
type stream struct {
	cancel    context.CancelFunc
	done      chan struct{}
	frames    chan audio.Frame
	closeOnce sync.Once
}

func (st *stream) Frames() <-chan audio.Frame { return st.frames }

// Close terminates the capture process. The Frames channel closes once the
// reader goroutine drains the final partial frame.
func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		st.cancel()
		close(st.done)
	})
	return nil
}

// readLoop slices process stdout into fixed-size frames until EOF.
func (st *stream) readLoop(r io.Reader, cmd *exec.Cmd, sampleRate, channels, frameBytes int) {
	defer close(st.frames)
	defer func() {
		_ = st.Close()
		if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("mic: capture process exited", "err", err)
		}
	}()

	start := time.Now()
	buf := make([]byte, frameBytes)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case st.frames <- audio.Frame{
				Data:       data,
				SampleRate: sampleRate,
				Channels:   channels,
				Timestamp:  time.Since(start),
			}:
			case <-st.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}
