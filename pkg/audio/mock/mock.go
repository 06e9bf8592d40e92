// Package mock provides test doubles for the audio capture interfaces.
//
// Use [Source] to feed scripted PCM frames into the wake-word loop or the
// one-shot recognizer without touching real capture devices. Configure the
// fields before the first Open call; mutating them during a concurrent call
// is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/pmeredith/vessa/pkg/audio"
)

// Source is a mock implementation of [audio.Source].
type Source struct {
	mu sync.Mutex

	// FramesScript is the sequence of frames emitted by every opened stream.
	// All frames are sent before the channel is closed. When KeepOpen is
	// true the channel stays open after the script until Close.
	FramesScript []audio.Frame

	// KeepOpen keeps the stream alive after the scripted frames run out,
	// emulating a live microphone with no further input.
	KeepOpen bool

	// OpenErr, if non-nil, is returned from Open instead of a stream.
	OpenErr error

	// OpenCalls counts Open invocations. Read via [Source.OpenCount].
	OpenCalls int

	// LastConfig records the StreamConfig of the most recent Open call.
	LastConfig audio.StreamConfig
}

var _ audio.Source = (*Source)(nil)

// Open returns a stream that replays FramesScript.
func (s *Source) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	s.mu.Lock()
	s.OpenCalls++
	s.LastConfig = cfg
	script := make([]audio.Frame, len(s.FramesScript))
	copy(script, s.FramesScript)
	keepOpen := s.KeepOpen
	err := s.OpenErr
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	st := &Stream{
		frames: make(chan audio.Frame, len(script)+1),
		done:   make(chan struct{}),
	}
	go func() {
		for _, f := range script {
			select {
			case st.frames <- f:
			case <-ctx.Done():
				close(st.frames)
				return
			case <-st.done:
				close(st.frames)
				return
			}
		}
		if !keepOpen {
			close(st.frames)
			return
		}
		select {
		case <-ctx.Done():
		case <-st.done:
		}
		close(st.frames)
	}()
	return st, nil
}

// OpenCount returns the number of Open invocations so far.
func (s *Source) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OpenCalls
}

// Stream is the mock stream returned by [Source.Open].
type Stream struct {
	frames    chan audio.Frame
	done      chan struct{}
	closeOnce sync.Once

	// Closed reports whether Close has been called.
	Closed bool
}

var _ audio.Stream = (*Stream)(nil)

// Frames returns the scripted frame channel.
func (st *Stream) Frames() <-chan audio.Frame { return st.frames }

// Close stops the stream. Safe to call multiple times.
func (st *Stream) Close() error {
	st.closeOnce.Do(func() {
		st.Closed = true
		close(st.done)
	})
	return nil
}
