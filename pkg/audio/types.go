// Package audio defines the capture-side audio abstractions used by the
// assistant core: a [Source] that can be opened into a [Stream] of raw PCM
// frames. The wake-word loop and the one-shot recognizers both consume audio
// through these interfaces, so implementations (microphone capture, scripted
// fixtures in tests) are interchangeable.
//
// All PCM is little-endian signed 16-bit. A Source is safe for concurrent
// use; a single Stream is owned by exactly one consumer.
package audio

import (
	"context"
	"time"
)

// Frame represents a single frame of captured audio flowing into the pipeline.
type Frame struct {
	// Data is raw PCM16LE sample data.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for recognition input).
	SampleRate int

	// Channels: 1 for mono. Recognizers require mono input.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the frame's play time, or 0 if the frame is malformed.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// StreamConfig describes the desired capture format for a new stream.
// Zero values select the source defaults (16 kHz, mono, 500 ms frames).
type StreamConfig struct {
	// SampleRate is the requested capture rate in Hz.
	SampleRate int

	// Channels is the requested channel count.
	Channels int

	// FrameDuration is the requested frame size. The default of 500 ms
	// matches the wake-word recognizer's accumulation window.
	FrameDuration time.Duration
}

// Stream is an open capture stream. The Frames channel is closed when the
// stream terminates — because Close was called, the device failed, or the
// opening context was cancelled.
//
// Callers must call Close on every exit path; capture streams hold OS
// resources (device handles, child processes).
type Stream interface {
	// Frames returns the channel of captured frames.
	Frames() <-chan Frame

	// Close releases the capture resources. Calling Close more than once is
	// safe and returns nil.
	Close() error
}

// Source is anything that can open a capture stream: a microphone device, a
// test fixture, a network feed. Each Open call returns an independent Stream.
type Source interface {
	// Open starts capturing with the given format. The stream stops when ctx
	// is cancelled or Close is called on the returned Stream.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}
