// Package mock provides a test double for the stt.Recognizer interface.
//
// Script is consumed one entry per ListenOnce call, letting tests drive the
// active-listening loop through a fixed conversation and then a terminal
// condition. When the script is exhausted, ListenOnce returns stt.ErrTimeout.
//
// Example:
//
//	r := &mock.Recognizer{Script: []mock.Result{
//	    {Text: "open youtube"},
//	    {Err: stt.ErrTimeout},
//	}}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/pmeredith/vessa/pkg/provider/stt"
)

// Result is one scripted ListenOnce outcome.
type Result struct {
	// Text is the transcript returned when Err is nil.
	Text string

	// Confidence is the reported confidence for Text.
	Confidence float64

	// Err, if non-nil, is returned instead of a transcript.
	Err error

	// Delay, if positive, is slept (respecting ctx) before returning,
	// to simulate a blocking recognition call.
	Delay time.Duration
}

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Script is the sequence of results returned by successive calls.
	Script []Result

	// Calls records the ListenConfig of every invocation, in order.
	Calls []stt.ListenConfig

	next int
}

var _ stt.Recognizer = (*Recognizer)(nil)

// ListenOnce returns the next scripted result.
func (r *Recognizer) ListenOnce(ctx context.Context, cfg stt.ListenConfig) (stt.Transcript, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, cfg)
	var res Result
	if r.next < len(r.Script) {
		res = r.Script[r.next]
		r.next++
	} else {
		res = Result{Err: stt.ErrTimeout}
	}
	r.mu.Unlock()

	if res.Delay > 0 {
		select {
		case <-time.After(res.Delay):
		case <-ctx.Done():
			return stt.Transcript{}, stt.ErrTimeout
		}
	}
	if res.Err != nil {
		return stt.Transcript{}, res.Err
	}
	return stt.Transcript{
		Text:       res.Text,
		Confidence: res.Confidence,
		ReceivedAt: time.Now(),
	}, nil
}

// CallCount returns the number of ListenOnce invocations so far.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
