// Package mock provides test doubles for the wakeword.Engine interface.
//
// The mock engine echoes scripted utterances: each Accept call whose chunk
// matches an entry in UtteranceFor emits that utterance on Finals, letting
// tests drive the wake-word loop deterministically without audio inference.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/wakeword"
)

// Engine is a mock implementation of wakeword.Engine.
type Engine struct {
	mu sync.Mutex

	// Utterances is the sequence of finalized utterances emitted by each
	// session, one per Accept call, in order. Accept calls beyond the
	// script produce nothing.
	Utterances []string

	// NewSessionErr, if non-nil, is returned from NewSession.
	NewSessionErr error

	// Sessions records every session opened.
	Sessions []*Session

	// Closed reports whether Close has been called on the engine.
	Closed bool
}

var _ wakeword.Engine = (*Engine)(nil)

// NewSession opens a scripted session.
func (e *Engine) NewSession(ctx context.Context, cfg wakeword.SessionConfig) (wakeword.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	s := &Session{
		script: append([]string(nil), e.Utterances...),
		finals: make(chan string, len(e.Utterances)+1),
		done:   make(chan struct{}),
	}
	e.Sessions = append(e.Sessions, s)
	return s, nil
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}

// Session is the scripted session returned by [Engine.NewSession].
type Session struct {
	mu        sync.Mutex
	script    []string
	next      int
	finals    chan string
	done      chan struct{}
	closeOnce sync.Once

	// AcceptCalls counts Accept invocations.
	AcceptCalls int
}

var _ wakeword.SessionHandle = (*Session)(nil)

// Accept emits the next scripted utterance, if any remain.
func (s *Session) Accept(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("mock: session is closed")
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AcceptCalls++
	if s.next < len(s.script) {
		s.finals <- s.script[s.next]
		s.next++
	}
	return nil
}

// Finals returns the scripted utterance channel.
func (s *Session) Finals() <-chan string { return s.finals }

// Close ends the session and closes Finals.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		close(s.finals)
	})
	return nil
}
