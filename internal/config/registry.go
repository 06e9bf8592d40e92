package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/llm"
	"github.com/pmeredith/vessa/pkg/provider/stt"
	"github.com/pmeredith/vessa/pkg/provider/tts"
	"github.com/pmeredith/vessa/pkg/provider/wakeword"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	stt      map[string]func(ProviderEntry) (stt.Recognizer, error)
	tts      map[string]func(ProviderEntry) (tts.Speaker, error)
	ai       map[string]func(ProviderEntry) (llm.Provider, error)
	wakeword map[string]func(ProviderEntry) (wakeword.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:      make(map[string]func(ProviderEntry) (stt.Recognizer, error)),
		tts:      make(map[string]func(ProviderEntry) (tts.Speaker, error)),
		ai:       make(map[string]func(ProviderEntry) (llm.Provider, error)),
		wakeword: make(map[string]func(ProviderEntry) (wakeword.Engine, error)),
	}
}

// RegisterSTT registers a speech-recognition factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a speech-synthesis factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Speaker, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterAI registers a conversational AI factory under name.
func (r *Registry) RegisterAI(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ai[name] = factory
}

// RegisterWakeWord registers a wake-word engine factory under name.
func (r *Registry) RegisterWakeWord(name string, factory func(ProviderEntry) (wakeword.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeword[name] = factory
}

// CreateSTT instantiates a speech recognizer using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a speaker using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Speaker, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAI instantiates a conversational AI provider using the factory registered under entry.Name.
func (r *Registry) CreateAI(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.ai[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ai/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateWakeWord instantiates a wake-word engine using the factory registered under entry.Name.
func (r *Registry) CreateWakeWord(entry ProviderEntry) (wakeword.Engine, error) {
	r.mu.RLock()
	factory, ok := r.wakeword[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: wake_word/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
