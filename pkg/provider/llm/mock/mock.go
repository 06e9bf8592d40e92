// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to feed controlled responses without a live
// backend and to assert on the requests the assistant sends.
//
// Example:
//
//	p := &mock.Provider{Response: &llm.CompletionResponse{Content: "Hello!"}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/pmeredith/vessa/pkg/provider/llm"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context

	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. A zero value returns an
// empty response and nil error; set Err to inject a failure.
type Provider struct {
	mu sync.Mutex

	// Response is returned from Complete when Err is nil. When nil, an
	// empty CompletionResponse is returned.
	Response *llm.CompletionResponse

	// Err, if non-nil, is returned from Complete.
	Err error

	// Calls records every Complete invocation, in order.
	Calls []Call
}

var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Response != nil {
		resp := *p.Response
		return &resp, nil
	}
	return &llm.CompletionResponse{}, nil
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastRequest returns the most recent CompletionRequest, or a zero value if
// Complete has not been called.
func (p *Provider) LastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return llm.CompletionRequest{}
	}
	return p.Calls[len(p.Calls)-1].Req
}
