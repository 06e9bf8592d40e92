// Package mock provides an in-memory test double for the devassist.Delegate
// interface.
package mock

import (
	"context"
	"sync"

	"github.com/pmeredith/vessa/internal/devassist"
)

// Delegate records every Handle call for assertion in tests.
type Delegate struct {
	mu sync.Mutex

	// Requests holds the raw utterances passed to Handle, in order.
	Requests []string

	// Result is returned from Handle when Err is nil.
	Result string

	// Err is returned from Handle when non-nil.
	Err error

	// Done, when non-nil, receives one value per completed Handle call.
	// Lets tests synchronise with background delegate goroutines.
	Done chan struct{}
}

var _ devassist.Delegate = (*Delegate)(nil)

func (d *Delegate) Handle(ctx context.Context, request string) (string, error) {
	d.mu.Lock()
	d.Requests = append(d.Requests, request)
	d.mu.Unlock()
	if d.Done != nil {
		d.Done <- struct{}{}
	}
	if d.Err != nil {
		return "", d.Err
	}
	return d.Result, nil
}

// CallCount returns how many times Handle has been invoked.
func (d *Delegate) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// LastRequest returns the most recent request, or "" if none.
func (d *Delegate) LastRequest() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Requests) == 0 {
		return ""
	}
	return d.Requests[len(d.Requests)-1]
}
