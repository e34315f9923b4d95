package waclient

import (
	"context"
	"sync"
)

// SimDialer hands out Simulated clients. It is the development-mode Dialer
// and the test double for the session registry; production deployments swap
// in an adapter over the real protocol library here.
type SimDialer struct {
	mu      sync.Mutex
	clients map[string]*Simulated
	dials   int
	dialErr error
}

// NewSimDialer constructs an empty dialer.
func NewSimDialer() *SimDialer {
	return &SimDialer{clients: make(map[string]*Simulated)}
}

// Dial constructs a new Simulated client for the identity.
func (d *SimDialer) Dial(_ context.Context, identity, storageDir string) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.dials++
	c := newSimulated(identity, storageDir)
	d.clients[identity] = c
	return c, nil
}

// Client returns the most recently dialed client for the identity, or nil.
func (d *SimDialer) Client(identity string) *Simulated {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[identity]
}

// Dials reports how many clients have been constructed.
func (d *SimDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// SetDialError makes subsequent Dial calls fail, for error-path tests.
func (d *SimDialer) SetDialError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}
