package testing

import (
	"context"
	"sync"
	"time"

	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
)

// MockDialer hands out MockClients and records every dial.
type MockDialer struct {
	mu       sync.Mutex
	setup    func(*MockClient)
	delay    time.Duration
	dials    map[string]int
	failures map[string][]error
	clients  map[string][]*MockClient
}

// NewMockDialer creates a dialer. setup, if non-nil, configures each new client
// before it is returned.
func NewMockDialer(setup func(*MockClient)) *MockDialer {
	return &MockDialer{
		setup:    setup,
		dials:    make(map[string]int),
		failures: make(map[string][]error),
		clients:  make(map[string][]*MockClient),
	}
}

// Dial implements sshutil.Dialer.
func (d *MockDialer) Dial(ctx context.Context, host string, hops []string, creds sshutil.Credentials) (sshutil.SSHClient, error) {
	d.mu.Lock()
	delay := d.delay
	d.dials[host]++
	var failure error
	if queued := d.failures[host]; len(queued) > 0 {
		failure = queued[0]
		d.failures[host] = queued[1:]
	}
	d.mu.Unlock()

	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	client := NewMockClient(host)
	client.hops = append([]string(nil), hops...)
	client.user = creds.User
	if d.setup != nil {
		d.setup(client)
	}

	d.mu.Lock()
	d.clients[host] = append(d.clients[host], client)
	d.mu.Unlock()

	return client, nil
}

// FailNext queues errors returned by the next dials to host, one per dial.
func (d *MockDialer) FailNext(host string, errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[host] = append(d.failures[host], errs...)
}

// SetDelay makes every dial take at least delay.
func (d *MockDialer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// DialCount returns how many dials were attempted for host.
func (d *MockDialer) DialCount(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[host]
}

// Clients returns the clients successfully dialed for host, oldest first.
func (d *MockDialer) Clients(host string) []*MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockClient, len(d.clients[host]))
	copy(out, d.clients[host])
	return out
}

// OpenClients counts clients for host that have not been closed.
func (d *MockDialer) OpenClients(host string) int {
	n := 0
	for _, c := range d.Clients(host) {
		if !c.IsClosed() {
			n++
		}
	}
	return n
}

var _ sshutil.Dialer = (*MockDialer)(nil)
