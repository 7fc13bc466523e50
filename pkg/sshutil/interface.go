package sshutil

import (
	"context"
	"time"
)

// SSHClient defines the interface for SSH command execution.
// Both the real Client and mock implementations satisfy this interface.
//
// This interface enables testing of SSH-dependent code without requiring
// actual SSH connections. The mock implementation runs scripted responses
// and understands the small shell subset the command batcher emits.
type SSHClient interface {
	// ExecContext runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Alive reports whether the connection still answers a keepalive.
	// It must not run anything on the remote host.
	Alive() bool

	// Close closes the SSH connection. Safe to call more than once.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// Dialer opens SSH connections. hops lists jump hosts to traverse in order.
type Dialer interface {
	Dial(ctx context.Context, host string, hops []string, creds Credentials) (SSHClient, error)
}

// NetDialer is the Dialer backed by real SSH connections.
type NetDialer struct {
	// Timeout bounds each hop. Zero uses DefaultDialTimeout.
	Timeout time.Duration
}

// Dial implements Dialer.
func (d NetDialer) Dial(ctx context.Context, host string, hops []string, creds Credentials) (SSHClient, error) {
	client, err := DialContext(ctx, host, hops, creds, d.Timeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var (
	_ SSHClient = (*Client)(nil)
	_ Dialer    = NetDialer{}
)
