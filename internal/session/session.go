// Package session wraps one authenticated remote command channel to a host.
//
// A Session is not safe for concurrent Execute calls; the pool hands each
// one to a single Lease at a time.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
	"github.com/google/uuid"
)

// DefaultExecTimeout bounds Execute when the caller passes no timeout.
const DefaultExecTimeout = 30 * time.Second

// Channel is the opaque transport a Session rides on.
type Channel = sshutil.SSHClient

// Dialer opens Channels.
type Dialer = sshutil.Dialer

// SSHDialer returns the Dialer backed by real SSH connections.
func SSHDialer(timeout time.Duration) Dialer {
	return sshutil.NetDialer{Timeout: timeout}
}

// Result is the outcome of a command that ran to completion.
// A non-zero ExitCode is not an error.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Session is a reusable command channel to one host.
type Session struct {
	ID        string
	Host      string
	HopChain  []string
	CreatedAt time.Time

	channel   Channel
	lastUsed  atomic.Int64
	broken    atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open dials host through hops and wraps the resulting channel.
func Open(ctx context.Context, dialer Dialer, host string, hops []string, creds sshutil.Credentials) (*Session, error) {
	ch, err := dialer.Dial(ctx, host, hops, creds)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("Couldn't open a session to '%s'", host),
			"Check the host is reachable: ssh "+host)
	}
	return New(host, hops, ch), nil
}

// New wraps an already established channel.
func New(host string, hops []string, ch Channel) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Host:      host,
		HopChain:  append([]string(nil), hops...),
		CreatedAt: now,
		channel:   ch,
	}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// Execute runs cmd with a mandatory timeout. timeout <= 0 uses DefaultExecTimeout.
// Any transport failure or timeout marks the session broken so the pool
// evicts it on release.
func (s *Session) Execute(ctx context.Context, cmd string, timeout time.Duration) (Result, error) {
	if s.closed.Load() {
		return Result{ExitCode: -1}, errors.New(errors.ErrExec,
			fmt.Sprintf("Session %s to '%s' is closed", s.ShortID(), s.Host), "")
	}

	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.touch()
	stdout, stderr, code, err := s.channel.ExecContext(ctx, cmd)
	s.touch()

	res := Result{Stdout: stdout, Stderr: stderr, ExitCode: code}
	if err != nil {
		s.broken.Store(true)
		msg := fmt.Sprintf("Command failed on '%s'", s.Host)
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("Command on '%s' timed out after %s", s.Host, timeout)
		}
		return res, errors.WrapWithCode(err, errors.ErrExec, msg, "")
	}
	return res, nil
}

// IsHealthy reports whether the session can be reused. It sends a
// transport-level keepalive and never runs anything on the host.
func (s *Session) IsHealthy() bool {
	if s.broken.Load() || s.closed.Load() {
		return false
	}
	return s.channel.Alive()
}

// MarkBroken flags the session for eviction.
func (s *Session) MarkBroken() {
	s.broken.Store(true)
}

// Broken reports whether an Execute failed or MarkBroken was called.
func (s *Session) Broken() bool {
	return s.broken.Load()
}

// Close releases the channel. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.channel.Close()
	})
	return s.closeErr
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// LastUsed returns when the session last started or finished a command.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// IdleFor returns how long the session has been unused as of now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastUsed())
}

// ShortID returns the first 8 characters of the ID for log lines.
func (s *Session) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

func (s *Session) String() string {
	return fmt.Sprintf("%s@%s", s.ShortID(), s.Host)
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}
