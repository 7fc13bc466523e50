package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/session"
)

// Lease is exclusive, temporary use of one pooled session.
type Lease struct {
	pool     *Pool
	hp       *hostPool
	sess     *session.Session
	released atomic.Bool

	AcquiredAt time.Time
}

// Execute runs cmd on the leased session. timeout <= 0 uses the pool's
// ExecTimeout. Fails once the lease has been released.
func (l *Lease) Execute(ctx context.Context, cmd string, timeout time.Duration) (session.Result, error) {
	if l.released.Load() {
		return session.Result{ExitCode: -1}, errors.New(errors.ErrExec,
			"Can't run a command on a lease that was already released",
			"Acquire a new session from the pool")
	}
	if timeout <= 0 {
		timeout = l.pool.cfg.ExecTimeout
	}
	return l.sess.Execute(ctx, cmd, timeout)
}

// Release hands the session back to its pool.
func (l *Lease) Release(healthy bool) {
	l.pool.Release(l, healthy)
}

// Released reports whether the lease has been returned.
func (l *Lease) Released() bool {
	return l.released.Load()
}

// Host returns the pool key the lease was acquired for.
func (l *Lease) Host() string {
	return l.hp.key
}

// SessionID identifies the underlying session without exposing it.
func (l *Lease) SessionID() string {
	return l.sess.ID
}
