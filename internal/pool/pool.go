// Package pool keeps a bounded set of reusable sessions per host.
//
// Sessions are only ever handed out wrapped in a Lease. The Lease is the
// one handle that can run commands on the session, and it stops working
// once released, so a session cannot be used by two borrowers at once.
package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/session"
	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultMaxSize        = 2
	DefaultAcquireTimeout = 5 * time.Second
	DefaultShutdownGrace  = 3 * time.Second
	DefaultHealthRetries  = 1
)

// ReleasePolicy decides what a second Release of the same Lease does.
type ReleasePolicy int

const (
	// ReleaseDefault panics in normal builds and logs under the ifcheck_release tag.
	ReleaseDefault ReleasePolicy = iota
	// ReleaseStrict always panics.
	ReleaseStrict
	// ReleaseLenient logs a warning and ignores the call.
	ReleaseLenient
)

// Target describes how to reach one host key.
type Target struct {
	Host        string
	HopChain    []string
	Credentials sshutil.Credentials
}

// Config holds the pool limits. All fields are optional.
type Config struct {
	MaxSize        int
	AcquireTimeout time.Duration
	ShutdownGrace  time.Duration
	// MaxIdle caps sessions kept idle per host; defaults to MaxSize.
	MaxIdle int
	// IdleTimeout evicts idle sessions older than this on acquire. Zero keeps them.
	IdleTimeout time.Duration
	// ExecTimeout is used by Lease.Execute when no timeout is passed.
	ExecTimeout time.Duration
	// HealthRetries bounds how many fresh dials replace a dead idle session.
	HealthRetries int
	DoubleRelease ReleasePolicy

	// Targets maps host keys to connection details. Unknown keys are
	// dialed directly with Credentials.
	Targets     map[string]Target
	Credentials sshutil.Credentials
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	if c.MaxIdle <= 0 || c.MaxIdle > c.MaxSize {
		c.MaxIdle = c.MaxSize
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = session.DefaultExecTimeout
	}
	if c.HealthRetries <= 0 {
		c.HealthRetries = DefaultHealthRetries
	}
	return c
}

// Stats is a point-in-time view of one host's pool.
type Stats struct {
	Host    string
	InUse   int
	Idle    int
	MaxSize int
}

// hostPool is the per-host bookkeeping. mu is held only for O(1) updates,
// never across dials or commands.
type hostPool struct {
	key    string
	target Target

	mu      sync.Mutex
	idle    []*session.Session // LIFO: most recently returned on top
	inUse   int                // leased plus slots reserved for in-flight dials
	leases  map[*Lease]struct{}
	changed chan struct{} // closed and replaced on every capacity change
}

func (hp *hostPool) broadcast() {
	close(hp.changed)
	hp.changed = make(chan struct{})
}

// Pool lends sessions per host.
type Pool struct {
	dialer session.Dialer
	cfg    Config
	log    logger.Logger

	mu     sync.Mutex
	hosts  map[string]*hostPool
	closed atomic.Bool
}

// New creates a pool. A nil logger discards output.
func New(dialer session.Dialer, cfg Config, log logger.Logger) *Pool {
	return &Pool{
		dialer: dialer,
		cfg:    cfg.withDefaults(),
		log:    logger.OrNoop(log),
		hosts:  make(map[string]*hostPool),
	}
}

// Config returns the effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

func (p *Pool) closedErr(host string) error {
	return errors.New(errors.ErrPoolClosed,
		fmt.Sprintf("Session pool is shutting down; can't lend a session for '%s'", host), "")
}

func (p *Pool) hostPool(host string) (*hostPool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil, p.closedErr(host)
	}

	if hp, ok := p.hosts[host]; ok {
		return hp, nil
	}

	target, ok := p.cfg.Targets[host]
	if !ok {
		target = Target{Host: host, Credentials: p.cfg.Credentials}
	}
	if target.Host == "" {
		target.Host = host
	}

	hp := &hostPool{
		key:     host,
		target:  target,
		leases:  make(map[*Lease]struct{}),
		changed: make(chan struct{}),
	}
	p.hosts[host] = hp
	return hp, nil
}

// Get acquires a session for host using the configured AcquireTimeout.
func (p *Pool) Get(ctx context.Context, host string) (*Lease, error) {
	return p.Acquire(ctx, host, p.cfg.AcquireTimeout)
}

// Acquire lends a session for host. It reuses the most recently returned
// idle session, opens a new one while under MaxSize, or waits up to timeout
// for a release. timeout <= 0 fails immediately when the host is at capacity.
func (p *Pool) Acquire(ctx context.Context, host string, timeout time.Duration) (*Lease, error) {
	hp, err := p.hostPool(host)
	if err != nil {
		return nil, err
	}

	var deadline time.Time
	var timer *time.Timer
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		hp.mu.Lock()
		if p.closed.Load() {
			hp.mu.Unlock()
			return nil, p.closedErr(host)
		}

		if n := len(hp.idle); n > 0 {
			s := hp.idle[n-1]
			hp.idle[n-1] = nil
			hp.idle = hp.idle[:n-1]
			hp.inUse++
			hp.mu.Unlock()
			return p.checkout(ctx, hp, s)
		}

		if hp.inUse < p.cfg.MaxSize {
			hp.inUse++
			hp.mu.Unlock()
			return p.checkout(ctx, hp, nil)
		}

		changed := hp.changed
		hp.mu.Unlock()

		if timeout <= 0 {
			return nil, p.exhaustedErr(host, timeout, nil)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, p.exhaustedErr(host, timeout, nil)
		}
		if timer == nil {
			timer = time.NewTimer(remaining)
		} else {
			timer.Reset(remaining)
		}

		select {
		case <-changed:
			timer.Stop()
		case <-timer.C:
			return nil, p.exhaustedErr(host, timeout, nil)
		case <-ctx.Done():
			return nil, p.exhaustedErr(host, timeout, ctx.Err())
		}
	}
}

func (p *Pool) exhaustedErr(host string, timeout time.Duration, cause error) error {
	msg := fmt.Sprintf("All %d sessions for '%s' are busy", p.cfg.MaxSize, host)
	if timeout > 0 {
		msg = fmt.Sprintf("No free session for '%s' within %s", host, timeout)
	}
	return errors.WrapWithCode(cause, errors.ErrPoolExhausted, msg,
		"Retry later or raise pool.max_size")
}

// checkout turns a reserved slot into a Lease. s is the popped idle session,
// or nil when a new one has to be opened.
func (p *Pool) checkout(ctx context.Context, hp *hostPool, s *session.Session) (*Lease, error) {
	attempts := 1
	if s != nil {
		if p.reusable(s) {
			p.log.Debug("reusing session %s", s)
			return p.newLease(hp, s)
		}
		p.log.Debug("evicting stale session %s", s)
		_ = s.Close()
		attempts = p.cfg.HealthRetries
	}

	t := hp.target
	var lastErr error
	for i := 0; i < attempts; i++ {
		fresh, err := session.Open(ctx, p.dialer, t.Host, t.HopChain, t.Credentials)
		if err == nil {
			p.log.Debug("opened session %s", fresh)
			return p.newLease(hp, fresh)
		}
		lastErr = err
		p.log.Debug("open %s failed (attempt %d/%d): %v", hp.key, i+1, attempts, err)
		if ctx.Err() != nil {
			break
		}
	}

	p.releaseSlot(hp)
	return nil, lastErr
}

func (p *Pool) reusable(s *session.Session) bool {
	if p.cfg.IdleTimeout > 0 && s.IdleFor(time.Now()) > p.cfg.IdleTimeout {
		return false
	}
	return s.IsHealthy()
}

func (p *Pool) newLease(hp *hostPool, s *session.Session) (*Lease, error) {
	hp.mu.Lock()
	if p.closed.Load() {
		hp.inUse--
		hp.broadcast()
		hp.mu.Unlock()
		_ = s.Close()
		return nil, p.closedErr(hp.key)
	}
	l := &Lease{
		pool:       p,
		hp:         hp,
		sess:       s,
		AcquiredAt: time.Now(),
	}
	hp.leases[l] = struct{}{}
	hp.mu.Unlock()
	return l, nil
}

func (p *Pool) releaseSlot(hp *hostPool) {
	hp.mu.Lock()
	hp.inUse--
	hp.broadcast()
	hp.mu.Unlock()
}

func (p *Pool) strictRelease() bool {
	switch p.cfg.DoubleRelease {
	case ReleaseStrict:
		return true
	case ReleaseLenient:
		return false
	default:
		return strictReleaseDefault
	}
}

// Release returns a lease's session. Unhealthy or broken sessions, and any
// released after shutdown or beyond MaxIdle, are closed instead of kept.
func (p *Pool) Release(l *Lease, healthy bool) {
	if l == nil {
		return
	}
	if !l.released.CompareAndSwap(false, true) {
		if p.strictRelease() {
			panic(fmt.Sprintf("pool: lease for session %s released twice", l.sess))
		}
		p.log.Warn("lease for session %s released twice; ignoring", l.sess)
		return
	}

	hp, s := l.hp, l.sess
	healthy = healthy && !s.Broken() && !s.Closed()

	hp.mu.Lock()
	delete(hp.leases, l)
	hp.inUse--
	keep := healthy && !p.closed.Load() && len(hp.idle) < p.cfg.MaxIdle
	if keep {
		hp.idle = append(hp.idle, s)
	}
	hp.broadcast()
	hp.mu.Unlock()

	if !keep {
		p.log.Debug("closing session %s on release (healthy=%v)", s, healthy)
		_ = s.Close()
	}
}

// With runs fn with a leased session for host and always releases it, also
// when fn panics. The session goes back to the pool unless a command on it
// failed or fn panicked.
func (p *Pool) With(ctx context.Context, host string, fn func(*Lease) error) error {
	l, err := p.Get(ctx, host)
	if err != nil {
		return err
	}

	completed := false
	defer func() {
		p.Release(l, completed)
	}()

	err = fn(l)
	completed = true
	return err
}

// Shutdown stops lending, closes idle sessions and waits up to grace for
// outstanding leases. Leases still held after grace have their sessions
// closed and are reported with a FORCED_STOP error. grace <= 0 uses the
// configured ShutdownGrace.
func (p *Pool) Shutdown(grace time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if grace <= 0 {
		grace = p.cfg.ShutdownGrace
	}

	p.mu.Lock()
	hosts := make([]*hostPool, 0, len(p.hosts))
	for _, hp := range p.hosts {
		hosts = append(hosts, hp)
	}
	p.mu.Unlock()

	for _, hp := range hosts {
		hp.mu.Lock()
		idle := hp.idle
		hp.idle = nil
		hp.broadcast()
		hp.mu.Unlock()

		for _, s := range idle {
			_ = s.Close()
		}
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	timedOut := false
	for _, hp := range hosts {
		for !timedOut {
			hp.mu.Lock()
			if hp.inUse == 0 {
				hp.mu.Unlock()
				break
			}
			changed := hp.changed
			hp.mu.Unlock()

			select {
			case <-changed:
			case <-timer.C:
				timedOut = true
			}
		}
	}

	if !timedOut {
		p.log.Debug("pool shut down cleanly")
		return nil
	}

	var stragglers []*Lease
	for _, hp := range hosts {
		hp.mu.Lock()
		for l := range hp.leases {
			stragglers = append(stragglers, l)
		}
		hp.mu.Unlock()
	}
	for _, l := range stragglers {
		_ = l.sess.Close()
	}

	if len(stragglers) == 0 {
		return nil
	}

	p.log.Warn("%d session(s) still borrowed after %s; closed them", len(stragglers), grace)
	return errors.New(errors.ErrForcedStop,
		fmt.Sprintf("%d session(s) were still borrowed after %s and were closed", len(stragglers), grace),
		"Make sure every acquired session is released before shutdown")
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Stats reports counters for host. Unknown hosts report zero usage.
func (p *Pool) Stats(host string) Stats {
	p.mu.Lock()
	hp, ok := p.hosts[host]
	p.mu.Unlock()

	if !ok {
		return Stats{Host: host, MaxSize: p.cfg.MaxSize}
	}

	hp.mu.Lock()
	defer hp.mu.Unlock()
	return Stats{
		Host:    host,
		InUse:   hp.inUse,
		Idle:    len(hp.idle),
		MaxSize: p.cfg.MaxSize,
	}
}

// Hosts returns the host keys the pool has seen, sorted.
func (p *Pool) Hosts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	hosts := make([]string, 0, len(p.hosts))
	for h := range p.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
