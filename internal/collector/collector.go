// Package collector polls a fetch function in the background and keeps only
// the most recent good value.
package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/worker"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultInterval     = 2 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// FetchFunc produces one sample. ctx carries the per-fetch timeout.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is an immutable view of the slot. Version counts successful
// fetches and only moves when Value changes.
type Snapshot[T any] struct {
	Value     T
	Version   uint64
	UpdatedAt time.Time

	// Err is the most recent fetch failure, cleared by the next success.
	Err   error
	ErrAt time.Time
}

// HasValue reports whether at least one fetch has succeeded.
func (s Snapshot[T]) HasValue() bool {
	return s.Version > 0
}

// Age returns how old the value is as of now. Zero when there is no value.
func (s Snapshot[T]) Age(now time.Time) time.Duration {
	if !s.HasValue() {
		return 0
	}
	return now.Sub(s.UpdatedAt)
}

// Config configures a Collector. All fields are optional.
type Config struct {
	Name         string
	Interval     time.Duration
	FetchTimeout time.Duration
	StopTimeout  time.Duration
	Tracker      *worker.Tracker
}

// Option configures a Collector.
type Option[T any] func(*Collector[T])

// OnUpdate registers fn to run after every slot write, successful or not.
// It runs on the collector goroutine while the write fence is held, so it
// must not block: Stop waits for a running callback before returning, even
// past its timeout. Publishing to a bridge.Bridge is safe.
func OnUpdate[T any](fn func(Snapshot[T])) Option[T] {
	return func(c *Collector[T]) { c.onUpdate = fn }
}

// Collector samples fetch every Interval on a worker goroutine.
type Collector[T any] struct {
	fetch    FetchFunc[T]
	cfg      Config
	log      logger.Logger
	worker   *worker.Worker
	onUpdate func(Snapshot[T])

	slot    atomic.Pointer[Snapshot[T]]
	kick    chan struct{}
	fetches atomic.Int64

	writeMu sync.Mutex
	gen     uint64
	fenced  bool
}

// New creates a stopped collector. A nil logger discards output.
func New[T any](fetch FetchFunc[T], cfg Config, log logger.Logger, opts ...Option[T]) *Collector[T] {
	if cfg.Name == "" {
		cfg.Name = "collector"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	log = logger.OrNoop(log)

	c := &Collector[T]{
		fetch:  fetch,
		cfg:    cfg,
		log:    log,
		kick:   make(chan struct{}, 1),
		fenced: true,
	}
	c.slot.Store(&Snapshot[T]{})
	c.worker = worker.New(worker.Config{
		Name:          cfg.Name,
		QueueCapacity: 1,
		StopTimeout:   cfg.StopTimeout,
		Tracker:       cfg.Tracker,
	}, log)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins polling. The first fetch happens immediately.
func (c *Collector[T]) Start() error {
	if err := c.worker.Start(); err != nil {
		return err
	}

	c.writeMu.Lock()
	c.gen++
	gen := c.gen
	c.fenced = false
	c.writeMu.Unlock()

	if err := c.worker.Submit(func(ctx context.Context) error {
		c.loop(ctx, gen)
		return nil
	}); err != nil {
		_ = c.Stop(0)
		return err
	}
	c.log.Debug("%s: collecting every %s", c.cfg.Name, c.cfg.Interval)
	return nil
}

// Stop halts polling and waits up to timeout (<= 0 uses the worker default).
// Once Stop returns the slot is never written again, even when the fetch in
// flight is abandoned and FORCED_STOP is returned.
func (c *Collector[T]) Stop(timeout time.Duration) error {
	err := c.worker.Stop(timeout)

	c.writeMu.Lock()
	c.fenced = true
	c.writeMu.Unlock()

	return err
}

// Running reports whether the collector is polling.
func (c *Collector[T]) Running() bool {
	return c.worker.State() == worker.Running
}

// Refresh asks for a fetch now instead of at the next tick. Never blocks.
func (c *Collector[T]) Refresh() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Latest returns the most recent good value and its version. ok is false
// until the first fetch succeeds.
func (c *Collector[T]) Latest() (value T, version uint64, ok bool) {
	s := c.slot.Load()
	return s.Value, s.Version, s.HasValue()
}

// Snapshot returns the whole slot.
func (c *Collector[T]) Snapshot() Snapshot[T] {
	return *c.slot.Load()
}

// LastError returns the latest fetch failure, or nil if the latest fetch succeeded.
func (c *Collector[T]) LastError() error {
	return c.slot.Load().Err
}

// Fetches returns how many fetches have completed.
func (c *Collector[T]) Fetches() int64 {
	return c.fetches.Load()
}

func (c *Collector[T]) loop(ctx context.Context, gen uint64) {
	for {
		c.collect(ctx, gen)

		timer := time.NewTimer(c.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (c *Collector[T]) collect(ctx context.Context, gen uint64) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	value, err := c.safeFetch(fetchCtx)
	c.fetches.Add(1)
	if ctx.Err() != nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.fenced || gen != c.gen {
		return
	}

	next := *c.slot.Load()
	now := time.Now()
	if err != nil {
		next.Err = err
		next.ErrAt = now
		c.log.Debug("%s: fetch failed, keeping version %d: %v", c.cfg.Name, next.Version, err)
	} else {
		next.Value = value
		next.Version++
		next.UpdatedAt = now
		next.Err = nil
		next.ErrAt = time.Time{}
	}
	c.slot.Store(&next)

	// Still under writeMu: no callback may start after Stop has fenced.
	if c.onUpdate != nil {
		c.onUpdate(next)
	}
}

func (c *Collector[T]) safeFetch(ctx context.Context) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return c.fetch(ctx)
}
