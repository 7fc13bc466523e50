package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/bridge"
	"github.com/ElPandos/interface-check-sub005/internal/collector"
	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/pool"
	"github.com/ElPandos/interface-check-sub005/internal/worker"
)

// WatchConfig sizes the collectors behind a dashboard.
type WatchConfig struct {
	Collector     collector.Config
	StopTimeout   time.Duration
	ShutdownGrace time.Duration
	// QueueCapacity bounds pending refresh requests. Requests past it are
	// dropped.
	QueueCapacity int
}

// Watcher owns one collector and bridge per host, and the pool they share.
type Watcher struct {
	svc     *diag.Service
	pool    *pool.Pool
	cfg     WatchConfig
	log     logger.Logger
	tracker *worker.Tracker
	refresh *worker.Worker

	hosts      []string
	collectors map[string]*collector.Collector[*diag.HostReport]
	feeds      []Feed
}

// NewWatcher builds stopped collectors for hosts. A nil tracker gets a
// fresh one.
func NewWatcher(svc *diag.Service, p *pool.Pool, hosts []string, cfg WatchConfig, log logger.Logger) *Watcher {
	if cfg.Collector.Tracker == nil {
		cfg.Collector.Tracker = worker.NewTracker()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = worker.DefaultStopTimeout
	}

	w := &Watcher{
		svc:        svc,
		pool:       p,
		cfg:        cfg,
		log:        logger.OrNoop(log),
		tracker:    cfg.Collector.Tracker,
		hosts:      hosts,
		collectors: make(map[string]*collector.Collector[*diag.HostReport], len(hosts)),
	}
	w.refresh = worker.New(worker.Config{
		Name:          "refresh",
		QueueCapacity: cfg.QueueCapacity,
		StopTimeout:   cfg.StopTimeout,
		Tracker:       cfg.Collector.Tracker,
	}, w.log)

	for _, host := range hosts {
		out := bridge.New[diag.Update]()
		c := svc.Watch(host, cfg.Collector, out)
		w.collectors[host] = c
		w.feeds = append(w.feeds, Feed{Host: host, Updates: out, Refresh: w.refreshFunc(host, c)})
	}
	return w
}

// refreshFunc queues a sample-now request for c. A full or stopped queue
// drops the request.
func (w *Watcher) refreshFunc(host string, c *collector.Collector[*diag.HostReport]) func() {
	return func() {
		err := w.refresh.Submit(func(context.Context) error {
			c.Refresh()
			return nil
		})
		if err != nil {
			w.log.Debug("refresh of %s dropped: %v", host, err)
		}
	}
}

// Start starts the refresh queue and every collector. On failure whatever
// this call started is stopped again.
func (w *Watcher) Start() error {
	if err := w.refresh.Start(); err != nil {
		return err
	}
	for i, host := range w.hosts {
		if err := w.collectors[host].Start(); err != nil {
			for _, started := range w.hosts[:i] {
				_ = w.collectors[started].Stop(w.cfg.StopTimeout)
			}
			_ = w.refresh.Stop(w.cfg.StopTimeout)
			return err
		}
	}
	w.log.Debug("watching %d hosts", len(w.hosts))
	return nil
}

// Feeds returns the per-host update streams for the dashboard.
func (w *Watcher) Feeds() []Feed {
	return w.feeds
}

// Tracker returns the tracker counting live collector and refresh goroutines.
func (w *Watcher) Tracker() *worker.Tracker {
	return w.tracker
}

// Close stops the refresh queue and every collector, then shuts the pool
// down. Forced stops are logged, not returned: a wedged fetch must not block
// exit.
func (w *Watcher) Close() error {
	var errs []error
	if err := w.refresh.Stop(w.cfg.StopTimeout); err != nil {
		if errors.HasCode(err, errors.ErrForcedStop) {
			w.log.Warn("refresh queue did not stop within %v", w.cfg.StopTimeout)
		} else {
			errs = append(errs, err)
		}
	}
	for _, host := range w.hosts {
		err := w.collectors[host].Stop(w.cfg.StopTimeout)
		switch {
		case err == nil:
		case errors.HasCode(err, errors.ErrForcedStop):
			w.log.Warn("collector for %s did not stop within %v", host, w.cfg.StopTimeout)
		default:
			errs = append(errs, err)
		}
	}

	if w.pool != nil {
		if err := w.pool.Shutdown(w.cfg.ShutdownGrace); err != nil {
			if errors.HasCode(err, errors.ErrForcedStop) {
				w.log.Warn("pool shutdown forced: %v", err)
			} else {
				errs = append(errs, err)
			}
		}
	}
	return stderrors.Join(errs...)
}

// RunPlain prints every drained update as text lines until ctx is done.
// It is the non-tty counterpart of the dashboard and drains on the same
// independent cadence.
func RunPlain(ctx context.Context, out io.Writer, feeds []Feed, refresh time.Duration) error {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	seen := make(map[string]uint64, len(feeds))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for _, f := range feeds {
			u, ok := f.Updates.Drain()
			if !ok {
				continue
			}
			// A failed fetch republishes the last version; print only the error.
			if u.Err == nil && u.Version == seen[f.Host] {
				continue
			}
			if u.Err != nil && u.Report != nil && u.Version == seen[f.Host] {
				u.Report = nil
			}
			seen[f.Host] = u.Version
			for _, line := range PlainLines(u) {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
		}
	}
}
