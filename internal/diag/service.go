// Package diag samples network interface diagnostics from remote hosts
// through the session pool.
package diag

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/batch"
	"github.com/ElPandos/interface-check-sub005/internal/bridge"
	"github.com/ElPandos/interface-check-sub005/internal/collector"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/pool"
)

// DefaultHostTimeout bounds one host's sample in CollectAll.
const DefaultHostTimeout = 15 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithInterfaces restricts the report for host to the named interfaces.
// An empty list keeps every interface.
func WithInterfaces(host string, names []string) Option {
	return func(s *Service) {
		if len(names) == 0 {
			delete(s.filters, host)
			return
		}
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		s.filters[host] = set
	}
}

// WithHostTimeout sets the per-host deadline used by CollectAll.
func WithHostTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.hostTimeout = d
		}
	}
}

// Service runs diagnostic batches on pooled sessions.
type Service struct {
	pool        *pool.Pool
	batcher     *batch.Batcher
	log         logger.Logger
	rates       *RateTracker
	hostTimeout time.Duration
	filters     map[string]map[string]bool

	mu        sync.Mutex
	platforms map[string]Platform
}

// NewService creates a Service. A nil logger discards output.
func NewService(p *pool.Pool, b *batch.Batcher, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		pool:        p,
		batcher:     b,
		log:         logger.OrNoop(log),
		rates:       NewRateTracker(),
		hostTimeout: DefaultHostTimeout,
		filters:     make(map[string]map[string]bool),
		platforms:   make(map[string]Platform),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Platform returns the cached platform of host, or PlatformUnknown.
func (s *Service) Platform(host string) Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.platforms[host]; ok {
		return p
	}
	return PlatformUnknown
}

// Collect samples one host. Commands that fail inside an otherwise working
// batch become report warnings; pool, connect and transport failures are
// returned as errors.
func (s *Service) Collect(ctx context.Context, host string) (*HostReport, error) {
	var report *HostReport

	err := s.pool.With(ctx, host, func(l *pool.Lease) error {
		platform, err := s.detect(ctx, host, l)
		if err != nil {
			return err
		}

		cmds := Commands(platform)
		start := time.Now()
		results, err := s.batcher.Run(ctx, l, cmds)
		if err != nil {
			return err
		}

		report = s.build(host, platform, results)
		report.Latency = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rates.Observe(host, report.CollectedAt, report.Interfaces)
	return report, nil
}

// CollectAll samples hosts in parallel, each under its own timeout. Hosts
// that fail get a report with Error set.
func (s *Service) CollectAll(ctx context.Context, hosts []string) map[string]*HostReport {
	reports := make(map[string]*HostReport, len(hosts))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()

			hostCtx, cancel := context.WithTimeout(ctx, s.hostTimeout)
			defer cancel()

			report, err := s.Collect(hostCtx, host)
			if err != nil {
				s.log.Warn("%s: diagnostics failed: %v", host, err)
				report = &HostReport{
					Host:        host,
					Platform:    s.Platform(host),
					CollectedAt: time.Now(),
					Error:       errorSummary(err),
				}
			}

			mu.Lock()
			reports[host] = report
			mu.Unlock()
		}(host)
	}

	wg.Wait()
	return reports
}

// Exec runs arbitrary commands on host as one batch.
func (s *Service) Exec(ctx context.Context, host string, cmds []string) ([]batch.Result, error) {
	var results []batch.Result
	err := s.pool.With(ctx, host, func(l *pool.Lease) error {
		var err error
		results, err = s.batcher.Run(ctx, l, cmds)
		return err
	})
	return results, err
}

// Watch returns a stopped collector that samples host and publishes each
// update, failed fetches included, to out.
func (s *Service) Watch(host string, cfg collector.Config, out *bridge.Bridge[Update]) *collector.Collector[*HostReport] {
	if cfg.Name == "" {
		cfg.Name = "watch:" + host
	}
	fetch := func(ctx context.Context) (*HostReport, error) {
		return s.Collect(ctx, host)
	}
	return collector.New(fetch, cfg, s.log, collector.OnUpdate(func(snap collector.Snapshot[*HostReport]) {
		if out == nil {
			return
		}
		out.Publish(Update{
			Host:    host,
			Report:  snap.Value,
			Version: snap.Version,
			Err:     snap.Err,
			At:      time.Now(),
		})
	}))
}

// detect returns the host platform, running `uname -s` on l the first time.
func (s *Service) detect(ctx context.Context, host string, l *pool.Lease) (Platform, error) {
	if p := s.Platform(host); p != PlatformUnknown {
		return p, nil
	}

	results, err := s.batcher.Run(ctx, l, []string{PlatformDetectCommand})
	if err != nil {
		return PlatformUnknown, err
	}

	platform := PlatformUnknown
	if res := results[0]; res.OK() {
		platform = ParsePlatform(res.Stdout)
	}
	if platform == PlatformUnknown {
		s.log.Debug("%s: unrecognised platform, using linux commands", host)
		return PlatformUnknown, nil
	}

	s.mu.Lock()
	s.platforms[host] = platform
	s.mu.Unlock()
	s.log.Debug("%s: platform %s", host, platform)
	return platform, nil
}

func (s *Service) build(host string, platform Platform, results []batch.Result) *HostReport {
	report := &HostReport{
		Host:        host,
		Platform:    platform,
		CollectedAt: time.Now(),
	}

	parseCounters, parseLinks := ParseProcNetDev, ParseIPLink
	if platform == PlatformDarwin {
		parseCounters, parseLinks = ParseNetstat, ParseIfconfig
	}

	counters := s.parseSlot(report, results[0], parseCounters)
	for i := range counters {
		counters[i].counted = true
	}
	links := s.parseSlot(report, results[1], parseLinks)

	merged := append(make([]Interface, 0, len(counters)+len(links)), counters...)
	byName := make(map[string]int, len(merged))
	for i, c := range merged {
		byName[c.Name] = i
	}
	for _, link := range links {
		i, ok := byName[link.Name]
		if !ok {
			byName[link.Name] = len(merged)
			merged = append(merged, link)
			continue
		}
		iface := &merged[i]
		iface.State = link.State
		if link.MTU != 0 {
			iface.MTU = link.MTU
		}
		if link.MAC != "" {
			iface.MAC = link.MAC
		}
	}

	if filter := s.filters[host]; filter != nil {
		kept := merged[:0]
		for _, iface := range merged {
			if filter[iface.Name] {
				kept = append(kept, iface)
			}
		}
		merged = kept
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	report.Interfaces = merged
	return report
}

func (s *Service) parseSlot(report *HostReport, res batch.Result, parse func(string) ([]Interface, error)) []Interface {
	switch {
	case res.Err != nil:
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", res.Command, errorSummary(res.Err)))
		return nil
	case res.ExitCode != 0:
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", res.Command, msg))
		return nil
	}

	ifaces, err := parse(res.Stdout)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", res.Command, err))
		return nil
	}
	return ifaces
}

// errorSummary returns the one-line message of a structured error.
func errorSummary(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
