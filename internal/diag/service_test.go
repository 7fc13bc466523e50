package diag

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/batch"
	"github.com/ElPandos/interface-check-sub005/internal/bridge"
	"github.com/ElPandos/interface-check-sub005/internal/collector"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/pool"
	"github.com/ElPandos/interface-check-sub005/internal/worker"
	sshtest "github.com/ElPandos/interface-check-sub005/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linuxHost(c *sshtest.MockClient) {
	c.SetCommandResponse("cat /proc/net/dev", sshtest.CommandResponse{Stdout: []byte(procNetDevFixture)})
	c.SetCommandResponse("ip -o link show", sshtest.CommandResponse{Stdout: []byte(ipLinkFixture)})
}

func darwinHost(c *sshtest.MockClient) {
	c.SetPlatform("Darwin")
	c.SetCommandResponse("netstat -ibn", sshtest.CommandResponse{Stdout: []byte(netstatFixture)})
	c.SetCommandResponse("ifconfig -a", sshtest.CommandResponse{Stdout: []byte(ifconfigFixture)})
}

func newTestService(t *testing.T, setup func(*sshtest.MockClient), opts ...Option) (*Service, *sshtest.MockDialer) {
	t.Helper()
	dialer := sshtest.NewMockDialer(setup)
	p := pool.New(dialer, pool.Config{MaxSize: 2, AcquireTimeout: time.Second}, logger.Noop())
	t.Cleanup(func() { _ = p.Shutdown(100 * time.Millisecond) })
	return NewService(p, batch.New(time.Second), nil, opts...), dialer
}

func TestCollect_Linux(t *testing.T) {
	svc, dialer := newTestService(t, linuxHost)

	report, err := svc.Collect(context.Background(), "core-sw1")
	require.NoError(t, err)

	assert.Equal(t, "core-sw1", report.Host)
	assert.Equal(t, PlatformLinux, report.Platform)
	assert.Empty(t, report.Warnings)
	assert.False(t, report.CollectedAt.IsZero())

	names := make([]string, 0, len(report.Interfaces))
	for _, iface := range report.Interfaces {
		names = append(names, iface.Name)
	}
	assert.Equal(t, []string{"eth0", "eth0.100", "eth1", "lo", "wg0"}, names, "link-only interfaces are kept")

	eth0, ok := report.Interface("eth0")
	require.True(t, ok)
	assert.Equal(t, StateUp, eth0.State)
	assert.Equal(t, 9000, eth0.MTU)
	assert.Equal(t, "52:54:00:12:34:56", eth0.MAC)
	assert.Equal(t, int64(9876543210), eth0.RxBytes)
	assert.Equal(t, int64(17), eth0.RxDrops)
	assert.Zero(t, eth0.RxRate, "first sample has no rate")

	eth1, _ := report.Interface("eth1")
	assert.Equal(t, StateDown, eth1.State)

	assert.Equal(t, PlatformLinux, svc.Platform("core-sw1"))
	assert.Equal(t, 1, dialer.DialCount("core-sw1"))
}

func TestCollect_Darwin(t *testing.T) {
	svc, _ := newTestService(t, darwinHost)

	report, err := svc.Collect(context.Background(), "lab-mac")
	require.NoError(t, err)
	assert.Equal(t, PlatformDarwin, report.Platform)

	en0, ok := report.Interface("en0")
	require.True(t, ok)
	assert.Equal(t, StateUp, en0.State)
	assert.Equal(t, int64(876543210), en0.RxBytes)
	assert.Equal(t, "a4:83:e7:00:00:01", en0.MAC)

	en1, ok := report.Interface("en1")
	require.True(t, ok, "interfaces only in ifconfig are reported")
	assert.Equal(t, StateDown, en1.State)
}

func TestCollect_PlatformDetectedOnce(t *testing.T) {
	svc, dialer := newTestService(t, linuxHost)
	ctx := context.Background()

	_, err := svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)
	_, err = svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)

	clients := dialer.Clients("core-sw1")
	require.Len(t, clients, 1, "the pooled session is reused")

	unames := 0
	for _, cmd := range clients[0].Executed() {
		if strings.Contains(cmd, "\nuname -s\n") {
			unames++
		}
	}
	assert.Equal(t, 1, unames)
	assert.Equal(t, 3, clients[0].ExecCount(), "detect + two diagnostic batches")
}

func TestCollect_UnknownPlatformFallsBackAndRetries(t *testing.T) {
	svc, dialer := newTestService(t, func(c *sshtest.MockClient) {
		linuxHost(c)
		c.SetPlatform("Plan9")
	})
	ctx := context.Background()

	report, err := svc.Collect(ctx, "odd-box")
	require.NoError(t, err)
	assert.Equal(t, PlatformUnknown, report.Platform)
	assert.NotEmpty(t, report.Interfaces, "linux commands are tried")

	_, err = svc.Collect(ctx, "odd-box")
	require.NoError(t, err)
	assert.Equal(t, 4, dialer.Clients("odd-box")[0].ExecCount(), "unknown platforms are not cached")
}

func TestCollect_RatesBetweenSamples(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, func(c *sshtest.MockClient) {
		c.SetCommandResponse("ip -o link show", sshtest.CommandResponse{Stdout: []byte(ipLinkFixture)})
		c.SetHandler(func(cmd string) (sshtest.CommandResponse, bool) {
			if cmd != "cat /proc/net/dev" {
				return sshtest.CommandResponse{}, false
			}
			rx := "1000"
			if calls.Add(1) > 1 {
				rx = "501000"
			}
			row := "  eth0: " + rx + " 10 0 0 0 0 0 0 2000 20 0 0 0 0 0 0\n"
			return sshtest.CommandResponse{Stdout: []byte(row)}, true
		})
	})
	ctx := context.Background()

	_, err := svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	report, err := svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)

	eth0, ok := report.Interface("eth0")
	require.True(t, ok)
	assert.Greater(t, eth0.RxRate, 0.0)
	assert.Zero(t, eth0.TxRate, "tx counter did not move")
}

func TestCollect_FailedCountersKeepPreviousSample(t *testing.T) {
	var calls atomic.Int64
	svc, _ := newTestService(t, func(c *sshtest.MockClient) {
		c.SetCommandResponse("ip -o link show", sshtest.CommandResponse{Stdout: []byte(ipLinkFixture)})
		c.SetHandler(func(cmd string) (sshtest.CommandResponse, bool) {
			if cmd != "cat /proc/net/dev" {
				return sshtest.CommandResponse{}, false
			}
			rx := "1000000000000"
			switch calls.Add(1) {
			case 2:
				return sshtest.CommandResponse{Stderr: []byte("cat: /proc/net/dev: Input/output error\n"), ExitCode: 1}, true
			case 3:
				rx = "1000000001000"
			}
			row := "  eth0: " + rx + " 10 0 0 0 0 0 0 2000 20 0 0 0 0 0 0\n"
			return sshtest.CommandResponse{Stdout: []byte(row)}, true
		})
	})
	ctx := context.Background()

	_, err := svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	report, err := svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	eth0, ok := report.Interface("eth0")
	require.True(t, ok, "link attributes still arrive")
	assert.Zero(t, eth0.RxRate)
	assert.Zero(t, eth0.RxBytes)
	time.Sleep(20 * time.Millisecond)

	report, err = svc.Collect(ctx, "core-sw1")
	require.NoError(t, err)
	eth0, ok = report.Interface("eth0")
	require.True(t, ok)
	assert.Greater(t, eth0.RxRate, 0.0)
	// 1000 bytes over at least 40ms; a zero baseline would give ~1e13 B/s.
	assert.LessOrEqual(t, eth0.RxRate, 1000/0.04)
}

func TestRateTracker_UncountedInterfacesKeepHistory(t *testing.T) {
	rt := NewRateTracker()
	t0 := time.Now()

	rt.Observe("h", t0, []Interface{{Name: "eth0", RxBytes: 5000, counted: true}})

	linkOnly := []Interface{{Name: "eth0"}}
	rt.Observe("h", t0.Add(time.Second), linkOnly)
	assert.Zero(t, linkOnly[0].RxRate)

	next := []Interface{{Name: "eth0", RxBytes: 9000, counted: true}}
	rt.Observe("h", t0.Add(2*time.Second), next)
	assert.InDelta(t, 2000.0, next[0].RxRate, 0.001)

	rt.Forget("h")
	again := []Interface{{Name: "eth0", RxBytes: 10000, counted: true}}
	rt.Observe("h", t0.Add(3*time.Second), again)
	assert.Zero(t, again[0].RxRate, "history starts over after Forget")
}

func TestCollect_FailedCommandBecomesWarning(t *testing.T) {
	svc, _ := newTestService(t, func(c *sshtest.MockClient) {
		c.SetCommandResponse("cat /proc/net/dev", sshtest.CommandResponse{Stdout: []byte(procNetDevFixture)})
		c.SetCommandResponse("ip -o link show", sshtest.CommandResponse{
			Stderr:   []byte("ip: command not found\n"),
			ExitCode: 127,
		})
	})

	report, err := svc.Collect(context.Background(), "core-sw1")
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "ip -o link show: ip: command not found")

	eth0, ok := report.Interface("eth0")
	require.True(t, ok, "counters survive the failed link query")
	assert.Equal(t, "", eth0.State)
}

func TestCollect_InterfaceFilter(t *testing.T) {
	svc, _ := newTestService(t, linuxHost,
		WithInterfaces("core-sw1", []string{"eth0", "eth1"}),
		WithInterfaces("other", nil))

	report, err := svc.Collect(context.Background(), "core-sw1")
	require.NoError(t, err)
	require.Len(t, report.Interfaces, 2)
	assert.Equal(t, "eth0", report.Interfaces[0].Name)
	assert.Equal(t, "eth1", report.Interfaces[1].Name)
}

func TestCollect_ConnectFailure(t *testing.T) {
	svc, dialer := newTestService(t, linuxHost)
	dialer.FailNext("core-sw1", stderrors.New("connection refused"))

	_, err := svc.Collect(context.Background(), "core-sw1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConnect))
}

func TestCollectAll(t *testing.T) {
	svc, dialer := newTestService(t, func(c *sshtest.MockClient) {
		if c.GetHost() == "lab-mac" {
			darwinHost(c)
			return
		}
		linuxHost(c)
	}, WithHostTimeout(time.Second))
	dialer.FailNext("dead-rtr", stderrors.New("no route to host"))

	reports := svc.CollectAll(context.Background(), []string{"core-sw1", "lab-mac", "dead-rtr"})
	require.Len(t, reports, 3)

	assert.Empty(t, reports["core-sw1"].Error)
	assert.Equal(t, PlatformLinux, reports["core-sw1"].Platform)
	assert.Equal(t, PlatformDarwin, reports["lab-mac"].Platform)

	dead := reports["dead-rtr"]
	require.NotNil(t, dead)
	assert.NotEmpty(t, dead.Error)
	assert.NotContains(t, dead.Error, "✗", "only the headline is kept")
	assert.Empty(t, dead.Interfaces)
}

func TestCollectAll_HostTimeout(t *testing.T) {
	svc, _ := newTestService(t, func(c *sshtest.MockClient) {
		linuxHost(c)
		c.SetDelay(time.Second)
	}, WithHostTimeout(50*time.Millisecond))

	start := time.Now()
	reports := svc.CollectAll(context.Background(), []string{"slow-sw"})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NotEmpty(t, reports["slow-sw"].Error)
}

func TestExec(t *testing.T) {
	svc, _ := newTestService(t, linuxHost)

	results, err := svc.Exec(context.Background(), "core-sw1", []string{"uname -s", "false", "ethtool eth0"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Linux\n", results[0].Stdout)
	assert.Equal(t, 1, results[1].ExitCode)
	assert.Equal(t, 127, results[2].ExitCode)
	assert.Contains(t, results[2].Stderr, "command not found")

	empty, err := svc.Exec(context.Background(), "core-sw1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWatch_PublishesToBridge(t *testing.T) {
	svc, _ := newTestService(t, linuxHost)
	out := bridge.New[Update]()
	tracker := worker.NewTracker()

	c := svc.Watch("core-sw1", collector.Config{Interval: 10 * time.Millisecond, Tracker: tracker}, out)
	require.NoError(t, c.Start())
	t.Cleanup(func() {
		_ = c.Stop(time.Second)
		assert.True(t, tracker.Wait(time.Second))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	update, ok := out.Wait(ctx)
	require.True(t, ok)

	assert.Equal(t, "core-sw1", update.Host)
	assert.NoError(t, update.Err)
	require.NotNil(t, update.Report)
	assert.GreaterOrEqual(t, update.Version, uint64(1))
	assert.Equal(t, []string{"watch:core-sw1"}, tracker.Names())
}

func TestWatch_FailuresKeepLastReport(t *testing.T) {
	svc, _ := newTestService(t, linuxHost)

	out := bridge.New[Update]()
	c := svc.Watch("core-sw1", collector.Config{Interval: 10 * time.Millisecond}, out)
	require.NoError(t, c.Start())
	defer func() { _ = c.Stop(time.Second) }()

	require.Eventually(t, func() bool {
		_, _, ok := c.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	_ = svc.pool.Shutdown(10 * time.Millisecond)

	require.Eventually(t, func() bool {
		return errors.HasCode(c.LastError(), errors.ErrPoolClosed)
	}, time.Second, 5*time.Millisecond)

	report, version, ok := c.Latest()
	require.True(t, ok)
	assert.NotNil(t, report)
	assert.GreaterOrEqual(t, version, uint64(1))

	var update Update
	require.Eventually(t, func() bool {
		u, ok := out.Drain()
		if ok {
			update = u
		}
		return update.Err != nil
	}, time.Second, 5*time.Millisecond)
	assert.NotNil(t, update.Report, "the last good report rides along with the error")
}
