package worker

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestWorker returns a worker whose loop is checked for leaks at cleanup.
func newTestWorker(t *testing.T, cfg Config, log logger.Logger) *Worker {
	t.Helper()
	tracker := NewTracker()
	cfg.Tracker = tracker
	w := New(cfg, log)
	t.Cleanup(func() {
		_ = w.Stop(time.Second)
		assert.True(t, tracker.Wait(2*time.Second), "leaked workers: %v", tracker.Names())
	})
	return w
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "stopped"},
		{Starting, "starting"},
		{Running, "running"},
		{Stopping, "stopping"},
		{State(9), "state(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{}, nil)
	assert.Equal(t, "worker", w.Name())
	assert.Equal(t, DefaultQueueCapacity, w.cfg.QueueCapacity)
	assert.Equal(t, DefaultStopTimeout, w.cfg.StopTimeout)
	assert.Equal(t, Stopped, w.State())
}

func TestWorker_RunsTasksInOrder(t *testing.T) {
	w := newTestWorker(t, Config{Name: "fifo"}, nil)
	require.NoError(t, w.Start())
	assert.Equal(t, Running, w.State())

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, w.Submit(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
			return nil
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not run")
	}

	require.NoError(t, w.Stop(time.Second))
	assert.Equal(t, Stopped, w.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, int64(5), w.Processed())
	assert.Equal(t, int64(0), w.Failed())
}

func TestWorker_StateErrors(t *testing.T) {
	w := newTestWorker(t, Config{Name: "states"}, nil)

	err := w.Submit(func(context.Context) error { return nil })
	assert.True(t, errors.IsCode(err, errors.ErrWorkerState), "submit before start")

	require.NoError(t, w.Start())
	err = w.Start()
	assert.True(t, errors.IsCode(err, errors.ErrWorkerState), "double start")

	require.NoError(t, w.Stop(time.Second))
	require.NoError(t, w.Stop(time.Second), "stopping a stopped worker is a no-op")

	err = w.Submit(func(context.Context) error { return nil })
	assert.True(t, errors.IsCode(err, errors.ErrWorkerState), "submit after stop")
}

func TestWorker_QueueFull(t *testing.T) {
	w := newTestWorker(t, Config{Name: "bounded", QueueCapacity: 1}, nil)
	require.NoError(t, w.Start())

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, w.Submit(func(ctx context.Context) error {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	<-started

	require.NoError(t, w.Submit(func(context.Context) error { return nil }))

	err := w.Submit(func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrQueueFull))

	close(release)
}

func TestWorker_TaskErrorsAndPanicsDoNotKillLoop(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	boom := stderrors.New("interface counters unreadable")

	buf := logger.NewBufferLogger()
	w := newTestWorker(t, Config{
		Name: "resilient",
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		},
	}, buf)
	require.NoError(t, w.Start())

	done := make(chan struct{})
	require.NoError(t, w.Submit(func(context.Context) error { return boom }))
	require.NoError(t, w.Submit(func(context.Context) error { panic("nil map") }))
	require.NoError(t, w.Submit(func(context.Context) error { close(done); return nil }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker loop died after a failing task")
	}

	require.NoError(t, w.Stop(time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
	assert.ErrorIs(t, reported[0], boom)
	assert.Contains(t, reported[1].Error(), "panicked: nil map")
	assert.Equal(t, int64(2), w.Failed())
	assert.Equal(t, int64(3), w.Processed())
	assert.True(t, buf.Contains("warn", "task failed"))
}

func TestWorker_StopIsPromptForCooperativeTask(t *testing.T) {
	w := newTestWorker(t, Config{Name: "cooperative"}, nil)
	require.NoError(t, w.Start())

	started := make(chan struct{})
	require.NoError(t, w.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	start := time.Now()
	require.NoError(t, w.Stop(time.Second))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int64(0), w.Failed(), "cancellation is not a task failure")
}

func TestWorker_ForcedStop(t *testing.T) {
	buf := logger.NewBufferLogger()
	w := newTestWorker(t, Config{Name: "stubborn"}, buf)
	require.NoError(t, w.Start())

	started := make(chan struct{})
	require.NoError(t, w.Submit(func(context.Context) error {
		close(started)
		time.Sleep(300 * time.Millisecond)
		return nil
	}))
	<-started

	const timeout = 50 * time.Millisecond
	start := time.Now()
	err := w.Stop(timeout)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrForcedStop))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+200*time.Millisecond)
	assert.Equal(t, Stopped, w.State())
	assert.True(t, buf.Contains("warn", "did not stop within"))
}

func TestWorker_DropsQueuedTasksOnStop(t *testing.T) {
	buf := logger.NewBufferLogger()
	w := newTestWorker(t, Config{Name: "dropper", QueueCapacity: 4}, buf)
	require.NoError(t, w.Start())

	started := make(chan struct{})
	require.NoError(t, w.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}))
	<-started

	ran := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Submit(func(context.Context) error {
			ran <- struct{}{}
			return nil
		}))
	}

	require.NoError(t, w.Stop(time.Second))
	assert.Empty(t, ran)
	assert.True(t, buf.Contains("info", "dropped 3 queued task(s)"))
}

func TestWorker_Restart(t *testing.T) {
	w := newTestWorker(t, Config{Name: "again"}, nil)

	for round := 0; round < 2; round++ {
		require.NoError(t, w.Start())
		done := make(chan struct{})
		require.NoError(t, w.Submit(func(context.Context) error { close(done); return nil }))
		<-done
		require.NoError(t, w.Stop(time.Second))
	}
	assert.Equal(t, int64(2), w.Processed())
}

func TestTracker(t *testing.T) {
	var nilTracker *Tracker
	assert.Equal(t, 0, nilTracker.Live())
	assert.True(t, nilTracker.Wait(time.Millisecond))

	tracker := NewTracker()
	a := New(Config{Name: "a", Tracker: tracker}, nil)
	b := New(Config{Name: "b", Tracker: tracker}, nil)

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	assert.Equal(t, 2, tracker.Live())
	assert.Equal(t, []string{"a", "b"}, tracker.Names())

	require.NoError(t, a.Stop(time.Second))
	assert.Equal(t, []string{"b"}, tracker.Names(), "a worker that was never stopped shows up")

	require.NoError(t, b.Stop(time.Second))
	assert.True(t, tracker.Wait(time.Second))
	assert.Equal(t, 0, tracker.Live())
}
