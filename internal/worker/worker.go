// Package worker runs tasks one at a time on a dedicated goroutine fed by
// a bounded queue.
package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultQueueCapacity = 64
	DefaultStopTimeout   = 5 * time.Second
)

// State is the worker lifecycle: Stopped -> Starting -> Running -> Stopping -> Stopped.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Task is a unit of work. ctx is cancelled when the worker stops; long
// tasks should watch it.
type Task func(ctx context.Context) error

// Config configures a Worker. All fields are optional.
type Config struct {
	Name          string
	QueueCapacity int
	StopTimeout   time.Duration
	// OnError receives task errors and recovered panics.
	OnError func(error)
	// Tracker, if set, counts this worker's loop while it runs.
	Tracker *Tracker
}

// Worker owns one goroutine draining a FIFO task queue.
type Worker struct {
	cfg Config
	log logger.Logger

	state atomic.Int32

	mu     sync.Mutex // serialises Start/Stop/Submit against each other
	queue  chan Task
	cancel context.CancelFunc
	done   chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a stopped worker. A nil logger discards output.
func New(cfg Config, log logger.Logger) *Worker {
	if cfg.Name == "" {
		cfg.Name = "worker"
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Worker{cfg: cfg, log: logger.OrNoop(log)}
}

// Name returns the configured worker name.
func (w *Worker) Name() string {
	return w.cfg.Name
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) stateErr(op string) error {
	return errors.New(errors.ErrWorkerState,
		fmt.Sprintf("Can't %s worker '%s' while it is %s", op, w.cfg.Name, w.State()), "")
}

// Start spawns the worker goroutine. Only valid from Stopped.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.CompareAndSwap(int32(Stopped), int32(Starting)) {
		return w.stateErr("start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.queue = make(chan Task, w.cfg.QueueCapacity)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.cfg.Tracker.add(w.cfg.Name)
	go w.loop(ctx, w.queue, w.done)

	w.state.Store(int32(Running))
	w.log.Debug("%s: started (queue capacity %d)", w.cfg.Name, w.cfg.QueueCapacity)
	return nil
}

// Submit enqueues task without blocking. Returns QUEUE_FULL when the queue
// is saturated and WORKER_STATE when the worker is not running.
func (w *Worker) Submit(task Task) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.State() != Running {
		return w.stateErr("submit to")
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New(errors.ErrQueueFull,
			fmt.Sprintf("Worker '%s' queue is full (%d tasks)", w.cfg.Name, w.cfg.QueueCapacity),
			"Slow down submissions or drop work")
	}
}

// Stop cancels the worker and waits up to timeout for its goroutine to exit.
// timeout <= 0 uses the configured StopTimeout. If the goroutine is still
// busy at the deadline the worker is marked Stopped anyway and a
// FORCED_STOP error is returned. Stopping a stopped worker is a no-op.
func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if !w.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		state := w.State()
		w.mu.Unlock()
		if state == Stopped {
			return nil
		}
		return w.stateErr("stop")
	}
	cancel, done, queue := w.cancel, w.done, w.queue
	w.mu.Unlock()

	if timeout <= 0 {
		timeout = w.cfg.StopTimeout
	}

	cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		w.log.Warn("%s: did not stop within %s; abandoning its running task", w.cfg.Name, timeout)
		err = errors.New(errors.ErrForcedStop,
			fmt.Sprintf("Worker '%s' did not stop within %s", w.cfg.Name, timeout),
			"A task is ignoring cancellation")
	}

	if dropped := len(queue); dropped > 0 {
		w.log.Info("%s: dropped %d queued task(s) on stop", w.cfg.Name, dropped)
	}

	w.state.Store(int32(Stopped))
	w.log.Debug("%s: stopped (%d processed, %d failed)", w.cfg.Name, w.processed.Load(), w.failed.Load())
	return err
}

// Processed returns how many tasks have finished, successfully or not.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// Failed returns how many tasks returned an error or panicked.
func (w *Worker) Failed() int64 {
	return w.failed.Load()
}

func (w *Worker) loop(ctx context.Context, queue <-chan Task, done chan<- struct{}) {
	defer close(done)
	defer w.cfg.Tracker.remove(w.cfg.Name)

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case task := <-queue:
			if ctx.Err() != nil {
				return
			}
			w.run(ctx, task)
		}
	}
}

func (w *Worker) run(ctx context.Context, task Task) {
	defer w.processed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			w.report(fmt.Errorf("task panicked: %v", r))
		}
	}()

	err := task(ctx)
	if err == nil {
		return
	}
	if ctx.Err() != nil && stderrors.Is(err, context.Canceled) {
		return
	}
	w.report(err)
}

func (w *Worker) report(err error) {
	w.failed.Add(1)
	w.log.Warn("%s: task failed: %v", w.cfg.Name, err)
	if w.cfg.OnError != nil {
		w.cfg.OnError(err)
	}
}
