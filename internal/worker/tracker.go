package worker

import (
	"sort"
	"sync"
	"time"
)

// Tracker counts live worker loops. Pass the same Tracker to every worker
// a component owns and check Live() == 0 after tearing it down to catch
// workers that were never stopped. A nil *Tracker is valid and tracks nothing.
type Tracker struct {
	mu      sync.Mutex
	live    map[string]int
	changed chan struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		live:    make(map[string]int),
		changed: make(chan struct{}),
	}
}

func (t *Tracker) add(name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[name]++
	t.notify()
}

func (t *Tracker) remove(name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live[name] <= 1 {
		delete(t.live, name)
	} else {
		t.live[name]--
	}
	t.notify()
}

func (t *Tracker) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Live returns the number of running worker loops.
func (t *Tracker) Live() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.live {
		n += c
	}
	return n
}

// Names returns the names of workers still running, sorted.
func (t *Tracker) Names() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.live))
	for name := range t.live {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wait blocks until no loops are live or timeout passes. It reports
// whether everything exited.
func (t *Tracker) Wait(timeout time.Duration) bool {
	if t == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if len(t.live) == 0 {
			t.mu.Unlock()
			return true
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return false
		}
	}
}
