package diag

import (
	"sync"
	"time"
)

type counterSample struct {
	rx, tx int64
	at     time.Time
}

// RateTracker turns cumulative byte counters into per-second rates by
// remembering the previous sample of every host/interface pair.
type RateTracker struct {
	mu   sync.Mutex
	prev map[string]map[string]counterSample
}

// NewRateTracker creates an empty tracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{prev: make(map[string]map[string]counterSample)}
}

// Observe fills RxRate and TxRate of ifaces in place. The first sample of an
// interface has a zero rate, and so does a sample whose counter went
// backwards (wrap or reboot). Interfaces without counters in this sample get
// a zero rate and leave their previous sample untouched, so a failed
// counters command does not turn the next good sample into a spike.
func (t *RateTracker) Observe(host string, at time.Time, ifaces []Interface) {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := t.prev[host]
	if samples == nil {
		samples = make(map[string]counterSample, len(ifaces))
		t.prev[host] = samples
	}

	for i := range ifaces {
		iface := &ifaces[i]
		iface.RxRate, iface.TxRate = 0, 0
		if !iface.counted {
			continue
		}

		cur := counterSample{rx: iface.RxBytes, tx: iface.TxBytes, at: at}
		p, ok := samples[iface.Name]
		samples[iface.Name] = cur
		if !ok {
			continue
		}
		dt := cur.at.Sub(p.at).Seconds()
		if dt <= 0 {
			continue
		}
		iface.RxRate = rate(p.rx, cur.rx, dt)
		iface.TxRate = rate(p.tx, cur.tx, dt)
	}
}

// Forget drops the history of host.
func (t *RateTracker) Forget(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.prev, host)
}

func rate(prev, cur int64, seconds float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / seconds
}
