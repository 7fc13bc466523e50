package monitor

import (
	"sync"

	"github.com/ElPandos/interface-check-sub005/internal/diag"
)

// DefaultHistorySize is the default number of samples kept per interface.
const DefaultHistorySize = 60

// History keeps recent rx/tx rates per host and interface in ring buffers
// for sparkline rendering. Nothing is persisted.
type History struct {
	mu    sync.RWMutex
	size  int
	hosts map[string]*hostHistory
}

type hostHistory struct {
	samples int
	links   map[string]*linkHistory
}

type linkHistory struct {
	rx *ringBuffer
	tx *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history tracker with the given buffer size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:  size,
		hosts: make(map[string]*hostHistory),
	}
}

// Size returns the per-interface capacity.
func (h *History) Size() int {
	return h.size
}

// Push records one report's rates for every interface in it.
func (h *History) Push(host string, report *diag.HostReport) {
	if report == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist, ok := h.hosts[host]
	if !ok {
		hist = &hostHistory{links: make(map[string]*linkHistory)}
		h.hosts[host] = hist
	}
	hist.samples++

	for _, iface := range report.Interfaces {
		link, ok := hist.links[iface.Name]
		if !ok {
			link = &linkHistory{
				rx: newRingBuffer(h.size),
				tx: newRingBuffer(h.size),
			}
			hist.links[iface.Name] = link
		}
		link.rx.push(iface.RxRate)
		link.tx.push(iface.TxRate)
	}
}

// Rates returns the last count rx and tx rates for an interface, oldest first.
func (h *History) Rates(host, iface string, count int) (rx, tx []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.hosts[host]
	if !ok {
		return nil, nil
	}
	link, ok := hist.links[iface]
	if !ok {
		return nil, nil
	}
	return link.rx.getLast(count), link.tx.getLast(count)
}

// Count returns how many reports were pushed for host.
func (h *History) Count(host string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.hosts[host]
	if !ok {
		return 0
	}
	return hist.samples
}

// Clear removes all history for host.
func (h *History) Clear(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hosts, host)
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)
	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
