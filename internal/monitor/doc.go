// Package monitor implements the live link dashboard behind `ifcheck watch`.
//
// Each watched host has a collector (see package collector) sampling it
// through the shared session pool and publishing a diag.Update into a
// single-slot bridge. The Bubble Tea Model drains every bridge on its own
// tick, so a slow host never stalls rendering and only the newest update
// per host is ever shown.
//
// # Components
//
//	Watcher  - owns the per-host collectors, their bridges and the pool
//	Model    - the Bubble Tea model; drains feeds, keeps per-host views
//	History  - ring buffers of rx/tx rates for sparklines
//	RunPlain - line-oriented output for non-interactive terminals
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Sample every host now
//	j/k, ↑/↓    - Move between hosts
//	g/G         - First / last host
//	?           - Toggle full help
package monitor
