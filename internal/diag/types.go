package diag

import (
	"strings"
	"time"
)

// Platform is the operating system family of a remote host.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformUnknown Platform = "unknown"
)

// ParsePlatform converts `uname -s` output to a Platform.
func ParsePlatform(unameOutput string) Platform {
	switch strings.TrimSpace(unameOutput) {
	case "Linux":
		return PlatformLinux
	case "Darwin":
		return PlatformDarwin
	default:
		return PlatformUnknown
	}
}

// Link states reported by Interface.State.
const (
	StateUp      = "UP"
	StateDown    = "DOWN"
	StateUnknown = "UNKNOWN"
)

// Interface holds the counters and link attributes of one network interface.
type Interface struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state,omitempty" yaml:"state,omitempty"`
	MTU   int    `json:"mtu,omitempty" yaml:"mtu,omitempty"`
	MAC   string `json:"mac,omitempty" yaml:"mac,omitempty"`

	RxBytes   int64 `json:"rx_bytes" yaml:"rx_bytes"`
	TxBytes   int64 `json:"tx_bytes" yaml:"tx_bytes"`
	RxPackets int64 `json:"rx_packets" yaml:"rx_packets"`
	TxPackets int64 `json:"tx_packets" yaml:"tx_packets"`
	RxErrors  int64 `json:"rx_errors" yaml:"rx_errors"`
	TxErrors  int64 `json:"tx_errors" yaml:"tx_errors"`
	RxDrops   int64 `json:"rx_drops" yaml:"rx_drops"`
	TxDrops   int64 `json:"tx_drops" yaml:"tx_drops"`

	// Bytes per second since the previous report for the same host.
	RxRate float64 `json:"rx_rate" yaml:"rx_rate"`
	TxRate float64 `json:"tx_rate" yaml:"tx_rate"`

	// counted is set when this sample carried byte counters. Link-only
	// interfaces have zero counters that must not feed the rate history.
	counted bool
}

// IsUp reports whether the link is administratively and operationally up.
func (i Interface) IsUp() bool {
	return i.State == StateUp
}

// HasErrors reports whether any error or drop counter is non-zero.
func (i Interface) HasErrors() bool {
	return i.RxErrors+i.TxErrors+i.RxDrops+i.TxDrops > 0
}

// HostReport is one diagnostics sample for a host.
type HostReport struct {
	Host        string        `json:"host" yaml:"host"`
	Platform    Platform      `json:"platform" yaml:"platform"`
	CollectedAt time.Time     `json:"collected_at" yaml:"collected_at"`
	Latency     time.Duration `json:"latency" yaml:"latency"`
	Interfaces  []Interface   `json:"interfaces" yaml:"interfaces"`

	// Warnings lists commands in the batch that failed while the rest succeeded.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Error is set by CollectAll when the host could not be sampled at all.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Interface returns the named interface, if present.
func (r *HostReport) Interface(name string) (Interface, bool) {
	if r == nil {
		return Interface{}, false
	}
	for _, iface := range r.Interfaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}

// Update is what a watched host publishes to the presentation layer.
type Update struct {
	Host    string
	Report  *HostReport
	Version uint64
	Err     error
	At      time.Time
}
