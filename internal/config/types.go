package config

import (
	"sort"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .ifcheck.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Hosts     map[string]Host `yaml:"hosts" mapstructure:"hosts"`
	Pool      PoolConfig      `yaml:"pool" mapstructure:"pool"`
	Collector CollectorConfig `yaml:"collector" mapstructure:"collector"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	SSH       SSHConfig       `yaml:"ssh" mapstructure:"ssh"`
}

// Host defines a remote machine to diagnose.
type Host struct {
	// SSH is the connection string: an ~/.ssh/config alias, hostname,
	// user@hostname or hostname:port.
	SSH string `yaml:"ssh" mapstructure:"ssh"`

	// Jump is the ordered list of jump hosts. When empty, ProxyJump from
	// ~/.ssh/config applies.
	Jump []string `yaml:"jump,omitempty" mapstructure:"jump"`

	// Interfaces limits reports to these interface names. Empty means all.
	Interfaces []string `yaml:"interfaces,omitempty" mapstructure:"interfaces"`

	// Tags for filtering hosts with --tag.
	Tags []string `yaml:"tags,omitempty" mapstructure:"tags"`
}

// HasTag reports whether the host carries tag.
func (h Host) HasTag(tag string) bool {
	for _, t := range h.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PoolConfig sizes the per-host session pools.
type PoolConfig struct {
	MaxSize        int           `yaml:"max_size" mapstructure:"max_size"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" mapstructure:"acquire_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`
	MaxIdle        int           `yaml:"max_idle" mapstructure:"max_idle"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ExecTimeout    time.Duration `yaml:"exec_timeout" mapstructure:"exec_timeout"`

	// DoubleRelease is "strict" (panic), "lenient" (log) or "" for the build default.
	DoubleRelease string `yaml:"double_release,omitempty" mapstructure:"double_release"`
}

// CollectorConfig controls background sampling.
type CollectorConfig struct {
	Interval     time.Duration `yaml:"interval" mapstructure:"interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

// WorkerConfig sizes background workers.
type WorkerConfig struct {
	QueueCapacity int           `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	StopTimeout   time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// MonitorConfig controls the dashboard.
type MonitorConfig struct {
	// Refresh is how often the dashboard redraws, independent of Collector.Interval.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// History is the number of samples kept per sparkline.
	History int `yaml:"history" mapstructure:"history"`
}

// SSHConfig holds connection settings shared by every host.
type SSHConfig struct {
	StrictHostKeyChecking bool          `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
	User                  string        `yaml:"user,omitempty" mapstructure:"user"`
	IdentityFile          string        `yaml:"identity_file,omitempty" mapstructure:"identity_file"`
	DialTimeout           time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Hosts:   make(map[string]Host),
		Pool: PoolConfig{
			MaxSize:        2,
			AcquireTimeout: 5 * time.Second,
			ShutdownGrace:  3 * time.Second,
			MaxIdle:        2,
			IdleTimeout:    5 * time.Minute,
			ExecTimeout:    15 * time.Second,
		},
		Collector: CollectorConfig{
			Interval:     2 * time.Second,
			FetchTimeout: 10 * time.Second,
		},
		Worker: WorkerConfig{
			QueueCapacity: 64,
			StopTimeout:   5 * time.Second,
		},
		Monitor: MonitorConfig{
			Refresh: 500 * time.Millisecond,
			History: 60,
		},
		SSH: SSHConfig{
			StrictHostKeyChecking: true,
			DialTimeout:           10 * time.Second,
		},
	}
}

// HostNames returns the configured host names, sorted.
func (c *Config) HostNames() []string {
	if c == nil {
		return nil
	}
	return getHostNames(c.Hosts)
}

// HostsWithTag returns the sorted names of hosts carrying tag.
func (c *Config) HostsWithTag(tag string) []string {
	var names []string
	for _, name := range c.HostNames() {
		if c.Hosts[name].HasTag(tag) {
			names = append(names, name)
		}
	}
	return names
}

// getHostNames returns a sorted list of host names.
func getHostNames(hosts map[string]Host) []string {
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
