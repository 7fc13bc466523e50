package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but ifcheck only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade ifcheck or lower the version field.")
	}

	for _, name := range getHostNames(cfg.Hosts) {
		if err := validateHost(name, cfg.Hosts[name]); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'hosts' section in your .ifcheck.yaml.")
		}
	}

	if err := validatePool(cfg.Pool); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'pool' section in your .ifcheck.yaml.")
	}

	if err := validateCollector(cfg.Collector); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'collector' section in your .ifcheck.yaml.")
	}

	if err := validateWorker(cfg.Worker); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'worker' section in your .ifcheck.yaml.")
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'monitor' section in your .ifcheck.yaml.")
	}

	if cfg.SSH.DialTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"ssh.dial_timeout can't be negative",
			"Use something like '10s', or leave it out for the default.")
	}

	return nil
}

// ValidateHostName checks that a host name is just a name (no special chars).
func ValidateHostName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrConfig,
			"Host name can't be empty",
			"Pick a short name like 'core-sw1'.")
	}
	if strings.Contains(name, "@") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' looks like an SSH string, not a host name", name),
			"Use a short name here and put 'user@hostname' in the host's 'ssh' field.")
	}
	if strings.ContainsAny(name, "/ \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' contains a path separator or whitespace", name),
			"Use just the host name here, not a path.")
	}
	return nil
}

// validateHost checks a single host configuration.
func validateHost(name string, host Host) error {
	if err := ValidateHostName(name); err != nil {
		return err
	}

	if strings.TrimSpace(host.SSH) == "" {
		return fmt.Errorf("host '%s' needs an SSH connection (like 'user@hostname')", name)
	}

	seen := make(map[string]bool, len(host.Jump))
	for i, hop := range host.Jump {
		hop = strings.TrimSpace(hop)
		if hop == "" {
			return fmt.Errorf("host '%s' has an empty jump entry at position %d", name, i+1)
		}
		if hop == name || hop == host.SSH {
			return fmt.Errorf("host '%s' lists itself as a jump host", name)
		}
		if seen[hop] {
			return fmt.Errorf("host '%s' visits jump host '%s' twice", name, hop)
		}
		seen[hop] = true
	}

	for i, iface := range host.Interfaces {
		if strings.TrimSpace(iface) == "" {
			return fmt.Errorf("host '%s' has an empty interface name at position %d", name, i+1)
		}
	}

	return nil
}

// validatePool checks pool limits.
func validatePool(p PoolConfig) error {
	if p.MaxSize < 1 {
		return fmt.Errorf("pool.max_size needs to be at least 1 (got %d)", p.MaxSize)
	}
	if p.MaxIdle < 0 {
		return fmt.Errorf("pool.max_idle can't be negative")
	}
	if err := positive("pool.acquire_timeout", p.AcquireTimeout); err != nil {
		return err
	}
	if err := positive("pool.shutdown_grace", p.ShutdownGrace); err != nil {
		return err
	}
	if err := positive("pool.exec_timeout", p.ExecTimeout); err != nil {
		return err
	}
	if p.IdleTimeout < 0 {
		return fmt.Errorf("pool.idle_timeout can't be negative - use 0 to keep idle sessions forever")
	}
	switch p.DoubleRelease {
	case "", "strict", "lenient":
	default:
		return fmt.Errorf("pool.double_release '%s' isn't valid - use 'strict' or 'lenient'", p.DoubleRelease)
	}
	return nil
}

// validateCollector checks sampling settings.
func validateCollector(c CollectorConfig) error {
	if err := positive("collector.interval", c.Interval); err != nil {
		return err
	}
	return positive("collector.fetch_timeout", c.FetchTimeout)
}

// validateWorker checks worker settings.
func validateWorker(w WorkerConfig) error {
	if w.QueueCapacity < 1 {
		return fmt.Errorf("worker.queue_capacity needs to be at least 1 (got %d)", w.QueueCapacity)
	}
	return positive("worker.stop_timeout", w.StopTimeout)
}

// validateMonitor checks dashboard settings.
func validateMonitor(m MonitorConfig) error {
	if err := positive("monitor.refresh", m.Refresh); err != nil {
		return err
	}
	if m.History < 2 {
		return fmt.Errorf("monitor.history needs at least 2 samples to draw a graph (got %d)", m.History)
	}
	return nil
}

func positive(field string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s needs to be a positive duration like '5s' (got %v)", field, d)
	}
	return nil
}
