package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".ifcheck.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/ifcheck"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. IFCHECK_POOL_MAX_SIZE.
	EnvPrefix = "IFCHECK"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'ifcheck hosts add' to create one, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .ifcheck.yaml in current directory
// 3. .ifcheck.yaml in parent directories (stops at git root or home)
// 4. ~/.config/ifcheck/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			// Don't go above home directory
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
	}

	if path := GlobalConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/ifcheck/config.yaml, or "" without a home dir.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
// The returned path is empty when defaults were used.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your config"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]Host)
	}
	cfg.SSH.IdentityFile = ExpandTilde(Expand(cfg.SSH.IdentityFile))

	return cfg, nil
}

// setDefaults registers every scalar key so environment overrides apply
// even when the file omits the section.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("pool.max_size", d.Pool.MaxSize)
	v.SetDefault("pool.acquire_timeout", d.Pool.AcquireTimeout.String())
	v.SetDefault("pool.shutdown_grace", d.Pool.ShutdownGrace.String())
	v.SetDefault("pool.max_idle", d.Pool.MaxIdle)
	v.SetDefault("pool.idle_timeout", d.Pool.IdleTimeout.String())
	v.SetDefault("pool.exec_timeout", d.Pool.ExecTimeout.String())
	v.SetDefault("pool.double_release", d.Pool.DoubleRelease)
	v.SetDefault("collector.interval", d.Collector.Interval.String())
	v.SetDefault("collector.fetch_timeout", d.Collector.FetchTimeout.String())
	v.SetDefault("worker.queue_capacity", d.Worker.QueueCapacity)
	v.SetDefault("worker.stop_timeout", d.Worker.StopTimeout.String())
	v.SetDefault("monitor.refresh", d.Monitor.Refresh.String())
	v.SetDefault("monitor.history", d.Monitor.History)
	v.SetDefault("ssh.strict_host_key_checking", d.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.user", d.SSH.User)
	v.SetDefault("ssh.identity_file", d.SSH.IdentityFile)
	v.SetDefault("ssh.dial_timeout", d.SSH.DialTimeout.String())
}
