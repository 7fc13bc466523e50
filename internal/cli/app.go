package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/batch"
	"github.com/ElPandos/interface-check-sub005/internal/config"
	"github.com/ElPandos/interface-check-sub005/internal/diag"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/pool"
	"github.com/ElPandos/interface-check-sub005/internal/session"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
)

// newDialer opens transports for the pool. Tests swap in a mock.
var newDialer = func(cfg *config.Config) session.Dialer {
	return session.SSHDialer(cfg.SSH.DialTimeout)
}

// interactive reports whether prompts and the TUI may be used.
var interactive = func() bool {
	return ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)
}

// app is the wiring shared by every command that talks to hosts.
type app struct {
	cfg  *config.Config
	pool *pool.Pool
	svc  *diag.Service
	log  logger.Logger
}

func newApp(cfg *config.Config, log logger.Logger) *app {
	log = logger.OrNoop(log)
	// ssh_config warnings must not leak onto the dashboard.
	sshutil.WarningHandler = func(msg string) { log.Warn("%s", msg) }
	p := pool.New(newDialer(cfg), poolConfig(cfg), log)
	b := batch.New(cfg.Pool.ExecTimeout, batch.WithLogger(log))
	return &app{
		cfg:  cfg,
		pool: p,
		svc:  diag.NewService(p, b, log, serviceOptions(cfg)...),
		log:  log,
	}
}

// close shuts the pool down within the configured grace. A forced
// shutdown is only logged.
func (a *app) close() {
	if err := a.pool.Shutdown(a.cfg.Pool.ShutdownGrace); err != nil {
		a.log.Warn("pool shutdown: %v", err)
	}
}

// loadConfig finds, loads and validates the config. Without a file the
// defaults are used and hosts must be named on the command line.
func loadConfig() (*config.Config, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if path != "" {
		logger.Default().Debug("using config %s", path)
	}
	return cfg, nil
}

func credentials(cfg *config.Config) sshutil.Credentials {
	return sshutil.Credentials{
		User:             cfg.SSH.User,
		IdentityFile:     cfg.SSH.IdentityFile,
		SkipHostKeyCheck: !cfg.SSH.StrictHostKeyChecking,
	}
}

// poolConfig maps the config file onto pool limits. Configured hosts are
// pool keys by name; anything else is dialed as given.
func poolConfig(cfg *config.Config) pool.Config {
	creds := credentials(cfg)
	targets := make(map[string]pool.Target, len(cfg.Hosts))
	for name, h := range cfg.Hosts {
		targets[name] = pool.Target{
			Host:        h.SSH,
			HopChain:    h.Jump,
			Credentials: creds,
		}
	}

	return pool.Config{
		MaxSize:        cfg.Pool.MaxSize,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
		ShutdownGrace:  cfg.Pool.ShutdownGrace,
		MaxIdle:        cfg.Pool.MaxIdle,
		IdleTimeout:    cfg.Pool.IdleTimeout,
		ExecTimeout:    cfg.Pool.ExecTimeout,
		DoubleRelease:  releasePolicy(cfg.Pool.DoubleRelease),
		Targets:        targets,
		Credentials:    creds,
	}
}

func releasePolicy(s string) pool.ReleasePolicy {
	switch strings.ToLower(s) {
	case "strict":
		return pool.ReleaseStrict
	case "lenient":
		return pool.ReleaseLenient
	default:
		return pool.ReleaseDefault
	}
}

func serviceOptions(cfg *config.Config) []diag.Option {
	opts := []diag.Option{diag.WithHostTimeout(cfg.Collector.FetchTimeout)}
	for _, name := range cfg.HostNames() {
		if ifaces := cfg.Hosts[name].Interfaces; len(ifaces) > 0 {
			opts = append(opts, diag.WithInterfaces(name, ifaces))
		}
	}
	return opts
}

// selectHosts resolves the hosts a command works on: the named ones, the
// ones carrying tag, or every configured host.
func selectHosts(cfg *config.Config, args []string, tag string) ([]string, error) {
	if tag != "" && len(args) > 0 {
		return nil, errors.New(errors.ErrConfig,
			"Host names and --tag can't be combined",
			"Name the hosts, or select them with --tag, but not both.")
	}

	if tag != "" {
		hosts := cfg.HostsWithTag(tag)
		if len(hosts) == 0 {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("No hosts are tagged '%s'", tag),
				"Check the tags in your config with 'ifcheck hosts'.")
		}
		return hosts, nil
	}

	if len(args) > 0 {
		seen := make(map[string]bool, len(args))
		hosts := make([]string, 0, len(args))
		for _, h := range args {
			if h = strings.TrimSpace(h); h != "" && !seen[h] {
				seen[h] = true
				hosts = append(hosts, h)
			}
		}
		return hosts, nil
	}

	hosts := cfg.HostNames()
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No hosts configured",
			"Name a host on the command line, or add one with 'ifcheck hosts add <name> <ssh>'.")
	}
	return hosts, nil
}

// chooseHosts is selectHosts, but asks which configured hosts to use when
// none were named and a terminal is attached.
func chooseHosts(cfg *config.Config, args []string, tag, title string) ([]string, error) {
	if len(args) > 0 || tag != "" || len(cfg.Hosts) < 2 || !interactive() {
		return selectHosts(cfg, args, tag)
	}

	hosts, err := ui.PickHosts(title, hostInfos(cfg))
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No hosts selected",
			"Pick at least one host, or name them on the command line.")
	}
	return hosts, nil
}

func hostInfos(cfg *config.Config) []ui.HostInfo {
	names := cfg.HostNames()
	infos := make([]ui.HostInfo, len(names))
	for i, name := range names {
		h := cfg.Hosts[name]
		infos[i] = ui.HostInfo{Name: name, SSH: h.SSH, Jump: h.Jump, Tags: h.Tags}
	}
	return infos
}
