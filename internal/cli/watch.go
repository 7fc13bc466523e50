package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/collector"
	"github.com/ElPandos/interface-check-sub005/internal/config"
	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/monitor"
	"github.com/ElPandos/interface-check-sub005/internal/worker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// debugLogFile receives log output while the dashboard owns the screen.
const debugLogFile = "ifcheck-debug.log"

// minWatchInterval keeps the sampling rate from hammering hosts.
const minWatchInterval = 500 * time.Millisecond

// watchOptions holds the flags of the watch command.
type watchOptions struct {
	Tag      string
	Interval string
	Plain    bool
}

var watchFlags watchOptions

// watchCmd starts the live link dashboard
var watchCmd = &cobra.Command{
	Use:   "watch [hosts...]",
	Short: "Live link dashboard for remote hosts",
	Long: `Sample every host in the background and show link state, rates and
error counters as they change. Sampling never blocks the screen: a slow
or unreachable host only goes stale.

When stdout is not a terminal (or with --plain) one line per interface is
printed for every new sample instead.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Sample every host now
  up/k        Select previous host
  down/j      Select next host
  ?           Show help

Examples:
  ifcheck watch
  ifcheck watch core-sw1 core-sw2 --interval 5s
  ifcheck watch --tag core --plain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd.Context(), cmd.OutOrStdout(), args, watchFlags)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.Tag, "tag", "", "select configured hosts by tag")
	watchCmd.Flags().StringVar(&watchFlags.Interval, "interval", "", "sampling interval (default from config, e.g. 2s)")
	watchCmd.Flags().BoolVar(&watchFlags.Plain, "plain", false, "print lines instead of the dashboard")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(ctx context.Context, out io.Writer, args []string, opts watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyInterval(cfg, opts.Interval); err != nil {
		return err
	}
	hosts, err := chooseHosts(cfg, args, opts.Tag, "Which hosts should be watched?")
	if err != nil {
		return err
	}

	tui := !opts.Plain && interactive()

	log := logger.Default()
	if tui {
		// The dashboard owns the terminal; logs go to a file or nowhere.
		log = logger.Noop()
		if verbose {
			f, err := tea.LogToFile(debugLogFile, "")
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Can't open "+debugLogFile, "Run from a writable directory or drop --verbose.")
			}
			defer f.Close()
			log = logger.NewEnvLogger("[watch]")
		}
	}

	a := newApp(cfg, log)
	w := monitor.NewWatcher(a.svc, a.pool, hosts, watchConfig(cfg), log)
	if err := w.Start(); err != nil {
		_ = w.Close()
		return err
	}

	if tui {
		model := monitor.NewModel(w.Feeds(), monitor.Options{
			Refresh: cfg.Monitor.Refresh,
			History: cfg.Monitor.History,
		})
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	} else {
		err = monitor.RunPlain(ctx, out, w.Feeds(), cfg.Monitor.Refresh)
	}

	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

func applyInterval(cfg *config.Config, flag string) error {
	interval, err := ParseDurationFlag("interval", flag)
	if err != nil || interval == 0 {
		return err
	}
	if interval < minWatchInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", interval),
			fmt.Sprintf("Use at least %s to avoid overwhelming hosts.", minWatchInterval))
	}
	cfg.Collector.Interval = interval
	return nil
}

func watchConfig(cfg *config.Config) monitor.WatchConfig {
	return monitor.WatchConfig{
		Collector: collector.Config{
			Interval:     cfg.Collector.Interval,
			FetchTimeout: cfg.Collector.FetchTimeout,
			StopTimeout:  cfg.Worker.StopTimeout,
			Tracker:      worker.NewTracker(),
		},
		StopTimeout:   cfg.Worker.StopTimeout,
		ShutdownGrace: cfg.Pool.ShutdownGrace,
		QueueCapacity: cfg.Worker.QueueCapacity,
	}
}
