package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/ElPandos/interface-check-sub005/internal/util"
	"github.com/ElPandos/interface-check-sub005/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ifcheck",
	Short: "Network interface diagnostics over pooled SSH sessions",
	Long: `ifcheck samples network interface counters from many remote hosts at once.

Sessions are pooled per host and reused, diagnostic commands are batched into
one round trip, and the watch dashboard keeps sampling in the background
without ever blocking the screen.

Examples:
  ifcheck diag core-sw1 core-sw2
  ifcheck diag --tag core --output json
  ifcheck watch
  ifcheck exec --host core-sw1 -- "ip -s link" ";;" "ethtool eth0"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: applyGlobalFlags,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .ifcheck.yaml, then ~/.config/ifcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command context so pools and collectors shut down.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	sshutil.CloseAgent()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func applyGlobalFlags(cmd *cobra.Command, args []string) error {
	if noColor || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}
	if verbose {
		if err := os.Setenv(logger.DebugEnv, "1"); err != nil {
			return err
		}
	}
	return nil
}

func printError(err error) {
	writeError(os.Stderr, err)
}

func writeError(w io.Writer, err error) {
	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(w, "✗ '%s' isn't an ifcheck command\n", name)
			if similar := util.SuggestSimilar(name, commandNames(), 2); len(similar) > 0 {
				fmt.Fprintf(w, "\n  Did you mean '%s'?\n", similar[0])
			}
			fmt.Fprintln(w, "\n  Run 'ifcheck --help' to see what's available.")
			return
		}
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "✗") {
		msg = "✗ " + msg
	}
	fmt.Fprintln(w, strings.TrimRight(msg, "\n"))
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
		}
	}
	return names
}

// isUnknownCommandError checks cobra's error text for an unknown command or flag.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the command name out of
// `unknown command "foo" for "ifcheck"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
