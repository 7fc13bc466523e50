package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/ElPandos/interface-check-sub005/internal/logger"
	"github.com/ElPandos/interface-check-sub005/internal/ui"
	"github.com/ElPandos/interface-check-sub005/internal/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// commandSeparator splits the argument list into separate commands.
const commandSeparator = ";;"

var execHostFlag string

// execCmd runs arbitrary commands on one host in a single round trip
var execCmd = &cobra.Command{
	Use:   "exec --host <host> -- <command> [;; <command>...]",
	Short: "Run commands on a host as one batch",
	Long: `Run one or more commands on a host over a pooled session. All commands
travel in a single round trip and each gets its own output and exit code.

Separate commands with ';;' (quoted so the local shell leaves it alone).

Examples:
  ifcheck exec --host core-sw1 -- uptime
  ifcheck exec --host core-sw1 -- "ip -s link show eth0" ";;" "ethtool -S eth0"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execCommand(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), execHostFlag, args)
	},
}

func init() {
	execCmd.Flags().StringVar(&execHostFlag, "host", "", "host to run on (configured name or ssh host)")
	_ = execCmd.MarkFlagRequired("host")
	rootCmd.AddCommand(execCmd)
}

func execCommand(ctx context.Context, out, errOut io.Writer, host string, args []string) error {
	cmds := splitCommands(args)
	if len(cmds) == 0 {
		return errors.New(errors.ErrConfig,
			"Nothing to run",
			"Pass at least one command after --.")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(cfg, logger.Default())
	defer a.close()

	results, err := a.svc.Exec(ctx, host, cmds)
	if len(results) == 0 && err != nil {
		return err
	}

	headStyle := lipgloss.NewStyle().Foreground(ui.ColorInfo).Bold(true)
	failStyle := lipgloss.NewStyle().Foreground(ui.ColorError)

	failed := 0
	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, headStyle.Render("$ "+r.Command))
		}
		fmt.Fprint(out, r.Stdout)
		fmt.Fprint(errOut, r.Stderr)

		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintln(errOut, failStyle.Render(fmt.Sprintf("%s no result: %s", ui.SymbolFail, firstLine(r.Err.Error()))))
		case r.ExitCode != 0:
			failed++
			fmt.Fprintln(errOut, failStyle.Render(fmt.Sprintf("%s exit %d", ui.SymbolFail, r.ExitCode)))
		}
	}

	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("%d of %d %s failed on %s", failed, len(results),
				util.Pluralize(len(results), "command", "commands"), host), "")
	}
	return nil
}

// splitCommands joins the words between separators into command strings.
func splitCommands(args []string) []string {
	var cmds []string
	var words []string
	flush := func() {
		if cmd := strings.TrimSpace(strings.Join(words, " ")); cmd != "" {
			cmds = append(cmds, cmd)
		}
		words = words[:0]
	}
	for _, arg := range args {
		if arg == commandSeparator {
			flush()
			continue
		}
		words = append(words, arg)
	}
	flush()
	return cmds
}

func firstLine(s string) string {
	s = strings.TrimPrefix(s, "✗ ")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
