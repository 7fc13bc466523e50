package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
	"github.com/spf13/cobra"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// CommonFlags holds the host selection and output flags shared by diag and watch.
type CommonFlags struct {
	Tag    string
	Output string
}

// AddCommonFlags registers --tag and --output on a command.
func AddCommonFlags(cmd *cobra.Command, flags *CommonFlags) {
	cmd.Flags().StringVar(&flags.Tag, "tag", "", "select configured hosts by tag")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", OutputText, "output format: text, json or yaml")
}

// ParseOutputFormat normalizes an --output value.
func ParseOutputFormat(flag string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(flag)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputYAML:
		return f, nil
	default:
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a supported output format", flag),
			"Use --output text, --output json or --output yaml.")
	}
}

// ParseDurationFlag parses a duration flag. Empty means zero.
func ParseDurationFlag(name, flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid --%s", flag, name),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("--%s can't be negative", name),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}
