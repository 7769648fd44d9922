// Package cli implements the tablebench and tablebench-datagen commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/version"
)

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// errReported marks a failure that was already logged, so Execute prints nothing more.
var errReported = errors.New("failure already reported")

// execute runs cmd with args and maps its outcome to an exit status. Usage errors print
// the message and the command's usage to stderr.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return berrors.NewUsageError(err.Error())
	})
	cmd.Version = version.Version
	cmd.SetVersionTemplate(version.Info().String())

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var be *berrors.BenchError
	switch {
	case errors.Is(err, errReported):
	case errors.As(err, &be) && be.Kind == berrors.KindUsage:
		fmt.Fprintf(stderr, "Error: %s\n\n%s", be.Message, cmd.UsageString())
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitFailure
}

// minArgs reports too few positional arguments as a usage error.
func minArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return berrors.NewUsageError(fmt.Sprintf("expected %s, got %d argument(s)", what, len(args)))
		}
		return nil
	}
}

// exactArgs is minArgs for an exact count.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return berrors.NewUsageError(fmt.Sprintf("expected %s, got %d argument(s)", what, len(args)))
		}
		return nil
	}
}

func newLogger(w io.Writer, prefix string, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: true,
	})
}
