package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/lime-engine/lime/internal/errors"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		var le *errors.LimeError
		if stderrors.As(err, &le) {
			errors.PrintError(le)
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lime",
		Short: "Run Lime games",
		Long: `Lime runs Lua game scripts on a fixed frame loop.

Each frame it drains network events into script callbacks, sends the
packets scripts queued, renders the scene, and runs deferred callbacks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCmd(),
		checkCmd(),
		versionCmd(),
	)
	return root
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
