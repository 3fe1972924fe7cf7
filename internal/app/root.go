package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configPath string
	verbose    bool

	// RootCmd is the root command for mons
	RootCmd = &cobra.Command{
		Use:   "mons",
		Short: "Manage Celeste installs and Everest versions",
		Long: `mons keeps track of Celeste installs and the version of the Everest
mod loader patched into each of them.

Installs are registered by name. 'mons info' identifies the game version
and the Everest build of an install from the game executable itself;
results are cached until the executable changes.

Quick Start:
  1. mons add main ~/.steam/steam/steamapps/common/Celeste
  2. mons info main
  3. mons install main
  4. mons launch main

Examples:
  # Install the newest build on the install's branch
  mons install main

  # Install a specific build, or the newest build of a branch
  mons install main 4465
  mons install main beta

  # List disabled mods
  mons mods list main --disabled

  # Re-identify installs whenever the game files change
  mons watch --daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/mons)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/mons/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs and extra detail")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// ExitError carries a process exit code that should be used without
// printing an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute registers plugin commands and runs the root command. The context
// is cancelled on interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := registerPlugins(RootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return RootCmd.ExecuteContext(ctx)
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return 1
	}
	return 0
}
