package app

import (
	"slices"

	"github.com/blackwell-systems/mons/internal/launcher"
	"github.com/spf13/cobra"
)

// consoleArg makes Everest open its log console; mons also keeps the game
// attached when it is present.
const consoleArg = "--console"

var launchConsole bool

var launchCmd = &cobra.Command{
	Use:   "launch [NAME] [ARGS...]",
	Short: "Start the game of an install",
	Long: `Start the game of an install. Everything after NAME is passed to the
game unchanged, flags included.

By default the game is detached. With --console, given before or after
NAME, the flag is passed to the game, its output stays in the terminal and
mons waits for it to exit.

NAME defaults to $MONS_DEFAULT_INSTALL (see 'mons use').`,
	Example: `  mons launch main
  mons launch main --console --loglevel verbose`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().BoolVar(&launchConsole, "console", false, "keep the game attached to the terminal and wait for it")
	// Flags after NAME belong to the game
	launchCmd.Flags().SetInterspersed(false)

	RootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	name, rest, err := installArg(s, args)
	if err != nil {
		return err
	}
	inst, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	gameArgs, console := launchArgs(rest, launchConsole)

	runner := launcher.NewRunner(s.logger)
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()
	return runner.Launch(cmd.Context(), inst.Path, gameArgs, console)
}

// launchArgs returns the arguments for the game and whether it should stay
// attached. The console flag is forwarded to the game.
func launchArgs(args []string, console bool) ([]string, bool) {
	out := slices.Clone(args)
	if slices.Contains(out, consoleArg) {
		return out, true
	}
	if console {
		out = append(out, consoleArg)
	}
	return out, console
}
