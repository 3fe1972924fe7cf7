package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// defaultInstallEnv names the install used when a command's NAME is omitted.
const defaultInstallEnv = "MONS_DEFAULT_INSTALL"

var useEval bool

var useCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Set the default install for mons commands",
	Long: `Set the default install for commands that take an install NAME.

mons cannot change the environment of the calling shell, so the default is
read from $MONS_DEFAULT_INSTALL. With --eval the matching export statement
is printed for the shell to evaluate. To unset, run
'export MONS_DEFAULT_INSTALL='.`,
	Example: `  eval "$(mons use main --eval)"`,
	Args: cobra.ExactArgs(1),
	RunE: runUse,
}

func init() {
	useCmd.Flags().BoolVarP(&useEval, "eval", "e", false, "print `export MONS_DEFAULT_INSTALL=NAME` to stdout")

	RootCmd.AddCommand(useCmd)
}

func runUse(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	inst, err := s.registry.Get(args[0])
	if err != nil {
		return err
	}

	if useEval {
		fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", defaultInstallEnv, inst.Name)
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), `mons can't set environment variables in the parent shell.
To do so, run the following:

  eval "$(mons use %s --eval)"
`, inst.Name)
	return nil
}

// installArg splits the install name off args. When args is empty, or its
// first element is not an install while a default is set, the default
// install from the environment is used and args are left whole.
func installArg(s *session, args []string) (string, []string, error) {
	def := os.Getenv(defaultInstallEnv)
	if len(args) > 0 {
		if _, err := s.registry.Get(args[0]); err == nil || def == "" {
			return args[0], args[1:], nil
		}
	}
	if def == "" {
		return "", nil, errors.New("no install given and $" + defaultInstallEnv + " is not set")
	}
	return def, args, nil
}
