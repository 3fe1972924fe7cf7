package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/mons/internal/install"
	"github.com/blackwell-systems/mons/internal/output"
	"github.com/spf13/cobra"
)

var (
	addBranch   string
	removeForce bool
)

var addCmd = &cobra.Command{
	Use:   "add NAME PATH",
	Short: "Register a Celeste install",
	Long: `Register a Celeste install under NAME.

PATH may be the game executable (Celeste.exe, or Celeste.dll outside
Windows), the directory containing it, or a macOS Celeste.app bundle.
The install follows the default branch from config.yaml unless --branch
is given.`,
	Example: `  mons add main ~/.steam/steam/steamapps/common/Celeste
  mons add dev ~/Games/CelesteDev --branch dev`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename an install",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var setPathCmd = &cobra.Command{
	Use:   "set-path NAME PATH",
	Short: "Point an install at a different game directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetPath,
}

var setBranchCmd = &cobra.Command{
	Use:   "set-branch NAME BRANCH",
	Short: "Set the preferred Everest branch of an install",
	Long: `Set the branch 'mons install NAME' picks builds from when no version
is given, e.g. stable, beta or dev.`,
	Args: cobra.ExactArgs(2),
	RunE: runSetBranch,
}

var removeCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Forget an install",
	Long: `Remove an install and its cached classification. The game files are
not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered installs",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	addCmd.Flags().StringVar(&addBranch, "branch", "", "preferred branch (default: default_branch from config)")
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "skip confirmation prompt")

	RootCmd.AddCommand(addCmd, renameCmd, setPathCmd, setBranchCmd, removeCmd, listCmd)
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	name, path := args[0], args[1]

	exe, err := install.FindExecutable(path)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	branch := addBranch
	if branch == "" {
		branch = s.cfg.DefaultBranch
	}

	inst, err := s.registry.Add(name, exe, branch)
	if err != nil {
		return err
	}

	output.Success(cmd.OutOrStdout(), "Added %s (%s)", inst.Name, inst.Path)
	return nil
}

func runRename(cmd *cobra.Command, args []string) (err error) {
	oldName, newName := args[0], args[1]

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	if err := s.registry.Rename(oldName, newName); err != nil {
		return err
	}
	s.cache.Rename(oldName, newName)

	output.Success(cmd.OutOrStdout(), "Renamed %s to %s", oldName, newName)
	return nil
}

func runSetPath(cmd *cobra.Command, args []string) (err error) {
	name, path := args[0], args[1]

	exe, err := install.FindExecutable(path)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	if err := s.registry.SetPath(name, exe); err != nil {
		return err
	}

	output.Success(cmd.OutOrStdout(), "%s now points to %s", name, exe)
	return nil
}

func runSetBranch(cmd *cobra.Command, args []string) (err error) {
	name, branch := args[0], args[1]

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	if err := s.registry.SetBranch(name, branch); err != nil {
		return err
	}

	output.Success(cmd.OutOrStdout(), "%s now follows branch %s", name, branch)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) (err error) {
	name := args[0]

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	inst, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	if !removeForce && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Remove install %s (%s)?", inst.Name, inst.Path)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

	if err := s.registry.Remove(name); err != nil {
		return err
	}
	s.cache.Delete(name)

	output.Success(cmd.OutOrStdout(), "Removed %s", name)
	return nil
}

func runList(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	installs := s.registry.List()
	rows := make([]output.InstallRow, len(installs))
	for i, inst := range installs {
		rows[i] = output.InstallRow{
			Name:    inst.Name,
			Path:    inst.Path,
			Branch:  inst.PreferredBranch,
			AddedAt: inst.AddedAt,
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderInstallTable(rows))
	return nil
}

// confirm asks a yes/no question and reports whether the answer was yes.
// Anything else, including EOF, counts as no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		fmt.Fprintln(out)
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
