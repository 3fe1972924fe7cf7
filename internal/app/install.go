package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/mons/internal/everest"
	"github.com/blackwell-systems/mons/internal/launcher"
	"github.com/blackwell-systems/mons/internal/output"
	"github.com/spf13/cobra"
)

var (
	installLatest bool
	installLaunch bool
)

var installCmd = &cobra.Command{
	Use:   "install [NAME] [VERSION]",
	Short: "Install or update Everest in an install",
	Long: `Download an Everest build, extract it into the install and run the
Everest installer.

VERSION selects the build:
  (none)           newest build on the install's preferred branch
  stable|beta|dev  newest build on that branch
  4465, 1.4465.0   a specific build
  refs/heads/dev   newest CI build of a git ref
  https://...      an artifact URL
  ./build.zip      a local artifact

The game must not be running while it is patched. NAME defaults to
$MONS_DEFAULT_INSTALL (see 'mons use').`,
	Example: `  mons install main
  mons install main 4465
  mons install main --latest --launch`,
	Args: cobra.MaximumNArgs(2),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installLatest, "latest", false, "use the newest build of any branch")
	installCmd.Flags().BoolVar(&installLaunch, "launch", false, "launch the game after a successful install")

	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	name, rest, err := installArg(s, args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return fmt.Errorf("unexpected argument %q", rest[1])
	}
	spec := ""
	if len(rest) == 1 {
		spec = rest[0]
	}

	inst, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	runner := launcher.NewRunner(s.logger)
	runner.Stdout = out
	runner.Stderr = errOut

	running, err := launcher.IsRunning(ctx, runner.Platform.ProcessDir(inst.Path))
	if err != nil {
		s.logger.Warn("could not check for a running game", "error", err)
	} else if running {
		return fmt.Errorf("the game is running from %s, close it before installing", inst.Dir())
	}

	client, err := s.everestClient(errOut)
	if err != nil {
		return err
	}
	cacheDir, err := getCacheDir()
	if err != nil {
		return err
	}

	spinner := output.NewSpinner("Resolving version")
	spinner.SetWriter(errOut)
	spinner.Start()
	src, err := client.Resolve(ctx, spec, inst.PreferredBranch, installLatest)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to resolve version %q: %w", spec, err)
	}

	output.Step(out, "Fetching %s", src)
	artifact, cleanup, err := client.Fetch(ctx, src, cacheDir)
	if err != nil {
		return err
	}
	defer cleanup()

	output.Step(out, "Extracting into %s", inst.Dir())
	n, err := everest.Extract(artifact, inst.Dir(), func(total int) everest.Progress {
		p := output.NewProgress(total, "Extracting files")
		p.SetWriter(errOut)
		return p
	})
	if err != nil {
		return err
	}
	output.Detail(out, "%d files", n)

	output.Step(out, "Running installer")
	spinner = output.NewSpinner("Patching").WithElapsed()
	spinner.SetWriter(errOut)
	if !verbose {
		spinner.Start()
	}
	err = runner.RunInstaller(ctx, inst.Dir(), verbose)
	spinner.Stop()
	if err != nil {
		var instErr *launcher.InstallerError
		if errors.As(err, &instErr) {
			output.Failure(out, "Installer failed with exit code %d", instErr.Code)
		}
		return err
	}

	rec, err := s.classifier.Classify(ctx, inst)
	if err != nil {
		return fmt.Errorf("installed, but failed to identify the result: %w", err)
	}
	output.Success(out, "%s: %s", inst.Name, rec.VersionString())

	if installLaunch {
		return runner.Launch(ctx, inst.Path, nil, false)
	}
	return nil
}
