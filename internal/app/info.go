package app

import (
	"fmt"

	"github.com/blackwell-systems/mons/internal/classify"
	"github.com/blackwell-systems/mons/internal/install"
	"github.com/blackwell-systems/mons/internal/output"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [NAME...]",
	Short: "Show the game and Everest version of installs",
	Long: `Identify the Celeste version and Everest build of the named installs,
or of every install when no name is given.

Results are cached by the content hash of the game executable and reused
until the executable changes. Use --verbose to show the hash.`,
	Example: `  mons info
  mons info main -v`,
	RunE: runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	var installs []install.Install
	if len(args) == 0 {
		installs = s.registry.List()
		if len(installs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No installs found. Add one with 'mons add NAME PATH'.")
			return nil
		}
	} else {
		for _, name := range args {
			inst, err := s.registry.Get(name)
			if err != nil {
				return err
			}
			installs = append(installs, inst)
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, inst := range installs {
		if i > 0 {
			fmt.Fprintln(out)
		}

		rec, err := s.classifier.Classify(cmd.Context(), inst)
		if err != nil {
			output.Failure(out, "%s: %v", inst.Name, err)
			failed++
			continue
		}
		fmt.Fprint(out, output.RenderInfo(installInfo(inst, rec), verbose))
	}

	if failed > 0 {
		return fmt.Errorf("failed to identify %d of %d installs", failed, len(installs))
	}
	return nil
}

// installInfo combines an install and its classification for display.
func installInfo(inst install.Install, rec *classify.Record) output.Info {
	return output.Info{
		Name:        inst.Name,
		Path:        inst.Path,
		Branch:      inst.PreferredBranch,
		Version:     rec.VersionString(),
		Framework:   rec.FrameworkInstalled,
		Build:       rec.FrameworkBuild,
		Fingerprint: rec.Fingerprint,
		Classified:  rec.ClassifiedAt,
	}
}
