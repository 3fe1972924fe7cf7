package app

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/blackwell-systems/mons/internal/mods"
	"github.com/blackwell-systems/mons/internal/output"
	"github.com/spf13/cobra"
)

var (
	modsEnabled, modsDisabled bool
	modsValid, modsInvalid    bool
	modsDLL, modsNoDLL        bool
	modsDir, modsZip          bool
	modsDependency            string
	modsSearch                string
)

var modsCmd = &cobra.Command{
	Use:   "mods",
	Short: "Inspect the mods of an install",
}

var modsListCmd = &cobra.Command{
	Use:     "list [NAME]",
	Aliases: []string{"ls"},
	Short:   "List installed mods",
	Long: `List the mods in the Mods folder of an install.

A mod is a directory or zip archive with an everest.yaml at its root. Mods
without a readable everest.yaml are listed as invalid under their file
name. Use --verbose to print the full manifest of each mod.

NAME defaults to $MONS_DEFAULT_INSTALL (see 'mons use').`,
	Example: `  mons mods list main
  mons mods list main --disabled
  mons mods list main --dependency MaxHelpingHand -v`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModsList,
}

func init() {
	f := modsListCmd.Flags()
	f.BoolVar(&modsEnabled, "enabled", false, "only enabled mods")
	f.BoolVar(&modsDisabled, "disabled", false, "only mods disabled in blacklist.txt")
	f.BoolVar(&modsValid, "valid", false, "only mods with a valid everest.yaml")
	f.BoolVar(&modsInvalid, "invalid", false, "only mods without a valid everest.yaml")
	f.BoolVar(&modsDLL, "dll", false, "only mods that register a DLL")
	f.BoolVar(&modsNoDLL, "no-dll", false, "only mods without a DLL")
	f.BoolVar(&modsDir, "dir", false, "only mods installed as directories")
	f.BoolVar(&modsZip, "zip", false, "only mods installed as zip archives")
	f.StringVarP(&modsDependency, "dependency", "d", "", "only mods depending on `MODID`")
	f.StringVarP(&modsSearch, "search", "s", "", "only mods whose name or file matches the regex `QUERY`")

	modsListCmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	modsListCmd.MarkFlagsMutuallyExclusive("valid", "invalid")
	modsListCmd.MarkFlagsMutuallyExclusive("dll", "no-dll")
	modsListCmd.MarkFlagsMutuallyExclusive("dir", "zip")

	modsCmd.AddCommand(modsListCmd)
	RootCmd.AddCommand(modsCmd)
}

// pairFlag turns a --x/--no-x pair into an optional condition.
func pairFlag(yes, no bool) *bool {
	switch {
	case yes:
		return &yes
	case no:
		v := false
		return &v
	}
	return nil
}

// modsFilter builds the filter for the list flags.
func modsFilter() (mods.Filter, error) {
	if modsInvalid {
		if modsDLL {
			return mods.Filter{}, errors.New("--dll cannot be used with --invalid")
		}
		if modsDependency != "" {
			return mods.Filter{}, errors.New("--dependency cannot be used with --invalid")
		}
	}

	filter := mods.Filter{
		Enabled:    pairFlag(modsEnabled, modsDisabled),
		Valid:      pairFlag(modsValid, modsInvalid),
		DLL:        pairFlag(modsDLL, modsNoDLL),
		Dir:        pairFlag(modsDir, modsZip),
		Dependency: modsDependency,
	}
	if modsSearch != "" {
		re, err := regexp.Compile("(?i)" + modsSearch)
		if err != nil {
			return mods.Filter{}, fmt.Errorf("invalid search pattern: %w", err)
		}
		filter.Search = re
	}
	return filter, nil
}

func runModsList(cmd *cobra.Command, args []string) (err error) {
	filter, err := modsFilter()
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	name, _, err := installArg(s, args)
	if err != nil {
		return err
	}
	inst, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	dir := mods.Dir(inst.Dir())
	s.logger.Debug("reading mods", "dir", dir)
	all, err := mods.List(dir)
	if err != nil {
		return err
	}
	list := filter.Apply(all)

	out := cmd.OutOrStdout()
	if !verbose {
		rows := make([]output.ModRow, 0, len(list))
		for _, m := range list {
			rows = append(rows, output.ModRow{
				Name:     m.Name,
				Version:  m.Version,
				File:     m.File(),
				Disabled: m.Blacklisted,
				Invalid:  !m.Valid,
			})
		}
		fmt.Fprint(out, output.RenderModTable(rows))
		return nil
	}

	for i, m := range list {
		if i > 0 {
			fmt.Fprintln(out)
		}
		details, err := m.Details()
		if err != nil {
			return err
		}
		fmt.Fprint(out, details)
	}
	return nil
}
