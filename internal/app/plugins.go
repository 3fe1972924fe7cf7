package app

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/mons/internal/config"
	"github.com/blackwell-systems/mons/internal/logging"
	"github.com/blackwell-systems/mons/internal/plugins"
	"github.com/spf13/cobra"
)

// registerPlugins adds a subcommand for each Lua plugin in the configured
// plugin directory. Plugins cannot shadow builtin commands.
func registerPlugins(root *cobra.Command) error {
	logger := logging.New(os.Stderr, false)

	cfgPath, err := getConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		return err
	}
	if !cfg.Plugins.Enabled {
		return nil
	}

	cfgDir, err := config.Dir()
	if err != nil {
		return err
	}

	loaded, err := plugins.Load(cfg.PluginDir(cfgDir), func(name string) bool {
		return isReserved(root, name)
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}

	for _, p := range loaded {
		root.AddCommand(pluginCommand(p))
	}
	return nil
}

// isReserved reports whether name is taken by a builtin command or alias.
func isReserved(root *cobra.Command, name string) bool {
	switch name {
	case "help", "completion":
		return true
	}
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

func pluginCommand(p *plugins.Plugin) *cobra.Command {
	short := p.Description
	if short == "" {
		short = "Plugin command from " + p.Path
	}

	return &cobra.Command{
		Use:                p.Prefix + " [ARGS...]",
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := p.Run(cmd.Context(), args, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
}
