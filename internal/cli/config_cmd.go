package cli

import (
	"fmt"

	"github.com/rileyhilliard/keyprov/internal/config"
	"github.com/spf13/cobra"
)

// configCmd groups the config inspection subcommands.
func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect keyprov settings",
		Long: `Inspect the settings keyprov would use.

Settings come from ~/.config/keyprov/config.yaml (or --config), then
KEYPROV_* environment variables, then command-line flags.`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Find(a.cfgFile)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "none (defaults apply; create ~/%s/%s to change them)\n",
					config.GlobalConfigDir, config.GlobalConfigFile)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Long: `Print the effective settings after the config file and KEYPROV_*
environment variables are applied. The password is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadOrDefault(a.cfgFile)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}
