package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/dview/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the merged configuration",
		Long: `Print the built-in configuration merged with the user config file. Pass
--defaults to see only the built-in file, which is a good starting point for
$XDG_CONFIG_HOME/dview/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if defaults, _ := cmd.Flags().GetBool("defaults"); defaults {
				_, err := w.Write(config.DefaultYAML())
				return err
			}
			if runSettings(cmd).Output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(a.cfg)
			}
			out, err := config.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = w.Write(out)
			return err
		},
	}
	cmd.Flags().Bool("defaults", false, "print the built-in defaults file instead")

	cmd.AddCommand(&cobra.Command{
		Use:   "views",
		Short: "List named views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range a.cfg.ViewNames() {
				v := a.cfg.Views[name]
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, v.Source); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
