package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var crit criteriaFlags
	src := newSourceFlags()
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch records from an HTTP API and query them",
		Example: `  dview fetch --url https://example.com/api/devices --records-path data.items
  dview fetch --directory --seed demo --search smith
  dview fetch --weather Berlin --days 14 --sort max:desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := crit.selectedView(a.cfg)
			if err != nil {
				return err
			}
			if !src.remoteChosen() && v.Source == "" {
				return fmt.Errorf("choose one of --url, --directory, --weather or --view")
			}
			s, label, err := a.resolveSource(cmd, args, &src, v)
			if err != nil {
				return err
			}
			return a.runQuery(cmd, &crit, v, s, label)
		},
	}
	crit.register(cmd.Flags())
	src.registerRemote(cmd.Flags())
	cmd.Flags().StringVar(&src.recordsPath, "records-path", "", "dotted path to the record list in the --url response")
	cmd.MarkFlagsMutuallyExclusive("url", "directory", "weather")
	return cmd
}
