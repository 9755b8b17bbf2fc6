package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/dview/internal/config"
	"github.com/oakwood-commons/dview/internal/formatter"
	"github.com/oakwood-commons/dview/pkg/source"
)

func newQueryCmd(a *app) *cobra.Command {
	var crit criteriaFlags
	src := newSourceFlags()
	cmd := &cobra.Command{
		Use:   "query [file|-]",
		Short: "Query records from a file or stdin",
		Long: `Load records from a JSON, NDJSON, YAML, TOML or CSV file (or stdin) and print
one page of them after search, filters, where-clause and sort.

Filter tokens take the form key<op>value:
  status=Active     field equals value (case-insensitive)
  status!=Inactive  field does not equal value
  name:router       field contains value
  name!:test        field does not contain value`,
		Example: `  dview query devices.json --filter status=Active --filter name:router
  dview query devices.csv --or -f status=Inactive -f ports=48 --sort ports:desc
  cat devices.ndjson | dview query --where '_.ports > 8' -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := crit.selectedView(a.cfg)
			if err != nil {
				return err
			}
			s, label, err := a.resolveSource(cmd, args, &src, v)
			if err != nil {
				return err
			}
			return a.runQuery(cmd, &crit, v, s, label)
		},
	}
	crit.register(cmd.Flags())
	src.registerInput(cmd.Flags())
	return cmd
}

// runQuery loads the records once, applies the criteria and prints the
// page.
func (a *app) runQuery(cmd *cobra.Command, crit *criteriaFlags, v config.View, s source.Source, label string) error {
	ctrl, err := a.controller(cmd, crit, v)
	if err != nil {
		return err
	}
	run := runSettings(cmd)
	format, err := formatter.ParseFormat(run.Output)
	if err != nil {
		return err
	}

	recs, err := a.loadOnce(cmd.Context(), s)
	if err != nil {
		return fmt.Errorf("load %s: %w", label, err)
	}
	res, err := ctrl.Query(recs)
	if err != nil {
		return err
	}
	commandLogger(cmd).V(1).Info("query complete", "source", label, "records", len(recs), "matched", res.TotalCount, "page", res.PageIndex)

	return formatter.Write(cmd.OutOrStdout(), res, formatter.Options{
		Format: format,
		Table: formatter.TableOptions{
			NoColor:    run.NoColor,
			Width:      run.Width,
			Columns:    crit.columnsFor(v),
			HideFooter: run.IsQuiet,
		},
	})
}
