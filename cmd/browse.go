package cmd

import (
	"errors"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/dview/internal/ui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var crit criteriaFlags
	src := newSourceFlags()
	cmd := &cobra.Command{
		Use:   "browse [file|-]",
		Short: "Browse records interactively",
		Long: `Open an interactive table over records from a file, stdin, an HTTP API or a
named view. Keys: / search, f add filter, F clear filters, o toggle and/or,
w where-clause, s sort, n/p page, +/- page size, enter details, r reload,
q quit.`,
		Example: `  dview browse devices.yaml
  dview browse --view people
  dview fetch --weather Oslo -o json | dview browse -`,
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
			ctrl, err := a.controller(cmd, &crit, v)
			if err != nil {
				return err
			}

			progOpts, cleanup, err := programOptions()
			if err != nil {
				return err
			}
			defer cleanup()

			return ui.Run(cmd.Context(), ctrl, ui.Options{
				Title:   label,
				Source:  s,
				Columns: crit.columnsFor(v),
				NoColor: runSettings(cmd).NoColor,
				Logger:  commandLogger(cmd).WithName("browser"),
			}, progOpts...)
		},
	}
	crit.register(cmd.Flags())
	src.registerInput(cmd.Flags())
	src.registerRemote(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("url", "directory", "weather")
	return cmd
}

var errNoTerminal = errors.New("browse needs an interactive terminal")

// programOptions attaches the program to the controlling terminal when
// stdin carries data instead of keystrokes.
func programOptions() ([]tea.ProgramOption, func(), error) {
	noop := func() {}
	if isTerminal(os.Stdin) {
		return nil, noop, nil
	}
	in, out, err := openTerminalIO(terminalDeviceNames(runtimeGOOS))
	if err != nil {
		return nil, noop, fmt.Errorf("%w: %w", errNoTerminal, err)
	}
	cleanup := func() {
		_ = in.Close()
		if out != in {
			_ = out.Close()
		}
	}
	return []tea.ProgramOption{tea.WithInput(in), tea.WithOutput(out)}, cleanup, nil
}
