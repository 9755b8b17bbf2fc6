// Package cmd implements the dview command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/dview/internal/config"
	"github.com/oakwood-commons/dview/pkg/logger"
	"github.com/oakwood-commons/dview/pkg/settings"
)

// app holds the flag targets and loaded config of one invocation.
// Subcommands read the resolved settings and logger from the command
// context, see runSettings and commandLogger.
type app struct {
	run   *settings.Run
	cfg   config.Config
	debug bool
}

// NewRootCmd builds the command tree. Each call returns independent flag
// state, so tests can execute several trees in one process.
func NewRootCmd() *cobra.Command {
	a := &app{run: settings.NewCliParams()}

	root := &cobra.Command{
		Use:   settings.CliBinaryName,
		Short: "Search, filter, sort and page tabular records",
		Long: `dview loads records from files, stdin or HTTP APIs and shows a page of them
after free-text search, structured filters, an optional CEL where-clause and
a stable sort.`,
		Example: `  dview query devices.json --filter status=Active --sort name
  cat devices.yaml | dview query --search router -o json
  dview fetch --weather Berlin --sort max:desc
  dview browse --view people`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.Version = settings.VersionInformation.BuildVersion

	pf := root.PersistentFlags()
	pf.StringVar(&a.run.ConfigFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/dview/config.yaml)")
	pf.StringVarP(&a.run.Output, "output", "o", settings.DefaultOutput, "output format: table|json|yaml|csv")
	pf.IntVar(&a.run.PageSize, "page-size", a.run.PageSize, "records per page")
	pf.IntVar(&a.run.Width, "width", 0, "table width in columns (default: terminal width)")
	pf.BoolVar(&a.run.NoColor, "no-color", false, "disable color output")
	pf.BoolVarP(&a.run.IsQuiet, "quiet", "q", false, "omit the page footer from table output")
	pf.BoolVar(&a.debug, "debug", false, "write debug logs to stderr")

	root.AddCommand(
		newQueryCmd(a),
		newFetchCmd(a),
		newBrowseCmd(a),
		newVersionCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup initializes logging and merges the config file under the flags.
func (a *app) setup(cmd *cobra.Command) error {
	if a.debug {
		a.run.MinLogLevel = -2
	}
	lgr := logger.Get(a.run.MinLogLevel)
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	cfg, err := config.Load(config.ResolvePath(a.run.ConfigFile))
	if err != nil {
		return err
	}
	a.cfg = cfg
	cfg.ApplyTo(a.run, func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	})
	if os.Getenv("NO_COLOR") != "" && !cmd.Flags().Changed("no-color") {
		a.run.NoColor = true
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, lgr)
	ctx = settings.IntoContext(ctx, a.run)
	cmd.SetContext(ctx)

	lgr.V(1).Info("settings resolved", "output", a.run.Output, "pageSize", a.run.PageSize, "config", a.run.ConfigFile)
	return nil
}

// runSettings returns the settings stored on the command context by setup.
func runSettings(cmd *cobra.Command) *settings.Run {
	ctx := cmd.Context()
	if ctx == nil {
		return settings.NewCliParams()
	}
	return settings.FromContextOrDefault(ctx)
}

// commandLogger returns the logger stored on the command context by setup.
func commandLogger(cmd *cobra.Command) logr.Logger {
	ctx := cmd.Context()
	if ctx == nil {
		return *logger.GetNoopLogger()
	}
	return *logger.FromContext(ctx)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		return fmt.Errorf("%s: %w", settings.CliBinaryName, err)
	}
	return nil
}
