package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/dview/internal/config"
	"github.com/oakwood-commons/dview/pkg/fetch"
	"github.com/oakwood-commons/dview/pkg/loader"
	"github.com/oakwood-commons/dview/pkg/logger"
	"github.com/oakwood-commons/dview/pkg/source"
	"github.com/oakwood-commons/dview/pkg/view"
)

var errNoInput = errors.New("no input: pass a file, pipe data on stdin, or choose a source")

// Source names accepted by config views.
const (
	sourceDirectory = "directory"
	sourceWeather   = "weather"
)

// sourceFlags select where records come from.
type sourceFlags struct {
	inputFormat string
	recordsPath string
	expand      bool

	url       string
	directory bool
	weather   string

	results int
	seed    string
	nat     string
	days    int
	retries int
}

func newSourceFlags() sourceFlags {
	return sourceFlags{results: 25, days: 7, retries: source.DefaultRetryMax}
}

func (f *sourceFlags) registerInput(fl *pflag.FlagSet) {
	fl.StringVar(&f.inputFormat, "input-format", "", "input format: json|ndjson|yaml|toml|csv (default: detect)")
	fl.StringVar(&f.recordsPath, "records-path", "", "dotted path to the record list, e.g. data.items")
	fl.BoolVar(&f.expand, "expand", false, "decode string fields holding JSON or a JWT")
}

func (f *sourceFlags) registerRemote(fl *pflag.FlagSet) {
	fl.StringVar(&f.url, "url", "", "fetch a JSON document over HTTP")
	fl.BoolVar(&f.directory, "directory", false, "fetch people from the random-user directory API")
	fl.StringVar(&f.weather, "weather", "", "fetch the daily forecast for a city")
	fl.IntVar(&f.results, "results", f.results, "number of people requested with --directory")
	fl.StringVar(&f.seed, "seed", "", "seed for repeatable --directory results")
	fl.StringVar(&f.nat, "nat", "", "nationalities for --directory, e.g. us,gb")
	fl.IntVar(&f.days, "days", f.days, "forecast length with --weather")
	fl.IntVar(&f.retries, "retries", f.retries, "HTTP retries for remote sources")
}

func (f *sourceFlags) remoteChosen() bool {
	return f.url != "" || f.directory || f.weather != ""
}

func (f *sourceFlags) loaderOptions() ([]loader.Option, error) {
	format, err := loader.ParseFormat(f.inputFormat)
	if err != nil {
		return nil, err
	}
	var opts []loader.Option
	if format != loader.FormatAuto {
		opts = append(opts, loader.WithFormat(format))
	}
	if f.recordsPath != "" {
		opts = append(opts, loader.WithRecordsPath(f.recordsPath))
	}
	if f.expand {
		opts = append(opts, loader.WithExpandEmbedded())
	}
	return opts, nil
}

func (a *app) client(cmd *cobra.Command, f *sourceFlags) *source.Client {
	return source.NewClient(
		source.WithRetryMax(f.retries),
		source.WithClientLogger(commandLogger(cmd).WithName("http")),
	)
}

// resolveSource picks the record source: a file argument ("-" is stdin),
// then a remote flag, then the view's source, then piped stdin.
func (a *app) resolveSource(cmd *cobra.Command, args []string, f *sourceFlags, v config.View) (source.Source, string, error) {
	opts, err := f.loaderOptions()
	if err != nil {
		return nil, "", err
	}
	if len(args) > 0 && args[0] != "-" {
		return source.File(args[0], opts...), args[0], nil
	}
	if len(args) > 0 {
		return a.stdinSource(cmd, opts)
	}

	switch {
	case f.url != "":
		return source.HTTPJSON(a.client(cmd, f), f.url, source.HTTPOptions{RecordsPath: f.recordsPath}), f.url, nil
	case f.directory:
		return a.directorySource(cmd, f), sourceDirectory, nil
	case f.weather != "":
		return a.weatherSource(cmd, f, f.weather), sourceWeather + " " + f.weather, nil
	}

	switch src := strings.TrimSpace(v.Source); {
	case src == sourceDirectory:
		return a.directorySource(cmd, f), sourceDirectory, nil
	case src == sourceWeather:
		if v.City == "" {
			return nil, "", errors.New("the weather source needs a city: set city in the view or pass --weather CITY")
		}
		return a.weatherSource(cmd, f, v.City), sourceWeather + " " + v.City, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return source.HTTPJSON(a.client(cmd, f), src, source.HTTPOptions{RecordsPath: v.RecordsPath}), src, nil
	case src != "":
		if v.RecordsPath != "" && f.recordsPath == "" {
			opts = append(opts, loader.WithRecordsPath(v.RecordsPath))
		}
		return source.File(src, opts...), src, nil
	}

	if stdinPiped(cmd) {
		return a.stdinSource(cmd, opts)
	}
	return nil, "", errNoInput
}

func (a *app) directorySource(cmd *cobra.Command, f *sourceFlags) source.Source {
	return source.Directory(a.client(cmd, f), source.DirectoryOptions{
		Results:       f.results,
		Seed:          f.seed,
		Nationalities: f.nat,
	})
}

func (a *app) weatherSource(cmd *cobra.Command, f *sourceFlags, city string) source.Source {
	return source.Weather(a.client(cmd, f), source.WeatherOptions{City: city, Days: f.days})
}

// stdinSource reads stdin once, up front, since it cannot be re-read on
// refresh.
func (a *app) stdinSource(cmd *cobra.Command, opts []loader.Option) (source.Source, string, error) {
	recs, err := loader.LoadReader(cmd.InOrStdin(), opts...)
	if err != nil {
		return nil, "", fmt.Errorf("stdin: %w", err)
	}
	commandLogger(cmd).V(1).Info("loaded records from stdin", "count", len(recs))
	return source.Static(recs), "stdin", nil
}

// stdinPiped reports whether input is waiting on stdin: a pipe or file
// rather than a terminal or /dev/null. A reader set with SetIn always
// counts.
func stdinPiped(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

// loadOnce runs src through a fetch machine and waits for the result.
func (a *app) loadOnce(ctx context.Context, src source.Source) ([]view.Record, error) {
	m := fetch.New[[]view.Record](fetch.WithLogger[[]view.Record](*logger.FromContext(ctx)))
	st := m.FetchSync(ctx, src)
	switch st.Kind {
	case fetch.KindSuccess:
		return st.Data, nil
	case fetch.KindError:
		return nil, errors.New(st.Message)
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("fetch ended in state %s", st.Kind)
	}
}
