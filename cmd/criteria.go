package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/dview/internal/config"
	"github.com/oakwood-commons/dview/pkg/view"
)

// criteriaFlags are the query flags shared by query, fetch and browse.
type criteriaFlags struct {
	viewName     string
	search       string
	searchFields []string
	filters      []string
	or           bool
	where        string
	sort         string
	page         int
	columns      []string
}

func (f *criteriaFlags) register(fl *pflag.FlagSet) {
	fl.StringVar(&f.viewName, "view", "", "named view from the config file")
	fl.StringVar(&f.search, "search", "", "case-insensitive free-text search")
	fl.StringArrayVar(&f.searchFields, "search-field", nil, "limit search to this field (repeatable)")
	fl.StringArrayVarP(&f.filters, "filter", "f", nil, "structured filter key<op>value with op one of = != : !: (repeatable)")
	fl.BoolVar(&f.or, "or", false, "match any filter instead of all")
	fl.StringVar(&f.where, "where", "", "CEL predicate over the record '_', e.g. '_.ports > 8'")
	fl.StringVar(&f.sort, "sort", "", "sort by field[:asc|desc]")
	fl.IntVar(&f.page, "page", 1, "1-based page to show")
	fl.StringSliceVar(&f.columns, "columns", nil, "columns to show, in order")
}

// selectedView returns the named view, or an empty one.
func (f *criteriaFlags) selectedView(cfg config.Config) (config.View, error) {
	if f.viewName == "" {
		return config.View{}, nil
	}
	return cfg.View(f.viewName)
}

// controller builds a controller from the run settings, then the view,
// then the flags, each layer overriding the one before.
func (a *app) controller(cmd *cobra.Command, f *criteriaFlags, v config.View) (*view.Controller, error) {
	run := runSettings(cmd)
	opts := []view.Option{view.WithPageSize(run.PageSize), view.WithLogger(commandLogger(cmd))}
	viewOpts, err := v.Options()
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", f.viewName, err)
	}
	opts = append(opts, viewOpts...)
	if cmd.Flags().Changed("page-size") {
		opts = append(opts, view.WithPageSize(run.PageSize))
	}
	if len(f.searchFields) > 0 {
		opts = append(opts, view.WithSearchFields(f.searchFields...))
	}

	filter, spec, err := v.Criteria()
	if err != nil {
		return nil, err
	}
	for _, raw := range f.filters {
		tok, err := view.ParseFilterToken(raw)
		if err != nil {
			return nil, fmt.Errorf("--filter: %w", err)
		}
		filter.Tokens = append(filter.Tokens, tok)
	}
	if f.or {
		filter.Operation = view.OperationOr
	}
	opts = append(opts, view.WithFilterQuery(filter))

	if f.sort != "" {
		if spec, err = view.ParseSortSpec(f.sort); err != nil {
			return nil, fmt.Errorf("--sort: %w", err)
		}
	}
	opts = append(opts, view.WithSort(spec))

	ctrl := view.NewController(opts...)
	if f.where != "" {
		if err := ctrl.SetWhere(f.where); err != nil {
			return nil, fmt.Errorf("--where: %w", err)
		}
	}
	search := v.Search
	if f.search != "" {
		search = f.search
	}
	ctrl.SetSearchText(search)
	ctrl.SetPageIndex(f.page)
	return ctrl, nil
}

// columnsFor picks the displayed columns: flag, then view, then all fields.
func (f *criteriaFlags) columnsFor(v config.View) []string {
	if len(f.columns) > 0 {
		return f.columns
	}
	return v.Columns
}
