// Package source provides record producers for the fetch state machine:
// static data, local files, JSON over HTTP and a few concrete public APIs.
package source

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/oakwood-commons/dview/pkg/fetch"
	"github.com/oakwood-commons/dview/pkg/loader"
	"github.com/oakwood-commons/dview/pkg/view"
)

// Source produces one snapshot of records.
type Source = fetch.Source[[]view.Record]

// Static always yields records. The slice is shared, not copied.
func Static(records []view.Record) Source {
	return func(ctx context.Context) ([]view.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return records, nil
	}
}

// File re-reads path on every call.
func File(path string, opts ...loader.Option) Source {
	return func(ctx context.Context) ([]view.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return loader.LoadFile(path, opts...)
	}
}

// Concat runs every source concurrently and joins their records in
// argument order. The first failure cancels the rest and is returned.
func Concat(sources ...Source) Source {
	return func(ctx context.Context) ([]view.Record, error) {
		results := make([][]view.Record, len(sources))
		g, gctx := errgroup.WithContext(ctx)
		for i, src := range sources {
			if src == nil {
				return nil, fmt.Errorf("source %d is nil", i)
			}
			g.Go(func() error {
				recs, err := src(gctx)
				if err != nil {
					return fmt.Errorf("source %d: %w", i, err)
				}
				results[i] = recs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		total := 0
		for _, r := range results {
			total += len(r)
		}
		out := make([]view.Record, 0, total)
		for _, r := range results {
			out = append(out, r...)
		}
		return out, nil
	}
}
