package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/oakwood-commons/dview/pkg/view"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a user-supplied output name. "" means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output %q (use table|json|yaml|csv)", s)
	}
}

// Options configures Write.
type Options struct {
	Format Format
	Table  TableOptions
}

// Write renders res to w. JSON and YAML emit the whole result including
// paging metadata; CSV emits only the page's rows under a header.
func Write(w io.Writer, res view.ViewResult, opts Options) error {
	switch opts.Format {
	case FormatTable, "":
		_, err := io.WriteString(w, RenderTable(res, opts.Table))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document(res))
	case FormatYAML:
		out, err := RenderYAML(document(res), YAMLFormatOptions{LiteralBlockStrings: true})
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatCSV:
		return writeCSV(w, res.Page, Columns(res.Page, opts.Table.Columns))
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

// document is ViewResult with a non-nil page so empty results encode as
// [] rather than null.
func document(res view.ViewResult) view.ViewResult {
	if res.Page == nil {
		res.Page = []view.Record{}
	}
	return res
}

func writeCSV(w io.Writer, records []view.Record, cols []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, row := range Rows(records, cols) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
