package formatter

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/dview/pkg/view"
)

const (
	sepWidth    = 2
	minColWidth = 3
	maxColWidth = 40
)

// TableOptions configures RenderTable.
type TableOptions struct {
	NoColor bool
	// Width is the total available width. Zero uses the terminal width.
	Width int
	// Columns selects and orders the columns. Empty means every field seen
	// on the page, sorted by name.
	Columns []string
	// HideRowNumbers drops the leading "#" column.
	HideRowNumbers bool
	// HideFooter drops the page position line.
	HideFooter bool
}

// Columns returns preferred if non-empty, otherwise the union of field
// names across records in ascending order.
func Columns(records []view.Record, preferred []string) []string {
	if len(preferred) > 0 {
		return slices.Clone(preferred)
	}
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}

// Rows converts records into display cells for cols.
func Rows(records []view.Record, cols []string) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = Cell(r[c])
		}
		rows[i] = row
	}
	return rows
}

// RenderTable renders the page of res as an aligned table. Row numbers are
// positions in the whole result, not the page, so page 2 of size 10 starts
// at 11. Numeric columns are right aligned.
func RenderTable(res view.ViewResult, opts TableOptions) string {
	var b strings.Builder
	cols := Columns(res.Page, opts.Columns)
	if len(res.Page) == 0 || len(cols) == 0 {
		b.WriteString("no matching records\n")
	} else {
		renderRows(&b, res, cols, opts)
	}
	if !opts.HideFooter {
		footer := Footer(res)
		if !opts.NoColor {
			footer = separatorStyle.Render(footer)
		}
		b.WriteString(footer + "\n")
	}
	return b.String()
}

func renderRows(b *strings.Builder, res view.ViewResult, cols []string, opts TableOptions) {
	total := opts.Width
	if total <= 0 {
		total = TerminalWidth()
	}
	rows := Rows(res.Page, cols)
	rightAlign := numericColumns(res.Page, cols)

	first := (res.PageIndex-1)*res.PageSize + 1
	if first < 1 {
		first = 1
	}
	numWidth := 0
	if !opts.HideRowNumbers {
		numWidth = len(fmt.Sprint(first + len(rows) - 1))
		total -= numWidth + sepWidth
	}
	widths := ColumnWidths(cols, rows, total)

	sep := strings.Repeat(" ", sepWidth)
	style := func(s string, st func(...string) string) string {
		if opts.NoColor {
			return s
		}
		return st(s)
	}

	parts := make([]string, 0, len(cols)+1)
	if !opts.HideRowNumbers {
		parts = append(parts, style(padRight("#", numWidth), headerStyle.Render))
	}
	for i, c := range cols {
		parts = append(parts, style(padRight(c, widths[i]), headerStyle.Render))
	}
	b.WriteString(strings.Join(parts, sep) + "\n")

	lineWidth := -sepWidth
	for _, w := range widths {
		lineWidth += w + sepWidth
	}
	if !opts.HideRowNumbers {
		lineWidth += numWidth + sepWidth
	}
	b.WriteString(style(strings.Repeat("─", max(lineWidth, 0)), separatorStyle.Render) + "\n")

	for r, row := range rows {
		parts = parts[:0]
		if !opts.HideRowNumbers {
			parts = append(parts, style(padRight(fmt.Sprint(first+r), numWidth), keyStyle.Render))
		}
		for i, cell := range row {
			if rightAlign[i] {
				cell = padLeft(cell, widths[i])
			} else {
				cell = padRight(cell, widths[i])
			}
			parts = append(parts, style(cell, valueStyle.Render))
		}
		b.WriteString(strings.Join(parts, sep) + "\n")
	}
}

// ColumnWidths sizes each column to its widest cell, then shrinks to fit
// available: first capping at maxColWidth, then proportionally, never
// below minColWidth.
func ColumnWidths(cols []string, rows [][]string, available int) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	usable := available - (len(cols)-1)*sepWidth
	if usable <= 0 || sum(widths) <= usable {
		return widths
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColWidth)
	}
	if sum(widths) <= usable {
		return widths
	}
	capped := sum(widths)
	for i := range widths {
		widths[i] = max(widths[i]*usable/capped, minColWidth)
	}
	for sum(widths) > usable {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

// numericColumns marks columns whose non-empty values are all numbers.
func numericColumns(records []view.Record, cols []string) []bool {
	out := make([]bool, len(cols))
	for i, c := range cols {
		seen := false
		numeric := true
		for _, r := range records {
			v, ok := r[c]
			if !ok || v == nil {
				continue
			}
			seen = true
			if !isNumber(v) {
				numeric = false
				break
			}
		}
		out[i] = seen && numeric
	}
	return out
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() { //nolint:exhaustive // everything else is not a number
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
