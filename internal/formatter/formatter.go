// Package formatter renders a page of a data view as a terminal table,
// JSON, YAML or CSV.
package formatter

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"reflect"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/oakwood-commons/dview/pkg/view"
)

var (
	defaultHeaderFG   = lipgloss.Color("12")
	defaultHeaderBG   = lipgloss.Color("236")
	defaultKeyColor   = lipgloss.Color("14")
	defaultValueColor = lipgloss.Color("248")
	defaultSeparator  = lipgloss.Color("240")

	headerStyle    lipgloss.Style
	keyStyle       lipgloss.Style
	valueStyle     lipgloss.Style
	separatorStyle lipgloss.Style
)

// TableColors controls the rendered colors for tables. Nil fields fall back
// to the ANSI 256 defaults.
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	KeyColor       color.Color
	ValueColor     color.Color
	SeparatorColor color.Color
}

func orDefault(c, def color.Color) color.Color {
	if c == nil {
		return def
	}
	return c
}

// SetTableTheme overrides the package table styles.
func SetTableTheme(tc TableColors) {
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(orDefault(tc.HeaderFG, defaultHeaderFG)).
		Background(orDefault(tc.HeaderBG, defaultHeaderBG))
	keyStyle = lipgloss.NewStyle().Foreground(orDefault(tc.KeyColor, defaultKeyColor))
	valueStyle = lipgloss.NewStyle().Foreground(orDefault(tc.ValueColor, defaultValueColor))
	separatorStyle = lipgloss.NewStyle().Foreground(orDefault(tc.SeparatorColor, defaultSeparator))
}

//nolint:gochecknoinits // initialize default table theme for package consumers
func init() {
	SetTableTheme(TableColors{})
}

// Cell returns the single-line display form of a field value. Scalars use
// the same conversion as search and filtering; maps and slices render as
// compact JSON. Newlines are escaped so rows stay on one line.
func Cell(v any) string {
	if v == nil {
		return ""
	}
	switch rv := reflect.ValueOf(v); rv.Kind() { //nolint:exhaustive // only composites need JSON
	case reflect.Map, reflect.Slice, reflect.Array:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	s, err := view.Stringify(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return escapeNewlines(s)
}

func escapeNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", `\n`)
}

// truncate cuts s to maxLen display cells, ending in "..." when there is
// room for it.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}

// padRight left-aligns s in width display cells.
func padRight(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

// padLeft right-aligns s in width display cells.
func padLeft(s string, width int) string {
	return runewidth.FillLeft(truncate(s, width), width)
}

// TerminalWidth returns the width of stdout, or 120 when it is not a
// terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}

// Footer describes the page position, e.g. "page 2 of 5 (42 records)".
func Footer(res view.ViewResult) string {
	noun := "records"
	if res.TotalCount == 1 {
		noun = "record"
	}
	return fmt.Sprintf("page %d of %d (%d %s)", res.PageIndex, res.TotalPages, res.TotalCount, noun)
}
