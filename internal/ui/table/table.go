// Package table wraps the bubbles table to display a page of records.
package table

import (
	"fmt"
	"image/color"

	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/dview/internal/formatter"
	"github.com/oakwood-commons/dview/pkg/view"
)

type Column = bubtable.Column
type Row = bubtable.Row

// cellGap is the right padding applied to every cell.
const cellGap = 1

// Model displays records with one column per field.
type Model struct {
	table   bubtable.Model
	styles  bubtable.Styles
	records []view.Record
	fields  []string
	// preferred, when set, fixes the column set and order.
	preferred []string

	width   int
	height  int
	focused bool
	noColor bool

	headerFG   color.Color
	headerBG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// Size of a table that has not been given one with SetSize.
const (
	defaultWidth  = 80
	defaultHeight = 10
)

// New returns an empty, focused table. columns, when non-empty, fixes the
// displayed fields; otherwise every field on the page is shown.
func New(columns []string) *Model {
	t := bubtable.New(
		bubtable.WithFocused(true),
	)
	t.SetWidth(defaultWidth)
	t.SetHeight(defaultHeight)

	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellGap)
	s.Selected = s.Selected.
		PaddingLeft(0).
		PaddingRight(0)
	s.Cell = lipgloss.NewStyle().
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellGap)
	t.SetStyles(s)

	return &Model{
		table:     t,
		styles:    s,
		preferred: columns,
		width:     defaultWidth,
		height:    defaultHeight,
		focused:   true,
	}
}

// SetRecords replaces the displayed records and resizes the columns to fit.
// The cursor moves back to the first row.
func (m *Model) SetRecords(records []view.Record) {
	m.records = records
	m.layout()
	m.table.SetCursor(0)
}

func (m *Model) layout() {
	m.fields = formatter.Columns(m.records, m.preferred)
	cells := formatter.Rows(m.records, m.fields)
	available := m.width - len(m.fields)*cellGap
	widths := formatter.ColumnWidths(m.fields, cells, available+2*(len(m.fields)-1))

	cols := make([]Column, len(m.fields))
	for i, f := range m.fields {
		cols[i] = Column{Title: f, Width: widths[i]}
	}
	rows := make([]Row, len(cells))
	for i, c := range cells {
		rows[i] = Row(c)
	}
	// Columns must be set before rows so the row renderer sees matching
	// widths.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.applyColorScheme()
}

// Records returns the displayed records.
func (m *Model) Records() []view.Record {
	return m.records
}

// Fields returns the displayed column names.
func (m *Model) Fields() []string {
	return m.fields
}

func (m *Model) Cursor() int {
	return m.table.Cursor()
}

func (m *Model) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// Selected returns the record under the cursor.
func (m *Model) Selected() (view.Record, bool) {
	c := m.Cursor()
	if c < 0 || c >= len(m.records) {
		return nil, false
	}
	return m.records[c], true
}

// SetSize sets the table dimensions and refits the columns.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(height)
	m.table.SetWidth(width)
	m.layout()
}

func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

func (m *Model) Focused() bool {
	return m.focused
}

// SetNoColor enables/disables color output.
func (m *Model) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets custom theme colors. Nil leaves a color unchanged.
func (m *Model) SetColors(headerFG, headerBG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.headerBG = headerBG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model) applyColorScheme() {
	s := m.styles
	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.headerBG != nil {
			s.Header = s.Header.Background(m.headerBG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}
	m.table.SetStyles(s)
	m.styles = s
}

// Update forwards cursor movement keys to the table.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	return m.table.View()
}

// Height returns the rendered height including the header.
func (m *Model) Height() int {
	return lipgloss.Height(m.View())
}

// Width returns the rendered width.
func (m *Model) Width() int {
	return lipgloss.Width(m.View())
}

func (m *Model) String() string {
	return fmt.Sprintf("Table[rows=%d, fields=%d, cursor=%d]", len(m.records), len(m.fields), m.Cursor())
}
