// Package ui implements the interactive record browser.
package ui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/dview/internal/formatter"
	"github.com/oakwood-commons/dview/internal/ui/table"
	"github.com/oakwood-commons/dview/pkg/fetch"
	"github.com/oakwood-commons/dview/pkg/view"
)

// inputMode selects what the text input edits.
type inputMode int

const (
	modeBrowse inputMode = iota
	modeSearch
	modeFilter
	modeWhere
	modeSort
)

func (m inputMode) label() string {
	switch m {
	case modeSearch:
		return "search"
	case modeFilter:
		return "filter"
	case modeWhere:
		return "where"
	case modeSort:
		return "sort"
	default:
		return ""
	}
}

// fetchedMsg signals that every outstanding fetch has finished.
type fetchedMsg struct{}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	ansiRegexp  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	chromeLines = 6
)

// Options configures a Browser.
type Options struct {
	Title   string
	Source  fetch.Source[[]view.Record]
	Columns []string
	NoColor bool
	Logger  logr.Logger
}

// Browser is the bubbletea model: a fetch machine feeding records through
// a view controller into a table.
type Browser struct {
	ctx     context.Context
	ctrl    *view.Controller
	machine *fetch.Machine[[]view.Record]
	source  fetch.Source[[]view.Record]
	log     logr.Logger

	records []view.Record
	applied uint64
	result  view.ViewResult
	err     string

	table   *table.Model
	input   textinput.Model
	spinner spinner.Model
	mode    inputMode
	detail  bool

	title   string
	noColor bool
	width   int
	height  int
}

// NewBrowser builds a browser around ctrl. Nothing is fetched until Init.
func NewBrowser(ctx context.Context, ctrl *view.Controller, opts Options) *Browser {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.SetWidth(80)
	ti.Prompt = ""

	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	b := &Browser{
		ctx:     ctx,
		ctrl:    ctrl,
		machine: fetch.New[[]view.Record](fetch.WithLogger[[]view.Record](log)),
		source:  opts.Source,
		log:     log,
		table:   table.New(opts.Columns),
		input:   ti,
		spinner: sp,
		title:   opts.Title,
		noColor: opts.NoColor,
		width:   100,
		height:  24,
	}
	b.table.SetNoColor(opts.NoColor)
	b.resize()
	return b
}

// Init starts the first fetch.
func (b *Browser) Init() tea.Cmd {
	return b.refresh()
}

// refresh issues a fetch. The machine moves to Loading before the command
// is returned, so the next frame already shows it.
func (b *Browser) refresh() tea.Cmd {
	b.machine.Fetch(b.ctx, b.source)
	return tea.Batch(b.wait(), b.spinner.Tick)
}

// wait reports back once every outstanding fetch has finished.
func (b *Browser) wait() tea.Cmd {
	machine := b.machine
	ctx := b.ctx
	return func() tea.Msg {
		_ = machine.Wait(ctx)
		return fetchedMsg{}
	}
}

// State exposes the fetch state for tests and callers.
func (b *Browser) State() fetch.State[[]view.Record] {
	return b.machine.State()
}

// Result returns the last successful query result.
func (b *Browser) Result() view.ViewResult {
	return b.result
}

// Err returns the message shown in the status line, if any.
func (b *Browser) Err() string {
	return b.err
}

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.resize()
		return b, nil

	case spinner.TickMsg:
		if b.machine.State().Kind != fetch.KindLoading {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd

	case fetchedMsg:
		st := b.machine.State()
		if st.Kind == fetch.KindSuccess && st.RequestID != b.applied {
			b.applied = st.RequestID
			b.records = st.Data
			b.requery()
		}
		return b, nil

	case tea.KeyPressMsg:
		if b.mode != modeBrowse {
			return b.updateInput(msg)
		}
		return b.updateBrowse(msg)
	}
	return b, nil
}

func (b *Browser) updateBrowse(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return b, tea.Quit
	case "esc":
		if b.detail {
			b.detail = false
			return b, nil
		}
		c := b.ctrl.Criteria()
		if c.SearchText != "" {
			b.ctrl.SetSearchText("")
			b.requery()
		}
		return b, nil
	case "enter":
		_, ok := b.table.Selected()
		b.detail = ok && !b.detail
		return b, nil
	case "/":
		return b, b.beginInput(modeSearch, b.ctrl.Criteria().SearchText)
	case "f":
		return b, b.beginInput(modeFilter, "")
	case "w":
		return b, b.beginInput(modeWhere, b.ctrl.Criteria().Where)
	case "s":
		current := ""
		if spec := b.ctrl.Criteria().Sort; spec != nil {
			current = spec.Field + ":" + string(spec.Direction)
		}
		return b, b.beginInput(modeSort, current)
	case "F":
		b.ctrl.SetFilterQuery(view.FilterQuery{Operation: b.ctrl.Criteria().Filter.Operation})
		b.requery()
		return b, nil
	case "o":
		q := b.ctrl.Criteria().Filter
		if q.Operation == view.OperationOr {
			q.Operation = view.OperationAnd
		} else {
			q.Operation = view.OperationOr
		}
		b.ctrl.SetFilterQuery(q)
		b.requery()
		return b, nil
	case "n", "right", "pgdown":
		b.ctrl.NextPage()
		b.requery()
		return b, nil
	case "p", "left", "pgup":
		b.ctrl.PrevPage()
		b.requery()
		return b, nil
	case "+":
		b.ctrl.SetPageSize(b.ctrl.PageSize() + 5)
		b.requery()
		return b, nil
	case "-":
		if size := b.ctrl.PageSize() - 5; size > 0 {
			b.ctrl.SetPageSize(size)
			b.requery()
		}
		return b, nil
	case "r":
		return b, b.refresh()
	}
	if b.detail {
		return b, nil
	}
	_, cmd := b.table.Update(msg)
	return b, cmd
}

func (b *Browser) beginInput(mode inputMode, value string) tea.Cmd {
	b.mode = mode
	b.detail = false
	b.input.SetValue(value)
	b.input.CursorEnd()
	b.table.Blur()
	return b.input.Focus()
}

func (b *Browser) endInput() {
	b.mode = modeBrowse
	b.input.Blur()
	b.input.SetValue("")
	b.table.Focus()
}

func (b *Browser) updateInput(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return b, tea.Quit
	case "esc":
		if b.mode == modeSearch {
			b.ctrl.SetSearchText("")
			b.requery()
		}
		b.endInput()
		return b, nil
	case "enter":
		b.commitInput()
		return b, nil
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	if b.mode == modeSearch {
		// Search narrows as the user types.
		b.ctrl.SetSearchText(b.input.Value())
		b.requery()
	}
	return b, cmd
}

func (b *Browser) commitInput() {
	value := strings.TrimSpace(b.input.Value())
	switch b.mode {
	case modeSearch:
		b.ctrl.SetSearchText(value)
	case modeFilter:
		if value == "" {
			break
		}
		tok, err := view.ParseFilterToken(value)
		if err != nil {
			b.err = err.Error()
			return
		}
		q := b.ctrl.Criteria().Filter
		q.Tokens = append(q.Tokens, tok)
		b.ctrl.SetFilterQuery(q)
	case modeWhere:
		// Compile first so a typo does not replace a working clause.
		if _, err := view.CompileWhere(value); err != nil {
			b.err = err.Error()
			return
		}
		if err := b.ctrl.SetWhere(value); err != nil {
			b.err = err.Error()
			return
		}
	case modeSort:
		spec, err := view.ParseSortSpec(value)
		if err != nil {
			b.err = err.Error()
			return
		}
		b.ctrl.SetSort(spec)
	}
	b.endInput()
	b.requery()
}

// requery runs the controller over the current records and refreshes the
// table.
func (b *Browser) requery() {
	res, err := b.ctrl.Query(b.records)
	if err != nil {
		b.err = err.Error()
		b.log.V(1).Info("query rejected", "error", err.Error())
		return
	}
	b.err = ""
	b.result = res
	b.table.SetRecords(res.Page)
}

func (b *Browser) resize() {
	b.input.SetWidth(max(b.width-12, 10))
	b.table.SetSize(b.width, max(b.height-chromeLines, 3))
}

func (b *Browser) style(st lipgloss.Style, s string) string {
	if b.noColor {
		return s
	}
	return st.Render(s)
}

func (b *Browser) View() tea.View {
	var sb strings.Builder

	title := "dview"
	if b.title != "" {
		title += " · " + b.title
	}
	sb.WriteString(b.style(titleStyle, title) + "  " + b.statusLine() + "\n")
	sb.WriteString(b.criteriaLine() + "\n")

	if b.detail {
		sb.WriteString(b.detailView())
	} else {
		sb.WriteString(b.table.View() + "\n")
	}

	sb.WriteString(b.style(mutedStyle, formatter.Footer(b.result)) + "\n")
	if b.mode != modeBrowse {
		sb.WriteString(b.style(labelStyle, b.mode.label()+": ") + b.input.View())
	} else {
		sb.WriteString(b.style(mutedStyle, "/ search  f filter  F clear  o and/or  w where  s sort  n/p page  +/- size  enter detail  r reload  q quit"))
	}

	out := sb.String()
	if b.noColor {
		out = ansiRegexp.ReplaceAllString(out, "")
	}
	v := tea.NewView(out)
	v.AltScreen = true
	return v
}

func (b *Browser) statusLine() string {
	st := b.machine.State()
	switch {
	case b.err != "":
		return b.style(errorStyle, b.err)
	case st.Kind == fetch.KindLoading:
		return b.style(mutedStyle, b.spinner.View()+" loading")
	case st.Kind == fetch.KindError:
		return b.style(errorStyle, "fetch failed: "+st.Message)
	case st.Kind == fetch.KindSuccess:
		return b.style(mutedStyle, fmt.Sprintf("%d of %d records", b.result.TotalCount, len(b.records)))
	default:
		return ""
	}
}

func (b *Browser) criteriaLine() string {
	c := b.ctrl.Criteria()
	var parts []string
	if c.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search=%q", c.SearchText))
	}
	if len(c.Filter.Tokens) > 0 {
		toks := make([]string, len(c.Filter.Tokens))
		for i, t := range c.Filter.Tokens {
			toks[i] = t.String()
		}
		parts = append(parts, "filter("+string(c.Filter.Operation)+")="+strings.Join(toks, ","))
	}
	if c.Where != "" {
		parts = append(parts, "where="+c.Where)
	}
	if c.Sort != nil {
		parts = append(parts, "sort="+c.Sort.Field+":"+string(c.Sort.Direction))
	}
	if len(parts) == 0 {
		return b.style(mutedStyle, "no criteria")
	}
	return b.style(labelStyle, strings.Join(parts, "  "))
}

func (b *Browser) detailView() string {
	rec, ok := b.table.Selected()
	if !ok {
		return "\n"
	}
	fields := rec.Fields()
	width := 0
	for _, f := range fields {
		width = max(width, len(f))
	}
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(b.style(labelStyle, fmt.Sprintf("%-*s", width, f)) + "  " + formatter.Cell(rec[f]) + "\n")
	}
	return sb.String()
}

// Run starts an interactive browser and blocks until the user quits.
func Run(ctx context.Context, ctrl *view.Controller, opts Options, progOpts ...tea.ProgramOption) error {
	b := NewBrowser(ctx, ctrl, opts)
	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	if _, err := tea.NewProgram(b, progOpts...).Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	if st := b.State(); st.Kind == fetch.KindError {
		b.log.Info("browser closed after failed fetch", "error", st.Message)
	}
	return nil
}
