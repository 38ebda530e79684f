// Package tui implements a terminal browser for validation issues.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

var (
	colorGreen = lipgloss.Color("42")
	colorRed   = lipgloss.Color("196")
	colorCyan  = lipgloss.Color("51")
	colorDim   = lipgloss.Color("240")
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	dimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	passedStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	failedStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	keyStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	keyDescStyle  = lipgloss.NewStyle().Foreground(colorDim)
	listStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// TableState is one table's row in the table list.
type TableState struct {
	Name    string
	Records int
	Skipped bool
	Issues  []issue.Issue
}

// Model is the Bubble Tea model for gregor-tui.
type Model struct {
	title    string
	tables   []TableState
	selected int
	issues   table.Model
	spinner  spinner.Model
	status   string // "running", "passed", "failed", "error"
	err      error
	width    int
	height   int
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewModel creates a model waiting for a validation result.
func NewModel(title string) Model {
	ctx, cancel := context.WithCancel(context.Background())
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDim).BorderBottom(true).Bold(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("0")).Background(colorCyan)
	t.SetStyles(st)

	return Model{
		title:   title,
		issues:  t,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:  "running",
		ctx:     ctx,
		cancel:  cancel,
	}
}

func columns(width int) []table.Column {
	msg := max(width-6-28-8, 20)
	return []table.Column{
		{Title: "Row", Width: 6},
		{Title: "Field", Width: 28},
		{Title: "Message", Width: msg},
	}
}

// resultMsg delivers the outcome of a validation run.
type resultMsg struct {
	res *validate.Result
	err error
}

// Validate runs the engine off the UI goroutine and reports its result.
func (m Model) Validate(eng *validate.Engine, sub validate.Submission) tea.Cmd {
	return func() tea.Msg {
		res, err := eng.Run(m.ctx, sub)
		return resultMsg{res: res, err: err}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			if len(m.tables) > 0 {
				m.selected = (m.selected + 1) % len(m.tables)
				m.refreshRows()
			}
			return m, nil
		case key.Matches(msg, keys.Prev):
			if len(m.tables) > 0 {
				m.selected = (m.selected - 1 + len(m.tables)) % len(m.tables)
				m.refreshRows()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.issues.SetColumns(columns(msg.Width - m.listWidth()))
		m.issues.SetHeight(max(msg.Height-8, 5))
		return m, nil

	case spinner.TickMsg:
		if m.status != "running" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.apply(msg.res, msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.issues, cmd = m.issues.Update(msg)
	return m, cmd
}

// apply loads a run result into the table list.
func (m *Model) apply(res *validate.Result, err error) {
	m.err = err
	if res == nil {
		m.status = "error"
		return
	}
	index := make(map[string]int)
	m.tables = m.tables[:0]
	for _, s := range res.Summary {
		index[s.Table] = len(m.tables)
		m.tables = append(m.tables, TableState{Name: s.Table, Records: s.Records, Skipped: s.Skipped})
	}
	for _, is := range res.Issues {
		i, ok := index[is.Table]
		if !ok {
			i = len(m.tables)
			index[is.Table] = i
			m.tables = append(m.tables, TableState{Name: is.Table})
		}
		m.tables[i].Issues = append(m.tables[i].Issues, is)
	}

	m.status = "passed"
	if !res.OK() {
		m.status = "failed"
	}
	m.selected = 0
	for i, t := range m.tables {
		if len(t.Issues) > 0 {
			m.selected = i
			break
		}
	}
	m.refreshRows()
}

func (m *Model) refreshRows() {
	var rows []table.Row
	if m.selected < len(m.tables) {
		for _, is := range m.tables[m.selected].Issues {
			row := "-"
			if is.Row != nil {
				row = strconv.Itoa(*is.Row)
			}
			rows = append(rows, table.Row{row, is.Field, is.Message})
		}
	}
	m.issues.SetRows(rows)
	m.issues.GotoTop()
}

// Status returns "running", "passed", "failed", or "error".
func (m Model) Status() string { return m.status }

// Selected returns the name of the table whose issues are shown.
func (m Model) Selected() string {
	if m.selected < len(m.tables) {
		return m.tables[m.selected].Name
	}
	return ""
}

// Tables returns the per-table state.
func (m Model) Tables() []TableState { return m.tables }

func (m Model) listWidth() int {
	w := 20
	for _, t := range m.tables {
		w = max(w, len(t.Name)+16)
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("  gregor-tui: " + m.title))
	b.WriteString("\n\n")

	switch m.status {
	case "running":
		b.WriteString("  " + m.spinner.View() + " Validating...\n")
		return b.String()
	case "error":
		b.WriteString(failedStyle.Render(fmt.Sprintf("  ✗ %v", m.err)))
		b.WriteString("\n\n" + keyBarText())
		return b.String()
	}

	var list []string
	for i, t := range m.tables {
		glyph := passedStyle.Render("✓")
		switch {
		case t.Skipped:
			glyph = dimStyle.Render("⏭")
		case len(t.Issues) > 0:
			glyph = failedStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %s %s", glyph, t.Name, dimStyle.Render(fmt.Sprintf("(%d)", len(t.Issues))))
		if i == m.selected {
			line = selectedStyle.Render("▸ ") + line
		} else {
			line = "  " + line
		}
		list = append(list, line)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(strings.Join(list, "\n")),
		"  ",
		m.issues.View(),
	))
	b.WriteString("\n\n")

	if m.status == "passed" {
		b.WriteString(passedStyle.Render("  ✓ submission passed"))
	} else {
		total := 0
		for _, t := range m.tables {
			total += len(t.Issues)
		}
		b.WriteString(failedStyle.Render(fmt.Sprintf("  ✗ %d issue(s)", total)))
	}
	if m.err != nil {
		b.WriteString("\n" + failedStyle.Render(fmt.Sprintf("  %v", m.err)))
	}
	b.WriteString("\n\n  " + keyBarText())
	return b.String()
}

// StartEngine runs the validation in the background and delivers its result
// to the program.
func StartEngine(m Model, eng *validate.Engine, sub validate.Submission, p *tea.Program) {
	run := m.Validate(eng, sub)
	go func() {
		p.Send(run())
	}()
}
