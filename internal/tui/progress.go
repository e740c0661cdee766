package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// TableStatus is the import state of one dataset.
type TableStatus int

const (
	TablePending TableStatus = iota
	TableRunning
	TableDone
	TableMissing
	TableFailed
)

// TableProgress holds information about one table being imported.
type TableProgress struct {
	Name      string
	Status    TableStatus
	Rows      int
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Messages sent to ImportProgress while an import runs.
type (
	TableStartedMsg struct{ Name string }
	TableDoneMsg    struct {
		Name    string
		Rows    int
		Missing bool
		Err     error
	}
	ImportFinishedMsg struct{}
)

// ImportProgress is a Bubble Tea model for showing per-table import progress.
type ImportProgress struct {
	spinner  spinner.Model
	tables   []TableProgress
	index    map[string]int
	started  time.Time
	quitting bool
}

// NewImportProgress creates a progress display for the given tables.
func NewImportProgress(tables []string) *ImportProgress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	p := &ImportProgress{
		spinner: s,
		index:   make(map[string]int, len(tables)),
		started: time.Now(),
	}
	for i, name := range tables {
		p.tables = append(p.tables, TableProgress{Name: name})
		p.index[name] = i
	}
	return p
}

// Tables returns a snapshot of table states.
func (p *ImportProgress) Tables() []TableProgress {
	return append([]TableProgress(nil), p.tables...)
}

// Init implements tea.Model.
func (p *ImportProgress) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update implements tea.Model.
func (p *ImportProgress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			p.quitting = true
			return p, tea.Quit
		}

	case TableStartedMsg:
		if i, ok := p.index[msg.Name]; ok {
			p.tables[i].Status = TableRunning
			p.tables[i].StartTime = time.Now()
		}

	case TableDoneMsg:
		if i, ok := p.index[msg.Name]; ok {
			t := &p.tables[i]
			t.EndTime = time.Now()
			t.Rows = msg.Rows
			t.Err = msg.Err
			switch {
			case msg.Err != nil:
				t.Status = TableFailed
			case msg.Missing:
				t.Status = TableMissing
			default:
				t.Status = TableDone
			}
		}

	case ImportFinishedMsg:
		p.quitting = true
		return p, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	return p, nil
}

// View implements tea.Model.
func (p *ImportProgress) View() string {
	var b strings.Builder
	for _, t := range p.tables {
		b.WriteString(p.line(t) + "\n")
	}
	if p.quitting {
		b.WriteString(p.summary())
	}
	return b.String()
}

func (p *ImportProgress) line(t TableProgress) string {
	var status, detail string
	switch t.Status {
	case TablePending:
		status = HelpStyle.Render("·")
		detail = HelpStyle.Render("waiting")
	case TableRunning:
		status = p.spinner.View()
		detail = HelpStyle.Render(time.Since(t.StartTime).Truncate(time.Second).String())
	case TableDone:
		status = SuccessStyle.Render("✓")
		detail = fmt.Sprintf("%d rows  %s", t.Rows, HelpStyle.Render(t.EndTime.Sub(t.StartTime).Truncate(time.Millisecond).String()))
	case TableMissing:
		status = WarningStyle.Render("-")
		detail = WarningStyle.Render("no file")
	case TableFailed:
		status = ErrorStyle.Render("✗")
		detail = ErrorStyle.Render(t.Err.Error())
	}
	return fmt.Sprintf("%s %-24s %s", status, StageStyle.Render(t.Name), detail)
}

func (p *ImportProgress) summary() string {
	var rows, done, failed int
	for _, t := range p.tables {
		rows += t.Rows
		switch t.Status {
		case TableDone:
			done++
		case TableFailed:
			failed++
		}
	}
	elapsed := time.Since(p.started).Truncate(time.Millisecond)
	line := fmt.Sprintf("Imported %d rows from %d tables in %s", rows, done, elapsed)
	if failed > 0 {
		return ErrorStyle.Render(fmt.Sprintf("%s, %d failed", line, failed)) + "\n"
	}
	return SuccessStyle.Render(line) + "\n"
}
