// Package tui renders the live attendance dashboard in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// Snapshot is what one refresh shows.
type Snapshot struct {
	Dashboard presence.Dashboard
	Breaks    []presence.BreakRow
}

// FetchFunc loads a snapshot.
type FetchFunc func(ctx context.Context) (Snapshot, error)

type snapshotMsg struct {
	snap Snapshot
	err  error
	at   time.Time
}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).MarginBottom(1)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(18)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Model is the bubbletea model of the monitor.
type Model struct {
	fetch    FetchFunc
	interval time.Duration
	table    table.Model
	snap     Snapshot
	err      error
	updated  time.Time
	width    int
}

// NewModel creates a monitor refreshing every interval.
func NewModel(fetch FetchFunc, interval time.Duration) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Name", Width: 24},
			{Title: "Out", Width: 6},
			{Title: "In", Width: 6},
			{Title: "Min", Width: 5},
			{Title: "", Width: 8},
		}),
		table.WithHeight(10),
	)
	return Model{fetch: fetch, interval: interval, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snap, err := m.fetch(ctx)
		return snapshotMsg{snap: snap, err: err, at: time.Now()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(3, msg.Height-16))
	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())
	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.updated = msg.at
			m.table.SetRows(breakRows(msg.snap.Breaks))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func breakRows(rows []presence.BreakRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		in, flag := "-", ""
		if r.Ended != nil {
			in = r.Ended.Format("15:04")
		}
		if r.Overdue {
			flag = "OVERDUE"
		} else if r.Ongoing {
			flag = "on break"
		}
		out = append(out, table.Row{r.Identifier, r.Name, r.Started.Format("15:04"), in, fmt.Sprint(r.Minutes), flag})
	}
	return out
}

func stat(label string, v int) string {
	return boxStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Render(fmt.Sprint(v)))
}

func (m Model) View() string {
	d := m.snap.Dashboard
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Registered", d.TotalRegistered),
		stat("Present", d.TodayPresent),
		stat("Absent", d.TodayAbsent),
		stat("In session", d.SessionIn),
		stat("Breaks", d.BreaksTaken),
	)

	var week strings.Builder
	for _, day := range d.Weekly {
		label := day.Day
		if len(label) >= 10 {
			label = label[5:]
		}
		fmt.Fprintf(&week, "%s %s %d\n", labelStyle.Render(label), strings.Repeat("█", min(day.Count, 40)), day.Count)
	}

	overdue := 0
	for _, r := range m.snap.Breaks {
		if r.Overdue {
			overdue++
		}
	}
	breaksTitle := "Breaks today"
	if overdue > 0 {
		breaksTitle += " " + overdueStyle.Render(fmt.Sprintf("(%d overdue)", overdue))
	}

	footer := "r refresh · q quit"
	if !m.updated.IsZero() {
		footer = "updated " + m.updated.Format("15:04:05") + " · " + footer
	}
	sections := []string{
		titleStyle.Render("RETREAT ATTENDANCE · " + d.Day),
		stats,
		"",
		week.String(),
		breaksTitle,
		m.table.View(),
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render("refresh failed: "+m.err.Error()))
	}
	sections = append(sections, footerStyle.Render(footer))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
