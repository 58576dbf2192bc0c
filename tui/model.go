// Package tui renders live batch progress with bubbletea.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"heiconv/progress"
)

type Model struct {
	updates    <-chan progress.Update
	cancel     context.CancelFunc
	started    time.Time
	width      int
	total      int
	completed  int
	succeeded  int
	failed     int
	lastFile   string
	lastErr    string
	cancelling bool
	quitting   bool
}

type doneMsg struct{}

type updateMsg progress.Update

// NewModel builds a model over the sink's update channel. The cancel func
// is invoked on ctrl+c or q; the model keeps draining updates until the
// channel closes so in-flight conversions still report.
func NewModel(updates <-chan progress.Update, cancel context.CancelFunc) Model {
	return Model{updates: updates, cancel: cancel, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total = msg.Snapshot.Total
		m.completed = msg.Snapshot.Completed
		m.succeeded = msg.Snapshot.Succeeded
		m.failed = msg.Snapshot.Failed
		m.lastFile = msg.Source
		if msg.Success {
			m.lastErr = ""
		} else {
			m.lastErr = fmt.Sprintf("[%s] %s", msg.Kind, msg.Source)
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.completed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("heiconv 🖼"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.completed, m.total)) + dimStyle.Render(fmt.Sprintf("  ok:%d failed:%d", m.succeeded, m.failed)),
		dimStyle.Render(truncate(m.lastFile, barWidth+10)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.lastErr != "" {
		lines = append(lines, failStyle.Render(truncate(m.lastErr, barWidth+10)))
	}
	if m.cancelling {
		lines = append(lines, dimStyle.Render("cancelling, waiting for in-flight conversions"))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan progress.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
