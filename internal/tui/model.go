// Package tui renders batch progress and the final run summary in the terminal.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ironsheep/image-normalizer/internal/batch"
)

// Model is a bubbletea model that follows cumulative batch.Progress snapshots
// until the updates channel is closed.
type Model struct {
	updates  <-chan batch.Progress
	started  time.Time
	width    int
	total    int
	progress batch.Progress
	quitting bool
}

type doneMsg struct{}

type progressMsg batch.Progress

// NewModel returns a Model for a run of total images.
func NewModel(updates <-chan batch.Progress, total int) Model {
	return Model{updates: updates, total: total, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.progress = batch.Progress(msg)
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
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
		barWidth = max(20, min(60, m.width-10))
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1, float64(m.progress.Processed)/float64(m.total))
	}

	p := m.progress
	lines := []string{
		titleStyle.Render("image-normalizer"),
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", p.Processed, m.total)) +
			dimStyle.Render(fmt.Sprintf("  batch %d/%d", p.CurrentBatch, p.TotalBatches)),
		labelStyle.Render(fmt.Sprintf("Normalized: %d", p.Successful)) +
			errorStyle.Render(fmt.Sprintf("  failed: %d", p.Failed)),
	}
	for _, e := range p.RecentErrors {
		lines = append(lines, errorStyle.Render("  "+e))
	}
	lines = append(lines,
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Millisecond))),
		barStyle.Render(renderBar(barWidth, ratio)),
	)

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan batch.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return progressMsg(p)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
