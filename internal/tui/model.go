package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"declutter/internal/processor"
)

type Model struct {
	updates   <-chan processor.ProgressUpdate
	cancel    context.CancelFunc
	started   time.Time
	width     int
	total     int
	processed int
	moved     int
	extracted int
	errors    int
	bytes     int64
	current   string
	stopping  bool
	quitting  bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// NewModel returns a progress view fed by updates. cancel, when set, is
// called on ctrl+c; the view stays up until updates is closed.
func NewModel(updates <-chan processor.ProgressUpdate, cancel context.CancelFunc) Model {
	return Model{updates: updates, cancel: cancel, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.processed += msg.ProcessedDelta
		m.moved += msg.MovedDelta
		m.extracted += msg.ExtractedDelta
		m.errors += msg.ErrorDelta
		m.bytes += msg.BytesDelta
		if msg.Current != "" {
			m.current = msg.Current
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.stopping {
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
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
		ratio = float64(m.processed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("declutter"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.processed, m.total)) + dimStyle.Render(fmt.Sprintf("  errors:%d", m.errors)),
		labelStyle.Render(fmt.Sprintf("Moved: %d  Extracted: %d", m.moved, m.extracted)),
		labelStyle.Render(fmt.Sprintf("Sorted: %s", humanize.Bytes(uint64(max(m.bytes, 0))))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.current != "" {
		lines = append(lines, dimStyle.Render(truncate(m.current, barWidth+2)))
	}
	if m.stopping {
		lines = append(lines, warnStyle.Render("Stopping after the files in flight..."))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
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

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width < 4 {
		return s
	}
	return "..." + string(r[len(r)-width+3:])
}
