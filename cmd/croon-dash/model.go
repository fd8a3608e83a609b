package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"croon/pkg/queue"
)

// tickMsg drives the periodic refresh; the fsnotify watcher usually
// beats it, the tick is the fallback when watching fails.
type tickMsg time.Time

// stateMsg carries the queues read from the state file.
type stateMsg []queue.Entry

// stateErrMsg carries a state-file read failure.
type stateErrMsg struct{ err error }

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadStateCmd reads the queue state file.
func loadStateCmd(statePath string) tea.Cmd {
	return func() tea.Msg {
		store, err := queue.Open(statePath)
		if err != nil {
			return stateErrMsg{err: err}
		}
		return stateMsg(store.LoadAll())
	}
}

// defaultStatePath returns the queue state path from env or ~/.croon.
func defaultStatePath() string {
	if v := os.Getenv("CROON_STATE_PATH"); v != "" {
		return v
	}
	if v := os.Getenv("CROON_HOME"); v != "" {
		return filepath.Join(v, "queue_state.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".croon", "queue_state.json")
}

// Model is the Bubble Tea model for the croon dashboard.
type Model struct {
	statePath string
	queues    []queue.Entry
	err       error

	width  int
	height int

	bar   progress.Model
	theme Theme
}

// newModel creates a Model bound to the resolved state path.
func newModel() Model {
	return Model{
		statePath: defaultStatePath(),
		bar:       progress.New(progress.WithDefaultGradient()),
		theme:     DefaultTheme(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadStateCmd(m.statePath),
		tickCmd(),
		watchStateDir(filepath.Dir(m.statePath)),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(40, max(10, msg.Width/3))

	case tickMsg:
		return m, tea.Batch(loadStateCmd(m.statePath), tickCmd())

	case fsChangeMsg:
		// Re-arm the watcher; each watch command delivers one change.
		return m, tea.Batch(
			loadStateCmd(m.statePath),
			watchStateDir(filepath.Dir(m.statePath)),
		)

	case stateMsg:
		m.queues = []queue.Entry(msg)
		m.err = nil

	case stateErrMsg:
		m.err = msg.err
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	b.WriteString(title.Render("croon queues"))
	b.WriteString("\n\n")

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(m.theme.Error)
		b.WriteString(errStyle.Render(fmt.Sprintf("state file error: %v", m.err)))
		b.WriteString("\n")
	} else if len(m.queues) == 0 {
		muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
		b.WriteString(muted.Render("no queues yet; enqueue one with: croon enqueue"))
		b.WriteString("\n")
	} else {
		for _, e := range m.queues {
			b.WriteString(m.renderQueue(e))
			b.WriteString("\n")
		}
	}

	footer := lipgloss.NewStyle().Foreground(m.theme.Muted)
	b.WriteString("\n")
	b.WriteString(footer.Render("q: quit"))
	return b.String()
}

func (m Model) renderQueue(e queue.Entry) string {
	status := lipgloss.NewStyle().Foreground(m.statusColor(e.Status)).Render(string(e.Status))
	return fmt.Sprintf("%-10s %-16s %-18s %s %d/%d (batch %d/%d)",
		shortID(e.ID), e.AccountName, status,
		m.bar.ViewAs(e.ProgressPercent),
		e.ItemsCompleted, e.TotalItems,
		e.CurrentBatch, e.BatchCount())
}

func (m Model) statusColor(s queue.Status) lipgloss.Color {
	switch s {
	case queue.StatusRunning:
		return m.theme.Success
	case queue.StatusPaused:
		return m.theme.Warning
	case queue.StatusFailed:
		return m.theme.Error
	case queue.StatusPending:
		return m.theme.Primary
	default:
		return m.theme.Muted
	}
}

// shortID truncates a queue UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
