package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/client"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// StatusFetcher loads the current state of the watched task.
type StatusFetcher func(ctx context.Context) (*client.TaskStatus, error)

type statusMsg struct {
	status *client.TaskStatus
	err    error
}

type pollMsg time.Time

type animationTickMsg time.Time

// WatchModel polls a task until it completes or fails and renders its log.
type WatchModel struct {
	ctx      context.Context
	taskID   string
	fetch    StatusFetcher
	interval time.Duration

	spinner spinner.Model
	frame   int
	width   int

	status *client.TaskStatus
	err    error
	quit   bool

	titleStyle   lipgloss.Style
	subtleStyle  lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

func NewWatchModel(ctx context.Context, taskID string, fetch StatusFetcher, interval time.Duration) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Theme.Warning)

	if interval <= 0 {
		interval = time.Second
	}

	return WatchModel{
		ctx:          ctx,
		taskID:       taskID,
		fetch:        fetch,
		interval:     interval,
		spinner:      s,
		titleStyle:   lipgloss.NewStyle().Foreground(Theme.Primary).Bold(true),
		subtleStyle:  lipgloss.NewStyle().Foreground(Theme.TextSubtle),
		warningStyle: lipgloss.NewStyle().Foreground(Theme.Warning),
		errorStyle:   lipgloss.NewStyle().Foreground(Theme.Error).Bold(true),
		successStyle: lipgloss.NewStyle().Foreground(Theme.Success).Bold(true),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), animationTick(), tea.SetWindowTitle("API Factory"))
}

func (m WatchModel) poll() tea.Cmd {
	return func() tea.Msg {
		status, err := m.fetch(m.ctx)
		return statusMsg{status: status, err: err}
	}
}

func animationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case animationTickMsg:
		if m.finished() {
			return m, nil
		}
		m.frame++
		return m, animationTick()
	case pollMsg:
		return m, m.poll()
	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = msg.status
		if m.status.Done() {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg {
			return pollMsg(t)
		})
	}
	return m, nil
}

func (m WatchModel) finished() bool {
	return m.err != nil || (m.status != nil && m.status.Done())
}

func (m WatchModel) View() string {
	var s strings.Builder

	s.WriteString(m.titleStyle.Render("Task "+m.taskID) + "\n\n")

	if m.status != nil {
		for _, line := range m.status.Logs {
			s.WriteString(m.renderLog(line) + "\n")
		}

		if len(m.status.Preview) > 0 {
			s.WriteString("\n" + m.titleStyle.Render(fmt.Sprintf("Endpoints (%d)", len(m.status.Preview))) + "\n")
			for _, ep := range m.status.Preview {
				line := fmt.Sprintf("  %s %s %s",
					MethodStyle(ep.Method).Render(fmt.Sprintf("%-6s", ep.Method)),
					ep.URL,
					m.subtleStyle.Render(ep.Name))
				if ep.IsTokenGenerator {
					line += m.warningStyle.Render(" [token: " + ep.TokenVariable + "]")
				}
				s.WriteString(line + "\n")
			}
		}
	}

	s.WriteString("\n")
	switch {
	case m.err != nil:
		s.WriteString(m.errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.status != nil && m.status.Status == "completed":
		ready := strings.Join(m.status.ArtifactsReady, ", ")
		s.WriteString(m.successStyle.Render("✓ Completed") + m.subtleStyle.Render(" • artifacts: "+ready) + "\n")
	case m.status != nil && m.status.Status == "failed":
		s.WriteString(m.errorStyle.Render("✗ Failed") + "\n")
	default:
		state := "waiting"
		if m.status != nil {
			state = m.status.Status
		}
		s.WriteString(m.spinner.View() + " " + gradientText("Processing...", m.frame) + m.subtleStyle.Render(" • "+state+" • q to stop watching") + "\n")
	}

	return s.String()
}

func (m WatchModel) renderLog(line string) string {
	if m.width > 4 {
		line = wordwrap.String(line, m.width-4)
	}
	switch {
	case strings.HasPrefix(line, "WARNING:"):
		return m.warningStyle.Render(line)
	case strings.HasPrefix(line, "ERROR:"):
		return m.errorStyle.Render(line)
	}
	return lipgloss.NewStyle().Foreground(Theme.TextMuted).Render(line)
}

// Status returns the last fetched status.
func (m WatchModel) Status() *client.TaskStatus {
	return m.status
}

// Watch runs the watch view until the task finishes, the user quits or a
// fetch fails. It returns the last status seen.
func Watch(ctx context.Context, taskID string, fetch StatusFetcher, interval time.Duration) (*client.TaskStatus, error) {
	final, err := tea.NewProgram(NewWatchModel(ctx, taskID, fetch, interval)).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run watch view: %w", err)
	}

	m := final.(WatchModel)
	if m.err != nil {
		return m.status, m.err
	}
	return m.status, nil
}
