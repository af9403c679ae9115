package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpcadm/hpcadm/internal/events"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// ProgressPaneModel shows partition counts for the group wait in flight and
// the current stage of a running sequence.
type ProgressPaneModel struct {
	group    string
	total    int
	states   map[string]wait.State
	finished bool
	duration time.Duration

	sequence  string
	stage     string
	stageNote string

	width   int
	height  int
	focused bool
}

// NewProgressPaneModel creates an empty progress pane.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{states: make(map[string]wait.State)}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.GroupStartedEvent:
		m.group = msg.Group
		m.total = len(msg.Members)
		m.states = make(map[string]wait.State)
		m.finished = false
		m.duration = 0

	case events.MemberStateEvent:
		m.states[msg.Member] = msg.State

	case events.GroupFinishedEvent:
		m.finished = true
		m.duration = msg.Duration

	case events.StageStartedEvent:
		m.sequence = msg.Sequence
		m.stage = msg.Stage
		m.stageNote = "running"

	case events.StageSkippedEvent:
		m.sequence = msg.Sequence
		m.stage = msg.Stage
		m.stageNote = fmt.Sprintf("skipped: %s", msg.Reason)

	case events.StageFinishedEvent:
		m.sequence = msg.Sequence
		m.stage = msg.Stage
		if msg.Failed > 0 {
			m.stageNote = fmt.Sprintf("%d failed", msg.Failed)
		} else {
			m.stageNote = "done"
		}
	}

	return m, nil
}

// counts derives partition counts from the last known member states.
func (m ProgressPaneModel) counts() (completed, failed, pending, blocked int) {
	for _, s := range m.states {
		switch s {
		case wait.StateCompleted:
			completed++
		case wait.StateFailed:
			failed++
		case wait.StateBlocked:
			blocked++
		default:
			pending++
		}
	}
	// Members that have not transitioned yet are still waiting to start.
	if rest := m.total - len(m.states); rest > 0 {
		pending += rest
	}
	return completed, failed, pending, blocked
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	completed, failed, pending, blocked := m.counts()

	b.WriteString(fmt.Sprintf("Members:   %d\n", m.total))
	b.WriteString(fmt.Sprintf("Completed: %s\n", StyleStatusComplete.Render(fmt.Sprintf("%d", completed))))
	b.WriteString(fmt.Sprintf("Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", failed))))
	b.WriteString(fmt.Sprintf("Waiting:   %s\n", StyleStatusRunning.Render(fmt.Sprintf("%d", pending))))
	b.WriteString(fmt.Sprintf("Blocked:   %s\n", StyleStatusPending.Render(fmt.Sprintf("%d", blocked))))
	b.WriteString("\n")

	if m.total > 0 {
		barWidth := minInt(m.width-8, 40)
		completedWidth := (completed * barWidth) / m.total
		failedWidth := (failed * barWidth) / m.total
		blockedWidth := (blocked * barWidth) / m.total
		pendingWidth := barWidth - completedWidth - failedWidth - blockedWidth

		bar := StyleStatusComplete.Render(strings.Repeat("=", maxInt(0, completedWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", maxInt(0, failedWidth)))
		bar += StyleStatusPending.Render(strings.Repeat("_", maxInt(0, blockedWidth)))
		bar += StyleStatusRunning.Render(strings.Repeat(".", maxInt(0, pendingWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, completed, m.total))
	}

	if m.finished {
		b.WriteString(fmt.Sprintf("\nFinished in %s\n", m.duration.Round(time.Millisecond)))
	}

	if m.stage != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", StyleTitle.Render(m.sequence)))
		b.WriteString(fmt.Sprintf("Stage: %s (%s)\n", m.stage, m.stageNote))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
