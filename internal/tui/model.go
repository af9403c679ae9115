package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpcadm/hpcadm/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneMembers PaneID = iota
	PaneProgress
)

// busClosedMsg signals that the event bus closed, meaning the monitored
// operation finished.
type busClosedMsg struct{}

// Model is the root Bubble Tea model for the live operation monitor.
type Model struct {
	memberPane   MemberPaneModel
	progressPane ProgressPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
}

// New creates the monitor model, subscribed to every topic on the bus.
func New(bus *events.Bus) Model {
	return Model{
		memberPane:   NewMemberPaneModel(),
		progressPane: NewProgressPaneModel(),
		focusedPane:  PaneMembers,
		eventSub:     bus.SubscribeAll(256),
	}
}

// Run drives the monitor until the bus closes or the context is canceled.
func Run(ctx context.Context, bus *events.Bus) error {
	p := tea.NewProgram(New(bus), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		// Cancellation from outside is a normal way to end the monitor.
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Init starts the event pump.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that delivers the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab, KeyShiftTab:
			if m.focusedPane == PaneMembers {
				m.focusedPane = PaneProgress
			} else {
				m.focusedPane = PaneMembers
			}
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneMembers
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneMembers {
				var cmd tea.Cmd
				m.memberPane, cmd = m.memberPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case events.Event:
		// Both panes see every event and pick what they care about.
		var cmd tea.Cmd
		m.memberPane, cmd = m.memberPane.Update(msg)
		cmds = append(cmds, cmd)
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	left := m.memberPane.View()
	right := m.progressPane.View()

	content := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, content, HelpView())
}

// computeLayout sizes the panes from the window dimensions.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 65) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	m.memberPane.SetSize(leftWidth, availableHeight)
	m.progressPane.SetSize(rightWidth, availableHeight)
	m.updateFocusStates()
}

func (m *Model) updateFocusStates() {
	m.memberPane.SetFocused(m.focusedPane == PaneMembers)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
