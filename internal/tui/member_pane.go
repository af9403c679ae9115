package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpcadm/hpcadm/internal/events"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// MemberView is the monitor's record of one group member.
type MemberView struct {
	Name    string
	State   wait.State
	History []string // timestamped state lines for the detail viewport
}

// MemberPaneModel shows the group roster with live states, plus a viewport
// with the selected member's transition history.
type MemberPaneModel struct {
	group       string
	members     map[string]*MemberView
	order       []string // roster order from the group-started event
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewMemberPaneModel creates an empty member pane.
func NewMemberPaneModel() MemberPaneModel {
	return MemberPaneModel{
		members:  make(map[string]*MemberView),
		viewport: viewport.New(0, 0),
	}
}

// Update handles messages for the member pane.
func (m MemberPaneModel) Update(msg tea.Msg) (MemberPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.GroupStartedEvent:
		m.group = msg.Group
		for _, name := range msg.Members {
			if _, exists := m.members[name]; exists {
				continue
			}
			m.members[name] = &MemberView{Name: name, State: wait.StateBlocked}
			m.order = append(m.order, name)
		}
		m.updateViewportContent()

	case events.MemberStateEvent:
		member, exists := m.members[msg.Member]
		if !exists {
			member = &MemberView{Name: msg.Member}
			m.members[msg.Member] = member
			m.order = append(m.order, msg.Member)
		}
		member.State = msg.State
		member.History = append(member.History,
			fmt.Sprintf("%s  %s", msg.Timestamp.Format("15:04:05"), msg.State))
		if m.selectedName() == msg.Member {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

// View renders the roster column next to the history viewport.
func (m MemberPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 30
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderRoster(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderRoster renders the member list column.
func (m MemberPaneModel) renderRoster(width int) string {
	var b strings.Builder

	title := "Members"
	if m.group != "" {
		title = m.group
	}
	rendered := StyleTitle.Render(title)
	b.WriteString(rendered)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", minInt(width, lipgloss.Width(rendered))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, name := range m.order {
			member := m.members[name]
			display := name
			if len(display) > width-6 {
				display = display[:width-9] + "..."
			}
			line := fmt.Sprintf("%s %s", StatusIcon(member.State), display)
			if i == m.selectedIdx {
				line = StyleSelected.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled indicator for a member state.
func StatusIcon(s wait.State) string {
	switch s {
	case wait.StatePending:
		return StyleStatusRunning.Render("●")
	case wait.StateCompleted:
		return StyleStatusComplete.Render("✓")
	case wait.StateFailed:
		return StyleStatusFailed.Render("✗")
	case wait.StateTimedOut:
		return StyleStatusTimedOut.Render("!")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m MemberPaneModel) selectedName() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.order[m.selectedIdx]
	}
	return ""
}

// updateViewportContent fills the viewport with the selected member's
// transition history.
func (m *MemberPaneModel) updateViewportContent() {
	name := m.selectedName()
	if name == "" {
		m.viewport.SetContent("Waiting for members...")
		return
	}
	member := m.members[name]
	if len(member.History) == 0 {
		m.viewport.SetContent(fmt.Sprintf("%s: not started", name))
		return
	}
	m.viewport.SetContent(strings.Join(member.History, "\n"))
	m.viewport.GotoBottom()
}

func (m *MemberPaneModel) resizeViewport() {
	listWidth := 30
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *MemberPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *MemberPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
