package chat

import (
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Width(m.width).Render("kitlab · Kit Builder Lab")

	body := m.viewport.View()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderStatus(),
		m.textinput.View(),
		m.renderFooter(),
	)
}

func (m Model) renderSidebar() string {
	style := m.styles.Sidebar.Width(m.sidebarWidth).Height(m.viewport.Height)
	if m.sidebar.Empty() {
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Title.Render("History"),
			m.styles.Muted.Render("No saved kits yet."),
		))
	}
	return style.Render(m.history.View())
}

func (m Model) renderStatus() string {
	switch {
	case m.isLoading:
		return m.spinner.View() + " " + m.styles.Muted.Render("Assembling...")
	case m.err != nil && m.status == "":
		return m.styles.Error.Render(m.err.Error())
	case m.status != "":
		return m.styles.Muted.Render(m.status)
	}
	return ""
}

func (m Model) renderFooter() string {
	hint := "Enter send · Tab history · /help · Ctrl+C quit"
	if m.focus == focusSidebar {
		hint = "↑/↓ choose · Enter open · Esc back"
	}
	return m.styles.Footer.Render(hint)
}
