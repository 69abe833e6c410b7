package chat

import (
	"errors"
	"html"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"kitlab/cmd/kitlab/ui"
	"kitlab/internal/conversation"
	"kitlab/internal/kit"
	"kitlab/internal/logging"
)

const (
	headerHeight = 2
	footerHeight = 2
	inputHeight  = 2
)

const helpText = `**Commands**

- ` + "`/new`" + ` start a fresh conversation
- ` + "`/refresh`" + ` reload saved kits
- ` + "`/sidebar`" + ` show or hide the history sidebar
- ` + "`/help`" + ` show this help
- ` + "`/quit`" + ` exit

Tab switches between the input and the history list. Enter on a saved kit opens it.`

const busyStatus = "Still assembling the last request..."

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			if m.focus == focusSidebar {
				m.focusInput()
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyTab:
			if m.showSidebar {
				if m.focus == focusInput {
					m.focus = focusSidebar
					m.textinput.Blur()
				} else {
					m.focusInput()
				}
			}
			return m, nil

		case tea.KeyEnter:
			if m.focus == focusSidebar {
				if it, ok := m.history.SelectedItem().(historyItem); ok {
					m.status = "Opening " + it.entry.Label + "..."
					return m, m.selectCmd(it.entry.ID)
				}
				return m, nil
			}
			return m.handleSubmit()
		}

		if m.focus == focusSidebar {
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
		m.textinput, tiCmd = m.textinput.Update(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case transcriptChangedMsg:
		m.syncViewport()

	case settledMsg:
		m.isLoading = false
		m.pending = nil
		m.status = ""
		logging.UIDebug("submission settled: %s", msg.outcome)
		m.syncViewport()

	case sidebarChangedMsg:
		cmd := m.history.SetItems(historyItems(msg, m.sidebarWidth))
		return m, cmd

	case selectedMsg:
		if msg.err != nil {
			m.status = "Could not open that kit."
			m.err = msg.err
		} else {
			m.status = ""
			m.err = nil
			m.focusInput()
		}
		m.syncViewport()

	case errorMsg:
		m.err = msg
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.textinput.Focus()
}

// handleSubmit sends the input through the controller. A rejected submission
// leaves the input untouched.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	sub, err := m.ctrl.Submit(m.ctx, input)
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		return m, nil
	case errors.Is(err, conversation.ErrBusy):
		m.status = busyStatus
		return m, nil
	case err != nil:
		m.err = err
		return m, nil
	}

	m.textinput.Reset()
	m.isLoading = true
	m.pending = sub
	m.status = ""
	m.err = nil
	m.syncViewport()

	return m, tea.Batch(m.spinner.Tick, waitCmd(sub))
}

var knownCommands = map[string]bool{
	"/quit": true, "/exit": true, "/q": true,
	"/new": true, "/clear": true,
	"/refresh": true, "/sidebar": true, "/help": true,
}

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	if !knownCommands[name] {
		m.status = "Unknown command: " + fields[0]
		return m, nil
	}
	m.textinput.Reset()

	switch name {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/new", "/clear":
		m.ctrl.Reset()
		m.transcript.Clear()
		m.status = ""
		m.err = nil
		m.syncViewport()

	case "/refresh":
		m.status = "Refreshing history..."
		return m, m.refreshCmd()

	case "/sidebar":
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.focusInput()
		}
		m.resize(m.width, m.height)

	case "/help":
		m.transcript.RenderMessage(kit.RoleAI, strings.ReplaceAll(html.EscapeString(helpText), "\n", "<br>"))
		m.syncViewport()
	}
	return m, nil
}

// resize lays out the panes and re-renders the transcript for the new width.
func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height

	chatWidth := width - 2
	if m.showSidebar {
		chatWidth -= m.sidebarWidth + 2
	}
	if chatWidth < 20 {
		chatWidth = 20
	}
	bodyHeight := height - headerHeight - footerHeight - inputHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = bodyHeight
	m.history.SetSize(m.sidebarWidth, bodyHeight)
	m.textinput.Width = width - 4
	m.ready = true

	m.transcript.SetFormatter(ui.NewTerminalFormatter(m.styles, chatWidth))
	m.syncViewport()
}

// syncViewport shows the transcript and scrolls to its end.
func (m *Model) syncViewport() {
	m.viewport.SetContent(m.transcript.String())
	m.viewport.GotoBottom()
}
