// Package chat implements the interactive kit-builder chat using bubbletea.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"kitlab/cmd/kitlab/ui"
	"kitlab/internal/conversation"
	"kitlab/internal/logging"
	"kitlab/internal/render"
	"kitlab/internal/sidebar"
)

// Backend is everything the chat needs from the kit service.
// *backend.Client satisfies it.
type Backend interface {
	conversation.Generator
	sidebar.HistorySource
}

// Config configures a chat session.
type Config struct {
	Backend Backend
	Styles  ui.Styles

	ResponseDelay      time.Duration
	IntentKeywords     []string
	KeepStaleResponses bool

	ShowSidebar  bool
	SidebarWidth int

	// Scheduler overrides the reply delay timer.
	Scheduler conversation.Scheduler
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// Model is the bubbletea model for the chat.
type Model struct {
	// UI Components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	history   list.Model
	styles    ui.Styles

	// Session
	ctx        context.Context
	ctrl       *conversation.Controller
	sidebar    *sidebar.Sidebar
	transcript *render.Transcript
	sessionID  string

	// pending is the submission awaiting a reply.
	pending *conversation.Submission

	// State
	focus        focusArea
	showSidebar  bool
	sidebarWidth int
	isLoading    bool
	status       string
	err          error
	width        int
	height       int
	ready        bool
}

// Messages for tea updates
type (
	transcriptChangedMsg struct{}
	sidebarChangedMsg    []sidebar.Entry
	settledMsg           struct{ outcome conversation.Outcome }
	selectedMsg          struct {
		id  string
		err error
	}
	errorMsg error
)

// bridge forwards component callbacks into a running program. Sends run in
// their own goroutine so a callback fired while Update holds a component
// lock cannot deadlock the event loop.
type bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *bridge) attach(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

// newModel wires controller, sidebar and transcript together. b may be nil.
func newModel(ctx context.Context, cfg Config, b *bridge) Model {
	styles := cfg.Styles
	notify := func(msg tea.Msg) {
		if b != nil {
			b.send(msg)
		}
	}

	transcript := render.NewTranscript(ui.NewTerminalFormatter(styles, 80), func() {
		notify(transcriptChangedMsg{})
	})

	var ctrl *conversation.Controller
	sb := sidebar.New(cfg.Backend, transcript, sidebar.Options{
		OnViewReset: func() { ctrl.Supersede() },
		OnChange:    func(e []sidebar.Entry) { notify(sidebarChangedMsg(e)) },
	})
	ctrl = conversation.New(cfg.Backend, transcript, conversation.Options{
		ResponseDelay:      cfg.ResponseDelay,
		IntentKeywords:     cfg.IntentKeywords,
		KeepStaleResponses: cfg.KeepStaleResponses,
		Scheduler:          cfg.Scheduler,
		Refresher:          sb,
	})

	ti := textinput.New()
	ti.Placeholder = "Describe the kit you want... (Enter to send, /help for commands)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 2048
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.Body

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	width := cfg.SidebarWidth
	if width <= 0 {
		width = 28
	}

	sessionID := uuid.NewString()
	logging.UIDebug("chat session %s created", sessionID)

	return Model{
		textinput:    ti,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		history:      newHistoryList(styles, width, 20),
		styles:       styles,
		ctx:          ctx,
		ctrl:         ctrl,
		sidebar:      sb,
		transcript:   transcript,
		sessionID:    sessionID,
		showSidebar:  cfg.ShowSidebar,
		sidebarWidth: width,
	}
}

// Run starts the chat and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	b := &bridge{}
	m := newModel(ctx, cfg, b)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	b.attach(p)

	logging.UIDebug("chat session %s started", m.sessionID)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.refreshCmd(),
	)
}

func (m Model) refreshCmd() tea.Cmd {
	sb, ctx := m.sidebar, m.ctx
	return func() tea.Msg {
		if err := sb.Refresh(ctx); err != nil {
			return errorMsg(err)
		}
		return sidebarChangedMsg(sb.Entries())
	}
}

func (m Model) selectCmd(id string) tea.Cmd {
	sb, ctx := m.sidebar, m.ctx
	return func() tea.Msg {
		return selectedMsg{id: id, err: sb.Select(ctx, id)}
	}
}

func waitCmd(sub *conversation.Submission) tea.Cmd {
	return func() tea.Msg {
		out, _ := sub.Wait(context.Background())
		return settledMsg{outcome: out}
	}
}
