// Package tui contains the widget's front ends: an interactive Bubble Tea model and a line-oriented view
// for pipes and one-shot use.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/MegaGrindStone/chatwidget/internal/render"
	"github.com/MegaGrindStone/chatwidget/internal/widget"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of widget.Controller the model drives.
type Controller interface {
	Submit(ctx context.Context, input string) error
	RefreshLogs(ctx context.Context) error
	Mode() widget.Mode
}

// Styles holds the model's lipgloss styles.
type Styles struct {
	Header lipgloss.Style
	User   lipgloss.Style
	Bot    lipgloss.Style
	Typing lipgloss.Style
	Status lipgloss.Style
	Render render.Styles
}

// Model is the interactive chat widget. The text area is the input control, the spinner is the typing
// indicator and the viewport holds the message list. Enter sends; Alt+Enter inserts a line break.
type Model struct {
	ctx        context.Context
	controller Controller
	title      string

	input    textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   Styles

	messages     []entry
	index        map[string]int
	typing       bool
	inputEnabled bool
	refreshLabel string
	status       string

	width int
}

type entry struct {
	sender models.Sender
	markup string
	state  string
}

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3

	// header, typing line, input, status bar.
	chromeHeight = 3 + inputHeight
)

// DefaultStyles returns the styles of the interactive widget.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		User:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Bot:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Typing: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Render: render.DefaultStyles(),
	}
}

// NewModel creates the interactive model. ctx bounds every request the model starts.
func NewModel(ctx context.Context, controller Controller, title string, styles Styles) Model {
	in := textarea.New()
	in.Placeholder = "Type your message..."
	in.ShowLineNumbers = false
	in.CharLimit = 0
	in.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	in.SetWidth(defaultWidth)
	in.SetHeight(inputHeight)
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Typing

	vp := viewport.New(defaultWidth, defaultHeight-chromeHeight)

	return Model{
		ctx:          ctx,
		controller:   controller,
		title:        title,
		input:        in,
		spinner:      sp,
		viewport:     vp,
		styles:       styles,
		index:        map[string]int{},
		inputEnabled: true,
		refreshLabel: widget.RefreshLabel,
		width:        defaultWidth,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.SetWidth(max(msg.Width, 10))
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if !m.inputEnabled {
				return m, nil
			}
			return m, m.submit(m.input.Value())
		case "ctrl+r":
			return m, m.refreshLogs()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.inputEnabled {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case appendMessageMsg:
		m.index[msg.msg.ID] = len(m.messages)
		m.messages = append(m.messages, entry{
			sender: msg.msg.Sender,
			markup: msg.markup,
			state:  msg.msg.StreamingState,
		})
		m.refreshViewport()
		return m, nil

	case updateMessageMsg:
		if i, ok := m.index[msg.msg.ID]; ok {
			m.messages[i].markup = msg.markup
			m.messages[i].state = msg.msg.StreamingState
			m.refreshViewport()
		}
		return m, nil

	case clearInputMsg:
		m.input.Reset()
		return m, nil

	case inputEnabledMsg:
		m.inputEnabled = bool(msg)
		if m.inputEnabled {
			m.status = ""
			return m, m.input.Focus()
		}
		m.input.Blur()
		return m, nil

	case typingMsg:
		m.typing = bool(msg)
		if m.typing {
			return m, m.spinner.Tick
		}
		return m, nil

	case refreshLabelMsg:
		m.refreshLabel = string(msg)
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	typing := ""
	if m.typing {
		typing = m.spinner.View() + m.styles.Typing.Render(" Assistant is typing...")
	}

	status := "enter send • alt+enter newline • ctrl+r " + m.refreshLabel + " • esc quit"
	if m.status != "" {
		status = m.status + " • " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(m.title)+m.styles.Status.Render(" ("+string(m.controller.Mode())+")"),
		m.viewport.View(),
		typing,
		m.input.View(),
		m.styles.Status.Render(status),
	)
}

func (m Model) submit(value string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		if err := controller.Submit(ctx, value); err != nil {
			return statusMsg(err.Error())
		}
		return nil
	}
}

func (m Model) refreshLogs() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		err := controller.RefreshLogs(ctx)
		switch {
		case errors.Is(err, widget.ErrRefreshInFlight):
			return nil
		case err != nil:
			return statusMsg(err.Error())
		}
		return nil
	}
}

func (m *Model) refreshViewport() {
	var sb strings.Builder
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 10))
	for i, e := range m.messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		label := m.styles.Bot.Render("Assistant")
		if e.sender == models.SenderUser {
			label = m.styles.User.Render("You")
		}
		sb.WriteString(label)
		if e.state == models.StreamingStateStreaming {
			sb.WriteString(m.styles.Typing.Render(" …"))
		}
		sb.WriteString("\n")
		sb.WriteString(wrap.Render(render.Terminal(e.markup, m.styles.Render)))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}
