// Package tui is the terminal frontend of the chat client.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

const rosterWidth = 24

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	rosterStyle   = lipgloss.NewStyle().Width(rosterWidth).BorderStyle(lipgloss.NormalBorder()).BorderRight(true).PaddingRight(1)
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	badgeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("196")).Padding(0, 1)
	sentStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("118"))
	receivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("118"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Controller is the part of the client the model drives.
type Controller interface {
	SelectContact(ctx context.Context, contactID int) error
	Submit(ctx context.Context, in chat.Input) bool
}

type focus int

const (
	focusRoster focus = iota
	focusInput
)

type submittedMsg struct {
	text string
	sent bool
}

type errMsg struct {
	err error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx        context.Context
	controller Controller
	uiEvents   <-chan interface{}

	roster    []chat.Contact
	cursor    int
	badges    map[int]int
	active    *chat.Contact
	messages  []protocol.ChatMessage
	connected bool
	lastErr   error

	focus    focus
	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
}

// NewModel creates the chat screen for roster. uiEvents is usually
// Bridge.Events.
func NewModel(ctx context.Context, controller Controller, roster []chat.Contact, uiEvents <-chan interface{}) Model {
	in := textinput.New()
	in.Placeholder = "Select a contact to start chatting"
	in.Prompt = "> "
	in.CharLimit = 2000

	vp := viewport.New(80, 20)
	vp.SetContent(dimStyle.Render(chat.EmptyConversationText))

	return Model{
		ctx:        ctx,
		controller: controller,
		uiEvents:   uiEvents,
		roster:     roster,
		badges:     make(map[int]int),
		viewport:   vp,
		input:      in,
	}
}

func waitForUIEvent(ch <-chan interface{}) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return e
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUIEvent(m.uiEvents)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = ev.Width, ev.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(ev)

	case contactSelectedMsg:
		c := ev.current
		m.active = &c
		m.input.Placeholder = "Message " + c.Username
		m.focus = focusInput
		return m, tea.Batch(m.input.Focus(), waitForUIEvent(m.uiEvents))

	case messagesReplacedMsg:
		m.messages = append([]protocol.ChatMessage(nil), ev.messages...)
		m.viewport.SetContent(m.renderMessages())
		return m, waitForUIEvent(m.uiEvents)

	case messageAppendedMsg:
		m.messages = append(m.messages, ev.message)
		m.viewport.SetContent(m.renderMessages())
		return m, waitForUIEvent(m.uiEvents)

	case scrollToBottomMsg:
		m.viewport.GotoBottom()
		return m, waitForUIEvent(m.uiEvents)

	case badgeMsg:
		if ev.count > 0 {
			m.badges[ev.contactID] = ev.count
		} else {
			delete(m.badges, ev.contactID)
		}
		return m, waitForUIEvent(m.uiEvents)

	case connectionMsg:
		m.connected = ev.open
		return m, waitForUIEvent(m.uiEvents)

	case submittedMsg:
		if ev.sent && m.input.Value() == ev.text {
			m.input.Reset()
		}
		return m, nil

	case errMsg:
		m.lastErr = ev.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.focus == focusRoster && m.active != nil {
			m.focus = focusInput
			return m, m.input.Focus()
		}
		m.focus = focusRoster
		m.input.Blur()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}

	if m.focus == focusRoster {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.roster)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.roster) > 0 {
				return m, m.selectCmd(m.roster[m.cursor].ID)
			}
		}
		return m, nil
	}

	if key.Type == tea.KeyEnter {
		return m, m.submitCmd(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m Model) selectCmd(contactID int) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		if err := controller.SelectContact(ctx, contactID); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

// submitCmd sends a copy of the input text. The real input is reset once
// the send is confirmed, unless it was edited in the meantime.
func (m Model) submitCmd(text string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		in := &chat.TextInput{Value: text}
		return submittedMsg{sent: controller.Submit(ctx, in)}
	}
}

func (m *Model) resize() {
	w := m.width - rosterWidth - 3
	if w < 10 {
		w = 10
	}
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return dimStyle.Render(chat.EmptyConversationText)
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatMessage(msg))
	}
	return b.String()
}

func formatMessage(msg protocol.ChatMessage) string {
	style := receivedStyle
	name := msg.Username
	if msg.IsSent {
		style = sentStyle
		name = "you"
	}
	if name == "" {
		name = fmt.Sprintf("#%d", msg.SenderID)
	}
	stamp := ""
	if !msg.CreatedAt.IsZero() {
		stamp = msg.CreatedAt.Local().Format(time.Kitchen) + " "
	}
	return dimStyle.Render(stamp) + style.Render(name+":") + " " + msg.Content
}

func (m Model) renderRoster() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Contacts"))
	for i, c := range m.roster {
		b.WriteString("\n")
		marker := "  "
		if m.focus == focusRoster && i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		initials := c.Initials
		if initials == "" {
			initials = chat.InitialsFor(c.Username)
		}
		line := fmt.Sprintf("[%s] %s", initials, c.Username)
		if m.active != nil && m.active.ID == c.ID {
			line = activeStyle.Render(line)
		}
		b.WriteString(marker + line)
		if n := m.badges[c.ID]; n > 0 {
			b.WriteString(" " + badgeStyle.Render(fmt.Sprint(n)))
		}
	}
	return b.String()
}

func (m Model) View() string {
	title := "Select a contact"
	if m.active != nil {
		title = m.active.Username
	}
	status := offlineStyle.Render("○ reconnecting")
	if m.connected {
		status = onlineStyle.Render("● connected")
	}
	header := headerStyle.Render(title) + "  " + status

	right := header + "\n" + m.viewport.View() + "\n"
	if m.active != nil {
		right += m.input.View()
	} else {
		right += dimStyle.Render("tab: contacts  enter: open  esc: quit")
	}
	if m.lastErr != nil {
		right += "\n" + offlineStyle.Render(m.lastErr.Error())
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rosterStyle.Render(m.renderRoster()), right)
}

// Badges returns the visible unread counts.
func (m Model) Badges() map[int]int {
	out := make(map[int]int, len(m.badges))
	for id, n := range m.badges {
		out[id] = n
	}
	return out
}

// Messages returns the rendered conversation.
func (m Model) Messages() []protocol.ChatMessage {
	return append([]protocol.ChatMessage(nil), m.messages...)
}

// Input returns the composer text.
func (m Model) Input() string {
	return m.input.Value()
}
