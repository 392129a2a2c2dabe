package tui

import (
	"sync"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

type contactSelectedMsg struct {
	previous *chat.Contact
	current  chat.Contact
}

type messagesReplacedMsg struct {
	messages []protocol.ChatMessage
}

type messageAppendedMsg struct {
	message protocol.ChatMessage
}

type scrollToBottomMsg struct{}

type badgeMsg struct {
	contactID int
	count     int
}

type connectionMsg struct {
	open bool
}

// Bridge forwards renderer calls from the client event loop to the bubbletea
// program as messages. It implements chat.Renderer, chat.BadgeRenderer and
// client.StatusRenderer.
type Bridge struct {
	events    chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates a Bridge with room for buffer pending UI events.
func NewBridge(buffer int) *Bridge {
	return &Bridge{
		events: make(chan interface{}, buffer),
		done:   make(chan struct{}),
	}
}

// Events is read by the model.
func (b *Bridge) Events() <-chan interface{} {
	return b.events
}

// Close drops all further UI events.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) push(msg interface{}) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

func (b *Bridge) ContactSelected(previous *chat.Contact, current chat.Contact) {
	b.push(contactSelectedMsg{previous: previous, current: current})
}

func (b *Bridge) MessagesReplaced(messages []protocol.ChatMessage) {
	b.push(messagesReplacedMsg{messages: messages})
}

func (b *Bridge) MessageAppended(message protocol.ChatMessage) {
	b.push(messageAppendedMsg{message: message})
}

func (b *Bridge) ScrollToBottom() {
	b.push(scrollToBottomMsg{})
}

func (b *Bridge) ShowBadge(contactID, count int) {
	b.push(badgeMsg{contactID: contactID, count: count})
}

func (b *Bridge) HideBadge(contactID int) {
	b.push(badgeMsg{contactID: contactID})
}

func (b *Bridge) ConnectionChanged(open bool) {
	b.push(connectionMsg{open: open})
}
