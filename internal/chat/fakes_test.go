package chat_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// recordingRenderer records every call as a short string.
type recordingRenderer struct {
	calls    []string
	messages []protocol.ChatMessage
	header   string
}

func (r *recordingRenderer) ContactSelected(previous *chat.Contact, current chat.Contact) {
	prev := "none"
	if previous != nil {
		prev = previous.Username
	}
	r.header = current.Username
	r.calls = append(r.calls, fmt.Sprintf("select %s->%s", prev, current.Username))
}

func (r *recordingRenderer) MessagesReplaced(messages []protocol.ChatMessage) {
	r.messages = append([]protocol.ChatMessage(nil), messages...)
	r.calls = append(r.calls, fmt.Sprintf("replace %d", len(messages)))
}

func (r *recordingRenderer) MessageAppended(message protocol.ChatMessage) {
	r.messages = append(r.messages, message)
	r.calls = append(r.calls, "append "+message.Content)
}

func (r *recordingRenderer) ScrollToBottom() {
	r.calls = append(r.calls, "scroll")
}

var _ chat.Renderer = (*recordingRenderer)(nil)

// badgeBoard mirrors what a roster would display.
type badgeBoard struct {
	visible map[int]int
}

func newBadgeBoard() *badgeBoard {
	return &badgeBoard{visible: map[int]int{}}
}

func (b *badgeBoard) ShowBadge(contactID, count int) {
	b.visible[contactID] = count
}

func (b *badgeBoard) HideBadge(contactID int) {
	delete(b.visible, contactID)
}

var _ chat.BadgeRenderer = (*badgeBoard)(nil)

// fakeSender records sent payloads.
type fakeSender struct {
	mu      sync.Mutex
	open    bool
	sendErr error
	sent    [][]byte
}

func (s *fakeSender) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *fakeSender) Send(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, data)
	return nil
}

var _ chat.Sender = (*fakeSender)(nil)

// fixture wires the loop-owned components the way the client does.
type fixture struct {
	session  *chat.Session
	badges   *badgeBoard
	renderer *recordingRenderer
	unread   *chat.UnreadTracker
	view     *chat.View
	router   *chat.Router
}

var (
	alice = chat.Contact{ID: 7, Username: "alice", Initials: "A"}
	bob   = chat.Contact{ID: 9, Username: "bob", Initials: "B"}
	carol = chat.Contact{ID: 5, Username: "carol", Initials: "C"}
)

const selfID = 2

func newFixture() *fixture {
	f := &fixture{
		session:  chat.NewSession(),
		badges:   newBadgeBoard(),
		renderer: &recordingRenderer{},
	}
	f.unread = chat.NewUnreadTracker([]int{alice.ID, bob.ID, carol.ID}, f.badges)
	f.view = chat.NewView(f.session, f.unread, f.renderer)
	f.router = chat.NewRouter(f.session, f.view, f.unread)
	return f
}

func inbound(sender, recipient int, isSent bool, content string) protocol.Event {
	return protocol.Event{
		Type:    protocol.EventTypeMessage,
		Content: content,
		Message: &protocol.ChatMessage{
			SenderID:    sender,
			RecipientID: recipient,
			Content:     content,
			IsSent:      isSent,
			Type:        protocol.EventTypeMessage,
		},
	}
}
