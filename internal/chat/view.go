package chat

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// EmptyConversationText is shown when a contact has no messages yet.
const EmptyConversationText = "No messages yet. Start the conversation!"

// Renderer draws the conversation surface.
type Renderer interface {
	// ContactSelected moves the highlight from previous (nil on first
	// selection) to current, updates the header and enables the composer.
	ContactSelected(previous *Contact, current Contact)
	// MessagesReplaced replaces everything shown. An empty slice means the
	// empty-state text is displayed.
	MessagesReplaced(messages []protocol.ChatMessage)
	// MessageAppended adds one message after the existing content.
	MessageAppended(message protocol.ChatMessage)
	// ScrollToBottom brings the newest message into view.
	ScrollToBottom()
}

// View is the conversation view state. It is owned by the client event
// loop and not safe for concurrent use.
type View struct {
	session  *Session
	unread   *UnreadTracker
	renderer Renderer
	logger   zerolog.Logger

	current  *Contact
	messages []protocol.ChatMessage

	// live messages appended while the current history request is in flight
	loading bool
	live    []protocol.ChatMessage
}

// NewView creates a View. renderer may be nil for headless use.
func NewView(session *Session, unread *UnreadTracker, renderer Renderer) *View {
	return &View{
		session:  session,
		unread:   unread,
		renderer: renderer,
		logger:   log.With().Str("component", "view").Logger(),
	}
}

// Select makes contact the open conversation and returns the stamped
// request the caller must use to load its history.
func (v *View) Select(contact Contact) HistoryRequest {
	previous := v.current
	c := contact
	v.current = &c

	if v.renderer != nil {
		v.renderer.ContactSelected(previous, contact)
	}
	if v.unread != nil {
		v.unread.Clear(contact.ID)
	}

	req := v.session.Activate(contact.ID)
	v.loading = true
	v.live = nil
	req.RequestID = uuid.NewString()
	v.logger.Debug().
		Int("contact_id", contact.ID).
		Uint64("generation", req.Generation).
		Str("request_id", req.RequestID).
		Msg("contact selected, loading history")
	return req
}

// Current returns the open contact, if any.
func (v *View) Current() (Contact, bool) {
	if v.current == nil {
		return Contact{}, false
	}
	return *v.current, true
}

// Append renders a live message at the end of the view.
func (v *View) Append(msg protocol.ChatMessage) {
	v.messages = append(v.messages, msg)
	if v.loading {
		v.live = append(v.live, msg)
	}
	if v.renderer != nil {
		v.renderer.MessageAppended(msg)
		v.renderer.ScrollToBottom()
	}
}

// ApplyHistory replaces the view with messages loaded for req, followed by
// any message appended live since req was issued that the history does not
// already contain. Responses for a selection that is no longer current are
// discarded and false is returned.
func (v *View) ApplyHistory(req HistoryRequest, messages []protocol.ChatMessage) bool {
	if !v.session.IsCurrent(req) {
		v.logger.Debug().
			Int("contact_id", req.ContactID).
			Str("request_id", req.RequestID).
			Msg("discarding stale history response")
		return false
	}

	merged := append([]protocol.ChatMessage(nil), messages...)
	for _, msg := range v.live {
		if !containsMessage(messages, msg) {
			merged = append(merged, msg)
		}
	}
	v.messages = merged
	v.loading = false
	v.live = nil

	if v.renderer != nil {
		v.renderer.MessagesReplaced(v.Messages())
		v.renderer.ScrollToBottom()
	}
	return true
}

// HistoryFailed records a failed history load. The view is left as is.
func (v *View) HistoryFailed(req HistoryRequest, err error) {
	if v.session.IsCurrent(req) {
		v.loading = false
		v.live = nil
	}
	v.logger.Error().Err(err).
		Int("contact_id", req.ContactID).
		Str("request_id", req.RequestID).
		Msg("error loading messages")
}

// Messages returns a copy of the rendered messages.
func (v *View) Messages() []protocol.ChatMessage {
	out := make([]protocol.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

func containsMessage(messages []protocol.ChatMessage, msg protocol.ChatMessage) bool {
	for _, m := range messages {
		if sameMessage(m, msg) {
			return true
		}
	}
	return false
}

// sameMessage matches on server id when both sides carry one, otherwise on
// sender, timestamp and content.
func sameMessage(a, b protocol.ChatMessage) bool {
	if a.ID != 0 && b.ID != 0 {
		return a.ID == b.ID
	}
	return a.SenderID == b.SenderID && a.CreatedAt.Equal(b.CreatedAt) && a.Content == b.Content
}
