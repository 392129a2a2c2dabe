package chat

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// Disposition is what the Router did with an inbound event.
type Disposition int

const (
	Ignored Disposition = iota
	Informational
	Appended
	Counted
)

// String returns the string representation of Disposition
func (d Disposition) String() string {
	switch d {
	case Ignored:
		return "IGNORED"
	case Informational:
		return "INFORMATIONAL"
	case Appended:
		return "APPENDED"
	case Counted:
		return "COUNTED"
	default:
		return "UNKNOWN"
	}
}

// Router sends each inbound event to the open conversation or to the
// unread tracker.
type Router struct {
	session *Session
	view    *View
	unread  *UnreadTracker
	logger  zerolog.Logger
}

// NewRouter creates a Router.
func NewRouter(session *Session, view *View, unread *UnreadTracker) *Router {
	return &Router{
		session: session,
		view:    view,
		unread:  unread,
		logger:  log.With().Str("component", "router").Logger(),
	}
}

// Route dispatches ev. A message belongs to the open conversation when it
// comes from the active contact, or when it is our own message echoed back
// for the active contact.
func (r *Router) Route(ev protocol.Event) Disposition {
	switch ev.Type {
	case protocol.EventTypeConnect:
		r.logger.Info().Str("content", ev.Content).Msg("server greeting")
		return Informational
	case protocol.EventTypeMessage:
		if ev.Message == nil {
			return Ignored
		}
		return r.routeMessage(*ev.Message)
	default:
		r.logger.Debug().Str("type", ev.Type.String()).Msg("ignoring unknown event type")
		return Ignored
	}
}

func (r *Router) routeMessage(msg protocol.ChatMessage) Disposition {
	if r.belongsToActive(msg) {
		r.view.Append(msg)
		return Appended
	}
	if msg.IsSent {
		return Ignored
	}
	if !r.unread.Increment(msg.SenderID) {
		r.logger.Debug().Int("sender_id", msg.SenderID).Msg("message from contact without badge")
		return Ignored
	}
	return Counted
}

func (r *Router) belongsToActive(msg protocol.ChatMessage) bool {
	active, ok := r.session.ActiveContact()
	if !ok {
		return false
	}
	return msg.SenderID == active || (msg.RecipientID == active && msg.IsSent)
}
