// Package client runs the chat client: it owns the transport connection,
// routes inbound events and keeps the conversation view and unread badges
// in step with the server.
//
// All chat state is owned by a single event loop goroutine. Network calls
// run in their own goroutines and hand their results back to the loop.
package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/internal/transport/ws"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

const (
	DefaultUnreadInterval = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// ErrUnknownContact is returned when selecting a contact outside the roster.
var ErrUnknownContact = errors.New("unknown contact")

// ErrStopped is returned when the event loop is no longer running.
var ErrStopped = errors.New("client stopped")

// Transport is the persistent connection to the server.
type Transport interface {
	Run(ctx context.Context) error
	Events() <-chan ws.Event
	IsOpen() bool
	Send(ctx context.Context, data []byte) error
}

// API is the request/response side of the server.
type API interface {
	History(ctx context.Context, contactID int) ([]protocol.ChatMessage, error)
	UnreadCounts(ctx context.Context) ([]protocol.UnreadCount, bool, error)
}

// StatusRenderer displays the connection state.
type StatusRenderer interface {
	ConnectionChanged(open bool)
}

// Snapshot is a copy of the loop-owned state.
type Snapshot struct {
	ActiveContact int
	HasActive     bool
	Messages      []protocol.ChatMessage
	Unread        map[int]int
	Connected     bool
}

type task func(ctx context.Context)

// Client is the chat client.
type Client struct {
	transport Transport
	api       API
	roster    []chat.Contact
	contacts  map[int]chat.Contact

	session  *chat.Session
	unread   *chat.UnreadTracker
	view     *chat.View
	router   *chat.Router
	composer *chat.Composer

	renderer chat.Renderer
	badges   chat.BadgeRenderer
	status   StatusRenderer

	clock          clock.Clock
	unreadInterval time.Duration
	writeTimeout   time.Duration

	tasks chan task
	done  chan struct{}

	// loop-owned
	unreadInFlight bool

	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRenderer sets the conversation renderer.
func WithRenderer(r chat.Renderer) Option {
	return func(c *Client) {
		c.renderer = r
	}
}

// WithBadges sets the unread badge renderer.
func WithBadges(b chat.BadgeRenderer) Option {
	return func(c *Client) {
		c.badges = b
	}
}

// WithStatus sets the connection status renderer.
func WithStatus(s StatusRenderer) Option {
	return func(c *Client) {
		c.status = s
	}
}

// WithClock sets the clock driving the reconciliation ticker.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithUnreadInterval overrides DefaultUnreadInterval.
func WithUnreadInterval(d time.Duration) Option {
	return func(c *Client) {
		c.unreadInterval = d
	}
}

// WithWriteTimeout bounds each outbound send.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// New creates a Client for the given roster.
func New(transport Transport, api API, roster []chat.Contact, opts ...Option) *Client {
	c := &Client{
		transport:      transport,
		api:            api,
		roster:         append([]chat.Contact(nil), roster...),
		contacts:       make(map[int]chat.Contact, len(roster)),
		session:        chat.NewSession(),
		clock:          clock.New(),
		unreadInterval: DefaultUnreadInterval,
		writeTimeout:   DefaultWriteTimeout,
		tasks:          make(chan task, 16),
		done:           make(chan struct{}),
		logger:         log.With().Str("component", "client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ids := make([]int, 0, len(roster))
	for _, contact := range roster {
		c.contacts[contact.ID] = contact
		ids = append(ids, contact.ID)
	}
	c.unread = chat.NewUnreadTracker(ids, c.badges)
	c.view = chat.NewView(c.session, c.unread, c.renderer)
	c.router = chat.NewRouter(c.session, c.view, c.unread)
	c.composer = chat.NewComposer(transport)
	return c
}

// Roster returns the contacts in display order.
func (c *Client) Roster() []chat.Contact {
	return append([]chat.Contact(nil), c.roster...)
}

// Session returns the selection state.
func (c *Client) Session() *chat.Session {
	return c.session
}

// Run drives the transport and the event loop until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.transport.Run(ctx)
	})
	g.Go(func() error {
		return c.loop(ctx)
	})
	return g.Wait()
}

func (c *Client) loop(ctx context.Context) error {
	defer close(c.done)

	ticker := c.clock.Ticker(c.unreadInterval)
	defer ticker.Stop()

	c.refreshUnread(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.transport.Events():
			c.handleTransport(ev)
		case <-ticker.C:
			c.refreshUnread(ctx)
		case t := <-c.tasks:
			t(ctx)
		}
	}
}

func (c *Client) handleTransport(ev ws.Event) {
	switch ev.Kind {
	case ws.EventEstablished:
		c.logger.Info().Msg("connected to chat server")
		c.setStatus(true)
	case ws.EventMessage:
		event, err := protocol.DecodeEvent(ev.Data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed event")
			return
		}
		c.router.Route(event)
	case ws.EventError:
		c.logger.Error().Err(ev.Err).Msg("websocket error")
	case ws.EventClosed:
		c.logger.Info().Msg("disconnected from chat server")
		c.setStatus(false)
	}
}

func (c *Client) setStatus(open bool) {
	if c.status != nil {
		c.status.ConnectionChanged(open)
	}
}

// refreshUnread fetches server counts unless a fetch is already running.
func (c *Client) refreshUnread(ctx context.Context) {
	if c.unreadInFlight {
		return
	}
	c.unreadInFlight = true

	go func() {
		counts, ok, err := c.api.UnreadCounts(ctx)
		c.post(func(context.Context) {
			c.unreadInFlight = false
			if err != nil {
				c.logger.Warn().Err(err).Msg("error checking unread messages")
				return
			}
			if ok {
				c.unread.Reconcile(counts)
			}
		})
	}()
}

// post hands fn to the event loop. It reports false once the loop is gone.
func (c *Client) post(fn task) bool {
	select {
	case c.tasks <- fn:
		return true
	case <-c.done:
		return false
	}
}

// call runs fn on the event loop and waits for it to finish.
func (c *Client) call(ctx context.Context, fn task) error {
	finished := make(chan struct{})
	queued := c.post(func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	})
	if !queued {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectContact opens the conversation with contactID and loads its
// history in the background.
func (c *Client) SelectContact(ctx context.Context, contactID int) error {
	contact, ok := c.contacts[contactID]
	if !ok {
		return errors.Wrapf(ErrUnknownContact, "contact %d", contactID)
	}
	return c.call(ctx, func(loopCtx context.Context) {
		req := c.view.Select(contact)
		go c.loadHistory(loopCtx, req)
	})
}

func (c *Client) loadHistory(ctx context.Context, req chat.HistoryRequest) {
	messages, err := c.api.History(ctx, req.ContactID)
	c.post(func(context.Context) {
		if err != nil {
			c.view.HistoryFailed(req, err)
			return
		}
		c.view.ApplyHistory(req, messages)
	})
}

// Submit sends the input text to the active contact. It reports whether a
// message was sent.
func (c *Client) Submit(ctx context.Context, in chat.Input) bool {
	recipientID, ok := c.session.ActiveContact()
	if !ok {
		recipientID = 0
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.composer.Submit(ctx, in, recipientID)
}

// Snapshot copies the current chat state from the event loop.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.call(ctx, func(context.Context) {
		snap.ActiveContact, snap.HasActive = c.session.ActiveContact()
		snap.Messages = c.view.Messages()
		snap.Unread = c.unread.Counts()
		snap.Connected = c.transport.IsOpen()
	})
	return snap, err
}
