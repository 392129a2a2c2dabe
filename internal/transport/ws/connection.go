package ws

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultReconnectDelay is the fixed pause between a closure and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// ErrNotOpen is returned by Send when the connection is not in StateOpen.
var ErrNotOpen = errors.New("connection is not open")

// State is the lifecycle state of a Connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// EventKind identifies a lifecycle notification.
type EventKind int

const (
	EventEstablished EventKind = iota
	EventMessage
	EventError
	EventClosed
)

// Event is a lifecycle notification. Data is set for EventMessage, Err for
// EventError and (optionally) EventClosed.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

// reconnectGuard holds at most one pending reconnect timer. Callers hold
// Connection.mu.
type reconnectGuard struct {
	timer *clock.Timer
}

func (g *reconnectGuard) pending() bool {
	return g.timer != nil
}

func (g *reconnectGuard) schedule(clk clock.Clock, d time.Duration, fn func()) bool {
	if g.timer != nil {
		return false
	}
	g.timer = clk.AfterFunc(d, fn)
	return true
}

func (g *reconnectGuard) fired() {
	g.timer = nil
}

func (g *reconnectGuard) stop() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// Connection keeps one websocket channel to the server alive, reconnecting
// after every closure for as long as Run is active.
type Connection struct {
	url     string
	dialer  Dialer
	clock   clock.Clock
	backoff backoff.BackOff
	events  chan Event
	logger  zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	state   State
	conn    Conn
	guard   reconnectGuard
	stopped bool
	wg      sync.WaitGroup
}

// Option configures a Connection.
type Option func(*Connection)

// WithDialer replaces the default gobwas dialer.
func WithDialer(d Dialer) Option {
	return func(c *Connection) {
		c.dialer = d
	}
}

// WithClock sets the clock used for reconnect timers.
func WithClock(clk clock.Clock) Option {
	return func(c *Connection) {
		c.clock = clk
	}
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Connection) {
		c.backoff = backoff.NewConstantBackOff(d)
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(c *Connection) {
		c.events = make(chan Event, n)
	}
}

// NewConnection creates a Connection for the websocket endpoint url.
func NewConnection(url string, opts ...Option) *Connection {
	c := &Connection{
		url:     url,
		dialer:  NetDialer{},
		clock:   clock.New(),
		backoff: backoff.NewConstantBackOff(DefaultReconnectDelay),
		events:  make(chan Event, 64),
		logger:  log.With().Str("component", "transport").Str("url", url).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the lifecycle notifications in delivery order.
func (c *Connection) Events() <-chan Event {
	return c.events
}

// URL returns the websocket endpoint.
func (c *Connection) URL() string {
	return c.url
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether Send may be called.
func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

// ReconnectPending reports whether a reconnect timer is scheduled.
func (c *Connection) ReconnectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guard.pending()
}

// Run connects and keeps the channel alive until ctx is done.
func (c *Connection) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return errors.New("connection already running")
	}
	c.ctx = ctx
	c.mu.Unlock()

	go c.connect()

	<-ctx.Done()
	c.shutdown()
	return nil
}

// Send writes one text frame. It fails with ErrNotOpen unless the
// connection is open; nothing is queued.
func (c *Connection) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return ErrNotOpen
	}
	if err := conn.Write(ctx, data); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

func (c *Connection) connect() {
	c.mu.Lock()
	if c.stopped || c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	ctx := c.ctx
	c.mu.Unlock()

	c.logger.Debug().Msg("connecting")
	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		c.closed(nil, err)
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info().Str("remote", conn.RemoteAddr()).Msg("websocket connection established")
	c.emit(Event{Kind: EventEstablished})
	go c.readLoop(ctx, conn)
}

func (c *Connection) readLoop(ctx context.Context, conn Conn) {
	defer c.wg.Done()

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.emit(Event{Kind: EventError, Err: err})
			}
			c.closed(conn, err)
			return
		}
		c.emit(Event{Kind: EventMessage, Data: data})
	}
}

// closed moves to StateClosed and schedules the single reconnect attempt.
// conn is nil when the dial itself failed.
func (c *Connection) closed(conn Conn, cause error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if conn != nil && c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateClosed
	delay := c.backoff.NextBackOff()
	scheduled := c.guard.schedule(c.clock, delay, c.reconnect)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	c.logger.Info().Err(cause).
		Bool("scheduled", scheduled).
		Dur("delay", delay).
		Msg("websocket connection closed, reconnecting")
	c.emit(Event{Kind: EventClosed, Err: cause})
}

func (c *Connection) reconnect() {
	c.mu.Lock()
	c.guard.fired()
	c.mu.Unlock()
	c.connect()
}

func (c *Connection) shutdown() {
	c.mu.Lock()
	c.stopped = true
	c.guard.stop()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
}

func (c *Connection) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}
