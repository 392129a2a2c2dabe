// Package ws provides the client side of the chat websocket channel: a
// gobwas/ws backed connection and a reconnecting Connection on top of it.
package ws

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	gws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/pkg/errors"
)

// Conn abstracts one established websocket connection.
type Conn interface {
	// Read reads a single text frame payload.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single text frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// EndpointURL derives the websocket endpoint from the page origin: wss when
// the origin is https, ws otherwise.
func EndpointURL(origin, path string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", errors.Wrapf(err, "parse origin %q", origin)
	}
	if u.Host == "" {
		return "", errors.Errorf("origin %q has no host", origin)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	if path == "" {
		path = "/ws"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}

// NetDialer dials with gobwas/ws, sending Header with the handshake.
type NetDialer struct {
	Header  http.Header
	Timeout time.Duration
}

var _ Dialer = NetDialer{}

// Dial implements Dialer.
func (d NetDialer) Dial(ctx context.Context, urlStr string) (Conn, error) {
	dialer := gws.Dialer{Timeout: d.Timeout}
	if len(d.Header) > 0 {
		dialer.Header = gws.HandshakeHeaderHTTP(d.Header)
	}
	conn, br, _, err := dialer.Dial(ctx, urlStr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", urlStr)
	}
	return NewConn(conn, br), nil
}

// SessionHeader returns handshake headers carrying the session cookie.
func SessionHeader(session string) http.Header {
	h := http.Header{}
	if session != "" {
		h.Set("Cookie", (&http.Cookie{Name: "session", Value: session}).String())
	}
	return h
}

// clientConn wraps net.Conn for client-side websocket framing.
type clientConn struct {
	conn   net.Conn
	reader io.Reader
	mu     sync.Mutex
}

// NewConn wraps a dialed net.Conn. br holds bytes the server sent right
// after the handshake and may be nil.
func NewConn(conn net.Conn, br *bufio.Reader) Conn {
	c := &clientConn{conn: conn, reader: conn}
	if br != nil {
		c.reader = br
	}
	return c
}

// lockedWriter serializes control-frame replies with data writes.
type lockedWriter struct {
	c *clientConn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.conn.Write(p)
}

func (c *clientConn) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}
	rw := struct {
		io.Reader
		io.Writer
	}{c.reader, lockedWriter{c}}

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) &&
				(closed.Code == gws.StatusNormalClosure || closed.Code == gws.StatusGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if op == gws.OpText || op == gws.OpBinary {
			return data, nil
		}
	}
}

func (c *clientConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientText(c.conn, data)
}

func (c *clientConn) Close() error {
	c.mu.Lock()
	_ = wsutil.WriteClientMessage(c.conn, gws.OpClose, gws.NewCloseFrameBody(gws.StatusNormalClosure, ""))
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *clientConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
