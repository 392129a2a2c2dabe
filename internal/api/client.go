// Package api talks to the chat server's HTTP endpoints: conversation
// history, unread counts and the feed like toggles.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

const (
	DefaultHistoryPath = "/chat-history"
	DefaultUnreadPath  = "/unread-messages"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client is an HTTP client bound to one origin and session.
type Client struct {
	base        *url.URL
	http        *retryablehttp.Client
	session     string
	historyPath string
	unreadPath  string
}

// Option configures a Client.
type Option func(*Client)

// WithSession sets the session cookie value sent with every request.
func WithSession(session string) Option {
	return func(c *Client) {
		c.session = session
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// WithRetryMax sets how many times a failed request is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithPaths overrides the history and unread endpoint paths.
func WithPaths(history, unread string) Option {
	return func(c *Client) {
		if history != "" {
			c.historyPath = history
		}
		if unread != "" {
			c.unreadPath = unread
		}
	}
}

// New creates a Client for origin, e.g. "http://localhost:8080".
func New(origin string, opts ...Option) (*Client, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, errors.Wrapf(err, "parse origin %q", origin)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("origin %q must include scheme and host", origin)
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 0
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient = &http.Client{Timeout: 10 * time.Second}

	c := &Client{
		base:        base,
		http:        rc,
		historyPath: DefaultHistoryPath,
		unreadPath:  DefaultUnreadPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// History returns the conversation with contactID in server order. An
// empty slice is a valid answer distinct from an error.
func (c *Client) History(ctx context.Context, contactID int) ([]protocol.ChatMessage, error) {
	q := url.Values{"user_id": []string{strconv.Itoa(contactID)}}
	body, err := c.do(ctx, http.MethodGet, c.historyPath, q, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "load history for %d", contactID)
	}
	return protocol.DecodeHistory(body)
}

// UnreadCounts returns the server's unread counts. ok is false when the
// server reported nothing to reconcile.
func (c *Client) UnreadCounts(ctx context.Context) (counts []protocol.UnreadCount, ok bool, err error) {
	body, err := c.do(ctx, http.MethodGet, c.unreadPath, nil, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "load unread counts")
	}
	var resp protocol.UnreadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, errors.Wrap(err, "decode unread counts")
	}
	if resp.UnreadCounts == nil {
		return nil, false, nil
	}
	return resp.UnreadCounts, true, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = path
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, form url.Values) ([]byte, error) {
	target := c.endpoint(path, q)

	var body interface{}
	if form != nil {
		body = []byte(form.Encode())
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: c.session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return data, nil
}
