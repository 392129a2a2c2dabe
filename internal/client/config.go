package client

import (
	"github.com/pkg/errors"

	"github.com/omochice/realtime-messenger/internal/api"
	"github.com/omochice/realtime-messenger/internal/config"
	"github.com/omochice/realtime-messenger/internal/transport/ws"
)

// NewFromConfig builds the websocket transport, the HTTP API client and a
// Client from cfg. opts are applied after the configured values.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	endpoint, err := ws.EndpointURL(cfg.Origin, cfg.Paths.WebSocket)
	if err != nil {
		return nil, err
	}
	dialer := ws.NetDialer{
		Header:  ws.SessionHeader(cfg.Session),
		Timeout: cfg.HTTPTimeout,
	}
	conn := ws.NewConnection(endpoint,
		ws.WithDialer(dialer),
		ws.WithReconnectDelay(cfg.ReconnectDelay),
	)

	httpAPI, err := api.New(cfg.Origin,
		api.WithSession(cfg.Session),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRetryMax(cfg.HTTPRetries),
		api.WithPaths(cfg.Paths.History, cfg.Paths.Unread),
	)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithUnreadInterval(cfg.UnreadInterval),
		WithWriteTimeout(cfg.WriteTimeout),
	}
	return New(conn, httpAPI, cfg.Contacts, append(base, opts...)...), nil
}
