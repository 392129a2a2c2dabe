package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
origin: http://localhost:8080
session: abc
self_id: 2
reconnect_delay: 5s
http_retries: 2
contacts:
  - id: 7
    username: alice
  - id: 9
    username: bob marley
    initials: BO
log:
  level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8080", cfg.Origin)
	assert.Equal(t, "abc", cfg.Session)
	assert.Equal(t, 2, cfg.SelfID)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, config.DefaultUnreadInterval, cfg.UnreadInterval)
	assert.Equal(t, 2, cfg.HTTPRetries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.Paths{WebSocket: "/ws", History: "/chat-history", Unread: "/unread-messages"}, cfg.Paths)
	assert.Equal(t, []chat.Contact{
		{ID: 7, Username: "alice", Initials: "A"},
		{ID: 9, Username: "bob marley", Initials: "BO"},
	}, cfg.Contacts)
	assert.Equal(t, []int{7, 9}, cfg.RosterIDs())

	c, ok := cfg.Contact(9)
	require.True(t, ok)
	assert.Equal(t, "bob marley", c.Username)
	_, ok = cfg.Contact(1)
	assert.False(t, ok)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 10*time.Second, cfg.UnreadInterval)
	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	assert.Error(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "origin: [unterminated"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "missing origin", mutate: func(c *config.Config) { c.Origin = "" }},
		{name: "negative reconnect delay", mutate: func(c *config.Config) { c.ReconnectDelay = -time.Second }},
		{name: "negative unread interval", mutate: func(c *config.Config) { c.UnreadInterval = -time.Second }},
		{name: "negative retries", mutate: func(c *config.Config) { c.HTTPRetries = -1 }},
		{name: "invalid contact id", mutate: func(c *config.Config) { c.Contacts = []chat.Contact{{ID: 0}} }},
		{name: "self in roster", mutate: func(c *config.Config) { c.Contacts = []chat.Contact{{ID: 2}} }},
		{name: "duplicate contact", mutate: func(c *config.Config) { c.Contacts = []chat.Contact{{ID: 7}, {ID: 7}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Origin = "http://localhost:8080"
			cfg.SelfID = 2
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
