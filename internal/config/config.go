// Package config loads the chat client configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/omochice/realtime-messenger/internal/chat"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultUnreadInterval = 10 * time.Second
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultWebSocketPath  = "/ws"
	DefaultHistoryPath    = "/chat-history"
	DefaultUnreadPath     = "/unread-messages"
	DefaultLogLevel       = "info"
)

// Paths are the server endpoints relative to the origin.
type Paths struct {
	WebSocket string `yaml:"websocket"`
	History   string `yaml:"history"`
	Unread    string `yaml:"unread"`
}

// Log configures logging output.
type Log struct {
	Level string `yaml:"level"`
	// File receives log output when set. The TUI always logs to a file.
	File string `yaml:"file"`
}

// Config is the chat client configuration.
type Config struct {
	Origin   string         `yaml:"origin"`
	Session  string         `yaml:"session"`
	SelfID   int            `yaml:"self_id"`
	Contacts []chat.Contact `yaml:"contacts"`
	Paths    Paths          `yaml:"paths"`

	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	UnreadInterval time.Duration `yaml:"unread_interval"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	HTTPRetries    int           `yaml:"http_retries"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`

	Log Log `yaml:"log"`
}

// Default returns a Config with every default applied and no origin.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the YAML file at path and applies defaults. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Paths.WebSocket == "" {
		c.Paths.WebSocket = DefaultWebSocketPath
	}
	if c.Paths.History == "" {
		c.Paths.History = DefaultHistoryPath
	}
	if c.Paths.Unread == "" {
		c.Paths.Unread = DefaultUnreadPath
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.UnreadInterval == 0 {
		c.UnreadInterval = DefaultUnreadInterval
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	for i := range c.Contacts {
		if c.Contacts[i].Initials == "" {
			c.Contacts[i].Initials = chat.InitialsFor(c.Contacts[i].Username)
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Origin == "" {
		return errors.New("origin is required")
	}
	if c.ReconnectDelay <= 0 {
		return errors.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay)
	}
	if c.UnreadInterval <= 0 {
		return errors.Errorf("unread_interval must be positive, got %s", c.UnreadInterval)
	}
	if c.HTTPTimeout <= 0 {
		return errors.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.HTTPRetries < 0 {
		return errors.Errorf("http_retries must not be negative, got %d", c.HTTPRetries)
	}
	seen := make(map[int]bool, len(c.Contacts))
	for _, contact := range c.Contacts {
		if contact.ID <= 0 {
			return errors.Errorf("contact %q has invalid id %d", contact.Username, contact.ID)
		}
		if contact.ID == c.SelfID {
			return errors.Errorf("contact %d is the current user", contact.ID)
		}
		if seen[contact.ID] {
			return errors.Errorf("duplicate contact id %d", contact.ID)
		}
		seen[contact.ID] = true
	}
	return nil
}

// RosterIDs returns the contact ids in roster order.
func (c *Config) RosterIDs() []int {
	ids := make([]int, len(c.Contacts))
	for i, contact := range c.Contacts {
		ids[i] = contact.ID
	}
	return ids
}

// Contact looks up a roster entry by id.
func (c *Config) Contact(id int) (chat.Contact, bool) {
	for _, contact := range c.Contacts {
		if contact.ID == id {
			return contact, true
		}
	}
	return chat.Contact{}, false
}
