package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// Sender is the outbound side of the transport connection.
type Sender interface {
	IsOpen() bool
	Send(ctx context.Context, data []byte) error
}

// Input is the text control the composer reads from.
type Input interface {
	Text() string
	Clear()
}

// Composer validates and sends new messages. The sender's own view is
// updated by the server echo, never optimistically.
type Composer struct {
	sender Sender
	logger zerolog.Logger
}

// NewComposer creates a Composer writing to sender.
func NewComposer(sender Sender) *Composer {
	return &Composer{
		sender: sender,
		logger: log.With().Str("component", "composer").Logger(),
	}
}

// Submit sends the input text to recipientID and clears the input. Empty
// text, a missing recipient (recipientID <= 0) or a closed connection drop
// the submission silently. It reports whether the message was sent.
func (c *Composer) Submit(ctx context.Context, in Input, recipientID int) bool {
	content := strings.TrimSpace(in.Text())
	if content == "" || recipientID <= 0 || !c.sender.IsOpen() {
		c.logger.Debug().
			Bool("empty", content == "").
			Int("recipient_id", recipientID).
			Msg("submission dropped")
		return false
	}

	msg := protocol.NewOutboundMessage(recipientID, content)
	data, err := msg.Encode()
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode message")
		return false
	}
	if err := c.sender.Send(ctx, data); err != nil {
		c.logger.Warn().Err(err).Int("recipient_id", recipientID).Msg("failed to send message")
		return false
	}

	in.Clear()
	return true
}

// TextInput is a minimal Input holding a string.
type TextInput struct {
	Value string
}

// Text implements Input.
func (t *TextInput) Text() string { return t.Value }

// Clear implements Input.
func (t *TextInput) Clear() { t.Value = "" }
