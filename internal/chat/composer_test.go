package chat_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/realtime-messenger/internal/chat"
)

func TestComposer_Submit(t *testing.T) {
	sender := &fakeSender{open: true}
	composer := chat.NewComposer(sender)
	in := &chat.TextInput{Value: "  hello there \n"}

	ok := composer.Submit(context.Background(), in, bob.ID)

	require.True(t, ok)
	assert.Empty(t, in.Value)
	require.Len(t, sender.sent, 1)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(sender.sent[0], &envelope))
	assert.Equal(t, map[string]any{
		"type":         "message",
		"recipient_id": float64(bob.ID),
		"content":      "hello there",
	}, envelope)
}

func TestComposer_DropsInvalidSubmissions(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		recipientID int
		open        bool
	}{
		{name: "empty text", text: "", recipientID: bob.ID, open: true},
		{name: "whitespace only", text: " \t\n ", recipientID: bob.ID, open: true},
		{name: "no recipient", text: "hi", recipientID: 0, open: true},
		{name: "connection not open", text: "hi", recipientID: bob.ID, open: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{open: tt.open}
			composer := chat.NewComposer(sender)
			in := &chat.TextInput{Value: tt.text}

			ok := composer.Submit(context.Background(), in, tt.recipientID)

			assert.False(t, ok)
			assert.Empty(t, sender.sent)
			assert.Equal(t, tt.text, in.Value, "input must not be cleared")
		})
	}
}

func TestComposer_SendFailureKeepsInput(t *testing.T) {
	sender := &fakeSender{open: true, sendErr: errors.New("broken pipe")}
	composer := chat.NewComposer(sender)
	in := &chat.TextInput{Value: "hi"}

	assert.False(t, composer.Submit(context.Background(), in, bob.ID))
	assert.Equal(t, "hi", in.Value)
}
