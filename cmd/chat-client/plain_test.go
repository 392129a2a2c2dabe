package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

func TestLineRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := newLineRenderer(&buf, []chat.Contact{{ID: 7, Username: "alice"}})

	r.ContactSelected(nil, chat.Contact{ID: 7, Username: "alice"})
	r.MessagesReplaced(nil)
	r.MessageAppended(protocol.ChatMessage{SenderID: 7, Content: "hi"})
	r.MessageAppended(protocol.ChatMessage{SenderID: 2, Content: "hello", IsSent: true, CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)})
	r.ShowBadge(9, 2)
	r.ConnectionChanged(false)

	assert.Equal(t, "*** now chatting with alice ***\n"+
		chat.EmptyConversationText+"\n"+
		"[alice]: hi\n"+
		"10:00AM [you]: hello\n"+
		"*** 2 unread from #9 ***\n"+
		"*** disconnected, reconnecting ***\n", buf.String())
}
