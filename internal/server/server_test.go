package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/realtime-messenger/internal/server"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

func newTestServer(t *testing.T) (*httptest.Server, *server.Store) {
	t.Helper()
	store, _ := newStore(t)
	srv := server.New(":0", store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return ts, store
}

func dial(t *testing.T, ts *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Cookie", "session="+session)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	greeting := read(t, conn)
	require.Equal(t, protocol.EventTypeConnect, greeting.Type)
	require.Equal(t, "Connected to chat server", greeting.Content)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) protocol.ChatMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)

	var msg protocol.ChatMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, recipientID int, content string) {
	t.Helper()
	data, err := protocol.NewOutboundMessage(recipientID, content).Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func get(t *testing.T, ts *httptest.Server, path, session string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: session})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_WebSocketRequiresSession(t *testing.T) {
	ts, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_EchoAndForward(t *testing.T) {
	ts, _ := newTestServer(t)
	me := dial(t, ts, "sess-me")
	alice := dial(t, ts, "sess-alice")

	send(t, me, 7, "hi alice")

	echo := read(t, me)
	assert.Equal(t, protocol.EventTypeMessage, echo.Type)
	assert.True(t, echo.IsSent)
	assert.Equal(t, 2, echo.SenderID)
	assert.Equal(t, 7, echo.RecipientID)
	assert.Equal(t, "me", echo.Username)
	assert.Equal(t, "hi alice", echo.Content)
	assert.NotZero(t, echo.ID)

	forwarded := read(t, alice)
	assert.False(t, forwarded.IsSent)
	assert.Equal(t, echo.ID, forwarded.ID)
	assert.Equal(t, "hi alice", forwarded.Content)
}

func TestServer_IgnoresEmptyContent(t *testing.T) {
	ts, _ := newTestServer(t)
	me := dial(t, ts, "sess-me")

	send(t, me, 7, "")
	require.NoError(t, me.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, me, 7, "real")

	assert.Equal(t, "real", read(t, me).Content)
}

func TestServer_HistoryAndUnread(t *testing.T) {
	ts, store := newTestServer(t)
	_, err := store.SaveMessage(7, 2, "one")
	require.NoError(t, err)
	_, err = store.SaveMessage(7, 2, "two")
	require.NoError(t, err)

	resp := get(t, ts, "/unread-messages", "sess-me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread protocol.UnreadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&unread))
	assert.Equal(t, []protocol.UnreadCount{{SenderID: 7, Count: 2}}, unread.UnreadCounts)

	resp = get(t, ts, "/chat-history?user_id=7", "sess-me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []protocol.ChatMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "two", history[1].Content)

	resp = get(t, ts, "/unread-messages", "sess-me")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&unread))
	assert.NotNil(t, unread.UnreadCounts)
	assert.Empty(t, unread.UnreadCounts)
}

func TestServer_HTTPErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, get(t, ts, "/chat-history?user_id=7", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts, "/unread-messages", "bogus").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/chat-history", "sess-me").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/chat-history?user_id=x", "sess-me").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts, "/like", "sess-me").StatusCode)
}

func TestServer_Likes(t *testing.T) {
	ts, _ := newTestServer(t)

	post := func(path string, form url.Values) string {
		req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "session", Value: "sess-me"})
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var b bytes.Buffer
		_, err = b.ReadFrom(resp.Body)
		require.NoError(t, err)
		return b.String()
	}

	assert.Equal(t, "1", post("/like", url.Values{"post_id": {"3"}}))
	assert.Equal(t, "0", post("/like", url.Values{"post_id": {"3"}}))
	assert.Equal(t, "1", post("/like-comment", url.Values{"comment_id": {"8"}}))
}

func TestServer_StartStop(t *testing.T) {
	store, _ := newStore(t)
	srv := server.New("127.0.0.1:0", store)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, 10*time.Millisecond)

	header := http.Header{}
	header.Set("Cookie", "session=sess-me")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}
	assert.Equal(t, 0, srv.ClientCount())
}

func TestLoadUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: 2
    username: me
    session: sess-me
  - id: 7
    username: alice
`), 0o600))

	users, err := server.LoadUsers(path)
	require.NoError(t, err)
	assert.Equal(t, []server.User{
		{ID: 2, Username: "me", Session: "sess-me"},
		{ID: 7, Username: "alice"},
	}, users)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("users: []\n"), 0o600))
	_, err = server.LoadUsers(empty)
	require.Error(t, err)
}
