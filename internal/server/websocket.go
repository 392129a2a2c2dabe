package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// greeting is pushed to every client right after the upgrade.
const greeting = "Connected to chat server"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// wsClient is one websocket connection of a user.
type wsClient struct {
	userID   int
	conn     *websocket.Conn
	outgoing chan []byte
}

// handleWebSocket authenticates, upgrades and registers the client
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		userID:   user.ID,
		conn:     conn,
		outgoing: make(chan []byte, 256),
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()
	s.logger.Info().Int("user_id", user.ID).Msg("client connected")

	hello, _ := json.Marshal(protocol.ChatMessage{Type: protocol.EventTypeConnect, Content: greeting})
	client.outgoing <- hello

	s.wg.Add(1)
	go s.handleClient(client)
}

// handleClient handles a single WebSocket client connection
func (s *Server) handleClient(client *wsClient) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		close(client.outgoing)
		s.mu.Unlock()
		client.conn.Close()
		s.logger.Info().Int("user_id", client.userID).Msg("client disconnected")
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for data := range client.outgoing {
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn().Err(err).Msg("failed to send message to client")
				return
			}
		}
		_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket error")
			}
			return
		}

		var in protocol.OutboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Warn().Err(err).Msg("failed to decode message")
			continue
		}
		if in.Content == "" {
			continue
		}
		s.deliver(client, in)
	}
}

// deliver stores the message, echoes it to the sending connection and
// forwards it to every connection of the recipient.
func (s *Server) deliver(from *wsClient, in protocol.OutboundMessage) {
	msg, err := s.store.SaveMessage(from.userID, in.RecipientID, in.Content)
	if err != nil {
		s.logger.Warn().Err(err).Int("sender_id", from.userID).Msg("failed to save message")
		return
	}

	msg.IsSent = true
	echo, _ := json.Marshal(msg)
	msg.IsSent = false
	forward, _ := json.Marshal(msg)

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.enqueue(from, echo)
	for client := range s.clients {
		if client.userID == in.RecipientID && client != from {
			s.enqueue(client, forward)
		}
	}
}

// enqueue must be called with s.mu held.
func (s *Server) enqueue(client *wsClient, data []byte) {
	select {
	case client.outgoing <- data:
	default:
		s.logger.Warn().Int("user_id", client.userID).Msg("client channel full, skipping")
	}
}
