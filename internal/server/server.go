// Package server is an in-memory chat server speaking the same protocol as
// the production backend. It is used for local development and tests.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sessionCookie = "session"

// Server serves the websocket endpoint and the HTTP collaborators.
type Server struct {
	address  string
	store    *Store
	listener net.Listener
	server   *http.Server
	clients  map[*wsClient]bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// New creates a Server listening on address once started.
func New(address string, store *Store) *Server {
	return &Server{
		address: address,
		store:   store,
		clients: make(map[*wsClient]bool),
		logger:  log.With().Str("component", "server").Logger(),
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/chat-history", s.authenticated(s.handleHistory))
	mux.HandleFunc("/unread-messages", s.authenticated(s.handleUnread))
	mux.HandleFunc("/like", s.authenticated(s.handleLike))
	mux.HandleFunc("/like-comment", s.authenticated(s.handleLikeComment))
	return mux
}

// Start listens and serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrap(err, "failed to start server")
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("chat server started")

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		s.Stop()
		<-errChan
		return nil
	}
}

// Stop closes the listener and every client connection.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	for client := range s.clients {
		client.conn.Close()
	}
	s.mu.Unlock()

	if srv != nil {
		srv.Close()
	}
	s.wg.Wait()
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// authenticated resolves the session cookie and passes the user on.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) authenticate(r *http.Request) (User, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return User{}, false
	}
	user, err := s.store.Authenticate(cookie.Value)
	if err != nil {
		return User{}, false
	}
	return user, true
}
