package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user User) {
	peer := r.URL.Query().Get("user_id")
	if peer == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	peerID, err := strconv.Atoi(peer)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	writeJSON(w, s.store.Conversation(user.ID, peerID))
}

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request, user User) {
	writeJSON(w, protocol.UnreadResponse{UnreadCounts: s.store.UnreadCounts(user.ID)})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, user User) {
	s.toggleLike(w, r, "post_id", func(id int) int { return s.store.TogglePostLike(id, user.ID) })
}

func (s *Server) handleLikeComment(w http.ResponseWriter, r *http.Request, user User) {
	s.toggleLike(w, r, "comment_id", func(id int) int { return s.store.ToggleCommentLike(id, user.ID) })
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request, field string, toggle func(int) int) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(r.FormValue(field))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid "+field, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strconv.Itoa(toggle(id))))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
