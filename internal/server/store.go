package server

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/raulk/clock"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// ErrUnknownUser is returned for ids or sessions that match no user.
var ErrUnknownUser = errors.New("unknown user")

// User is a seeded account. Session is the cookie value that authenticates
// it.
type User struct {
	ID       int    `yaml:"id"`
	Username string `yaml:"username"`
	Session  string `yaml:"session"`
}

type storedMessage struct {
	protocol.ChatMessage
	read bool
}

// Store keeps users, messages and likes in memory.
type Store struct {
	clock clock.Clock

	mu        sync.Mutex
	users     map[int]User
	sessions  map[string]int
	messages  []storedMessage
	nextID    int
	postLikes map[int]map[int]bool
	commLikes map[int]map[int]bool
}

// NewStore creates a store holding users. Users without a session get a
// random one.
func NewStore(users []User, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.New()
	}
	s := &Store{
		clock:     clk,
		users:     make(map[int]User, len(users)),
		sessions:  make(map[string]int, len(users)),
		nextID:    1,
		postLikes: make(map[int]map[int]bool),
		commLikes: make(map[int]map[int]bool),
	}
	for _, u := range users {
		if u.ID <= 0 {
			return nil, errors.Errorf("user %q has invalid id %d", u.Username, u.ID)
		}
		if _, dup := s.users[u.ID]; dup {
			return nil, errors.Errorf("duplicate user id %d", u.ID)
		}
		if u.Session == "" {
			u.Session = uuid.NewString()
		}
		if _, dup := s.sessions[u.Session]; dup {
			return nil, errors.Errorf("duplicate session for user %d", u.ID)
		}
		s.users[u.ID] = u
		s.sessions[u.Session] = u.ID
	}
	return s, nil
}

// Users returns the users ordered by id.
func (s *Store) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Authenticate resolves a session cookie value to a user.
func (s *Store) Authenticate(session string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[session]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return s.users[id], nil
}

// SaveMessage stores a message from sender to recipient and returns it as
// stored.
func (s *Store) SaveMessage(senderID, recipientID int, content string) (protocol.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.users[senderID]
	if !ok {
		return protocol.ChatMessage{}, errors.Wrapf(ErrUnknownUser, "sender %d", senderID)
	}
	if _, ok := s.users[recipientID]; !ok {
		return protocol.ChatMessage{}, errors.Wrapf(ErrUnknownUser, "recipient %d", recipientID)
	}

	msg := protocol.ChatMessage{
		ID:          s.nextID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Username:    sender.Username,
		Content:     content,
		CreatedAt:   s.clock.Now().UTC(),
		Type:        protocol.EventTypeMessage,
	}
	s.nextID++
	s.messages = append(s.messages, storedMessage{ChatMessage: msg})
	return msg, nil
}

// Conversation marks everything peerID sent to userID as read and returns
// the messages between them, oldest first, with IsSent set from userID's
// point of view.
func (s *Store) Conversation(userID, peerID int) []protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []protocol.ChatMessage{}
	for i := range s.messages {
		m := &s.messages[i]
		switch {
		case m.SenderID == peerID && m.RecipientID == userID:
			m.read = true
		case m.SenderID == userID && m.RecipientID == peerID:
		default:
			continue
		}
		msg := m.ChatMessage
		msg.IsSent = msg.SenderID == userID
		out = append(out, msg)
	}
	return out
}

// UnreadCounts groups userID's unread messages by sender, ordered by
// sender id.
func (s *Store) UnreadCounts(userID int) []protocol.UnreadCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySender := make(map[int]int)
	for _, m := range s.messages {
		if m.RecipientID == userID && !m.read {
			bySender[m.SenderID]++
		}
	}
	out := make([]protocol.UnreadCount, 0, len(bySender))
	for sender, n := range bySender {
		out = append(out, protocol.UnreadCount{SenderID: sender, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderID < out[j].SenderID })
	return out
}

// TogglePostLike flips userID's like on postID and returns the new count.
func (s *Store) TogglePostLike(postID, userID int) int {
	return s.toggle(s.postLikes, postID, userID)
}

// ToggleCommentLike flips userID's like on commentID and returns the new
// count.
func (s *Store) ToggleCommentLike(commentID, userID int) int {
	return s.toggle(s.commLikes, commentID, userID)
}

func (s *Store) toggle(likes map[int]map[int]bool, id, userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := likes[id]
	if !ok {
		set = make(map[int]bool)
		likes[id] = set
	}
	if set[userID] {
		delete(set, userID)
	} else {
		set[userID] = true
	}
	return len(set)
}
