// Package chat provides the client-side chat logic: which conversation is
// open, how inbound events are routed, unread badges and the composer.
package chat

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Contact is a roster entry with its display metadata.
type Contact struct {
	ID       int    `yaml:"id"`
	Username string `yaml:"username"`
	Initials string `yaml:"initials,omitempty"`
}

// HistoryRequest stamps a history fetch with the contact and selection
// generation it was issued for.
type HistoryRequest struct {
	ContactID  int
	Generation uint64
	RequestID  string
}

// Session holds the process-wide selection state. It is safe for
// concurrent use.
type Session struct {
	mu         sync.RWMutex
	active     int
	hasActive  bool
	generation uint64
}

// NewSession returns a session with no contact selected.
func NewSession() *Session {
	return &Session{}
}

// ActiveContact returns the selected contact id, if any.
func (s *Session) ActiveContact() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.hasActive
}

// IsActive reports whether id is the selected contact.
func (s *Session) IsActive(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActive && s.active == id
}

// Activate selects id and starts a new selection generation.
func (s *Session) Activate(id int) HistoryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
	s.hasActive = true
	s.generation++
	return HistoryRequest{ContactID: id, Generation: s.generation}
}

// IsCurrent reports whether req was issued for the current selection.
func (s *Session) IsCurrent(req HistoryRequest) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActive && s.active == req.ContactID && s.generation == req.Generation
}

// InitialsFor derives up to two upper-case initials from a username, one
// per word.
func InitialsFor(username string) string {
	var b strings.Builder
	for _, word := range strings.Fields(username) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) >= 2 {
			break
		}
	}
	return b.String()
}
