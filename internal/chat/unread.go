package chat

import (
	"sort"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// BadgeRenderer displays unread indicators.
type BadgeRenderer interface {
	ShowBadge(contactID, count int)
	HideBadge(contactID int)
}

// UnreadTracker keeps per-contact unread counts for the roster. Only contacts
// that have an indicator (roster members) are tracked. It is owned by the
// client event loop and not safe for concurrent use.
type UnreadTracker struct {
	counts map[int]int
	badges BadgeRenderer
}

// NewUnreadTracker creates a tracker with a hidden badge for each roster id.
func NewUnreadTracker(roster []int, badges BadgeRenderer) *UnreadTracker {
	t := &UnreadTracker{
		counts: make(map[int]int, len(roster)),
		badges: badges,
	}
	for _, id := range roster {
		t.counts[id] = 0
	}
	return t
}

// Increment adds one unread message for contactID. Unknown contacts are
// ignored and false is returned.
func (t *UnreadTracker) Increment(contactID int) bool {
	n, ok := t.counts[contactID]
	if !ok {
		return false
	}
	n++
	t.counts[contactID] = n
	t.show(contactID, n)
	return true
}

// Clear zeroes and hides the badge for contactID.
func (t *UnreadTracker) Clear(contactID int) {
	if _, ok := t.counts[contactID]; !ok {
		return
	}
	t.counts[contactID] = 0
	t.show(contactID, 0)
}

// Reconcile replaces every badge with the server's counts. Contacts absent
// from counts, or with a count of zero or less, end up hidden.
func (t *UnreadTracker) Reconcile(counts []protocol.UnreadCount) {
	for id := range t.counts {
		t.counts[id] = 0
	}
	for _, c := range counts {
		if _, ok := t.counts[c.SenderID]; ok && c.Count > 0 {
			t.counts[c.SenderID] = c.Count
		}
	}
	for _, id := range t.ids() {
		t.show(id, t.counts[id])
	}
}

// Count returns the unread count for contactID.
func (t *UnreadTracker) Count(contactID int) int {
	return t.counts[contactID]
}

// Counts returns a copy of the non-zero counts.
func (t *UnreadTracker) Counts() map[int]int {
	out := make(map[int]int)
	for id, n := range t.counts {
		if n > 0 {
			out[id] = n
		}
	}
	return out
}

func (t *UnreadTracker) show(contactID, n int) {
	if t.badges == nil {
		return
	}
	if n > 0 {
		t.badges.ShowBadge(contactID, n)
	} else {
		t.badges.HideBadge(contactID)
	}
}

func (t *UnreadTracker) ids() []int {
	ids := make([]int, 0, len(t.counts))
	for id := range t.counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
