package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omochice/realtime-messenger/pkg/protocol"
)

func TestUnreadTracker_IncrementAndClear(t *testing.T) {
	f := newFixture()

	assert.True(t, f.unread.Increment(bob.ID))
	assert.True(t, f.unread.Increment(bob.ID))
	assert.Equal(t, 2, f.unread.Count(bob.ID))
	assert.Equal(t, map[int]int{bob.ID: 2}, f.badges.visible)

	f.unread.Clear(bob.ID)
	assert.Zero(t, f.unread.Count(bob.ID))
	assert.Empty(t, f.badges.visible)
}

func TestUnreadTracker_UnknownContact(t *testing.T) {
	f := newFixture()

	assert.False(t, f.unread.Increment(99))
	assert.Zero(t, f.unread.Count(99))
	f.unread.Clear(99)
	assert.Empty(t, f.badges.visible)
}

func TestUnreadTracker_ReconcileOverridesLocalIncrements(t *testing.T) {
	f := newFixture()
	f.unread.Increment(carol.ID)

	f.unread.Reconcile([]protocol.UnreadCount{{SenderID: bob.ID, Count: 3}})

	assert.Equal(t, map[int]int{bob.ID: 3}, f.badges.visible)
	assert.Equal(t, map[int]int{bob.ID: 3}, f.unread.Counts())
}

func TestUnreadTracker_ReconcileHidesZeroAndUnknown(t *testing.T) {
	f := newFixture()
	f.unread.Increment(alice.ID)

	f.unread.Reconcile([]protocol.UnreadCount{
		{SenderID: alice.ID, Count: 0},
		{SenderID: bob.ID, Count: -1},
		{SenderID: 77, Count: 4},
	})

	assert.Empty(t, f.badges.visible)
	assert.Empty(t, f.unread.Counts())
}

func TestUnreadTracker_ReconcileIsIdempotent(t *testing.T) {
	payload := []protocol.UnreadCount{{SenderID: bob.ID, Count: 3}, {SenderID: alice.ID, Count: 1}}

	once := newFixture()
	once.unread.Reconcile(payload)

	twice := newFixture()
	twice.unread.Reconcile(payload)
	twice.unread.Reconcile(payload)

	assert.Equal(t, once.badges.visible, twice.badges.visible)
	assert.Equal(t, once.unread.Counts(), twice.unread.Counts())
}

func TestUnreadTracker_IncrementAfterReconcile(t *testing.T) {
	f := newFixture()
	f.unread.Reconcile([]protocol.UnreadCount{{SenderID: bob.ID, Count: 3}})

	f.unread.Increment(bob.ID)

	assert.Equal(t, 4, f.badges.visible[bob.ID])
}
