package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termio/internal/protocol"
)

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	r := New(10)

	alice, err := r.Register("alice")
	require.NoError(t, err)
	bob, err := r.Register("alice") // duplicate names are allowed
	require.NoError(t, err)

	assert.NotEmpty(t, alice.ID)
	assert.NotEqual(t, alice.ID, bob.ID)
	assert.False(t, alice.ConnectedAt.IsZero())
	assert.Equal(t, 2, r.Count())
}

func TestRegisterCapacity(t *testing.T) {
	r := New(2)

	_, err := r.Register("a")
	require.NoError(t, err)
	_, err = r.Register("b")
	require.NoError(t, err)

	_, err = r.Register("c")
	require.Error(t, err)
	assert.Equal(t, 2, r.Count())

	// A slot freed by deregistration becomes available again.
	first := r.Snapshot()[0]
	_, removed := r.Deregister(first.UserID)
	require.True(t, removed)

	u, err := r.Register("c")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
}

func TestSnapshotJoinOrder(t *testing.T) {
	r := New(0)

	a, _ := r.Register("a")
	b, _ := r.Register("b")
	c, _ := r.Register("c")

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{snap[0].UserID, snap[1].UserID, snap[2].UserID})

	r.Deregister(b.ID)
	snap = r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, []string{a.ID, c.ID}, []string{snap[0].UserID, snap[1].UserID})
}

func TestDeregisterIdempotent(t *testing.T) {
	r := New(0)
	u, _ := r.Register("alice")

	removedUser, removed := r.Deregister(u.ID)
	assert.True(t, removed)
	assert.Equal(t, u.ID, removedUser.ID)

	// The second call reports nothing removed, so only one Leave is announced.
	_, removed = r.Deregister(u.ID)
	assert.False(t, removed)
	assert.Equal(t, 0, r.Count())
}

func TestUpdateFrame(t *testing.T) {
	r := New(0)
	u, _ := r.Register("alice")

	_, ok := r.LatestFrame(u.ID)
	assert.False(t, ok)

	frame, err := protocol.NewFrame(2, 2)
	require.NoError(t, err)
	r.UpdateFrame(u.ID, frame)

	got, ok := r.LatestFrame(u.ID)
	require.True(t, ok)
	assert.Same(t, frame, got)

	// A frame for an unknown user is a benign race, not an error.
	r.UpdateFrame("gone", frame)
	_, ok = r.LatestFrame("gone")
	assert.False(t, ok)
}

func TestConcurrentRegistrations(t *testing.T) {
	const workers = 32

	r := New(0)

	var wg sync.WaitGroup
	ids := make(chan string, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.Register("user")
			if err == nil {
				ids <- u.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate user id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
	assert.Equal(t, workers, r.Count())
	assert.Len(t, r.Snapshot(), workers)
}

func TestUserInfoFormat(t *testing.T) {
	r := New(0)
	u, _ := r.Register("alice")

	info := u.Info()
	assert.Equal(t, u.ID, info.UserID)
	assert.Equal(t, "alice", info.Username)
	assert.NotEmpty(t, info.ConnectedAt)
}
