package screen

import (
	"testing"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// assertInvariant checks Conn != nil iff Connected for every entry, and the connected counter.
func assertInvariant(t *testing.T, r *Registry) {
	t.Helper()
	connected := 0
	for id, e := range r.entries {
		assert.Equal(t, e.Connected, e.Conn != nil, "entry %s violates conn/connected invariant", id)
		if e.Connected {
			connected++
		}
	}
	assert.Equal(t, connected, r.ConnectedCount())
}

func TestRegistry_RegisterNewScreen(t *testing.T) {
	r := NewRegistry()
	peer := newFakePeer("p1")

	status, isNew := r.Register("abcdef123456", "", peer, t0)

	assert.True(t, isNew)
	assert.Equal(t, domain.ScreenStatus{
		ID:         "abcdef123456",
		Name:       "Screen abcdef12",
		Connected:  true,
		LastSeen:   t0,
		Resolution: "Unknown",
	}, status)
	assert.Same(t, peer, r.Conn("abcdef123456"))
	assertInvariant(t, r)
}

func TestRegistry_ReRegisterKeepsNameAndReassignsConn(t *testing.T) {
	r := NewRegistry()
	first, second := newFakePeer("p1"), newFakePeer("p2")

	r.Register("s1", "800x600", first, t0)
	_, err := r.Rename("s1", "Lobby")
	require.NoError(t, err)

	status, isNew := r.Register("s1", "1920x1080", second, t0.Add(time.Minute))

	assert.False(t, isNew)
	assert.Equal(t, "Lobby", status.Name)
	assert.Equal(t, "1920x1080", status.Resolution)
	assert.Equal(t, t0.Add(time.Minute), status.LastSeen)
	assert.Same(t, second, r.Conn("s1"))
	assert.Equal(t, 1, r.ConnectedCount())
	assertInvariant(t, r)
}

func TestRegistry_TouchUnknownIsNoop(t *testing.T) {
	r := NewRegistry()

	_, reconnected, ok := r.Touch("ghost", newFakePeer("p"), t0)

	assert.False(t, ok)
	assert.False(t, reconnected)
	assert.Zero(t, r.Len())
}

func TestRegistry_TouchReconnectsDisconnectedEntry(t *testing.T) {
	r := NewRegistry()
	peer := newFakePeer("p1")
	r.Register("s1", "", peer, t0)
	r.MarkDisconnected("s1", peer, t0.Add(time.Second))

	status, reconnected, ok := r.Touch("s1", peer, t0.Add(2*time.Second))

	require.True(t, ok)
	assert.True(t, reconnected)
	assert.True(t, status.Connected)
	assert.Equal(t, t0.Add(2*time.Second), status.LastSeen)
	assertInvariant(t, r)

	_, reconnected, _ = r.Touch("s1", peer, t0.Add(3*time.Second))
	assert.False(t, reconnected, "touch on a connected entry is not a transition")
}

func TestRegistry_MarkDisconnected(t *testing.T) {
	r := NewRegistry()
	peer := newFakePeer("p1")
	r.Register("s1", "", peer, t0)

	status, changed := r.MarkDisconnected("s1", peer, t0.Add(time.Minute))

	assert.True(t, changed)
	assert.False(t, status.Connected)
	assert.Equal(t, t0.Add(time.Minute), status.LastSeen)
	assert.Nil(t, r.Conn("s1"))
	assertInvariant(t, r)

	_, changed = r.MarkDisconnected("s1", peer, t0.Add(2*time.Minute))
	assert.False(t, changed, "second disconnect is not a transition")
}

func TestRegistry_MarkDisconnectedNoops(t *testing.T) {
	r := NewRegistry()
	stale, current := newFakePeer("old"), newFakePeer("new")
	r.Register("s1", "", stale, t0)
	r.Register("s1", "", current, t0)

	tests := []struct {
		name string
		id   string
		conn domain.Peer
	}{
		{"unknown identity", "ghost", current},
		{"replaced peer", "s1", stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, changed := r.MarkDisconnected(tt.id, tt.conn, t0.Add(time.Hour))
			assert.False(t, changed)
			assert.Same(t, current, r.Conn("s1"))
			assertInvariant(t, r)
		})
	}
}

func TestRegistry_Rename(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "", newFakePeer("p"), t0)

	status, err := r.Rename("s1", "  Reception  ")
	require.NoError(t, err)
	assert.Equal(t, "Reception", status.Name)

	_, err = r.Rename("ghost", "x")
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "", newFakePeer("p"), t0)

	require.NoError(t, r.Remove("s1"))
	assert.Zero(t, r.Len())
	assert.Zero(t, r.ConnectedCount())
	assert.ErrorIs(t, r.Remove("s1"), domain.ErrScreenNotFound)
}

func TestRegistry_ListIsSortedSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("charlie", "", newFakePeer("c"), t0)
	r.Register("alpha", "", newFakePeer("a"), t0)
	r.Register("bravo", "", newFakePeer("b"), t0)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, r.IDs())

	list[0].Name = "mutated"
	status, _ := r.Get("alpha")
	assert.NotEqual(t, "mutated", status.Name)
}
