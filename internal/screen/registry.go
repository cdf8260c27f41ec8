package screen

import (
	"slices"
	"strings"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
)

// Entry is the registry's record of one screen.
// Invariant: Conn != nil iff Connected.
type Entry struct {
	ID         string
	Name       string
	Connected  bool
	LastSeen   time.Time
	Resolution string
	Conn       domain.Peer
}

func (e *Entry) status() domain.ScreenStatus {
	return domain.ScreenStatus{
		ID:         e.ID,
		Name:       e.Name,
		Connected:  e.Connected,
		LastSeen:   e.LastSeen,
		Resolution: e.Resolution,
	}
}

// Registry is the authoritative table of known screens.
// Entries live until Remove; a disconnect only marks them stale.
type Registry struct {
	entries   map[string]*Entry
	connected int
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register creates or refreshes the entry for id and hands ownership to conn.
// isNew reports whether the identity was previously unseen.
func (r *Registry) Register(id, resolution string, conn domain.Peer, now time.Time) (status domain.ScreenStatus, isNew bool) {
	if resolution == "" {
		resolution = domain.DefaultResolution
	}

	entry, ok := r.entries[id]
	if !ok {
		entry = &Entry{
			ID:   id,
			Name: domain.DefaultScreenName(id),
		}
		r.entries[id] = entry
	}

	entry.Resolution = resolution
	entry.LastSeen = now
	r.attach(entry, conn)

	return entry.status(), !ok
}

// Touch refreshes liveness for a heartbeat received on conn.
// Unknown identities are ignored. reconnected reports a DISCONNECTED -> CONNECTED flip.
func (r *Registry) Touch(id string, conn domain.Peer, now time.Time) (status domain.ScreenStatus, reconnected, ok bool) {
	entry, ok := r.entries[id]
	if !ok {
		return domain.ScreenStatus{}, false, false
	}

	reconnected = !entry.Connected
	entry.LastSeen = now
	r.attach(entry, conn)

	return entry.status(), reconnected, true
}

// MarkDisconnected flips the entry to disconnected when conn still owns it.
// Unknown identities, already-disconnected entries and disconnects from a peer that
// has since been replaced are all no-ops (changed == false).
func (r *Registry) MarkDisconnected(id string, conn domain.Peer, now time.Time) (status domain.ScreenStatus, changed bool) {
	entry, ok := r.entries[id]
	if !ok || !entry.Connected || entry.Conn != conn {
		return domain.ScreenStatus{}, false
	}

	r.attach(entry, nil)
	entry.LastSeen = now

	return entry.status(), true
}

func (r *Registry) Rename(id, name string) (domain.ScreenStatus, error) {
	entry, ok := r.entries[id]
	if !ok {
		return domain.ScreenStatus{}, domain.ErrScreenNotFound
	}
	entry.Name = strings.TrimSpace(name)
	return entry.status(), nil
}

// Remove deletes the entry. The caller drops the layout in the same step.
func (r *Registry) Remove(id string) error {
	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrScreenNotFound
	}
	r.attach(entry, nil)
	delete(r.entries, id)
	return nil
}

func (r *Registry) Get(id string) (domain.ScreenStatus, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return domain.ScreenStatus{}, false
	}
	return entry.status(), true
}

// Conn returns the live peer owning id, or nil when the screen is unknown or disconnected.
func (r *Registry) Conn(id string) domain.Peer {
	entry, ok := r.entries[id]
	if !ok {
		return nil
	}
	return entry.Conn
}

// List returns a snapshot sorted by identity.
func (r *Registry) List() []domain.ScreenStatus {
	out := make([]domain.ScreenStatus, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.status())
	}
	slices.SortFunc(out, func(a, b domain.ScreenStatus) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// IDs returns all known identities, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// ConnectedCount returns how many entries currently own a live peer.
func (r *Registry) ConnectedCount() int {
	return r.connected
}

// peers returns every live peer owned by an entry.
func (r *Registry) peers() []domain.Peer {
	var out []domain.Peer
	for _, entry := range r.entries {
		if entry.Conn != nil {
			out = append(out, entry.Conn)
		}
	}
	return out
}

// attach is the only place Conn and Connected change, which keeps them in lockstep.
func (r *Registry) attach(entry *Entry, conn domain.Peer) {
	switch {
	case entry.Conn == nil && conn != nil:
		r.connected++
	case entry.Conn != nil && conn == nil:
		r.connected--
	}
	entry.Conn = conn
	entry.Connected = conn != nil
}
