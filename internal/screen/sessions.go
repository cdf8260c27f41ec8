package screen

import "github.com/angeeinstein/web-kiosk-screen/internal/domain"

// SessionTracker binds a live peer to at most one screen identity.
type SessionTracker struct {
	bindings map[domain.Peer]string
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{bindings: make(map[domain.Peer]string)}
}

// Bind records peer -> id, overwriting any earlier binding of the same peer.
// It returns the identity the peer was bound to before, if any.
func (t *SessionTracker) Bind(peer domain.Peer, id string) (previous string, hadPrevious bool) {
	previous, hadPrevious = t.bindings[peer]
	t.bindings[peer] = id
	return previous, hadPrevious
}

func (t *SessionTracker) Resolve(peer domain.Peer) (string, bool) {
	id, ok := t.bindings[peer]
	return id, ok
}

// Unbind removes the peer's binding. ok is false for peers that never registered,
// such as dashboard-only connections.
func (t *SessionTracker) Unbind(peer domain.Peer) (id string, ok bool) {
	id, ok = t.bindings[peer]
	if ok {
		delete(t.bindings, peer)
	}
	return id, ok
}

func (t *SessionTracker) Len() int {
	return len(t.bindings)
}
