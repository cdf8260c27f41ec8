package domain

// Peer is one live bidirectional connection (a screen or a dashboard).
//
// Send must never block: implementations enqueue the frame and report
// ErrPeerClosed or ErrPeerSlow when it cannot be delivered.
type Peer interface {
	ID() string
	Send(data []byte) error
	Close()
}
