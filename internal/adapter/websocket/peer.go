package websocket

import (
	"sync"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
	shutdownReason    = "server shutting down"
)

// Peer wraps one WebSocket connection. A single writer goroutine owns all
// writes; Send only enqueues.
type Peer struct {
	id          string
	connection  *websocket.Conn
	clock       clockwork.Clock
	metrics     *metrics.WebSocketMetrics
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

var _ domain.Peer = (*Peer)(nil)

// NewPeer starts the writer goroutine for connection.
func NewPeer(connection *websocket.Conn, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Peer {
	p := &Peer{
		id:          uuid.NewString(),
		connection:  connection,
		clock:       clock,
		metrics:     m,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	p.configurePongHandler()
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Peer) ID() string { return p.id }

// Send enqueues a frame. A full buffer evicts the peer rather than blocking the caller.
func (p *Peer) Send(data []byte) error {
	select {
	case <-p.doneChannel:
		return domain.ErrPeerClosed
	default:
	}

	select {
	case p.sendChannel <- data:
		return nil
	case <-p.doneChannel:
		return domain.ErrPeerClosed
	default:
		p.metrics.SlowPeersEvicted.Inc()
		go p.Close()
		return domain.ErrPeerSlow
	}
}

// Close sends a close frame and tears the connection down. Safe to call repeatedly.
func (p *Peer) Close() {
	p.stopOnce.Do(func() {
		close(p.doneChannel)

		// The writer must be gone before we write the close frame.
		p.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, shutdownReason)
		p.updateWriteDeadline()
		_ = p.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = p.connection.Close()
	})
	p.wg.Wait()
}

// abort is the writer's exit on a broken connection: later sends fail fast and no close
// frame is attempted. It must not wait on the writer, which is the caller.
func (p *Peer) abort() {
	p.stopOnce.Do(func() {
		close(p.doneChannel)
		_ = p.connection.Close()
	})
}

// Done is closed once the peer is closed or its connection broke.
func (p *Peer) Done() <-chan struct{} {
	return p.doneChannel
}

func (p *Peer) run() {
	ticker := p.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.sendChannel:
			start := p.clock.Now()
			p.updateWriteDeadline()
			if err := p.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				p.abort()
				return
			}
			p.metrics.MessagesSent.Inc()
			p.metrics.SendDuration.Observe(p.clock.Since(start).Seconds())
		case <-ticker.Chan():
			p.updateWriteDeadline()
			if err := p.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.metrics.PingFailures.Inc()
				p.abort()
				return
			}
		case <-p.doneChannel:
			return
		}
	}
}

func (p *Peer) configurePongHandler() {
	p.updateReadDeadline()
	p.connection.SetPongHandler(func(string) error {
		p.updateReadDeadline()
		return nil
	})
}

func (p *Peer) updateWriteDeadline() {
	_ = p.connection.SetWriteDeadline(p.clock.Now().Add(writeDeadline))
}

func (p *Peer) updateReadDeadline() {
	_ = p.connection.SetReadDeadline(p.clock.Now().Add(pongDeadline))
}

// extendReadDeadline is called after every inbound frame; any traffic proves liveness.
func (p *Peer) extendReadDeadline() {
	p.updateReadDeadline()
}
