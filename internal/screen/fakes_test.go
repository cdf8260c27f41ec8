package screen

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/angeeinstein/web-kiosk-screen/internal/broadcast"
	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakePeer records every frame it is sent.
type fakePeer struct {
	id string

	mu     sync.Mutex
	frames []protocol.Envelope
	closed bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.ErrPeerClosed
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.frames = append(p.frames, env)
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) received() []protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Envelope(nil), p.frames...)
}

// events returns the names of received frames in order.
func (p *fakePeer) events() []string {
	frames := p.received()
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Event
	}
	return names
}

// last returns the most recent frame with the given event name.
func (p *fakePeer) last(t *testing.T, event string) json.RawMessage {
	t.Helper()
	frames := p.received()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i].Data
		}
	}
	require.Failf(t, "event not received", "peer %s never got %s (got %v)", p.id, event, p.events())
	return nil
}

func (p *fakePeer) statuses(t *testing.T) []domain.ScreenStatus {
	t.Helper()
	var out []domain.ScreenStatus
	for _, f := range p.received() {
		if f.Event != protocol.EventScreenStatus {
			continue
		}
		var s domain.ScreenStatus
		require.NoError(t, json.Unmarshal(f.Data, &s))
		out = append(out, s)
	}
	return out
}

type testHub struct {
	*Hub
	clock   *clockwork.FakeClock
	metrics *metrics.ScreenMetrics
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	m := metrics.NewScreenMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClock()
	h := NewHub(broadcast.NewRouter(m), clock, m)
	t.Cleanup(h.Stop)
	return &testHub{Hub: h, clock: clock, metrics: m}
}

// sync waits for every previously submitted command to be processed.
func (h *testHub) sync(t *testing.T) {
	t.Helper()
	_, err := h.Stats()
	require.NoError(t, err)
}

func (h *testHub) dispatch(t *testing.T, peer domain.Peer, event any) {
	t.Helper()
	require.NoError(t, h.Dispatch(t.Context(), peer, event))
	h.sync(t)
}

func (h *testHub) disconnect(t *testing.T, peer domain.Peer) {
	t.Helper()
	require.NoError(t, h.Disconnect(t.Context(), peer))
	h.sync(t)
}

func (h *testHub) dashboard(t *testing.T) *fakePeer {
	t.Helper()
	d := newFakePeer("dashboard")
	h.dispatch(t, d, protocol.JoinDashboard{})
	return d
}
