package broadcast

import (
	"fmt"
	"log/slog"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/protocol"
)

// Router delivers encoded protocol frames to peers.
type Router struct {
	subscribers map[domain.Peer]struct{}
	metrics     *metrics.ScreenMetrics
}

// NewRouter creates a router with no dashboard subscribers.
func NewRouter(m *metrics.ScreenMetrics) *Router {
	return &Router{
		subscribers: make(map[domain.Peer]struct{}),
		metrics:     m,
	}
}

// Subscribe adds peer to dashboard fan-out and returns the subscriber count.
func (r *Router) Subscribe(peer domain.Peer) int {
	r.subscribers[peer] = struct{}{}
	return len(r.subscribers)
}

// Unsubscribe removes peer from fan-out. It reports whether peer was subscribed.
func (r *Router) Unsubscribe(peer domain.Peer) bool {
	if _, ok := r.subscribers[peer]; !ok {
		return false
	}
	delete(r.subscribers, peer)
	return true
}

func (r *Router) Subscribers() []domain.Peer {
	out := make([]domain.Peer, 0, len(r.subscribers))
	for peer := range r.subscribers {
		out = append(out, peer)
	}
	return out
}

// PushLayout sends layout_update to target. A nil target or a failed send yields
// domain.ErrScreenNotConnected.
func (r *Router) PushLayout(target domain.Peer, layout domain.Layout) error {
	if target == nil {
		return domain.ErrScreenNotConnected
	}

	frame, err := protocol.Encode(protocol.EventLayoutUpdate, layout)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	if err := target.Send(frame); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrScreenNotConnected, err)
	}
	return nil
}

// PushRefresh asks a connected screen to reload. Best effort.
func (r *Router) PushRefresh(target domain.Peer) bool {
	if target == nil {
		return false
	}
	frame, err := protocol.Encode(protocol.EventRefresh, nil)
	if err != nil {
		slog.Error("Failed to encode refresh", "error", err)
		return false
	}
	return target.Send(frame) == nil
}

// NotifyStatus fans out a screen_status snapshot to every dashboard.
func (r *Router) NotifyStatus(status domain.ScreenStatus) {
	r.fanOut(protocol.EventScreenStatus, status)
}

// NotifyDeleted fans out screen_deleted to every dashboard.
func (r *Router) NotifyDeleted(id string) {
	r.fanOut(protocol.EventScreenDeleted, protocol.ScreenDeleted{ID: id})
}

// Reply sends a single event back to the peer that caused it. Failures are logged only;
// the peer's own disconnect will follow.
func (r *Router) Reply(peer domain.Peer, event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		slog.Error("Failed to encode reply", "event", event, "error", err)
		return
	}
	if err := peer.Send(frame); err != nil {
		slog.Debug("Reply not delivered", "event", event, "peer_id", peer.ID(), "error", err)
	}
}

func (r *Router) fanOut(event string, payload any) {
	if len(r.subscribers) == 0 {
		return
	}

	frame, err := protocol.Encode(event, payload)
	if err != nil {
		slog.Error("Failed to encode fan-out", "event", event, "error", err)
		return
	}

	var stale []domain.Peer
	for peer := range r.subscribers {
		if err := peer.Send(frame); err != nil {
			stale = append(stale, peer)
		}
	}

	for _, peer := range stale {
		delete(r.subscribers, peer)
		r.metrics.PrunedSubscribers.Inc()
		slog.Warn("Pruned stale dashboard subscriber", "peer_id", peer.ID(), "event", event)
	}
	if len(stale) > 0 {
		r.metrics.DashboardSubscribers.Set(float64(len(r.subscribers)))
	}
}
