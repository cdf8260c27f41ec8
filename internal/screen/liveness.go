package screen

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/google/uuid"
)

// Liveness is event driven: registration and heartbeats move a screen to CONNECTED,
// only a transport disconnect moves it back. There is no timeout sweep, so a screen that
// vanishes without a close frame stays CONNECTED with an ageing LastSeen.

func (h *Hub) handleRegister(c registerCmd) {
	screenID := c.screenID
	if screenID == "" {
		screenID = uuid.NewString()
	}
	now := h.clock.Now()

	h.bind(c.ctx, c.peer, screenID, now)

	status, isNew := h.registry.Register(screenID, c.resolution, c.peer, now)
	if isNew {
		h.layouts.Put(screenID, DefaultLayout())
		h.metrics.Registrations.WithLabelValues("new").Inc()
	} else {
		h.metrics.Registrations.WithLabelValues("returning").Inc()
	}

	if err := h.router.PushLayout(c.peer, h.layouts.Get(screenID)); err != nil {
		slog.WarnContext(c.ctx, "Failed to send initial layout", "screen_id", screenID, "error", err)
	}

	h.publish(status)
	slog.InfoContext(c.ctx, "Screen registered",
		"screen_id", screenID,
		"resolution", status.Resolution,
		"new", isNew,
	)
}

func (h *Hub) handleHeartbeat(c heartbeatCmd) {
	now := h.clock.Now()

	if _, ok := h.registry.Get(c.screenID); !ok {
		h.metrics.IgnoredEvents.WithLabelValues("heartbeat_unknown_screen").Inc()
		slog.DebugContext(c.ctx, "Heartbeat for unknown screen ignored", "screen_id", c.screenID)
		return
	}

	h.bind(c.ctx, c.peer, c.screenID, now)

	status, reconnected, _ := h.registry.Touch(c.screenID, c.peer, now)
	if reconnected {
		h.publish(status)
		slog.InfoContext(c.ctx, "Screen reconnected by heartbeat", "screen_id", c.screenID)
	}
}

func (h *Hub) handleDisconnect(c disconnectCmd) {
	if h.router.Unsubscribe(c.peer) {
		h.metrics.DashboardSubscribers.Set(float64(len(h.router.Subscribers())))
		slog.DebugContext(c.ctx, "Dashboard left")
	}

	screenID, ok := h.sessions.Unbind(c.peer)
	if !ok {
		return
	}

	status, changed := h.registry.MarkDisconnected(screenID, c.peer, h.clock.Now())
	if !changed {
		slog.DebugContext(c.ctx, "Stale disconnect ignored", "screen_id", screenID)
		return
	}

	h.publish(status)
	slog.InfoContext(c.ctx, "Screen disconnected", "screen_id", screenID)
}

// bind ties peer to screenID. A peer represents one logical screen at a time, so if it
// was bound to a different identity that it still owns, that identity goes DISCONNECTED.
func (h *Hub) bind(ctx context.Context, peer domain.Peer, screenID string, now time.Time) {
	previous, hadPrevious := h.sessions.Bind(peer, screenID)
	if !hadPrevious || previous == screenID {
		return
	}

	status, changed := h.registry.MarkDisconnected(previous, peer, now)
	if !changed {
		return
	}
	h.publish(status)
	slog.InfoContext(ctx, "Peer switched screen identity", "previous_screen_id", previous, "screen_id", screenID)
}

// publish fans out the post-transition snapshot; exactly one call per transition.
func (h *Hub) publish(status domain.ScreenStatus) {
	state := "disconnected"
	if status.Connected {
		state = "connected"
	}
	h.metrics.StatusEvents.WithLabelValues(state).Inc()
	h.refreshGauges()
	h.router.NotifyStatus(status)
}
