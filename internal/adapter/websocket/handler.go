package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/correlation"
	"github.com/angeeinstein/web-kiosk-screen/internal/protocol"
	"github.com/angeeinstein/web-kiosk-screen/internal/screen"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	readLimit        = 1 << 20
	readBufferSize   = 4096
	writeBufferSize  = 4096
	defaultRate      = 20
	defaultRateBurst = 40
)

// Dispatcher receives decoded events and transport-close notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, peer domain.Peer, event any) error
	Disconnect(ctx context.Context, peer domain.Peer) error
}

// Config tunes the handler. Zero values fall back to sane defaults.
type Config struct {
	AllowedOrigins []string
	IsDevelopment  bool
	MaxConnections int64
	MessageRate    float64
	MessageBurst   int
}

// Handler upgrades HTTP requests to WebSocket and runs one read loop per connection.
type Handler struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	limiter    *ConnectionLimiter
	clock      clockwork.Clock
	metrics    *metrics.WebSocketMetrics
	rate       rate.Limit
	burst      int
}

func NewHandler(dispatcher Dispatcher, cfg Config, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Handler {
	msgRate, burst := cfg.MessageRate, cfg.MessageBurst
	if msgRate <= 0 {
		msgRate = defaultRate
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}

	return &Handler{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     NewCheckOrigin(cfg.AllowedOrigins, cfg.IsDevelopment),
		},
		limiter: NewConnectionLimiter(cfg.MaxConnections),
		clock:   clock,
		metrics: m,
		rate:    rate.Limit(msgRate),
		burst:   burst,
	}
}

// Connections reports the number of open connections.
func (h *Handler) Connections() int64 {
	return h.limiter.Current()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Acquire() {
		h.metrics.RejectedConnections.WithLabelValues("capacity").Inc()
		slog.Warn("WebSocket connection rejected: at capacity", "max", h.limiter.Max(), "remote_addr", r.RemoteAddr)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer h.limiter.Release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.metrics.RejectedConnections.WithLabelValues("upgrade").Inc()
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	h.metrics.ActiveConnections.Inc()
	defer h.metrics.ActiveConnections.Dec()

	peer := NewPeer(conn, h.clock, h.metrics)
	ctx := correlation.WithID(context.Background(), correlation.FromHeader(r.Header.Get(correlation.HeaderName)))
	ctx = correlation.WithPeer(ctx, peer.ID())
	slog.InfoContext(ctx, "Peer connected", "remote_addr", r.RemoteAddr)

	h.readLoop(ctx, conn, peer)

	peer.Close()
	if err := h.dispatcher.Disconnect(ctx, peer); err != nil {
		if errors.Is(err, screen.ErrHubStopped) {
			slog.DebugContext(ctx, "Disconnect after hub shutdown", "error", err)
		} else {
			slog.WarnContext(ctx, "Failed to report disconnect", "error", err)
		}
	}
	slog.InfoContext(ctx, "Peer disconnected")
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, peer *Peer) {
	conn.SetReadLimit(readLimit)
	limiter := rate.NewLimiter(h.rate, h.burst)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read ended", "error", err)
			}
			return
		}
		peer.extendReadDeadline()

		if !limiter.Allow() {
			h.metrics.DroppedMessages.WithLabelValues("rate_limited").Inc()
			continue
		}

		event, err := protocol.Decode(frame)
		if err != nil {
			h.metrics.DroppedMessages.WithLabelValues("malformed").Inc()
			slog.DebugContext(ctx, "Dropping malformed frame", "error", err)
			continue
		}
		h.metrics.MessagesReceived.WithLabelValues(protocol.EventName(event)).Inc()

		if err := h.dispatcher.Dispatch(ctx, peer, event); err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				h.metrics.DroppedMessages.WithLabelValues("malformed").Inc()
				continue
			}
			h.metrics.DroppedMessages.WithLabelValues("hub_unavailable").Inc()
			slog.WarnContext(ctx, "Dispatch failed, closing peer", "error", err)
			return
		}
	}
}
