package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/metrics"
	"github.com/angeeinstein/web-kiosk-screen/internal/protocol"
	"github.com/jonboulle/clockwork"
)

const (
	commandTimeout     = 5 * time.Second
	stopTimeout        = 10 * time.Second
	commandChannelSize = 256
)

// ErrHubStopped is returned by calls made after the hub has shut down.
var ErrHubStopped = errors.New("screen hub stopped")

// Router delivers outbound messages. It is owned by the hub goroutine and never
// called concurrently.
type Router interface {
	Subscribe(peer domain.Peer) int
	Unsubscribe(peer domain.Peer) bool
	Subscribers() []domain.Peer
	PushLayout(target domain.Peer, layout domain.Layout) error
	PushRefresh(target domain.Peer) bool
	NotifyStatus(status domain.ScreenStatus)
	NotifyDeleted(id string)
	Reply(peer domain.Peer, event string, payload any)
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	ctx        context.Context
	peer       domain.Peer
	screenID   string
	resolution string
}

type heartbeatCmd struct {
	baseHubCmd
	ctx      context.Context
	peer     domain.Peer
	screenID string
}

type joinDashboardCmd struct {
	baseHubCmd
	ctx  context.Context
	peer domain.Peer
}

type pushLayoutCmd struct {
	baseHubCmd
	ctx      context.Context
	peer     domain.Peer
	screenID string
	layout   domain.Layout
}

type refreshCmd struct {
	baseHubCmd
	ctx      context.Context
	screenID string
}

type disconnectCmd struct {
	baseHubCmd
	ctx  context.Context
	peer domain.Peer
}

type listCmd struct {
	baseHubCmd
	reply chan []domain.ScreenStatus
}

type getCmd struct {
	baseHubCmd
	screenID string
	reply    chan result[domain.ScreenDetail]
}

type renameCmd struct {
	baseHubCmd
	screenID string
	name     string
	reply    chan error
}

type removeCmd struct {
	baseHubCmd
	screenID string
	reply    chan error
}

type getLayoutCmd struct {
	baseHubCmd
	screenID string
	reply    chan domain.Layout
}

type setLayoutCmd struct {
	baseHubCmd
	screenID string
	layout   domain.Layout
	reply    chan error
}

type statsCmd struct {
	baseHubCmd
	reply chan Stats
}

type stopCmd struct {
	baseHubCmd
}

type result[T any] struct {
	value T
	err   error
}

// Stats is a point-in-time view of the hub tables.
type Stats struct {
	Screens     int
	Connected   int
	Sessions    int
	Dashboards  int
	QueuedCmds  int
	LayoutCount int
}

// Hub owns all screen state and serializes every mutation on one goroutine.
type Hub struct {
	cmdCh    chan hubCmd
	done     chan struct{}
	clock    clockwork.Clock
	registry *Registry
	layouts  *LayoutStore
	sessions *SessionTracker
	router   Router
	metrics  *metrics.ScreenMetrics

	stopTimeout time.Duration
}

// NewHub creates the hub and starts its goroutine.
func NewHub(router Router, clock clockwork.Clock, m *metrics.ScreenMetrics) *Hub {
	h := &Hub{
		cmdCh:       make(chan hubCmd, commandChannelSize),
		done:        make(chan struct{}),
		clock:       clock,
		registry:    NewRegistry(),
		layouts:     NewLayoutStore(),
		sessions:    NewSessionTracker(),
		router:      router,
		metrics:     m,
		stopTimeout: stopTimeout,
	}
	go h.run()
	return h
}

// --- Inbound events (fire and forget) ---

// Dispatch hands a decoded protocol event received on peer to the hub.
func (h *Hub) Dispatch(ctx context.Context, peer domain.Peer, event any) error {
	switch ev := event.(type) {
	case protocol.RegisterScreen:
		return h.submit(registerCmd{ctx: ctx, peer: peer, screenID: ev.ScreenID, resolution: ev.Resolution})
	case protocol.ScreenHeartbeat:
		return h.submit(heartbeatCmd{ctx: ctx, peer: peer, screenID: ev.ScreenID})
	case protocol.JoinDashboard:
		return h.submit(joinDashboardCmd{ctx: ctx, peer: peer})
	case protocol.PushLayout:
		return h.submit(pushLayoutCmd{ctx: ctx, peer: peer, screenID: ev.ScreenID, layout: ev.Layout})
	case protocol.RefreshScreen:
		return h.submit(refreshCmd{ctx: ctx, screenID: ev.ScreenID})
	default:
		return fmt.Errorf("%w: unsupported event %T", protocol.ErrMalformed, event)
	}
}

// Disconnect reports that peer's transport has closed.
func (h *Hub) Disconnect(ctx context.Context, peer domain.Peer) error {
	return h.submit(disconnectCmd{ctx: ctx, peer: peer})
}

// --- Synchronous surface for the HTTP layer ---

// List returns a snapshot of every known screen.
func (h *Hub) List() ([]domain.ScreenStatus, error) {
	return request(h, func(reply chan []domain.ScreenStatus) hubCmd { return listCmd{reply: reply} })
}

// Get returns a screen with its current layout, or domain.ErrScreenNotFound.
func (h *Hub) Get(screenID string) (domain.ScreenDetail, error) {
	res, err := request(h, func(reply chan result[domain.ScreenDetail]) hubCmd {
		return getCmd{screenID: screenID, reply: reply}
	})
	if err != nil {
		return domain.ScreenDetail{}, err
	}
	return res.value, res.err
}

// Rename changes a screen's display name.
func (h *Hub) Rename(screenID, name string) error {
	return requestErr(h, func(reply chan error) hubCmd { return renameCmd{screenID: screenID, name: name, reply: reply} })
}

// Remove deletes a screen and its layout and tells dashboards about it.
func (h *Hub) Remove(screenID string) error {
	return requestErr(h, func(reply chan error) hubCmd { return removeCmd{screenID: screenID, reply: reply} })
}

// GetLayout returns the stored layout, or a default for identities without one.
func (h *Hub) GetLayout(screenID string) (domain.Layout, error) {
	return request(h, func(reply chan domain.Layout) hubCmd { return getLayoutCmd{screenID: screenID, reply: reply} })
}

// SetLayout stores layout and pushes it to the screen. The layout is kept even when
// delivery fails with domain.ErrScreenNotConnected.
func (h *Hub) SetLayout(screenID string, layout domain.Layout) error {
	return requestErr(h, func(reply chan error) hubCmd { return setLayoutCmd{screenID: screenID, layout: layout, reply: reply} })
}

// Stats reports table sizes; used by health checks and tests.
func (h *Hub) Stats() (Stats, error) {
	return request(h, func(reply chan Stats) hubCmd { return statsCmd{reply: reply} })
}

// Stop shuts the hub down, closing every peer it knows about.
// Blocks until the goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	if err := h.submit(stopCmd{}); err != nil {
		return
	}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Screen hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Screen hub stop timeout exceeded", "timeout", h.stopTimeout)
	}
}

func (h *Hub) submit(cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func request[T any](h *Hub, build func(reply chan T) hubCmd) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := h.submit(build(reply)); err != nil {
		return zero, err
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubStopped
	case <-timer.Chan():
		return zero, fmt.Errorf("hub command timed out after %v", commandTimeout)
	}
}

func requestErr(h *Hub, build func(reply chan error) hubCmd) error {
	err, reqErr := request(h, build)
	if reqErr != nil {
		return reqErr
	}
	return err
}

// --- Actor loop ---

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Screen hub panic recovered", "panic", r)
			h.metrics.Panics.Inc()
			h.closeAllPeers()
		}
	}()
	defer close(h.done)

	depthTicker := h.clock.NewTicker(time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			h.metrics.CommandChannelDepth.Set(float64(depth))
			if depth > commandChannelSize*4/5 {
				slog.Warn("Hub command channel near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case heartbeatCmd:
				h.handleHeartbeat(c)
			case disconnectCmd:
				h.handleDisconnect(c)
			case joinDashboardCmd:
				h.handleJoinDashboard(c)
			case pushLayoutCmd:
				h.handlePushLayout(c)
			case refreshCmd:
				h.handleRefresh(c)
			case listCmd:
				c.reply <- h.registry.List()
			case getCmd:
				h.handleGet(c)
			case renameCmd:
				h.handleRename(c)
			case removeCmd:
				h.handleRemove(c)
			case getLayoutCmd:
				c.reply <- h.layouts.Get(c.screenID)
			case setLayoutCmd:
				c.reply <- h.storeAndPush(c.screenID, c.layout)
			case statsCmd:
				c.reply <- h.stats()
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Screen hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleJoinDashboard(c joinDashboardCmd) {
	n := h.router.Subscribe(c.peer)
	h.metrics.DashboardSubscribers.Set(float64(n))
	h.router.Reply(c.peer, protocol.EventScreensList, h.registry.IDs())
	slog.DebugContext(c.ctx, "Dashboard joined", "dashboards", n)
}

func (h *Hub) handlePushLayout(c pushLayoutCmd) {
	err := h.storeAndPush(c.screenID, c.layout)
	if err != nil {
		h.router.Reply(c.peer, protocol.EventPushError, protocol.PushError{ScreenID: c.screenID, Error: pushErrorText(err)})
		slog.DebugContext(c.ctx, "Layout stored but not delivered", "screen_id", c.screenID, "error", err)
		return
	}
	h.router.Reply(c.peer, protocol.EventPushSuccess, protocol.PushSuccess{ScreenID: c.screenID})
}

// pushErrorText keeps the wire reason stable; transport detail stays in the logs.
func pushErrorText(err error) string {
	if errors.Is(err, domain.ErrScreenNotConnected) {
		return domain.ErrScreenNotConnected.Error()
	}
	return err.Error()
}

// storeAndPush saves the layout first and then attempts delivery; the two steps are
// independent so a failed delivery never loses the write.
func (h *Hub) storeAndPush(screenID string, layout domain.Layout) error {
	h.layouts.Put(screenID, layout)

	if err := h.router.PushLayout(h.registry.Conn(screenID), layout); err != nil {
		h.metrics.LayoutPushes.WithLabelValues("not_connected").Inc()
		return err
	}
	h.metrics.LayoutPushes.WithLabelValues("delivered").Inc()
	return nil
}

func (h *Hub) handleRefresh(c refreshCmd) {
	if !h.router.PushRefresh(h.registry.Conn(c.screenID)) {
		slog.DebugContext(c.ctx, "Refresh skipped, screen not connected", "screen_id", c.screenID)
	}
}

func (h *Hub) handleGet(c getCmd) {
	status, ok := h.registry.Get(c.screenID)
	if !ok {
		c.reply <- result[domain.ScreenDetail]{err: domain.ErrScreenNotFound}
		return
	}
	c.reply <- result[domain.ScreenDetail]{value: domain.ScreenDetail{ScreenStatus: status, Layout: h.layouts.Get(c.screenID)}}
}

func (h *Hub) handleRename(c renameCmd) {
	status, err := h.registry.Rename(c.screenID, c.name)
	if err != nil {
		c.reply <- err
		return
	}
	h.publish(status)
	c.reply <- nil
}

func (h *Hub) handleRemove(c removeCmd) {
	if err := h.registry.Remove(c.screenID); err != nil {
		c.reply <- err
		return
	}
	h.layouts.Delete(c.screenID)
	h.refreshGauges()
	h.router.NotifyDeleted(c.screenID)
	slog.Info("Screen removed", "screen_id", c.screenID)
	c.reply <- nil
}

func (h *Hub) stats() Stats {
	return Stats{
		Screens:     h.registry.Len(),
		Connected:   h.registry.ConnectedCount(),
		Sessions:    h.sessions.Len(),
		Dashboards:  len(h.router.Subscribers()),
		QueuedCmds:  len(h.cmdCh),
		LayoutCount: h.layouts.Len(),
	}
}

func (h *Hub) handleStop() {
	slog.Info("Screen hub shutting down",
		"screens", h.registry.Len(),
		"connected", h.registry.ConnectedCount(),
		"dashboards", len(h.router.Subscribers()),
	)
	h.closeAllPeers()
}

// closeAllPeers closes every screen and dashboard peer. The transports report the
// resulting disconnects, which are dropped once the hub has stopped.
func (h *Hub) closeAllPeers() {
	for _, peer := range h.registry.peers() {
		peer.Close()
	}
	for _, peer := range h.router.Subscribers() {
		peer.Close()
	}
}

func (h *Hub) refreshGauges() {
	h.metrics.KnownScreens.Set(float64(h.registry.Len()))
	h.metrics.ConnectedScreens.Set(float64(h.registry.ConnectedCount()))
}
