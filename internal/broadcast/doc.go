// Package broadcast implements the Router, the single choke point for outbound messages.
//
// Targeted pushes (layout_update, refresh) go to one screen's peer and report delivery
// failure to the caller. Fan-out (screen_status, screen_deleted) goes to every dashboard
// subscriber; a subscriber that fails a delivery is pruned and the fan-out carries on.
// The Router is owned by the screen hub goroutine and has no locking of its own.
package broadcast
