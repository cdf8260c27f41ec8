// Package screen owns the live screen registry and the layout distribution protocol.
//
// The Hub is an actor: one goroutine owns the Registry, LayoutStore, SessionTracker and the
// Router's subscriptions, and every inbound event or CRUD call is a command processed to
// completion on that goroutine. The tables themselves are plain maps with no locking.
package screen
