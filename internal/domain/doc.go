// Package domain holds the types shared by the screen hub, the router and the adapters:
// screen snapshots, layout documents, the Peer transport abstraction and sentinel errors.
// It has no behavior beyond small helpers and imports nothing from the rest of the module.
package domain
