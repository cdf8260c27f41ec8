package protocol

import (
	"encoding/json"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
)

// Inbound event names.
const (
	EventRegisterScreen  = "register_screen"
	EventScreenHeartbeat = "screen_heartbeat"
	EventJoinDashboard   = "join_dashboard"
	EventPushLayout      = "push_layout"
	EventRefreshScreen   = "refresh_screen"
)

// Outbound event names.
const (
	EventLayoutUpdate  = "layout_update"
	EventRefresh       = "refresh"
	EventScreenStatus  = "screen_status"
	EventScreenDeleted = "screen_deleted"
	EventScreensList   = "screens_list"
	EventPushSuccess   = "push_success"
	EventPushError     = "push_error"
)

// RegisterScreen announces a screen. An empty ScreenID asks the server to pick one.
type RegisterScreen struct {
	ScreenID   string `json:"screenId,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

type ScreenHeartbeat struct {
	ScreenID string `json:"screenId"`
}

type JoinDashboard struct{}

type PushLayout struct {
	ScreenID string          `json:"screenId"`
	Layout   json.RawMessage `json:"layout"`
}

type RefreshScreen struct {
	ScreenID string `json:"screenId"`
}

// ScreenDeleted is fanned out to dashboards when a screen is removed.
type ScreenDeleted struct {
	ID string `json:"id"`
}

type PushSuccess struct {
	ScreenID string `json:"screenId"`
}

type PushError struct {
	ScreenID string `json:"screenId"`
	Error    string `json:"error"`
}

// ScreenStatus is the fan-out payload; it mirrors the registry snapshot.
type ScreenStatus = domain.ScreenStatus

func isObject(raw json.RawMessage) bool {
	return domain.IsLayoutObject(raw)
}

// EventName returns the wire name of a decoded inbound event, or "" for other values.
func EventName(event any) string {
	switch event.(type) {
	case RegisterScreen:
		return EventRegisterScreen
	case ScreenHeartbeat:
		return EventScreenHeartbeat
	case JoinDashboard:
		return EventJoinDashboard
	case PushLayout:
		return EventPushLayout
	case RefreshScreen:
		return EventRefreshScreen
	default:
		return ""
	}
}
