// Package protocol defines the JSON event envelope exchanged with screens and dashboards.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks an inbound frame that cannot be turned into an event.
var ErrMalformed = errors.New("malformed event")

// Envelope is the wire form of every frame: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds a text frame for event with the given payload.
// A nil payload is sent as an empty object.
func Encode(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
		data = json.RawMessage(`{}`)
	case json.RawMessage:
		data = p
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		data = raw
	}

	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return frame, nil
}

// Decode parses a frame into a typed inbound event.
// Unknown event names and missing required fields yield ErrMalformed.
func Decode(frame []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case EventRegisterScreen:
		var ev RegisterScreen
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventScreenHeartbeat:
		var ev ScreenHeartbeat
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ScreenID == "" {
			return nil, missing(env.Event, "screenId")
		}
		return ev, nil
	case EventJoinDashboard:
		return JoinDashboard{}, nil
	case EventPushLayout:
		var ev PushLayout
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ScreenID == "" {
			return nil, missing(env.Event, "screenId")
		}
		if !isObject(ev.Layout) {
			return nil, missing(env.Event, "layout")
		}
		return ev, nil
	case EventRefreshScreen:
		var ev RefreshScreen
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.ScreenID == "" {
			return nil, missing(env.Event, "screenId")
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformed, env.Event)
	}
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
	}
	return nil
}

func missing(event, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMalformed, event, field)
}
