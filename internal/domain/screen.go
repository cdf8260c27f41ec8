package domain

import "time"

// DefaultResolution is reported until a screen tells us its display metadata.
const DefaultResolution = "Unknown"

// ScreenStatus is the externally visible snapshot of a screen entry.
type ScreenStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Connected  bool      `json:"connected"`
	LastSeen   time.Time `json:"lastSeen"`
	Resolution string    `json:"resolution"`
}

// ScreenDetail is a status snapshot together with the screen's current layout.
type ScreenDetail struct {
	ScreenStatus
	Layout Layout `json:"layout"`
}

// DefaultScreenName derives the human label used until a screen is renamed.
func DefaultScreenName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "Screen " + short
}
