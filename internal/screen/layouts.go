package screen

import (
	"encoding/json"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/google/uuid"
)

const defaultBackground = "#1a1a2e"

// LayoutStore holds the current layout document per screen identity.
type LayoutStore struct {
	layouts map[string]domain.Layout
}

func NewLayoutStore() *LayoutStore {
	return &LayoutStore{layouts: make(map[string]domain.Layout)}
}

// Get returns the stored layout, or a fresh default that is not persisted.
func (s *LayoutStore) Get(id string) domain.Layout {
	if layout, ok := s.layouts[id]; ok {
		return layout
	}
	return DefaultLayout()
}

// Put replaces the layout wholesale. Last writer wins.
func (s *LayoutStore) Put(id string, layout domain.Layout) {
	s.layouts[id] = cloneLayout(layout)
}

func (s *LayoutStore) Delete(id string) {
	delete(s.layouts, id)
}

func (s *LayoutStore) Has(id string) bool {
	_, ok := s.layouts[id]
	return ok
}

// DefaultLayout builds the layout given to a newly registered screen: a single clock
// widget on a dark background. Every call gets a fresh widget id.
func DefaultLayout() domain.Layout {
	doc := domain.LayoutDocument{
		Widgets: []domain.Widget{
			{
				ID:     uuid.NewString(),
				Type:   "clock",
				X:      50,
				Y:      50,
				Width:  300,
				Height: 150,
				Settings: map[string]any{
					"format":   "24h",
					"showDate": true,
					"timezone": "local",
				},
			},
		},
		Background: defaultBackground,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		// Static document; marshalling cannot fail.
		panic(err)
	}
	return raw
}

// cloneLayout copies the caller's bytes so later mutation of their buffer cannot reach the store.
func cloneLayout(layout domain.Layout) domain.Layout {
	out := make(domain.Layout, len(layout))
	copy(out, layout)
	return out
}

func (s *LayoutStore) Len() int {
	return len(s.layouts)
}
