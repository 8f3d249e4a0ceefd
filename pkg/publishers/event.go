package publishers

import (
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
)

// Event represents the payload published downstream for each newly
// discovered scholarship. Scholarship is set when analysis ran for the item.
type Event struct {
	SourceID     string                `json:"source_id"`
	Item         domain.DiscoveredItem `json:"item"`
	Scholarship  *domain.Scholarship   `json:"scholarship,omitempty"`
	DiscoveredAt time.Time             `json:"discovered_at"`
}

// NewEvent constructs an Event for the given discovered item.
func NewEvent(item domain.DiscoveredItem) Event {
	return Event{
		SourceID:     item.SourceID,
		Item:         item,
		DiscoveredAt: time.Now().UTC(),
	}
}
