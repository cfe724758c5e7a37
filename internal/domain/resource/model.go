package resource

import (
	"time"

	"github.com/firedesk/firedesk/internal/types"
)

// Resource is one countable registry row: a door, building, user, inspector
// or inspection belonging to a tenant. The wider product owns the rich
// entities; the engine owns these rows because quota enforcement and
// metering must observe every create.
type Resource struct {
	ID   string             `db:"id" json:"id"`
	Type types.ResourceType `db:"resource_type" json:"resource_type"`
	// BuildingID groups doors and inspections under a building when known.
	BuildingID   *string   `db:"building_id" json:"building_id,omitempty"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	types.BaseModel
}
