package usage

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// Record is one snapshot of a tenant's resource counts and computed charge
// for one calendar month. Exactly one record exists per (tenant, period);
// re-snapshotting replaces counts and amount in place until the record is
// consumed by an invoice, after which it is immutable.
type Record struct {
	ID     string    `db:"id" json:"id"`
	Period time.Time `db:"period" json:"period"`

	DoorCount       int `db:"door_count" json:"door_count"`
	BuildingCount   int `db:"building_count" json:"building_count"`
	UserCount       int `db:"user_count" json:"user_count"`
	InspectorCount  int `db:"inspector_count" json:"inspector_count"`
	InspectionCount int `db:"inspection_count" json:"inspection_count"`

	CalculatedAmount decimal.Decimal `db:"calculated_amount" json:"calculated_amount"`
	Details          Breakdown       `db:"details" json:"details"`

	Invoiced  bool    `db:"invoiced" json:"invoiced"`
	InvoiceID *string `db:"invoice_id" json:"invoice_id,omitempty"`

	types.BaseModel
}

// Breakdown is the per-resource decomposition of a record's calculated
// amount. It is a typed structure end to end and only serialized at the
// persistence boundary. Invoice line items and audits read the sub-totals
// from here, never by re-deriving them.
type Breakdown struct {
	DoorCost      decimal.Decimal `json:"door_cost"`
	BuildingCost  decimal.Decimal `json:"building_cost"`
	InspectorCost decimal.Decimal `json:"inspector_cost"`
	// Unsupported flags a client-type/billing-model combination the pricing
	// model does not recognize. The amount is zero but the charge is never
	// silently dropped: the marker survives into the stored record.
	Unsupported bool   `json:"unsupported,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Total sums the sub-costs.
func (b Breakdown) Total() decimal.Decimal {
	return b.DoorCost.Add(b.BuildingCost).Add(b.InspectorCost)
}

// Value serializes the breakdown to JSON for the jsonb column.
func (b Breakdown) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan deserializes the jsonb column into the breakdown.
func (b *Breakdown) Scan(src interface{}) error {
	if src == nil {
		*b = Breakdown{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return ierr.NewErrorf("unexpected type %T for usage details", src).
			Mark(ierr.ErrDatabase)
	}
	return json.Unmarshal(data, b)
}

// Counts reassembles the snapshot counts of the record.
func (r *Record) Counts() types.ResourceCounts {
	return types.ResourceCounts{
		Doors:       r.DoorCount,
		Buildings:   r.BuildingCount,
		Users:       r.UserCount,
		Inspectors:  r.InspectorCount,
		Inspections: r.InspectionCount,
	}
}
