package model

import "time"

type ProductionStatus string

const (
	ProductionCompleted ProductionStatus = "completed"
	ProductionFailed    ProductionStatus = "failed"
)

// ProductionRun converts raw-ingredient stock into composite-item stock per a
// recipe. Written once when the run finalizes; immutable afterward.
type ProductionRun struct {
	ID              string           `db:"id"`
	CompositeItemID string           `db:"composite_item_id"`
	BranchID        string           `db:"branch_id"`
	BatchCount      int              `db:"batch_count"`
	YieldedQuantity float64          `db:"yielded_quantity"`
	Status          ProductionStatus `db:"status"`
	Notes           string           `db:"notes"`
	CreatedBy       *string          `db:"created_by"`
	CreatedAt       time.Time        `db:"created_at"`

	Lines []ProductionLine `db:"-"`
}

// ProductionLine is one raw ingredient consumed by a run.
type ProductionLine struct {
	ID              string  `db:"id"`
	ProductionRunID string  `db:"production_run_id"`
	ItemID          string  `db:"item_id"`
	Quantity        float64 `db:"quantity"`
}
