package dto

import (
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
)

// Mutation is the result of one successful ledger operation: the record as it
// was, as it is now, and the audit row that bound the two. Movement is nil for
// hold/unhold, which leave no audit row of their own.
type Mutation struct {
	Before   model.StockRecord
	After    model.StockRecord
	Movement *model.StockMovement
}

type Availability struct {
	ItemID    string  `json:"item_id"`
	BranchID  string  `json:"branch_id"`
	Quantity  float64 `json:"quantity"`
	Reserved  float64 `json:"reserved"`
	Held      float64 `json:"held"`
	Available float64 `json:"available"`
}

type StockFilters struct {
	ItemID   string
	BranchID string
	LowStock bool
	Page     int
	PageSize int
}

type MovementFilters struct {
	ItemID       string
	BranchID     string
	MovementType model.MovementType
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

// DailySummary aggregates the transaction log for one branch and one day.
// Advisory movements never count toward either side.
type DailySummary struct {
	BranchID   string  `json:"branch_id"`
	Additions  float64 `json:"additions"`
	Deductions float64 `json:"deductions"`
}
