package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

// StockOpInput drives the single-key reservation-class primitives
// (reserve, consume, release, waste, hold, unhold).
type StockOpInput struct {
	ItemID        string
	BranchID      string
	Quantity      float64
	ReferenceType string // "order", "transfer", "decision"
	ReferenceID   string
	Notes         string
	ActorID       string
}

// AdjustInput drives the generic quantity adjustment. MovementType selects the
// audit record kind; QuantityChange is signed.
type AdjustInput struct {
	ItemID         string
	BranchID       string
	QuantityChange float64
	MovementType   model.MovementType
	ReasonCode     *model.DeductionReason
	ReferenceType  string
	ReferenceID    string
	Notes          string
	ActorID        string
}

// CountInput applies a physical count. The ledger computes the variance.
type CountInput struct {
	ItemID          string
	BranchID        string
	CountedQuantity float64
	Notes           string
	ActorID         string
}
