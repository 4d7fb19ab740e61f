package model

import "time"

// StockKey identifies one ledger record. Every ledger lock is scoped to a key.
type StockKey struct {
	ItemID   string
	BranchID string
}

// String renders the canonical lock ordering form ("item|branch").
func (k StockKey) String() string {
	return k.ItemID + "|" + k.BranchID
}

type StockRecord struct {
	ID               string    `db:"id"`
	ItemID           string    `db:"item_id"`
	BranchID         string    `db:"branch_id"`
	Quantity         float64   `db:"quantity"`
	ReservedQuantity float64   `db:"reserved_quantity"`
	HeldQuantity     float64   `db:"held_quantity"`
	ReorderPoint     float64   `db:"reorder_point"`
	ReorderQuantity  float64   `db:"reorder_quantity"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (s *StockRecord) Key() StockKey {
	return StockKey{ItemID: s.ItemID, BranchID: s.BranchID}
}

// Available is the sellable quantity. Never persisted; always derived.
func (s *StockRecord) Available() float64 {
	return s.Quantity - s.ReservedQuantity - s.HeldQuantity
}

type MovementType string

const (
	MovementManualAddition  MovementType = "manual_addition"
	MovementManualDeduction MovementType = "manual_deduction"
	MovementPOReceive       MovementType = "po_receive"
	MovementTransferIn      MovementType = "transfer_in"
	MovementTransferOut     MovementType = "transfer_out"
	MovementOrderSale       MovementType = "order_sale"
	MovementCancelReturn    MovementType = "order_cancel_return"
	MovementCancelWaste     MovementType = "order_cancel_waste"
	MovementProductionYield MovementType = "production_yield"
	MovementProductionUse   MovementType = "production_consume"
	MovementCountAdjustment MovementType = "inventory_count_adjustment"
	MovementSaleReserve     MovementType = "sale_reserve"
)

// Advisory reports whether the movement never changes physical quantity.
// Advisory movements are excluded from addition/deduction aggregates:
// sale_reserve and order_cancel_return move quantity between the reserved
// and available buckets, so counting them as additions or deductions would
// double-count the stock against its po_receive or order_sale rows.
func (t MovementType) Advisory() bool {
	return t == MovementSaleReserve || t == MovementCancelReturn
}

func (t MovementType) Valid() bool {
	switch t {
	case MovementManualAddition, MovementManualDeduction, MovementPOReceive,
		MovementTransferIn, MovementTransferOut, MovementOrderSale,
		MovementCancelReturn, MovementCancelWaste, MovementProductionYield,
		MovementProductionUse, MovementCountAdjustment, MovementSaleReserve:
		return true
	}
	return false
}

type DeductionReason string

const (
	ReasonExpired DeductionReason = "expired"
	ReasonDamaged DeductionReason = "damaged"
	ReasonSpoiled DeductionReason = "spoiled"
	ReasonOthers  DeductionReason = "others"
)

func (r DeductionReason) Valid() bool {
	switch r {
	case ReasonExpired, ReasonDamaged, ReasonSpoiled, ReasonOthers:
		return true
	}
	return false
}

// StockMovement is the append-only audit record. One row per ledger mutation,
// never updated or deleted. Before/after snapshots for one (item, branch) chain
// exactly in mutation order.
type StockMovement struct {
	ID             string           `db:"id"`
	ItemID         string           `db:"item_id"`
	BranchID       string           `db:"branch_id"`
	MovementType   MovementType     `db:"movement_type"`
	QuantityChange float64          `db:"quantity_change"`
	QuantityBefore float64          `db:"quantity_before"`
	QuantityAfter  float64          `db:"quantity_after"`
	ReservedBefore float64          `db:"reserved_before"`
	ReservedAfter  float64          `db:"reserved_after"`
	HeldBefore     float64          `db:"held_before"`
	HeldAfter      float64          `db:"held_after"`
	ReferenceType  *string          `db:"reference_type"`
	ReferenceID    *string          `db:"reference_id"`
	ReasonCode     *DeductionReason `db:"reason_code"`
	Notes          string           `db:"notes"`
	CreatedBy      *string          `db:"created_by"`
	CreatedAt      time.Time        `db:"created_at"`
}
