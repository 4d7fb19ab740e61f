package model

import "time"

type ReservationStatus string

const (
	// ReservationReserved means reserved_quantity is locked and untouched.
	ReservationReserved ReservationStatus = "reserved"
	// ReservationConsumed means the order completed and quantity was deducted.
	ReservationConsumed ReservationStatus = "consumed"
	// ReservationQueued means the line moved into the kitchen decision queue.
	ReservationQueued ReservationStatus = "queued"
)

// OrderReservation is one ingredient lock owned by one order line. It exists
// from order creation until consumption or transfer into a DecisionEntry.
type OrderReservation struct {
	ID        string            `db:"id"`
	OrderID   string            `db:"order_id"`
	LineID    string            `db:"line_id"`
	SessionID string            `db:"session_id"`
	ItemID    string            `db:"item_id"`
	BranchID  string            `db:"branch_id"`
	Quantity  float64           `db:"quantity"`
	Status    ReservationStatus `db:"status"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionReturn  Decision = "return"
	DecisionWaste   Decision = "waste"
)

func (d Decision) Valid() bool {
	return d == DecisionPending || d == DecisionReturn || d == DecisionWaste
}

type CancellationSource string

const (
	SourceOrderCancelled CancellationSource = "order_cancelled"
	SourceOrderEdited    CancellationSource = "order_edited"
)

func (s CancellationSource) Valid() bool {
	return s == SourceOrderCancelled || s == SourceOrderEdited
}

type SettlementMode string

const (
	// SettlementImmediate applies the ledger effect at decision time.
	SettlementImmediate SettlementMode = "immediate"
	// SettlementDeferred postpones a return's ledger effect until the owning
	// order completes. Waste decisions always settle immediately.
	SettlementDeferred SettlementMode = "deferred"
)

// DecisionEntry is one kitchen-decision-queue item. Created on order cancel or
// edit, decided at most once, retained forever for audit.
type DecisionEntry struct {
	ID         string             `db:"id"`
	OrderID    string             `db:"order_id"`
	LineID     string             `db:"line_id"`
	SessionID  string             `db:"session_id"`
	ItemID     string             `db:"item_id"`
	BranchID   string             `db:"branch_id"`
	Quantity   float64            `db:"quantity"`
	Decision   Decision           `db:"decision"`
	Source     CancellationSource `db:"cancellation_source"`
	Settlement SettlementMode     `db:"settlement"`
	Settled    bool               `db:"settled"`
	CreatedAt  time.Time          `db:"created_at"`
	DecidedAt  *time.Time         `db:"decided_at"`
	DecidedBy  *string            `db:"decided_by"`
	SettledAt  *time.Time         `db:"settled_at"`
}

// Terminal reports whether the entry can never change again: a decision was
// recorded and its ledger effect (if any) has been applied.
func (e *DecisionEntry) Terminal() bool {
	return e.Decision != DecisionPending && e.Settled
}

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderState mirrors the order collaborator's lifecycle locally. Deferred
// returns settle when the owning order leaves the open state, so the engine
// needs to know that transition even for decisions recorded afterward.
type OrderState struct {
	OrderID   string      `db:"order_id"`
	BranchID  string      `db:"branch_id"`
	SessionID string      `db:"session_id"`
	Status    OrderStatus `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}
