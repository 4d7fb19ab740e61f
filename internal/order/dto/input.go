package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

// OrderLineInput is one sold line; the catalog resolver explodes it into
// ingredient requirements.
type OrderLineInput struct {
	LineID    string  `json:"line_id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  float64 `json:"quantity"`
}

type CreateOrderInput struct {
	OrderID   string           `json:"order_id"`
	BranchID  string           `json:"branch_id"`
	SessionID string           `json:"session_id"`
	Lines     []OrderLineInput `json:"lines"`
	ActorID   string           `json:"-"`
}

type EditOrderInput struct {
	OrderID        string   `json:"order_id"`
	RemovedLineIDs []string `json:"removed_line_ids"`
	ActorID        string   `json:"-"`
}

type DecisionInput struct {
	EntryID  string         `json:"entry_id"`
	Decision model.Decision `json:"decision"`
	ActorID  string         `json:"-"`
}

type DecisionFilters struct {
	BranchID    string
	Source      model.CancellationSource
	PendingOnly bool
}
