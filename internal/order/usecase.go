package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
)

// UseCase is the order lifecycle state machine. It computes which ledger
// mutations an order event requires and delegates mutation and locking to the
// stock ledger; the only state it owns directly is the reservation table, the
// decision queue, and the order state mirror.
type UseCase interface {
	// CreateOrderReservation explodes every line through the catalog recipe
	// and reserves all ingredients, all-or-nothing. On any failure every
	// reservation already granted in this call is released, in reverse order,
	// before the error returns.
	CreateOrderReservation(ctx context.Context, in *dto.CreateOrderInput) error

	// CompleteOrder consumes every still-reserved line, then settles every
	// deferred-return decision entry owned by the order.
	CompleteOrder(ctx context.Context, orderID, actorID string) error

	// CancelOrder moves every still-reserved line into the decision queue
	// (immediate settlement). Reservations stay locked until a decision.
	CancelOrder(ctx context.Context, orderID, actorID string) error

	// EditOrder does the same for the removed lines only, with deferred
	// settlement.
	EditOrder(ctx context.Context, in *dto.EditOrderInput) error

	ListDecisionQueue(ctx context.Context, branchID string, source model.CancellationSource) ([]model.DecisionEntry, error)

	// RecordDecision resolves one pending entry. Fails with InvalidState when
	// the entry already has a decision.
	RecordDecision(ctx context.Context, in *dto.DecisionInput) error

	// SweepExpired force-resolves every pending entry created before cutoff
	// as waste. Per-entry failures are logged, not propagated.
	SweepExpired(ctx context.Context, cutoff time.Time) (int, error)

	// CloseSession force-resolves every pending entry owned by the session as
	// waste.
	CloseSession(ctx context.Context, sessionID string) (int, error)
}
