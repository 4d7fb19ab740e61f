package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
)

type Repository interface {
	// Order state mirror
	CreateOrderState(ctx context.Context, state *model.OrderState) error
	GetOrderState(ctx context.Context, orderID string) (*model.OrderState, error)
	SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, at time.Time) error

	// Reservations
	CreateReservations(ctx context.Context, reservations []model.OrderReservation) error
	ListReservationsByOrder(ctx context.Context, orderID string) ([]model.OrderReservation, error)
	UpdateReservationStatus(ctx context.Context, ids []string, status model.ReservationStatus, at time.Time) error

	// Decision queue. QueueForDecision marks the reservations queued and
	// inserts their decision entries as one atomic unit.
	QueueForDecision(ctx context.Context, reservationIDs []string, entries []model.DecisionEntry, at time.Time) error
	GetDecisionEntry(ctx context.Context, id string) (*model.DecisionEntry, error)
	UpdateDecisionEntry(ctx context.Context, entry *model.DecisionEntry) error
	ListDecisions(ctx context.Context, filters *dto.DecisionFilters) ([]model.DecisionEntry, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]model.DecisionEntry, error)
	ListPendingBySession(ctx context.Context, sessionID string) ([]model.DecisionEntry, error)
	ListUnsettledReturnsByOrder(ctx context.Context, orderID string) ([]model.DecisionEntry, error)
}
