package stock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

// Ledger is the set of atomic per-(item, branch) mutation primitives. Every
// call checks its invariant, mutates, and appends the audit row as one
// indivisible unit, or fails with no partial field change.
type Ledger interface {
	// Reserve locks quantity for a pending order. Fails with InsufficientStock
	// when qty exceeds available; physical quantity never changes.
	Reserve(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)

	// Consume turns a reservation into a physical deduction (order completed).
	Consume(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)

	// Release unlocks a reservation without touching physical stock (return
	// decision outcome).
	Release(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)

	// Waste deducts a reservation that can never return to stock. Differs from
	// Consume only in the movement type it emits, and in that the physical
	// deduction clamps at zero.
	Waste(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)

	// Adjust adds or removes physical quantity. Used by manual adjustments,
	// purchase receipt, transfer in/out, production, and count variance.
	Adjust(ctx context.Context, in *dto.AdjustInput) (*dto.Mutation, error)

	// Hold and Unhold lock/unlock quantity against a pending branch transfer.
	Hold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)
	Unhold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error)
}

type UseCase interface {
	Ledger

	// Locked acquires the ledger locks for every key in deterministic order,
	// runs fn against a Ledger whose primitives skip re-acquisition, then
	// releases in reverse. Multi-item callers (orders, transfers, production)
	// use this to make their whole read-check-write sequence indivisible.
	Locked(ctx context.Context, keys []model.StockKey, fn func(ctx context.Context, led Ledger) error) error

	// ApplyCount reconciles a physical count. A zero variance is a no-op and
	// returns nil.
	ApplyCount(ctx context.Context, in *dto.CountInput) (*dto.Mutation, error)

	GetAvailability(ctx context.Context, itemID, branchID string) (*dto.Availability, error)
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	DailySummary(ctx context.Context, branchID string, day time.Time) (*dto.DailySummary, error)
}

// LockManager is the per-key exclusive lock provider. Redis-backed across
// nodes, keyed in-process mutexes in tests and single-node mode.
type LockManager interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}
