package stock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

type Repository interface {
	// GetByKey returns nil, nil when no record exists for the pair; the ledger
	// creates records lazily on first movement.
	GetByKey(ctx context.Context, itemID, branchID string) (*model.StockRecord, error)
	FindAll(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)

	// SaveWithMovement persists the mutated record and appends its audit row
	// as one atomic unit.
	SaveWithMovement(ctx context.Context, rec *model.StockRecord, mv *model.StockMovement) error

	// Save persists a record with no audit row. Only hold/unhold use this; the
	// movement enumeration has no hold kind, the transfer record itself is the
	// audit trail for held quantity.
	Save(ctx context.Context, rec *model.StockRecord) error

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)

	// SummarizeMovements sums positive and negative quantity changes for a
	// branch inside [from, to), skipping advisory movement types.
	SummarizeMovements(ctx context.Context, branchID string, from, to time.Time) (additions, deductions float64, err error)
}
