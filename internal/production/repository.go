package production

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
)

type Repository interface {
	// CreateRun persists the run and its lines atomically. Runs are written
	// once at finalization and never updated.
	CreateRun(ctx context.Context, run *model.ProductionRun) error

	// GetRun loads a run with its lines, (nil, nil) when absent.
	GetRun(ctx context.Context, id string) (*model.ProductionRun, error)

	ListRuns(ctx context.Context, filters *dto.RunFilters) ([]model.ProductionRun, int, error)
}
