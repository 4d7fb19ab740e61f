package production

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
)

// UseCase converts raw-ingredient stock into composite-item stock. Produce
// deducts every ingredient and adds the yield as one indivisible unit;
// CheckAvailability is the read-only preview of the same calculation.
type UseCase interface {
	CheckAvailability(ctx context.Context, in *dto.CheckInput) (*dto.AvailabilityReport, error)
	Produce(ctx context.Context, in *dto.ProduceInput) (*model.ProductionRun, error)

	GetRun(ctx context.Context, id string) (*model.ProductionRun, error)
	ListRuns(ctx context.Context, filters *dto.RunFilters) ([]model.ProductionRun, int, error)
}
