package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/production"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eps = 1e-9

type productionUseCase struct {
	repo     production.Repository
	ledger   stock.UseCase
	resolver catalog.Resolver
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*productionUseCase)

func WithClock(clock func() time.Time) Option {
	return func(uc *productionUseCase) { uc.now = clock }
}

func NewProductionUseCase(repo production.Repository, ledger stock.UseCase, resolver catalog.Resolver, log *zap.Logger, opts ...Option) production.UseCase {
	uc := &productionUseCase{
		repo:     repo,
		ledger:   ledger,
		resolver: resolver,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *productionUseCase) CheckAvailability(ctx context.Context, in *dto.CheckInput) (*dto.AvailabilityReport, error) {
	recipe, err := uc.resolveRecipe(ctx, in.CompositeItemID, in.BranchID, in.BatchCount)
	if err != nil {
		return nil, err
	}

	report := &dto.AvailabilityReport{
		CompositeItemID: in.CompositeItemID,
		BranchID:        in.BranchID,
		BatchCount:      in.BatchCount,
		ExpectedYield:   recipe.YieldPerBatch * float64(in.BatchCount),
		CanProduce:      true,
	}
	for _, line := range recipe.Lines {
		required := line.QuantityPerUnit * float64(in.BatchCount)
		av, err := uc.ledger.GetAvailability(ctx, line.ItemID, in.BranchID)
		if err != nil {
			return nil, err
		}
		check := dto.IngredientCheck{
			ItemID:    line.ItemID,
			Required:  required,
			Available: av.Available,
		}
		if required > av.Available+eps {
			check.Shortage = required - av.Available
			report.CanProduce = false
		}
		report.Ingredients = append(report.Ingredients, check)
	}
	return report, nil
}

func (uc *productionUseCase) Produce(ctx context.Context, in *dto.ProduceInput) (*model.ProductionRun, error) {
	recipe, err := uc.resolveRecipe(ctx, in.CompositeItemID, in.BranchID, in.BatchCount)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	run := &model.ProductionRun{
		ID:              uuid.New().String(),
		CompositeItemID: in.CompositeItemID,
		BranchID:        in.BranchID,
		BatchCount:      in.BatchCount,
		YieldedQuantity: recipe.YieldPerBatch * float64(in.BatchCount),
		Status:          model.ProductionCompleted,
		Notes:           in.Notes,
		CreatedAt:       now,
	}
	if in.ActorID != "" {
		actor := in.ActorID
		run.CreatedBy = &actor
	}
	for _, line := range recipe.Lines {
		run.Lines = append(run.Lines, model.ProductionLine{
			ID:              uuid.New().String(),
			ProductionRunID: run.ID,
			ItemID:          line.ItemID,
			Quantity:        line.QuantityPerUnit * float64(in.BatchCount),
		})
	}

	keys := make([]model.StockKey, 0, len(run.Lines)+1)
	for _, l := range run.Lines {
		keys = append(keys, model.StockKey{ItemID: l.ItemID, BranchID: in.BranchID})
	}
	keys = append(keys, model.StockKey{ItemID: in.CompositeItemID, BranchID: in.BranchID})

	err = uc.ledger.Locked(ctx, keys, func(ctx context.Context, led stock.Ledger) error {
		// Availability can have moved since any earlier check; validate again
		// while the keys are locked.
		for _, l := range run.Lines {
			av, err := uc.ledger.GetAvailability(ctx, l.ItemID, in.BranchID)
			if err != nil {
				return err
			}
			if l.Quantity > av.Available+eps {
				return model.ErrInsufficientStock(l.ItemID, in.BranchID, l.Quantity, av.Available)
			}
		}

		var deducted []model.ProductionLine
		yielded := false
		reverse := func() bool {
			ok := true
			if yielded {
				if _, rerr := led.Adjust(ctx, uc.adjustInput(run, in.CompositeItemID, -run.YieldedQuantity, model.MovementProductionYield, in.ActorID, "production reversal")); rerr != nil {
					uc.logger.Error("production reversal failed",
						zap.String("run_id", run.ID),
						zap.String("item_id", in.CompositeItemID),
						zap.Error(rerr),
					)
					ok = false
				}
			}
			for i := len(deducted) - 1; i >= 0; i-- {
				l := deducted[i]
				if _, rerr := led.Adjust(ctx, uc.adjustInput(run, l.ItemID, l.Quantity, model.MovementProductionUse, in.ActorID, "production reversal")); rerr != nil {
					uc.logger.Error("production reversal failed",
						zap.String("run_id", run.ID),
						zap.String("item_id", l.ItemID),
						zap.Error(rerr),
					)
					ok = false
				}
			}
			return ok
		}

		for _, l := range run.Lines {
			if _, err := led.Adjust(ctx, uc.adjustInput(run, l.ItemID, -l.Quantity, model.MovementProductionUse, in.ActorID, "")); err != nil {
				if !reverse() {
					uc.recordFailed(ctx, run, err)
				}
				return err
			}
			deducted = append(deducted, l)
		}

		if _, err := led.Adjust(ctx, uc.adjustInput(run, in.CompositeItemID, run.YieldedQuantity, model.MovementProductionYield, in.ActorID, "")); err != nil {
			if !reverse() {
				uc.recordFailed(ctx, run, err)
			}
			return err
		}
		yielded = true

		// A run that cannot be persisted must not leave its movements standing;
		// they would reference a run id that does not exist.
		if err := uc.repo.CreateRun(ctx, run); err != nil {
			if !reverse() {
				uc.recordFailed(ctx, run, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("production run completed",
		zap.String("run_id", run.ID),
		zap.String("composite_item_id", run.CompositeItemID),
		zap.String("branch_id", run.BranchID),
		zap.Int("batch_count", run.BatchCount),
		zap.Float64("yielded_quantity", run.YieldedQuantity),
	)
	return run, nil
}

// recordFailed persists the run with a failed status after a reversal could
// not restore the ledger, so the stuck deductions stay traceable to a run.
func (uc *productionUseCase) recordFailed(ctx context.Context, run *model.ProductionRun, cause error) {
	failed := *run
	failed.Status = model.ProductionFailed
	failed.YieldedQuantity = 0
	if cerr := uc.repo.CreateRun(ctx, &failed); cerr != nil {
		uc.logger.Error("recording failed production run failed",
			zap.String("run_id", run.ID),
			zap.NamedError("cause", cause),
			zap.Error(cerr),
		)
	}
}

func (uc *productionUseCase) GetRun(ctx context.Context, id string) (*model.ProductionRun, error) {
	if id == "" {
		return nil, model.ErrValidation("run_id", "run_id is required")
	}
	run, err := uc.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, model.ErrNotFound("production run", id)
	}
	return run, nil
}

func (uc *productionUseCase) ListRuns(ctx context.Context, filters *dto.RunFilters) ([]model.ProductionRun, int, error) {
	return uc.repo.ListRuns(ctx, filters)
}

func (uc *productionUseCase) resolveRecipe(ctx context.Context, compositeItemID, branchID string, batchCount int) (*catalog.CompositeRecipe, error) {
	if compositeItemID == "" {
		return nil, model.ErrValidation("composite_item_id", "composite_item_id is required")
	}
	if branchID == "" {
		return nil, model.ErrValidation("branch_id", "branch_id is required")
	}
	if batchCount < 1 {
		return nil, model.ErrValidation("batch_count", "batch count must be at least 1")
	}
	recipe, err := uc.resolver.ResolveCompositeRecipe(ctx, compositeItemID)
	if err != nil {
		return nil, err
	}
	if recipe == nil || len(recipe.Lines) == 0 {
		return nil, model.ErrNotFound("composite recipe", compositeItemID)
	}
	if recipe.YieldPerBatch <= 0 {
		return nil, model.ErrValidation("composite_item_id", "composite %s has a non-positive yield", compositeItemID)
	}
	return recipe, nil
}

func (uc *productionUseCase) adjustInput(run *model.ProductionRun, itemID string, change float64, mt model.MovementType, actorID, notes string) *stockdto.AdjustInput {
	return &stockdto.AdjustInput{
		ItemID:         itemID,
		BranchID:       run.BranchID,
		QuantityChange: change,
		MovementType:   mt,
		ReferenceType:  "production",
		ReferenceID:    run.ID,
		Notes:          notes,
		ActorID:        actorID,
	}
}
