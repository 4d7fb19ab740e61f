package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eps = 1e-9

type transferUseCase struct {
	repo   transfer.Repository
	ledger stock.UseCase
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*transferUseCase)

func WithClock(clock func() time.Time) Option {
	return func(uc *transferUseCase) { uc.now = clock }
}

func NewTransferUseCase(repo transfer.Repository, ledger stock.UseCase, log *zap.Logger, opts ...Option) transfer.UseCase {
	uc := &transferUseCase{
		repo:   repo,
		ledger: ledger,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *transferUseCase) CreateTransfer(ctx context.Context, in *dto.CreateTransferInput) (*model.Transfer, error) {
	if in.SourceBranchID == "" {
		return nil, model.ErrValidation("source_branch_id", "source_branch_id is required")
	}
	if in.DestBranchID == "" {
		return nil, model.ErrValidation("dest_branch_id", "dest_branch_id is required")
	}
	if in.SourceBranchID == in.DestBranchID {
		return nil, model.ErrValidation("dest_branch_id", "source and destination branch must differ")
	}
	if len(in.Items) == 0 {
		return nil, model.ErrValidation("items", "transfer has no items")
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, model.ErrValidation("quantity", "item %s: quantity must be positive", it.ItemID)
		}
		if _, dup := seen[it.ItemID]; dup {
			return nil, model.ErrValidation("items", "item %s listed twice", it.ItemID)
		}
		seen[it.ItemID] = struct{}{}
	}

	now := uc.now()
	t := &model.Transfer{
		ID:             uuid.New().String(),
		SourceBranchID: in.SourceBranchID,
		DestBranchID:   in.DestBranchID,
		Status:         model.TransferCreated,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ActorID != "" {
		actor := in.ActorID
		t.CreatedBy = &actor
	}
	for _, it := range in.Items {
		t.Items = append(t.Items, model.TransferItem{
			ID:         uuid.New().String(),
			TransferID: t.ID,
			ItemID:     it.ItemID,
			Quantity:   it.Quantity,
		})
	}

	err := uc.ledger.Locked(ctx, uc.sourceKeys(t), func(ctx context.Context, led stock.Ledger) error {
		var held []model.TransferItem

		unwind := func() {
			for i := len(held) - 1; i >= 0; i-- {
				it := held[i]
				if _, uerr := led.Unhold(ctx, uc.opInput(t, it, in.ActorID, "transfer hold rollback")); uerr != nil {
					uc.logger.Error("transfer hold rollback failed",
						zap.String("transfer_id", t.ID),
						zap.String("item_id", it.ItemID),
						zap.Error(uerr),
					)
				}
			}
		}

		for _, it := range t.Items {
			if _, err := led.Hold(ctx, uc.opInput(t, it, in.ActorID, "")); err != nil {
				unwind()
				return err
			}
			held = append(held, it)
		}

		if err := uc.repo.CreateTransfer(ctx, t); err != nil {
			unwind()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("transfer created",
		zap.String("transfer_id", t.ID),
		zap.String("source_branch_id", t.SourceBranchID),
		zap.String("dest_branch_id", t.DestBranchID),
		zap.Int("items", len(t.Items)),
	)
	return t, nil
}

func (uc *transferUseCase) ReceiveTransfer(ctx context.Context, transferID, actorID string) error {
	t, err := uc.createdTransfer(ctx, transferID)
	if err != nil {
		return err
	}

	keys := append(uc.sourceKeys(t), uc.destKeys(t)...)
	err = uc.ledger.Locked(ctx, keys, func(ctx context.Context, led stock.Ledger) error {
		if err := uc.precheckReceive(ctx, t); err != nil {
			return err
		}

		// Compensating closures for every applied step, run newest first when a
		// later step fails.
		var undo []func()
		unwind := func() {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}

		for _, item := range t.Items {
			it := item

			if _, err := led.Unhold(ctx, uc.opInput(t, it, actorID, "")); err != nil {
				unwind()
				return err
			}
			undo = append(undo, func() {
				if _, herr := led.Hold(ctx, uc.opInput(t, it, actorID, "receive rollback")); herr != nil {
					uc.logger.Error("transfer receive rollback failed",
						zap.String("transfer_id", t.ID), zap.String("item_id", it.ItemID), zap.Error(herr))
				}
			})

			if _, err := led.Adjust(ctx, uc.adjustInput(t, it, t.SourceBranchID, -it.Quantity, model.MovementTransferOut, actorID, "")); err != nil {
				unwind()
				return err
			}
			undo = append(undo, func() {
				if _, aerr := led.Adjust(ctx, uc.adjustInput(t, it, t.SourceBranchID, it.Quantity, model.MovementTransferIn, actorID, "receive rollback")); aerr != nil {
					uc.logger.Error("transfer receive rollback failed",
						zap.String("transfer_id", t.ID), zap.String("item_id", it.ItemID), zap.Error(aerr))
				}
			})

			if _, err := led.Adjust(ctx, uc.adjustInput(t, it, t.DestBranchID, it.Quantity, model.MovementTransferIn, actorID, "")); err != nil {
				unwind()
				return err
			}
			undo = append(undo, func() {
				if _, aerr := led.Adjust(ctx, uc.adjustInput(t, it, t.DestBranchID, -it.Quantity, model.MovementTransferOut, actorID, "receive rollback")); aerr != nil {
					uc.logger.Error("transfer receive rollback failed",
						zap.String("transfer_id", t.ID), zap.String("item_id", it.ItemID), zap.Error(aerr))
				}
			})
		}

		if err := uc.repo.SetStatus(ctx, t.ID, model.TransferReceived, uc.now()); err != nil {
			unwind()
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	uc.logger.Info("transfer received",
		zap.String("transfer_id", t.ID),
		zap.String("dest_branch_id", t.DestBranchID),
		zap.Int("items", len(t.Items)),
	)
	return nil
}

// precheckReceive verifies, under the held key locks, that every source record
// still covers its held and physical quantity, so the per-item moves cannot
// fail on a constraint part-way through.
func (uc *transferUseCase) precheckReceive(ctx context.Context, t *model.Transfer) error {
	for _, it := range t.Items {
		av, err := uc.ledger.GetAvailability(ctx, it.ItemID, t.SourceBranchID)
		if err != nil {
			return err
		}
		if it.Quantity > av.Held+eps {
			return model.ErrInvalidState("transfer %s needs %.3f held of item %s at branch %s, only %.3f held",
				t.ID, it.Quantity, it.ItemID, t.SourceBranchID, av.Held)
		}
		if it.Quantity > av.Quantity+eps {
			return model.ErrInsufficientStock(it.ItemID, t.SourceBranchID, it.Quantity, av.Quantity)
		}
	}
	return nil
}

func (uc *transferUseCase) CancelTransfer(ctx context.Context, transferID, actorID string) error {
	t, err := uc.createdTransfer(ctx, transferID)
	if err != nil {
		return err
	}

	err = uc.ledger.Locked(ctx, uc.sourceKeys(t), func(ctx context.Context, led stock.Ledger) error {
		var released []model.TransferItem
		for _, it := range t.Items {
			if _, err := led.Unhold(ctx, uc.opInput(t, it, actorID, "transfer cancelled")); err != nil {
				for i := len(released) - 1; i >= 0; i-- {
					if _, herr := led.Hold(ctx, uc.opInput(t, released[i], actorID, "cancel rollback")); herr != nil {
						uc.logger.Error("transfer cancel rollback failed",
							zap.String("transfer_id", t.ID), zap.String("item_id", released[i].ItemID), zap.Error(herr))
					}
				}
				return err
			}
			released = append(released, it)
		}
		return uc.repo.SetStatus(ctx, t.ID, model.TransferCancelled, uc.now())
	})
	if err != nil {
		return err
	}

	uc.logger.Info("transfer cancelled", zap.String("transfer_id", t.ID))
	return nil
}

func (uc *transferUseCase) GetTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	if id == "" {
		return nil, model.ErrValidation("transfer_id", "transfer_id is required")
	}
	t, err := uc.repo.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.ErrNotFound("transfer", id)
	}
	return t, nil
}

func (uc *transferUseCase) ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error) {
	return uc.repo.ListTransfers(ctx, filters)
}

func (uc *transferUseCase) createdTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	t, err := uc.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TransferCreated {
		return nil, model.ErrInvalidState("transfer %s is already %s", t.ID, t.Status)
	}
	return t, nil
}

func (uc *transferUseCase) sourceKeys(t *model.Transfer) []model.StockKey {
	keys := make([]model.StockKey, 0, len(t.Items))
	for _, it := range t.Items {
		keys = append(keys, model.StockKey{ItemID: it.ItemID, BranchID: t.SourceBranchID})
	}
	return keys
}

func (uc *transferUseCase) destKeys(t *model.Transfer) []model.StockKey {
	keys := make([]model.StockKey, 0, len(t.Items))
	for _, it := range t.Items {
		keys = append(keys, model.StockKey{ItemID: it.ItemID, BranchID: t.DestBranchID})
	}
	return keys
}

func (uc *transferUseCase) opInput(t *model.Transfer, it model.TransferItem, actorID, notes string) *stockdto.StockOpInput {
	return &stockdto.StockOpInput{
		ItemID:        it.ItemID,
		BranchID:      t.SourceBranchID,
		Quantity:      it.Quantity,
		ReferenceType: "transfer",
		ReferenceID:   t.ID,
		Notes:         notes,
		ActorID:       actorID,
	}
}

func (uc *transferUseCase) adjustInput(t *model.Transfer, it model.TransferItem, branchID string, change float64, mt model.MovementType, actorID, notes string) *stockdto.AdjustInput {
	return &stockdto.AdjustInput{
		ItemID:         it.ItemID,
		BranchID:       branchID,
		QuantityChange: change,
		MovementType:   mt,
		ReferenceType:  "transfer",
		ReferenceID:    t.ID,
		Notes:          notes,
		ActorID:        actorID,
	}
}
