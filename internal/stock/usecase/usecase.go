package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// eps absorbs float drift in quantity comparisons so a full release/consume of
// an accumulated reservation never fails on the last few ulps.
const eps = 1e-9

type ledgerUseCase struct {
	repo   stock.Repository
	locks  stock.LockManager
	logger *zap.Logger

	lockTTL     time.Duration
	lockRetries int
	lockBackoff time.Duration

	now func() time.Time
}

type Option func(*ledgerUseCase)

// WithClock injects the time source. Tests use it to pin timestamps.
func WithClock(clock func() time.Time) Option {
	return func(uc *ledgerUseCase) { uc.now = clock }
}

func NewLedgerUseCase(repo stock.Repository, locks stock.LockManager, cfg config.LedgerConfig, log *zap.Logger, opts ...Option) stock.UseCase {
	uc := &ledgerUseCase{
		repo:        repo,
		locks:       locks,
		logger:      log,
		lockTTL:     cfg.LockTTL,
		lockRetries: cfg.LockRetries,
		lockBackoff: cfg.LockBackoff,
		now:         time.Now,
	}
	if uc.lockTTL <= 0 {
		uc.lockTTL = 5 * time.Second
	}
	if uc.lockRetries <= 0 {
		uc.lockRetries = 3
	}
	if uc.lockBackoff <= 0 {
		uc.lockBackoff = 100 * time.Millisecond
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// --- locking ---

func lockName(k model.StockKey) string {
	return "lock:stock:" + k.String()
}

// withLock acquires every key in deterministic order (sorted by item id then
// branch id), runs fn, and releases in reverse. Two concurrent multi-item
// operations over an overlapping item set therefore can never deadlock.
func (uc *ledgerUseCase) withLock(ctx context.Context, keys []model.StockKey, fn func(context.Context) error) error {
	ordered := dedupKeys(keys)
	value := uuid.New().String()

	var held []string
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := uc.locks.ReleaseLock(ctx, held[i], value); err != nil {
				uc.logger.Error("failed to release ledger lock", zap.String("key", held[i]), zap.Error(err))
			}
		}
	}

	for _, k := range ordered {
		name := lockName(k)
		acquired := false
		for attempt := 0; attempt < uc.lockRetries; attempt++ {
			ok, err := uc.locks.AcquireLock(ctx, name, value, uc.lockTTL)
			if err != nil {
				uc.logger.Error("ledger lock acquire error", zap.String("key", name), zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			select {
			case <-ctx.Done():
				release()
				return ctx.Err()
			case <-time.After(uc.lockBackoff):
			}
		}
		if !acquired {
			release()
			return model.ErrConcurrencyConflict(name)
		}
		held = append(held, name)
	}

	defer release()
	return fn(ctx)
}

func dedupKeys(keys []model.StockKey) []model.StockKey {
	seen := make(map[model.StockKey]struct{}, len(keys))
	out := make([]model.StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (uc *ledgerUseCase) Locked(ctx context.Context, keys []model.StockKey, fn func(ctx context.Context, led stock.Ledger) error) error {
	return uc.withLock(ctx, keys, func(ctx context.Context) error {
		return fn(ctx, &lockedLedger{uc: uc})
	})
}

// one runs a single-key core operation under its ledger lock.
func (uc *ledgerUseCase) one(ctx context.Context, itemID, branchID string, fn func(context.Context) (*dto.Mutation, error)) (*dto.Mutation, error) {
	var mut *dto.Mutation
	err := uc.withLock(ctx, []model.StockKey{{ItemID: itemID, BranchID: branchID}}, func(ctx context.Context) error {
		m, err := fn(ctx)
		mut = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mut, nil
}

// lockedLedger exposes the core operations to a caller that already holds the
// relevant key locks via Locked.
type lockedLedger struct {
	uc *ledgerUseCase
}

func (l *lockedLedger) Reserve(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.reserve(ctx, in)
}
func (l *lockedLedger) Consume(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.consume(ctx, in)
}
func (l *lockedLedger) Release(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.release(ctx, in)
}
func (l *lockedLedger) Waste(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.waste(ctx, in)
}
func (l *lockedLedger) Adjust(ctx context.Context, in *dto.AdjustInput) (*dto.Mutation, error) {
	return l.uc.adjust(ctx, in)
}
func (l *lockedLedger) Hold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.hold(ctx, in)
}
func (l *lockedLedger) Unhold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return l.uc.unhold(ctx, in)
}

// --- public single-key primitives (self-locking) ---

func (uc *ledgerUseCase) Reserve(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.reserve(ctx, in)
	})
}

func (uc *ledgerUseCase) Consume(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.consume(ctx, in)
	})
}

func (uc *ledgerUseCase) Release(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.release(ctx, in)
	})
}

func (uc *ledgerUseCase) Waste(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.waste(ctx, in)
	})
}

func (uc *ledgerUseCase) Adjust(ctx context.Context, in *dto.AdjustInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.adjust(ctx, in)
	})
}

func (uc *ledgerUseCase) Hold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.hold(ctx, in)
	})
}

func (uc *ledgerUseCase) Unhold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	return uc.one(ctx, in.ItemID, in.BranchID, func(ctx context.Context) (*dto.Mutation, error) {
		return uc.unhold(ctx, in)
	})
}

// --- core operations (caller holds the key lock) ---

func (uc *ledgerUseCase) load(ctx context.Context, itemID, branchID string) (*model.StockRecord, error) {
	rec, err := uc.repo.GetByKey(ctx, itemID, branchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Created lazily on first movement, never deleted afterward.
		rec = &model.StockRecord{
			ID:       uuid.New().String(),
			ItemID:   itemID,
			BranchID: branchID,
		}
	}
	return rec, nil
}

type movementSpec struct {
	Type    model.MovementType
	Change  float64
	Reason  *model.DeductionReason
	RefType string
	RefID   string
	Notes   string
	Actor   string
}

func (uc *ledgerUseCase) commit(ctx context.Context, before model.StockRecord, rec *model.StockRecord, spec movementSpec) (*dto.Mutation, error) {
	now := uc.now()
	rec.UpdatedAt = now

	mv := &model.StockMovement{
		ID:             uuid.New().String(),
		ItemID:         rec.ItemID,
		BranchID:       rec.BranchID,
		MovementType:   spec.Type,
		QuantityChange: spec.Change,
		QuantityBefore: before.Quantity,
		QuantityAfter:  rec.Quantity,
		ReservedBefore: before.ReservedQuantity,
		ReservedAfter:  rec.ReservedQuantity,
		HeldBefore:     before.HeldQuantity,
		HeldAfter:      rec.HeldQuantity,
		ReasonCode:     spec.Reason,
		Notes:          spec.Notes,
		CreatedAt:      now,
	}
	if spec.RefType != "" {
		mv.ReferenceType = &spec.RefType
	}
	if spec.RefID != "" {
		mv.ReferenceID = &spec.RefID
	}
	if spec.Actor != "" {
		mv.CreatedBy = &spec.Actor
	}

	if err := uc.repo.SaveWithMovement(ctx, rec, mv); err != nil {
		return nil, err
	}

	return &dto.Mutation{Before: before, After: *rec, Movement: mv}, nil
}

func positiveQuantity(q float64) error {
	if q <= 0 {
		return model.ErrValidation("quantity", "quantity must be positive")
	}
	return nil
}

func (uc *ledgerUseCase) reserve(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	// Hard failure, never a silent clamp: even when available already went
	// negative through an earlier clamped deduction.
	if in.Quantity > rec.Available()+eps {
		return nil, model.ErrInsufficientStock(in.ItemID, in.BranchID, in.Quantity, rec.Available())
	}

	before := *rec
	rec.ReservedQuantity += in.Quantity

	return uc.commit(ctx, before, rec, movementSpec{
		Type:    model.MovementSaleReserve,
		RefType: in.ReferenceType,
		RefID:   in.ReferenceID,
		Notes:   in.Notes,
		Actor:   in.ActorID,
	})
}

func (uc *ledgerUseCase) consume(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if rec.ReservedQuantity+eps < in.Quantity {
		return nil, model.ErrInvalidState("consume %.3f of item %s at branch %s: only %.3f reserved",
			in.Quantity, in.ItemID, in.BranchID, rec.ReservedQuantity)
	}
	if rec.Quantity+eps < in.Quantity {
		return nil, model.ErrInsufficientStock(in.ItemID, in.BranchID, in.Quantity, rec.Quantity)
	}

	before := *rec
	rec.Quantity = clampZero(rec.Quantity - in.Quantity)
	rec.ReservedQuantity = clampZero(rec.ReservedQuantity - in.Quantity)

	return uc.commit(ctx, before, rec, movementSpec{
		Type:    model.MovementOrderSale,
		Change:  rec.Quantity - before.Quantity,
		RefType: in.ReferenceType,
		RefID:   in.ReferenceID,
		Notes:   in.Notes,
		Actor:   in.ActorID,
	})
}

func (uc *ledgerUseCase) release(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if rec.ReservedQuantity+eps < in.Quantity {
		return nil, model.ErrInvalidState("release %.3f of item %s at branch %s: only %.3f reserved",
			in.Quantity, in.ItemID, in.BranchID, rec.ReservedQuantity)
	}

	before := *rec
	rec.ReservedQuantity = clampZero(rec.ReservedQuantity - in.Quantity)

	return uc.commit(ctx, before, rec, movementSpec{
		Type:    model.MovementCancelReturn,
		RefType: in.ReferenceType,
		RefID:   in.ReferenceID,
		Notes:   in.Notes,
		Actor:   in.ActorID,
	})
}

func (uc *ledgerUseCase) waste(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if rec.ReservedQuantity+eps < in.Quantity {
		return nil, model.ErrInvalidState("waste %.3f of item %s at branch %s: only %.3f reserved",
			in.Quantity, in.ItemID, in.BranchID, rec.ReservedQuantity)
	}

	before := *rec
	// The physical deduction clamps at zero: the ingredients are gone either
	// way, and the count reconciler owns any remaining variance.
	rec.Quantity = clampZero(rec.Quantity - in.Quantity)
	rec.ReservedQuantity = clampZero(rec.ReservedQuantity - in.Quantity)

	return uc.commit(ctx, before, rec, movementSpec{
		Type:    model.MovementCancelWaste,
		Change:  rec.Quantity - before.Quantity,
		RefType: in.ReferenceType,
		RefID:   in.ReferenceID,
		Notes:   in.Notes,
		Actor:   in.ActorID,
	})
}

// adjustableTypes are the movement kinds Adjust may emit. The reservation
// lifecycle kinds go through their dedicated primitives.
var adjustableTypes = map[model.MovementType]struct{}{
	model.MovementManualAddition:  {},
	model.MovementManualDeduction: {},
	model.MovementPOReceive:       {},
	model.MovementTransferIn:      {},
	model.MovementTransferOut:     {},
	model.MovementProductionYield: {},
	model.MovementProductionUse:   {},
	model.MovementCountAdjustment: {},
}

func (uc *ledgerUseCase) adjust(ctx context.Context, in *dto.AdjustInput) (*dto.Mutation, error) {
	if _, ok := adjustableTypes[in.MovementType]; !ok {
		return nil, model.ErrValidation("movement_type", "movement type %q is not adjustable", in.MovementType)
	}
	if in.QuantityChange == 0 {
		return nil, model.ErrValidation("quantity_change", "quantity change must be non-zero")
	}
	if in.MovementType == model.MovementManualDeduction {
		if in.ReasonCode == nil || !in.ReasonCode.Valid() {
			return nil, model.ErrValidation("reason_code", "manual deduction requires a reason code")
		}
		if *in.ReasonCode == model.ReasonOthers && in.Notes == "" {
			return nil, model.ErrValidation("notes", "reason %q requires notes", model.ReasonOthers)
		}
	}

	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}

	newQty := rec.Quantity + in.QuantityChange
	if newQty < -eps {
		return nil, model.ErrInsufficientStock(in.ItemID, in.BranchID, -in.QuantityChange, rec.Quantity)
	}

	before := *rec
	rec.Quantity = clampZero(newQty)

	return uc.commit(ctx, before, rec, movementSpec{
		Type:    in.MovementType,
		Change:  rec.Quantity - before.Quantity,
		Reason:  in.ReasonCode,
		RefType: in.ReferenceType,
		RefID:   in.ReferenceID,
		Notes:   in.Notes,
		Actor:   in.ActorID,
	})
}

// hold and unhold write no movement row. The movement type list is closed and
// holds change no quantity bucket a count would see; the held_before/held_after
// snapshots on neighboring rows keep the hold visible in the audit chain, and
// transfers carry their own transfer_out/transfer_in rows at receive time.
func (uc *ledgerUseCase) hold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if in.Quantity > rec.Available()+eps {
		return nil, model.ErrInsufficientStock(in.ItemID, in.BranchID, in.Quantity, rec.Available())
	}

	before := *rec
	rec.HeldQuantity += in.Quantity
	rec.UpdatedAt = uc.now()
	if err := uc.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return &dto.Mutation{Before: before, After: *rec}, nil
}

func (uc *ledgerUseCase) unhold(ctx context.Context, in *dto.StockOpInput) (*dto.Mutation, error) {
	if err := positiveQuantity(in.Quantity); err != nil {
		return nil, err
	}
	rec, err := uc.load(ctx, in.ItemID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if rec.HeldQuantity+eps < in.Quantity {
		return nil, model.ErrInvalidState("unhold %.3f of item %s at branch %s: only %.3f held",
			in.Quantity, in.ItemID, in.BranchID, rec.HeldQuantity)
	}

	before := *rec
	rec.HeldQuantity = clampZero(rec.HeldQuantity - in.Quantity)
	rec.UpdatedAt = uc.now()
	if err := uc.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return &dto.Mutation{Before: before, After: *rec}, nil
}

func clampZero(q float64) float64 {
	if q < 0 {
		return 0
	}
	return q
}

// --- count reconciliation ---

func (uc *ledgerUseCase) ApplyCount(ctx context.Context, in *dto.CountInput) (*dto.Mutation, error) {
	if in.CountedQuantity < 0 {
		return nil, model.ErrValidation("counted_quantity", "counted quantity cannot be negative")
	}

	var mut *dto.Mutation
	err := uc.withLock(ctx, []model.StockKey{{ItemID: in.ItemID, BranchID: in.BranchID}}, func(ctx context.Context) error {
		rec, err := uc.load(ctx, in.ItemID, in.BranchID)
		if err != nil {
			return err
		}
		variance := in.CountedQuantity - rec.Quantity
		if variance > -eps && variance < eps {
			return nil
		}
		m, err := uc.adjust(ctx, &dto.AdjustInput{
			ItemID:         in.ItemID,
			BranchID:       in.BranchID,
			QuantityChange: variance,
			MovementType:   model.MovementCountAdjustment,
			ReferenceType:  "inventory_count",
			Notes:          in.Notes,
			ActorID:        in.ActorID,
		})
		mut = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mut, nil
}

// --- reads ---

func (uc *ledgerUseCase) GetAvailability(ctx context.Context, itemID, branchID string) (*dto.Availability, error) {
	rec, err := uc.repo.GetByKey(ctx, itemID, branchID)
	if err != nil {
		return nil, err
	}
	out := &dto.Availability{ItemID: itemID, BranchID: branchID}
	if rec != nil {
		out.Quantity = rec.Quantity
		out.Reserved = rec.ReservedQuantity
		out.Held = rec.HeldQuantity
		out.Available = rec.Available()
	}
	return out, nil
}

func (uc *ledgerUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *ledgerUseCase) DailySummary(ctx context.Context, branchID string, day time.Time) (*dto.DailySummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	additions, deductions, err := uc.repo.SummarizeMovements(ctx, branchID, from, to)
	if err != nil {
		return nil, err
	}
	return &dto.DailySummary{BranchID: branchID, Additions: additions, Deductions: deductions}, nil
}
