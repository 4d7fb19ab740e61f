package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eps = 1e-9

// SystemActor attributes mutations triggered by the sweeper and listeners.
const SystemActor = "system"

type reservationUseCase struct {
	repo     order.Repository
	ledger   stock.UseCase
	resolver catalog.Resolver
	locks    stock.LockManager
	logger   *zap.Logger

	entryLockTTL time.Duration
	now          func() time.Time
}

type Option func(*reservationUseCase)

func WithClock(clock func() time.Time) Option {
	return func(uc *reservationUseCase) { uc.now = clock }
}

func NewReservationUseCase(repo order.Repository, ledger stock.UseCase, resolver catalog.Resolver, locks stock.LockManager, log *zap.Logger, opts ...Option) order.UseCase {
	uc := &reservationUseCase{
		repo:         repo,
		ledger:       ledger,
		resolver:     resolver,
		locks:        locks,
		logger:       log,
		entryLockTTL: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// --- order creation ---

func (uc *reservationUseCase) CreateOrderReservation(ctx context.Context, in *dto.CreateOrderInput) error {
	if in.OrderID == "" {
		return model.ErrValidation("order_id", "order_id is required")
	}
	if in.BranchID == "" {
		return model.ErrValidation("branch_id", "branch_id is required")
	}
	if len(in.Lines) == 0 {
		return model.ErrValidation("lines", "order has no lines")
	}
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return model.ErrValidation("quantity", "line %s: quantity must be positive", line.LineID)
		}
	}

	if existing, err := uc.repo.GetOrderState(ctx, in.OrderID); err != nil {
		return err
	} else if existing != nil {
		return model.ErrInvalidState("order %s already has a reservation", in.OrderID)
	}

	now := uc.now()
	reservations, err := uc.explode(ctx, in, now)
	if err != nil {
		return err
	}

	state := &model.OrderState{
		OrderID:   in.OrderID,
		BranchID:  in.BranchID,
		SessionID: in.SessionID,
		Status:    model.OrderOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if len(reservations) == 0 {
		// No tracked ingredients; still remember the order for its lifecycle.
		return uc.repo.CreateOrderState(ctx, state)
	}

	return uc.ledger.Locked(ctx, reservationKeys(reservations), func(ctx context.Context, led stock.Ledger) error {
		var applied []model.OrderReservation

		rollback := func() {
			// Reverse order: a later line's failure path must observe the
			// partial state exactly as it was built up.
			for i := len(applied) - 1; i >= 0; i-- {
				r := applied[i]
				_, rerr := led.Release(ctx, &stockdto.StockOpInput{
					ItemID:        r.ItemID,
					BranchID:      r.BranchID,
					Quantity:      r.Quantity,
					ReferenceType: "order",
					ReferenceID:   r.OrderID,
					Notes:         "reservation rollback",
					ActorID:       in.ActorID,
				})
				if rerr != nil {
					uc.logger.Error("reservation rollback failed",
						zap.String("order_id", r.OrderID),
						zap.String("item_id", r.ItemID),
						zap.Error(rerr),
					)
				}
			}
		}

		for _, r := range reservations {
			_, err := led.Reserve(ctx, &stockdto.StockOpInput{
				ItemID:        r.ItemID,
				BranchID:      r.BranchID,
				Quantity:      r.Quantity,
				ReferenceType: "order",
				ReferenceID:   r.OrderID,
				ActorID:       in.ActorID,
			})
			if err != nil {
				rollback()
				return err
			}
			applied = append(applied, r)
		}

		if err := uc.repo.CreateOrderState(ctx, state); err != nil {
			rollback()
			return err
		}
		if err := uc.repo.CreateReservations(ctx, reservations); err != nil {
			rollback()
			return err
		}
		return nil
	})
}

// explode resolves every line's recipe and scales it by the sold quantity.
func (uc *reservationUseCase) explode(ctx context.Context, in *dto.CreateOrderInput, now time.Time) ([]model.OrderReservation, error) {
	var out []model.OrderReservation
	for _, line := range in.Lines {
		recipe, err := uc.resolver.ResolveRecipe(ctx, line.ProductID, line.VariantID)
		if err != nil {
			return nil, err
		}
		for _, rl := range recipe {
			out = append(out, model.OrderReservation{
				ID:        uuid.New().String(),
				OrderID:   in.OrderID,
				LineID:    line.LineID,
				SessionID: in.SessionID,
				ItemID:    rl.ItemID,
				BranchID:  in.BranchID,
				Quantity:  rl.QuantityPerUnit * line.Quantity,
				Status:    model.ReservationReserved,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return out, nil
}

func reservationKeys(reservations []model.OrderReservation) []model.StockKey {
	keys := make([]model.StockKey, 0, len(reservations))
	for _, r := range reservations {
		keys = append(keys, model.StockKey{ItemID: r.ItemID, BranchID: r.BranchID})
	}
	return keys
}

func entryKeys(entries []model.DecisionEntry) []model.StockKey {
	keys := make([]model.StockKey, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, model.StockKey{ItemID: e.ItemID, BranchID: e.BranchID})
	}
	return keys
}

// --- lifecycle locks ---
//
// Acquisition order is fixed: entry lock, then order lock, then ledger key
// locks. RecordDecision takes all three in that order; the lifecycle
// transitions take order then ledger. Never acquire in any other order.

func (uc *reservationUseCase) acquire(ctx context.Context, key string) (func(), error) {
	value := uuid.New().String()
	for i := 0; i < 3; i++ {
		ok, err := uc.locks.AcquireLock(ctx, key, value, uc.entryLockTTL)
		if err != nil {
			uc.logger.Error("lock acquire error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return func() { uc.locks.ReleaseLock(ctx, key, value) }, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, model.ErrConcurrencyConflict(key)
}

// lockOrder serializes the order's lifecycle transitions against deferred
// decision recording, so a return recorded while the order looks open is
// always visible to the settlement pass of the completion or cancellation
// that closes it.
func (uc *reservationUseCase) lockOrder(ctx context.Context, orderID string) (func(), error) {
	if orderID == "" {
		return nil, model.ErrValidation("order_id", "order_id is required")
	}
	return uc.acquire(ctx, "lock:order:"+orderID)
}

// --- completion ---

func (uc *reservationUseCase) CompleteOrder(ctx context.Context, orderID, actorID string) error {
	release, err := uc.lockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	state, err := uc.openOrder(ctx, orderID)
	if err != nil {
		return err
	}

	reservations, err := uc.repo.ListReservationsByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	var toConsume []model.OrderReservation
	for _, r := range reservations {
		if r.Status == model.ReservationReserved {
			toConsume = append(toConsume, r)
		}
	}

	deferred, err := uc.repo.ListUnsettledReturnsByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	now := uc.now()
	keys := append(reservationKeys(toConsume), entryKeys(deferred)...)

	if len(keys) > 0 {
		err = uc.ledger.Locked(ctx, keys, func(ctx context.Context, led stock.Ledger) error {
			if err := uc.precheckCompletion(ctx, toConsume, deferred); err != nil {
				return err
			}

			consumedIDs := make([]string, 0, len(toConsume))
			for _, r := range toConsume {
				if _, err := led.Consume(ctx, &stockdto.StockOpInput{
					ItemID:        r.ItemID,
					BranchID:      r.BranchID,
					Quantity:      r.Quantity,
					ReferenceType: "order",
					ReferenceID:   orderID,
					ActorID:       actorID,
				}); err != nil {
					return err
				}
				consumedIDs = append(consumedIDs, r.ID)
			}
			if len(consumedIDs) > 0 {
				if err := uc.repo.UpdateReservationStatus(ctx, consumedIDs, model.ReservationConsumed, now); err != nil {
					return err
				}
			}

			// Deferred returns settle now, not at decision time: the release
			// and its order_cancel_return row happen at order completion.
			return uc.settleEntries(ctx, led, deferred, actorID, now)
		})
		if err != nil {
			return err
		}
	}

	uc.logger.Info("order completed",
		zap.String("order_id", orderID),
		zap.Int("consumed_lines", len(toConsume)),
		zap.Int("settled_returns", len(deferred)),
	)
	return uc.repo.SetOrderStatus(ctx, state.OrderID, model.OrderCompleted, now)
}

// precheckCompletion verifies, while all key locks are held, that every
// consume and release will satisfy its invariant, so no apply can fail
// part-way on a constraint.
func (uc *reservationUseCase) precheckCompletion(ctx context.Context, toConsume []model.OrderReservation, deferred []model.DecisionEntry) error {
	needConsume := map[model.StockKey]float64{}
	needRelease := map[model.StockKey]float64{}
	for _, r := range toConsume {
		needConsume[model.StockKey{ItemID: r.ItemID, BranchID: r.BranchID}] += r.Quantity
	}
	for _, e := range deferred {
		needRelease[model.StockKey{ItemID: e.ItemID, BranchID: e.BranchID}] += e.Quantity
	}

	seen := map[model.StockKey]struct{}{}
	for k := range needConsume {
		seen[k] = struct{}{}
	}
	for k := range needRelease {
		seen[k] = struct{}{}
	}

	for k := range seen {
		av, err := uc.ledger.GetAvailability(ctx, k.ItemID, k.BranchID)
		if err != nil {
			return err
		}
		if needConsume[k]+needRelease[k] > av.Reserved+eps {
			return model.ErrInvalidState("order completion needs %.3f reserved of item %s at branch %s, only %.3f reserved",
				needConsume[k]+needRelease[k], k.ItemID, k.BranchID, av.Reserved)
		}
		if needConsume[k] > av.Quantity+eps {
			return model.ErrInsufficientStock(k.ItemID, k.BranchID, needConsume[k], av.Quantity)
		}
	}
	return nil
}

// settleEntries releases each deferred-return entry and marks it settled.
// Caller holds the ledger locks for every entry key.
func (uc *reservationUseCase) settleEntries(ctx context.Context, led stock.Ledger, entries []model.DecisionEntry, actorID string, now time.Time) error {
	for i := range entries {
		e := entries[i]
		if _, err := led.Release(ctx, &stockdto.StockOpInput{
			ItemID:        e.ItemID,
			BranchID:      e.BranchID,
			Quantity:      e.Quantity,
			ReferenceType: "decision",
			ReferenceID:   e.ID,
			ActorID:       actorID,
		}); err != nil {
			return err
		}
		e.Settled = true
		e.SettledAt = &now
		if err := uc.repo.UpdateDecisionEntry(ctx, &e); err != nil {
			return err
		}
	}
	return nil
}

// --- cancellation / edit ---

func (uc *reservationUseCase) CancelOrder(ctx context.Context, orderID, actorID string) error {
	release, err := uc.lockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	state, err := uc.openOrder(ctx, orderID)
	if err != nil {
		return err
	}

	reservations, err := uc.repo.ListReservationsByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	var reserved []model.OrderReservation
	for _, r := range reservations {
		if r.Status == model.ReservationReserved {
			reserved = append(reserved, r)
		}
	}

	now := uc.now()
	if len(reserved) > 0 {
		// No ledger mutation here: reserved_quantity stays locked until the
		// kitchen decides.
		if err := uc.queueEntries(ctx, state, reserved, model.SourceOrderCancelled, model.SettlementImmediate, now); err != nil {
			return err
		}
	}

	// Cancellation is a terminal order state, so deferred returns from
	// earlier edits settle here.
	deferred, err := uc.repo.ListUnsettledReturnsByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(deferred) > 0 {
		err = uc.ledger.Locked(ctx, entryKeys(deferred), func(ctx context.Context, led stock.Ledger) error {
			return uc.settleEntries(ctx, led, deferred, actorID, now)
		})
		if err != nil {
			return err
		}
	}

	uc.logger.Info("order cancelled",
		zap.String("order_id", orderID),
		zap.Int("queued_lines", len(reserved)),
	)
	return uc.repo.SetOrderStatus(ctx, orderID, model.OrderCancelled, now)
}

func (uc *reservationUseCase) EditOrder(ctx context.Context, in *dto.EditOrderInput) error {
	release, err := uc.lockOrder(ctx, in.OrderID)
	if err != nil {
		return err
	}
	defer release()

	state, err := uc.openOrder(ctx, in.OrderID)
	if err != nil {
		return err
	}
	if len(in.RemovedLineIDs) == 0 {
		return model.ErrValidation("removed_line_ids", "no removed lines given")
	}

	removed := make(map[string]struct{}, len(in.RemovedLineIDs))
	for _, id := range in.RemovedLineIDs {
		removed[id] = struct{}{}
	}

	reservations, err := uc.repo.ListReservationsByOrder(ctx, in.OrderID)
	if err != nil {
		return err
	}
	var matched []model.OrderReservation
	for _, r := range reservations {
		if r.Status != model.ReservationReserved {
			continue
		}
		if _, ok := removed[r.LineID]; ok {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return model.ErrNotFound("removed lines of order", in.OrderID)
	}

	return uc.queueEntries(ctx, state, matched, model.SourceOrderEdited, model.SettlementDeferred, uc.now())
}

func (uc *reservationUseCase) queueEntries(ctx context.Context, state *model.OrderState, reservations []model.OrderReservation, source model.CancellationSource, settlement model.SettlementMode, now time.Time) error {
	ids := make([]string, 0, len(reservations))
	entries := make([]model.DecisionEntry, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
		entries = append(entries, model.DecisionEntry{
			ID:         uuid.New().String(),
			OrderID:    r.OrderID,
			LineID:     r.LineID,
			SessionID:  state.SessionID,
			ItemID:     r.ItemID,
			BranchID:   r.BranchID,
			Quantity:   r.Quantity,
			Decision:   model.DecisionPending,
			Source:     source,
			Settlement: settlement,
			CreatedAt:  now,
		})
	}
	return uc.repo.QueueForDecision(ctx, ids, entries, now)
}

func (uc *reservationUseCase) openOrder(ctx context.Context, orderID string) (*model.OrderState, error) {
	if orderID == "" {
		return nil, model.ErrValidation("order_id", "order_id is required")
	}
	state, err := uc.repo.GetOrderState(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, model.ErrNotFound("order", orderID)
	}
	if state.Status != model.OrderOpen {
		return nil, model.ErrInvalidState("order %s is already %s", orderID, state.Status)
	}
	return state, nil
}

// --- decision queue ---

func (uc *reservationUseCase) ListDecisionQueue(ctx context.Context, branchID string, source model.CancellationSource) ([]model.DecisionEntry, error) {
	if source != "" && !source.Valid() {
		return nil, model.ErrValidation("source", "unknown cancellation source %q", source)
	}
	return uc.repo.ListDecisions(ctx, &dto.DecisionFilters{
		BranchID:    branchID,
		Source:      source,
		PendingOnly: true,
	})
}

func (uc *reservationUseCase) RecordDecision(ctx context.Context, in *dto.DecisionInput) error {
	if in.Decision != model.DecisionReturn && in.Decision != model.DecisionWaste {
		return model.ErrValidation("decision", "decision must be %q or %q", model.DecisionReturn, model.DecisionWaste)
	}

	// Entry lock first, so an entry can never appear resolved before its
	// ledger effect is visible.
	releaseEntry, err := uc.acquire(ctx, "lock:decision:"+in.EntryID)
	if err != nil {
		return err
	}
	defer releaseEntry()

	entry, err := uc.repo.GetDecisionEntry(ctx, in.EntryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return model.ErrNotFound("decision entry", in.EntryID)
	}
	if entry.Decision != model.DecisionPending {
		return model.ErrInvalidState("decision entry %s already resolved as %s", entry.ID, entry.Decision)
	}

	now := uc.now()
	key := []model.StockKey{{ItemID: entry.ItemID, BranchID: entry.BranchID}}

	switch in.Decision {
	case model.DecisionWaste:
		// Waste settles immediately regardless of source or settlement mode.
		err = uc.ledger.Locked(ctx, key, func(ctx context.Context, led stock.Ledger) error {
			_, werr := led.Waste(ctx, &stockdto.StockOpInput{
				ItemID:        entry.ItemID,
				BranchID:      entry.BranchID,
				Quantity:      entry.Quantity,
				ReferenceType: "decision",
				ReferenceID:   entry.ID,
				ActorID:       in.ActorID,
			})
			return werr
		})
		if err != nil {
			return err
		}
		entry.Settled = true
		entry.SettledAt = &now

	case model.DecisionReturn:
		settleNow := entry.Settlement == model.SettlementImmediate
		if !settleNow {
			// The deferred trigger is the order leaving the open state; if it
			// already has, there is nothing to wait for. The order lock is held
			// through the persist below: an unsettled return either lands before
			// the closing transition's settlement pass, which then picks it up,
			// or lands after it and settles here.
			releaseOrder, lerr := uc.lockOrder(ctx, entry.OrderID)
			if lerr != nil {
				return lerr
			}
			defer releaseOrder()

			state, serr := uc.repo.GetOrderState(ctx, entry.OrderID)
			if serr != nil {
				return serr
			}
			settleNow = state != nil && state.Status != model.OrderOpen
		}
		if settleNow {
			err = uc.ledger.Locked(ctx, key, func(ctx context.Context, led stock.Ledger) error {
				_, rerr := led.Release(ctx, &stockdto.StockOpInput{
					ItemID:        entry.ItemID,
					BranchID:      entry.BranchID,
					Quantity:      entry.Quantity,
					ReferenceType: "decision",
					ReferenceID:   entry.ID,
					ActorID:       in.ActorID,
				})
				return rerr
			})
			if err != nil {
				return err
			}
			entry.Settled = true
			entry.SettledAt = &now
		}
	}

	entry.Decision = in.Decision
	entry.DecidedAt = &now
	if in.ActorID != "" {
		actor := in.ActorID
		entry.DecidedBy = &actor
	}
	return uc.repo.UpdateDecisionEntry(ctx, entry)
}

// --- sweeping ---

func (uc *reservationUseCase) SweepExpired(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := uc.repo.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return uc.forceWaste(ctx, entries, "age"), nil
}

func (uc *reservationUseCase) CloseSession(ctx context.Context, sessionID string) (int, error) {
	entries, err := uc.repo.ListPendingBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return uc.forceWaste(ctx, entries, "session_closed"), nil
}

// forceWaste resolves each entry as waste through the same path a human
// decision takes. One failing entry never blocks the rest.
func (uc *reservationUseCase) forceWaste(ctx context.Context, entries []model.DecisionEntry, trigger string) int {
	resolved := 0
	for _, e := range entries {
		err := uc.RecordDecision(ctx, &dto.DecisionInput{
			EntryID:  e.ID,
			Decision: model.DecisionWaste,
			ActorID:  SystemActor,
		})
		if err != nil {
			uc.logger.Warn("forced waste failed",
				zap.String("entry_id", e.ID),
				zap.String("trigger", trigger),
				zap.Error(err),
			)
			continue
		}
		resolved++
	}
	return resolved
}
