package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/resolver"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
	orderrepo "github.com/fekuna/omnipos-stock-service/internal/order/repository"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/keylock"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	stockrepo "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockuc "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"
	"go.uber.org/zap"
)

type fixture struct {
	uc        order.UseCase
	ledger    stock.UseCase
	repo      *orderrepo.MemoryRepository
	stockRepo *stockrepo.MemoryRepository
	resolver  *resolver.StaticResolver
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      orderrepo.NewMemoryRepository(),
		stockRepo: stockrepo.NewMemoryRepository(),
		resolver:  resolver.NewStaticResolver(),
		clock:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	locks := keylock.New()
	now := func() time.Time { return f.clock }
	f.ledger = stockuc.NewLedgerUseCase(f.stockRepo, locks, config.LedgerConfig{
		LockTTL:     time.Second,
		LockRetries: 3,
		LockBackoff: time.Millisecond,
	}, zap.NewNop(), stockuc.WithClock(now))
	f.uc = NewReservationUseCase(f.repo, f.ledger, f.resolver, locks, zap.NewNop(), WithClock(now))
	return f
}

func (f *fixture) seed(t *testing.T, itemID, branchID string, qty float64) {
	t.Helper()
	_, err := f.ledger.Adjust(context.Background(), &stockdto.AdjustInput{
		ItemID:         itemID,
		BranchID:       branchID,
		QuantityChange: qty,
		MovementType:   model.MovementPOReceive,
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (f *fixture) availability(t *testing.T, itemID, branchID string) *stockdto.Availability {
	t.Helper()
	av, err := f.ledger.GetAvailability(context.Background(), itemID, branchID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return av
}

func (f *fixture) pendingEntries(t *testing.T, branchID string) []model.DecisionEntry {
	t.Helper()
	entries, err := f.uc.ListDecisionQueue(context.Background(), branchID, "")
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	return entries
}

func eq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// burgerOrder: one burger uses 0.4 beef.
func (f *fixture) burgerOrder(t *testing.T, orderID string) {
	t.Helper()
	f.resolver.AddRecipe("burger", nil, catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4, Removable: false})
	err := f.uc.CreateOrderReservation(context.Background(), &dto.CreateOrderInput{
		OrderID:   orderID,
		BranchID:  "b1",
		SessionID: "s1",
		Lines:     []dto.OrderLineInput{{LineID: "l1", ProductID: "burger", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
}

func TestCreateAndCompleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)

	f.burgerOrder(t, "o1")

	av := f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 10) || !eq(av.Reserved, 0.4) || !eq(av.Available, 9.6) {
		t.Fatalf("after reserve: %+v", av)
	}

	if err := f.uc.CompleteOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	av = f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 9.6) || !eq(av.Reserved, 0) {
		t.Fatalf("after complete: %+v", av)
	}

	reservations, _ := f.repo.ListReservationsByOrder(ctx, "o1")
	if len(reservations) != 1 || reservations[0].Status != model.ReservationConsumed {
		t.Fatalf("reservation status: %+v", reservations)
	}
}

func TestDuplicateOrderRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")

	err := f.uc.CreateOrderReservation(context.Background(), &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines:    []dto.OrderLineInput{{LineID: "l1", ProductID: "burger", Quantity: 1}},
	})
	if !model.IsKind(err, model.KindInvalidState) {
		t.Fatalf("expected InvalidState for duplicate order, got %v", err)
	}
}

func TestReservationRollbackOnPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	// cheese intentionally unseeded; its line fails.
	f.resolver.AddRecipe("cheeseburger", nil,
		catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4},
		catalog.RecipeLine{ItemID: "cheese", QuantityPerUnit: 0.05},
	)

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines:    []dto.OrderLineInput{{LineID: "l1", ProductID: "cheeseburger", Quantity: 1}},
	})
	if !model.IsKind(err, model.KindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	// The beef reservation applied before the cheese failure must be rolled back.
	av := f.availability(t, "beef", "b1")
	if !eq(av.Reserved, 0) {
		t.Fatalf("beef reserved after rollback = %v", av.Reserved)
	}
	if state, _ := f.repo.GetOrderState(ctx, "o1"); state != nil {
		t.Fatalf("order state persisted despite rollback: %+v", state)
	}
}

func TestCancelQueuesWithoutLedgerChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")

	movesBefore := len(f.stockRepo.MovementsForKey("beef", "b1"))

	if err := f.uc.CancelOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Reservation stays locked until the kitchen decides; no new ledger rows.
	av := f.availability(t, "beef", "b1")
	if !eq(av.Reserved, 0.4) {
		t.Fatalf("reserved after cancel = %v", av.Reserved)
	}
	if got := len(f.stockRepo.MovementsForKey("beef", "b1")); got != movesBefore {
		t.Fatalf("cancel wrote %d ledger rows", got-movesBefore)
	}

	entries := f.pendingEntries(t, "b1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Source != model.SourceOrderCancelled || e.Settlement != model.SettlementImmediate {
		t.Fatalf("entry = %+v", e)
	}

	state, _ := f.repo.GetOrderState(ctx, "o1")
	if state.Status != model.OrderCancelled {
		t.Fatalf("order status = %s", state.Status)
	}
}

func TestReturnDecisionAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")
	f.uc.CancelOrder(ctx, "o1", "cashier-1")

	entry := f.pendingEntries(t, "b1")[0]
	if err := f.uc.RecordDecision(ctx, &dto.DecisionInput{
		EntryID:  entry.ID,
		Decision: model.DecisionReturn,
		ActorID:  "cook-1",
	}); err != nil {
		t.Fatalf("decision: %v", err)
	}

	// Return puts the full quantity back into availability, physical unchanged.
	av := f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 10) || !eq(av.Reserved, 0) || !eq(av.Available, 10) {
		t.Fatalf("after return: %+v", av)
	}

	got, _ := f.repo.GetDecisionEntry(ctx, entry.ID)
	if !got.Terminal() || got.Decision != model.DecisionReturn {
		t.Fatalf("entry after decision: %+v", got)
	}
}

func TestWasteDecisionDeductsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")
	f.uc.CancelOrder(ctx, "o1", "cashier-1")

	entry := f.pendingEntries(t, "b1")[0]
	if err := f.uc.RecordDecision(ctx, &dto.DecisionInput{
		EntryID:  entry.ID,
		Decision: model.DecisionWaste,
		ActorID:  "cook-1",
	}); err != nil {
		t.Fatalf("decision: %v", err)
	}

	av := f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 9.6) || !eq(av.Reserved, 0) {
		t.Fatalf("after waste: %+v", av)
	}

	moves := f.stockRepo.MovementsForKey("beef", "b1")
	last := moves[len(moves)-1]
	if last.MovementType != model.MovementCancelWaste {
		t.Fatalf("last movement = %s", last.MovementType)
	}
}

func TestDoubleDecisionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")
	f.uc.CancelOrder(ctx, "o1", "cashier-1")

	entry := f.pendingEntries(t, "b1")[0]
	in := &dto.DecisionInput{EntryID: entry.ID, Decision: model.DecisionReturn, ActorID: "cook-1"}
	if err := f.uc.RecordDecision(ctx, in); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	err := f.uc.RecordDecision(ctx, in)
	if !model.IsKind(err, model.KindInvalidState) {
		t.Fatalf("expected InvalidState on second decision, got %v", err)
	}
}

func TestEditDefersReturnUntilCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.seed(t, "cheese", "b1", 2)
	f.resolver.AddRecipe("burger", nil, catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4})
	f.resolver.AddRecipe("side-cheese", nil, catalog.RecipeLine{ItemID: "cheese", QuantityPerUnit: 0.05, Removable: true})

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:   "o1",
		BranchID:  "b1",
		SessionID: "s1",
		Lines: []dto.OrderLineInput{
			{LineID: "l1", ProductID: "burger", Quantity: 1},
			{LineID: "l2", ProductID: "side-cheese", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.uc.EditOrder(ctx, &dto.EditOrderInput{OrderID: "o1", RemovedLineIDs: []string{"l2"}}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	entries := f.pendingEntries(t, "b1")
	if len(entries) != 1 || entries[0].Settlement != model.SettlementDeferred || entries[0].Source != model.SourceOrderEdited {
		t.Fatalf("edit entries: %+v", entries)
	}
	entryID := entries[0].ID

	// A return decision records but the cheese stays reserved while the order
	// is still open.
	if err := f.uc.RecordDecision(ctx, &dto.DecisionInput{EntryID: entryID, Decision: model.DecisionReturn, ActorID: "cook-1"}); err != nil {
		t.Fatalf("decision: %v", err)
	}
	av := f.availability(t, "cheese", "b1")
	if !eq(av.Reserved, 0.05) {
		t.Fatalf("cheese reserved before completion = %v", av.Reserved)
	}
	e, _ := f.repo.GetDecisionEntry(ctx, entryID)
	if e.Settled {
		t.Fatal("deferred return settled before order completion")
	}

	// Completion consumes the beef and settles the deferred cheese return.
	if err := f.uc.CompleteOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	av = f.availability(t, "cheese", "b1")
	if !eq(av.Quantity, 2) || !eq(av.Reserved, 0) {
		t.Fatalf("cheese after completion: %+v", av)
	}
	av = f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 9.6) || !eq(av.Reserved, 0) {
		t.Fatalf("beef after completion: %+v", av)
	}
	e, _ = f.repo.GetDecisionEntry(ctx, entryID)
	if !e.Terminal() {
		t.Fatalf("entry not terminal after completion: %+v", e)
	}
}

func TestDeferredReturnSettlesImmediatelyWhenOrderAlreadyClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.seed(t, "cheese", "b1", 2)
	f.resolver.AddRecipe("burger", nil, catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4})
	f.resolver.AddRecipe("side-cheese", nil, catalog.RecipeLine{ItemID: "cheese", QuantityPerUnit: 0.05, Removable: true})

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines: []dto.OrderLineInput{
			{LineID: "l1", ProductID: "burger", Quantity: 1},
			{LineID: "l2", ProductID: "side-cheese", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.uc.EditOrder(ctx, &dto.EditOrderInput{OrderID: "o1", RemovedLineIDs: []string{"l2"}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	entryID := f.pendingEntries(t, "b1")[0].ID

	// Order completes while the entry is still pending. Completion settles
	// nothing for it (no return decision yet) but closes the order.
	if err := f.uc.CompleteOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	av := f.availability(t, "cheese", "b1")
	if !eq(av.Reserved, 0.05) {
		t.Fatalf("cheese reserved after completion = %v", av.Reserved)
	}

	// The late return decision has nothing to wait for and settles now.
	if err := f.uc.RecordDecision(ctx, &dto.DecisionInput{EntryID: entryID, Decision: model.DecisionReturn, ActorID: "cook-1"}); err != nil {
		t.Fatalf("decision: %v", err)
	}
	av = f.availability(t, "cheese", "b1")
	if !eq(av.Reserved, 0) {
		t.Fatalf("cheese reserved after late return = %v", av.Reserved)
	}
	e, _ := f.repo.GetDecisionEntry(ctx, entryID)
	if !e.Terminal() {
		t.Fatalf("entry not terminal: %+v", e)
	}
}

// gatedOrderRepo blocks the first GetOrderState issued through it until the
// test releases it, to interleave a deferred decision with a lifecycle
// transition at a chosen point.
type gatedOrderRepo struct {
	order.Repository
	once    sync.Once
	entered chan struct{}
	proceed chan struct{}
}

func (r *gatedOrderRepo) GetOrderState(ctx context.Context, orderID string) (*model.OrderState, error) {
	r.once.Do(func() {
		close(r.entered)
		<-r.proceed
	})
	return r.Repository.GetOrderState(ctx, orderID)
}

func TestDeferredReturnVisibleToConcurrentCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.seed(t, "cheese", "b1", 2)
	f.resolver.AddRecipe("burger", nil, catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4})
	f.resolver.AddRecipe("side-cheese", nil, catalog.RecipeLine{ItemID: "cheese", QuantityPerUnit: 0.05, Removable: true})

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines: []dto.OrderLineInput{
			{LineID: "l1", ProductID: "burger", Quantity: 1},
			{LineID: "l2", ProductID: "side-cheese", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.uc.EditOrder(ctx, &dto.EditOrderInput{OrderID: "o1", RemovedLineIDs: []string{"l2"}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	entryID := f.pendingEntries(t, "b1")[0].ID

	// Same engine over a gated repo view: the return decision pauses between
	// its order-state read and its write while a completion runs against the
	// same order.
	gate := &gatedOrderRepo{Repository: f.repo, entered: make(chan struct{}), proceed: make(chan struct{})}
	now := func() time.Time { return f.clock }
	uc := NewReservationUseCase(gate, f.ledger, f.resolver, keylock.New(), zap.NewNop(), WithClock(now))

	var wg sync.WaitGroup
	var decisionErr, completeErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		decisionErr = uc.RecordDecision(ctx, &dto.DecisionInput{EntryID: entryID, Decision: model.DecisionReturn, ActorID: "cook-1"})
	}()
	<-gate.entered
	go func() {
		defer wg.Done()
		completeErr = uc.CompleteOrder(ctx, "o1", "cashier-1")
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate.proceed)
	wg.Wait()

	if decisionErr != nil {
		t.Fatalf("decision: %v", decisionErr)
	}
	if completeErr != nil {
		t.Fatalf("complete: %v", completeErr)
	}

	// Whichever side closed the order, the return must end up settled and the
	// cheese back in availability.
	e, _ := f.repo.GetDecisionEntry(ctx, entryID)
	if !e.Settled || !e.Terminal() {
		t.Fatalf("deferred return lost: %+v", e)
	}
	av := f.availability(t, "cheese", "b1")
	if !eq(av.Quantity, 2) || !eq(av.Reserved, 0) {
		t.Fatalf("cheese after race: %+v", av)
	}
	state, _ := f.repo.GetOrderState(ctx, "o1")
	if state.Status != model.OrderCompleted {
		t.Fatalf("order status = %s", state.Status)
	}
}

func TestEditUnknownLines(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")

	err := f.uc.EditOrder(context.Background(), &dto.EditOrderInput{OrderID: "o1", RemovedLineIDs: []string{"nope"}})
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCompleteNonOpenOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")

	if err := f.uc.CancelOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err := f.uc.CompleteOrder(ctx, "o1", "cashier-1")
	if !model.IsKind(err, model.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestSweepExpiredForcesWaste(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")
	f.uc.CancelOrder(ctx, "o1", "cashier-1")

	// Cutoff before entry creation: nothing to sweep.
	n, err := f.uc.SweepExpired(ctx, f.clock.Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("early sweep resolved %d (%v)", n, err)
	}

	// Cutoff after entry creation: force-waste.
	n, err = f.uc.SweepExpired(ctx, f.clock.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("sweep resolved %d (%v)", n, err)
	}

	av := f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 9.6) || !eq(av.Reserved, 0) {
		t.Fatalf("after sweep: %+v", av)
	}
	if entries := f.pendingEntries(t, "b1"); len(entries) != 0 {
		t.Fatalf("pending entries after sweep: %d", len(entries))
	}
}

func TestSweepForcesWasteOnOpenOrderEditEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.seed(t, "cheese", "b1", 2)
	f.resolver.AddRecipe("burger", nil, catalog.RecipeLine{ItemID: "beef", QuantityPerUnit: 0.4})
	f.resolver.AddRecipe("side-cheese", nil, catalog.RecipeLine{ItemID: "cheese", QuantityPerUnit: 0.05, Removable: true})

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines: []dto.OrderLineInput{
			{LineID: "l1", ProductID: "burger", Quantity: 1},
			{LineID: "l2", ProductID: "side-cheese", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.uc.EditOrder(ctx, &dto.EditOrderInput{OrderID: "o1", RemovedLineIDs: []string{"l2"}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	entryID := f.pendingEntries(t, "b1")[0].ID

	// The entry is deferred and its order is still open; aging out resolves
	// it to waste anyway.
	n, err := f.uc.SweepExpired(ctx, f.clock.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("sweep resolved %d (%v)", n, err)
	}
	e, _ := f.repo.GetDecisionEntry(ctx, entryID)
	if e.Decision != model.DecisionWaste || !e.Settled {
		t.Fatalf("entry after sweep: %+v", e)
	}
	av := f.availability(t, "cheese", "b1")
	if !eq(av.Quantity, 1.95) || !eq(av.Reserved, 0) {
		t.Fatalf("cheese after sweep: %+v", av)
	}

	// The order is untouched and still completes its remaining line.
	if err := f.uc.CompleteOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	av = f.availability(t, "beef", "b1")
	if !eq(av.Quantity, 9.6) || !eq(av.Reserved, 0) {
		t.Fatalf("beef after completion: %+v", av)
	}
}

func TestCloseSessionForcesWaste(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "beef", "b1", 10)
	f.burgerOrder(t, "o1")
	f.uc.CancelOrder(ctx, "o1", "cashier-1")

	n, err := f.uc.CloseSession(ctx, "s1")
	if err != nil || n != 1 {
		t.Fatalf("close session resolved %d (%v)", n, err)
	}
	av := f.availability(t, "beef", "b1")
	if !eq(av.Reserved, 0) {
		t.Fatalf("reserved after session close = %v", av.Reserved)
	}
}

func TestOrderWithoutTrackedIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resolver.AddRecipe("water", nil) // empty recipe

	err := f.uc.CreateOrderReservation(ctx, &dto.CreateOrderInput{
		OrderID:  "o1",
		BranchID: "b1",
		Lines:    []dto.OrderLineInput{{LineID: "l1", ProductID: "water", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Lifecycle still works with zero reservations.
	if err := f.uc.CompleteOrder(ctx, "o1", "cashier-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	state, _ := f.repo.GetOrderState(ctx, "o1")
	if state.Status != model.OrderCompleted {
		t.Fatalf("status = %s", state.Status)
	}
}
