package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/resolver"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/keylock"
	"github.com/fekuna/omnipos-stock-service/internal/production"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
	"github.com/fekuna/omnipos-stock-service/internal/production/repository"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	stockrepo "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockuc "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"
	"go.uber.org/zap"
)

type fixture struct {
	uc        production.UseCase
	ledger    stock.UseCase
	stockRepo *stockrepo.MemoryRepository
	runRepo   *repository.MemoryRepository
	resolver  *resolver.StaticResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stockRepo: stockrepo.NewMemoryRepository(),
		runRepo:   repository.NewMemoryRepository(),
		resolver:  resolver.NewStaticResolver(),
	}
	locks := keylock.New()
	clock := time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	f.ledger = stockuc.NewLedgerUseCase(f.stockRepo, locks, config.LedgerConfig{
		LockTTL:     time.Second,
		LockRetries: 3,
		LockBackoff: time.Millisecond,
	}, zap.NewNop(), stockuc.WithClock(now))
	f.uc = NewProductionUseCase(f.runRepo, f.ledger, f.resolver, zap.NewNop(), WithClock(now))

	// One batch of sauce: 2 tomato + 0.5 oil, yields 3.
	f.resolver.AddComposite(&catalog.CompositeRecipe{
		CompositeItemID: "sauce",
		YieldPerBatch:   3,
		Lines: []catalog.CompositeLine{
			{ItemID: "tomato", QuantityPerUnit: 2},
			{ItemID: "oil", QuantityPerUnit: 0.5},
		},
	})
	return f
}

func (f *fixture) seed(t *testing.T, itemID string, qty float64) {
	t.Helper()
	_, err := f.ledger.Adjust(context.Background(), &stockdto.AdjustInput{
		ItemID:         itemID,
		BranchID:       "b1",
		QuantityChange: qty,
		MovementType:   model.MovementPOReceive,
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (f *fixture) quantity(t *testing.T, itemID string) float64 {
	t.Helper()
	av, err := f.ledger.GetAvailability(context.Background(), itemID, "b1")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return av.Quantity
}

func eq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "tomato", 3)
	f.seed(t, "oil", 10)

	report, err := f.uc.CheckAvailability(ctx, &dto.CheckInput{CompositeItemID: "sauce", BranchID: "b1", BatchCount: 2})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.CanProduce {
		t.Fatal("expected CanProduce=false with short tomato")
	}
	if !eq(report.ExpectedYield, 6) {
		t.Errorf("expected yield = %v", report.ExpectedYield)
	}
	var tomato *dto.IngredientCheck
	for i := range report.Ingredients {
		if report.Ingredients[i].ItemID == "tomato" {
			tomato = &report.Ingredients[i]
		}
	}
	if tomato == nil || !eq(tomato.Required, 4) || !eq(tomato.Available, 3) || !eq(tomato.Shortage, 1) {
		t.Fatalf("tomato check = %+v", tomato)
	}

	// The check never mutates the ledger.
	if !eq(f.quantity(t, "tomato"), 3) {
		t.Fatalf("check mutated stock: tomato = %v", f.quantity(t, "tomato"))
	}
}

func TestProduceConvertsRawToComposite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "tomato", 10)
	f.seed(t, "oil", 5)

	run, err := f.uc.Produce(ctx, &dto.ProduceInput{CompositeItemID: "sauce", BranchID: "b1", BatchCount: 2, ActorID: "cook-1"})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if run.Status != model.ProductionCompleted || !eq(run.YieldedQuantity, 6) || len(run.Lines) != 2 {
		t.Fatalf("run = %+v", run)
	}

	if !eq(f.quantity(t, "tomato"), 6) {
		t.Errorf("tomato = %v, want 6", f.quantity(t, "tomato"))
	}
	if !eq(f.quantity(t, "oil"), 4) {
		t.Errorf("oil = %v, want 4", f.quantity(t, "oil"))
	}
	if !eq(f.quantity(t, "sauce"), 6) {
		t.Errorf("sauce = %v, want 6", f.quantity(t, "sauce"))
	}

	// Audit rows: production_consume per ingredient, production_yield on the
	// composite.
	tm := f.stockRepo.MovementsForKey("tomato", "b1")
	if last := tm[len(tm)-1]; last.MovementType != model.MovementProductionUse || !eq(last.QuantityChange, -4) {
		t.Errorf("tomato movement = %s change %v", last.MovementType, last.QuantityChange)
	}
	sm := f.stockRepo.MovementsForKey("sauce", "b1")
	if last := sm[len(sm)-1]; last.MovementType != model.MovementProductionYield || !eq(last.QuantityChange, 6) {
		t.Errorf("sauce movement = %s change %v", last.MovementType, last.QuantityChange)
	}

	got, err := f.uc.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != model.ProductionCompleted {
		t.Fatalf("stored run status = %s", got.Status)
	}
}

func TestProduceInsufficientIngredient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "tomato", 10)
	f.seed(t, "oil", 0.4) // one batch needs 0.5

	_, err := f.uc.Produce(ctx, &dto.ProduceInput{CompositeItemID: "sauce", BranchID: "b1", BatchCount: 1})
	if !model.IsKind(err, model.KindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	// The under-lock validation fires before any deduction.
	if !eq(f.quantity(t, "tomato"), 10) || !eq(f.quantity(t, "oil"), 0.4) {
		t.Fatalf("stock mutated on failure: tomato=%v oil=%v", f.quantity(t, "tomato"), f.quantity(t, "oil"))
	}
	if _, total, _ := f.uc.ListRuns(ctx, &dto.RunFilters{}); total != 0 {
		t.Fatalf("run recorded despite failure")
	}
}

type failingRunRepo struct {
	production.Repository
}

func (r *failingRunRepo) CreateRun(ctx context.Context, run *model.ProductionRun) error {
	return errors.New("runs table unavailable")
}

func TestProduceReversesLedgerWhenRunPersistFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "tomato", 10)
	f.seed(t, "oil", 5)

	uc := NewProductionUseCase(&failingRunRepo{Repository: f.runRepo}, f.ledger, f.resolver, zap.NewNop())

	_, err := uc.Produce(ctx, &dto.ProduceInput{CompositeItemID: "sauce", BranchID: "b1", BatchCount: 2})
	if err == nil {
		t.Fatal("expected produce to fail")
	}

	// Every applied movement is reversed, the yield included.
	if !eq(f.quantity(t, "tomato"), 10) || !eq(f.quantity(t, "oil"), 5) || !eq(f.quantity(t, "sauce"), 0) {
		t.Fatalf("ledger not restored: tomato=%v oil=%v sauce=%v",
			f.quantity(t, "tomato"), f.quantity(t, "oil"), f.quantity(t, "sauce"))
	}
	if _, total, _ := f.uc.ListRuns(ctx, &dto.RunFilters{}); total != 0 {
		t.Fatalf("run recorded despite persist failure")
	}
}

func TestProduceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Produce(ctx, &dto.ProduceInput{CompositeItemID: "sauce", BranchID: "b1", BatchCount: 0}); !model.IsKind(err, model.KindValidation) {
		t.Errorf("zero batches: expected Validation, got %v", err)
	}
	if _, err := f.uc.Produce(ctx, &dto.ProduceInput{CompositeItemID: "unknown", BranchID: "b1", BatchCount: 1}); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("unknown composite: expected NotFound, got %v", err)
	}
}
