package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/keylock"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	stockrepo "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockuc "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/repository"
	"go.uber.org/zap"
)

type fixture struct {
	uc        transfer.UseCase
	ledger    stock.UseCase
	stockRepo *stockrepo.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{stockRepo: stockrepo.NewMemoryRepository()}
	locks := keylock.New()
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	f.ledger = stockuc.NewLedgerUseCase(f.stockRepo, locks, config.LedgerConfig{
		LockTTL:     time.Second,
		LockRetries: 3,
		LockBackoff: time.Millisecond,
	}, zap.NewNop(), stockuc.WithClock(now))
	f.uc = NewTransferUseCase(repository.NewMemoryRepository(), f.ledger, zap.NewNop(), WithClock(now))
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

func eq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func createInput(items ...dto.TransferItemInput) *dto.CreateTransferInput {
	return &dto.CreateTransferInput{
		SourceBranchID: "b1",
		DestBranchID:   "b2",
		Items:          items,
	}
}

func TestCreateHoldsStockAtSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "rice", "b1", 20)

	created, err := f.uc.CreateTransfer(ctx, createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 5}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != model.TransferCreated || len(created.Items) != 1 {
		t.Fatalf("created = %+v", created)
	}

	av := f.availability(t, "rice", "b1")
	if !eq(av.Quantity, 20) || !eq(av.Held, 5) || !eq(av.Available, 15) {
		t.Fatalf("source after create: %+v", av)
	}
}

func TestCreateRollsBackHoldsOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "rice", "b1", 20)
	// flour is unseeded, its hold fails after the rice hold applied.

	_, err := f.uc.CreateTransfer(ctx, createInput(
		dto.TransferItemInput{ItemID: "rice", Quantity: 5},
		dto.TransferItemInput{ItemID: "flour", Quantity: 3},
	))
	if !model.IsKind(err, model.KindInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}

	av := f.availability(t, "rice", "b1")
	if !eq(av.Held, 0) {
		t.Fatalf("rice held after rollback = %v", av.Held)
	}
	if _, total, _ := f.uc.ListTransfers(ctx, &dto.TransferFilters{}); total != 0 {
		t.Fatalf("transfer persisted despite rollback")
	}
}

func TestReceiveMovesStockBetweenBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "rice", "b1", 20)

	created, err := f.uc.CreateTransfer(ctx, createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 5}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.uc.ReceiveTransfer(ctx, created.ID, "manager-2"); err != nil {
		t.Fatalf("receive: %v", err)
	}

	src := f.availability(t, "rice", "b1")
	if !eq(src.Quantity, 15) || !eq(src.Held, 0) {
		t.Fatalf("source after receive: %+v", src)
	}
	dst := f.availability(t, "rice", "b2")
	if !eq(dst.Quantity, 5) {
		t.Fatalf("dest after receive: %+v", dst)
	}

	// transfer_out at the source, transfer_in at the destination.
	srcMoves := f.stockRepo.MovementsForKey("rice", "b1")
	if last := srcMoves[len(srcMoves)-1]; last.MovementType != model.MovementTransferOut || !eq(last.QuantityChange, -5) {
		t.Fatalf("source movement = %s change %v", last.MovementType, last.QuantityChange)
	}
	dstMoves := f.stockRepo.MovementsForKey("rice", "b2")
	if last := dstMoves[len(dstMoves)-1]; last.MovementType != model.MovementTransferIn || !eq(last.QuantityChange, 5) {
		t.Fatalf("dest movement = %s change %v", last.MovementType, last.QuantityChange)
	}

	got, err := f.uc.GetTransfer(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.TransferReceived {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestReceiveTwiceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "rice", "b1", 20)

	created, _ := f.uc.CreateTransfer(ctx, createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 5}))
	if err := f.uc.ReceiveTransfer(ctx, created.ID, "manager-2"); err != nil {
		t.Fatalf("first receive: %v", err)
	}
	err := f.uc.ReceiveTransfer(ctx, created.ID, "manager-2")
	if !model.IsKind(err, model.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestCancelReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "rice", "b1", 20)

	created, _ := f.uc.CreateTransfer(ctx, createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 5}))
	if err := f.uc.CancelTransfer(ctx, created.ID, "manager-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	av := f.availability(t, "rice", "b1")
	if !eq(av.Quantity, 20) || !eq(av.Held, 0) || !eq(av.Available, 20) {
		t.Fatalf("source after cancel: %+v", av)
	}

	got, _ := f.uc.GetTransfer(ctx, created.ID)
	if got.Status != model.TransferCancelled {
		t.Fatalf("status = %s", got.Status)
	}

	err := f.uc.ReceiveTransfer(ctx, created.ID, "manager-2")
	if !model.IsKind(err, model.KindInvalidState) {
		t.Fatalf("receive after cancel: expected InvalidState, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   *dto.CreateTransferInput
	}{
		{"same branch", &dto.CreateTransferInput{SourceBranchID: "b1", DestBranchID: "b1", Items: []dto.TransferItemInput{{ItemID: "rice", Quantity: 1}}}},
		{"no items", &dto.CreateTransferInput{SourceBranchID: "b1", DestBranchID: "b2"}},
		{"zero quantity", createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 0})},
		{"duplicate item", createInput(dto.TransferItemInput{ItemID: "rice", Quantity: 1}, dto.TransferItemInput{ItemID: "rice", Quantity: 2})},
	}
	for _, tc := range cases {
		if _, err := f.uc.CreateTransfer(ctx, tc.in); !model.IsKind(err, model.KindValidation) {
			t.Errorf("%s: expected Validation, got %v", tc.name, err)
		}
	}
}
