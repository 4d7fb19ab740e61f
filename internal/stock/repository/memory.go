package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

// MemoryRepository keeps the ledger in process memory. Dev mode and tests run
// against it; semantics match the postgres repository.
type MemoryRepository struct {
	mu        sync.RWMutex
	records   map[model.StockKey]model.StockRecord
	movements []model.StockMovement
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[model.StockKey]model.StockRecord)}
}

func (r *MemoryRepository) GetByKey(_ context.Context, itemID, branchID string) (*model.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[model.StockKey{ItemID: itemID, BranchID: branchID}]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (r *MemoryRepository) FindAll(_ context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.StockRecord
	for _, rec := range r.records {
		if f.ItemID != "" && rec.ItemID != f.ItemID {
			continue
		}
		if f.BranchID != "" && rec.BranchID != f.BranchID {
			continue
		}
		if f.LowStock && !(rec.ReorderPoint > 0 && rec.Available() <= rec.ReorderPoint) {
			continue
		}
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })

	total := len(items)
	items = paginate(items, f.Page, f.PageSize)
	return items, total, nil
}

func (r *MemoryRepository) Save(_ context.Context, rec *model.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.Key()] = *rec
	return nil
}

func (r *MemoryRepository) SaveWithMovement(_ context.Context, rec *model.StockRecord, mv *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.Key()] = *rec
	r.movements = append(r.movements, *mv)
	return nil
}

func (r *MemoryRepository) ListMovements(_ context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.StockMovement
	for _, mv := range r.movements {
		if f.ItemID != "" && mv.ItemID != f.ItemID {
			continue
		}
		if f.BranchID != "" && mv.BranchID != f.BranchID {
			continue
		}
		if f.MovementType != "" && mv.MovementType != f.MovementType {
			continue
		}
		if f.StartDate != nil && mv.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && !mv.CreatedAt.Before(*f.EndDate) {
			continue
		}
		items = append(items, mv)
	}
	// Newest first, matching the postgres ordering. Ties keep append order so
	// chained snapshots stay adjacent.
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	items = paginate(items, f.Page, f.PageSize)
	return items, total, nil
}

func (r *MemoryRepository) SummarizeMovements(_ context.Context, branchID string, from, to time.Time) (float64, float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var additions, deductions float64
	for _, mv := range r.movements {
		if mv.BranchID != branchID || mv.MovementType.Advisory() {
			continue
		}
		if mv.CreatedAt.Before(from) || !mv.CreatedAt.Before(to) {
			continue
		}
		if mv.QuantityChange > 0 {
			additions += mv.QuantityChange
		} else {
			deductions += -mv.QuantityChange
		}
	}
	return additions, deductions, nil
}

// MovementsForKey returns the full movement history for one key in applied
// order. Test helper for chain verification.
func (r *MemoryRepository) MovementsForKey(itemID, branchID string) []model.StockMovement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.StockMovement
	for _, mv := range r.movements {
		if mv.ItemID == itemID && mv.BranchID == branchID {
			out = append(out, mv)
		}
	}
	return out
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return nil
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
