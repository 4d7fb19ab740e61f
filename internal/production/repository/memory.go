package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[string]model.ProductionRun
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]model.ProductionRun)}
}

func (r *MemoryRepository) CreateRun(_ context.Context, run *model.ProductionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	cp.Lines = append([]model.ProductionLine(nil), run.Lines...)
	r.runs[run.ID] = cp
	return nil
}

func (r *MemoryRepository) GetRun(_ context.Context, id string) (*model.ProductionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	out := run
	out.Lines = append([]model.ProductionLine(nil), run.Lines...)
	return &out, nil
}

func (r *MemoryRepository) ListRuns(_ context.Context, f *dto.RunFilters) ([]model.ProductionRun, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.ProductionRun
	for _, run := range r.runs {
		if f.BranchID != "" && run.BranchID != f.BranchID {
			continue
		}
		if f.CompositeItemID != "" && run.CompositeItemID != f.CompositeItemID {
			continue
		}
		if f.Status != "" && run.Status != f.Status {
			continue
		}
		items = append(items, run)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start > total {
			start = total
		}
		end := start + f.PageSize
		if end > total {
			end = total
		}
		items = items[start:end]
	}
	return items, total, nil
}
