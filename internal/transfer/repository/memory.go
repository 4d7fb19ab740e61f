package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

type MemoryRepository struct {
	mu        sync.RWMutex
	transfers map[string]model.Transfer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{transfers: make(map[string]model.Transfer)}
}

func (r *MemoryRepository) CreateTransfer(_ context.Context, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Items = append([]model.TransferItem(nil), t.Items...)
	r.transfers[t.ID] = cp
	return nil
}

func (r *MemoryRepository) GetTransfer(_ context.Context, id string) (*model.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	out := t
	out.Items = append([]model.TransferItem(nil), t.Items...)
	return &out, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id string, status model.TransferStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return model.ErrNotFound("transfer", id)
	}
	t.Status = status
	t.UpdatedAt = at
	r.transfers[id] = t
	return nil
}

func (r *MemoryRepository) ListTransfers(_ context.Context, f *dto.TransferFilters) ([]model.Transfer, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.Transfer
	for _, t := range r.transfers {
		if f.BranchID != "" && t.SourceBranchID != f.BranchID && t.DestBranchID != f.BranchID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		items = append(items, t)
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
