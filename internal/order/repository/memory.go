package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
)

// MemoryRepository is the in-process twin of the postgres repository, used by
// tests and dev mode.
type MemoryRepository struct {
	mu           sync.RWMutex
	states       map[string]model.OrderState
	reservations map[string]model.OrderReservation
	entries      map[string]model.DecisionEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states:       make(map[string]model.OrderState),
		reservations: make(map[string]model.OrderReservation),
		entries:      make(map[string]model.DecisionEntry),
	}
}

func (r *MemoryRepository) CreateOrderState(_ context.Context, state *model.OrderState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.OrderID] = *state
	return nil
}

func (r *MemoryRepository) GetOrderState(_ context.Context, orderID string) (*model.OrderState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[orderID]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

func (r *MemoryRepository) SetOrderStatus(_ context.Context, orderID string, status model.OrderStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[orderID]
	if !ok {
		return model.ErrNotFound("order", orderID)
	}
	state.Status = status
	state.UpdatedAt = at
	r.states[orderID] = state
	return nil
}

func (r *MemoryRepository) CreateReservations(_ context.Context, reservations []model.OrderReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range reservations {
		r.reservations[res.ID] = res
	}
	return nil
}

func (r *MemoryRepository) ListReservationsByOrder(_ context.Context, orderID string) ([]model.OrderReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.OrderReservation
	for _, res := range r.reservations {
		if res.OrderID == orderID {
			items = append(items, res)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *MemoryRepository) UpdateReservationStatus(_ context.Context, ids []string, status model.ReservationStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		res, ok := r.reservations[id]
		if !ok {
			return model.ErrNotFound("reservation", id)
		}
		res.Status = status
		res.UpdatedAt = at
		r.reservations[id] = res
	}
	return nil
}

func (r *MemoryRepository) QueueForDecision(_ context.Context, reservationIDs []string, entries []model.DecisionEntry, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range reservationIDs {
		res, ok := r.reservations[id]
		if !ok {
			return model.ErrNotFound("reservation", id)
		}
		res.Status = model.ReservationQueued
		res.UpdatedAt = at
		r.reservations[id] = res
	}
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *MemoryRepository) GetDecisionEntry(_ context.Context, id string) (*model.DecisionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	out := entry
	return &out, nil
}

func (r *MemoryRepository) UpdateDecisionEntry(_ context.Context, entry *model.DecisionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ID]; !ok {
		return model.ErrNotFound("decision entry", entry.ID)
	}
	r.entries[entry.ID] = *entry
	return nil
}

func (r *MemoryRepository) ListDecisions(_ context.Context, f *dto.DecisionFilters) ([]model.DecisionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.DecisionEntry
	for _, e := range r.entries {
		if f.BranchID != "" && e.BranchID != f.BranchID {
			continue
		}
		if f.Source != "" && e.Source != f.Source {
			continue
		}
		if f.PendingOnly && e.Decision != model.DecisionPending {
			continue
		}
		items = append(items, e)
	}
	sortByCreation(items)
	return items, nil
}

func (r *MemoryRepository) ListExpiredPending(_ context.Context, cutoff time.Time) ([]model.DecisionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.DecisionEntry
	for _, e := range r.entries {
		if e.Decision == model.DecisionPending && e.CreatedAt.Before(cutoff) {
			items = append(items, e)
		}
	}
	sortByCreation(items)
	return items, nil
}

func (r *MemoryRepository) ListPendingBySession(_ context.Context, sessionID string) ([]model.DecisionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.DecisionEntry
	for _, e := range r.entries {
		if e.Decision == model.DecisionPending && e.SessionID == sessionID {
			items = append(items, e)
		}
	}
	sortByCreation(items)
	return items, nil
}

func (r *MemoryRepository) ListUnsettledReturnsByOrder(_ context.Context, orderID string) ([]model.DecisionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.DecisionEntry
	for _, e := range r.entries {
		if e.OrderID == orderID && e.Decision == model.DecisionReturn && !e.Settled {
			items = append(items, e)
		}
	}
	sortByCreation(items)
	return items, nil
}

func sortByCreation(items []model.DecisionEntry) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
