package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// --- order state mirror ---

func (r *PGRepository) CreateOrderState(ctx context.Context, state *model.OrderState) error {
	_, err := r.DB.NamedExecContext(ctx, `
        INSERT INTO order_states (order_id, branch_id, session_id, status, created_at, updated_at)
        VALUES (:order_id, :branch_id, :session_id, :status, :created_at, :updated_at)`, state)
	return err
}

func (r *PGRepository) GetOrderState(ctx context.Context, orderID string) (*model.OrderState, error) {
	var state model.OrderState
	err := r.DB.GetContext(ctx, &state,
		`SELECT * FROM order_states WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *PGRepository) SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE order_states SET status = $2, updated_at = $3 WHERE order_id = $1`,
		orderID, status, at)
	return err
}

// --- reservations ---

const insertReservationQuery = `
        INSERT INTO order_reservations (
            id, order_id, line_id, session_id, item_id, branch_id,
            quantity, status, created_at, updated_at
        )
        VALUES (
            :id, :order_id, :line_id, :session_id, :item_id, :branch_id,
            :quantity, :status, :created_at, :updated_at
        )
    `

func (r *PGRepository) CreateReservations(ctx context.Context, reservations []model.OrderReservation) error {
	if len(reservations) == 0 {
		return nil
	}
	_, err := r.DB.NamedExecContext(ctx, insertReservationQuery, reservations)
	return err
}

func (r *PGRepository) ListReservationsByOrder(ctx context.Context, orderID string) ([]model.OrderReservation, error) {
	var items []model.OrderReservation
	err := r.DB.SelectContext(ctx, &items,
		`SELECT * FROM order_reservations WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	return items, err
}

func (r *PGRepository) UpdateReservationStatus(ctx context.Context, ids []string, status model.ReservationStatus, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE order_reservations SET status = ?, updated_at = ? WHERE id IN (?)`,
		status, at, ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	return err
}

// --- decision queue ---

const insertDecisionQuery = `
        INSERT INTO decision_entries (
            id, order_id, line_id, session_id, item_id, branch_id, quantity,
            decision, cancellation_source, settlement, settled,
            created_at, decided_at, decided_by, settled_at
        )
        VALUES (
            :id, :order_id, :line_id, :session_id, :item_id, :branch_id, :quantity,
            :decision, :cancellation_source, :settlement, :settled,
            :created_at, :decided_at, :decided_by, :settled_at
        )
    `

func (r *PGRepository) QueueForDecision(ctx context.Context, reservationIDs []string, entries []model.DecisionEntry, at time.Time) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(reservationIDs) > 0 {
		query, args, err := sqlx.In(
			`UPDATE order_reservations SET status = ?, updated_at = ? WHERE id IN (?)`,
			model.ReservationQueued, at, reservationIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertDecisionQuery, entries); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PGRepository) GetDecisionEntry(ctx context.Context, id string) (*model.DecisionEntry, error) {
	var entry model.DecisionEntry
	err := r.DB.GetContext(ctx, &entry,
		`SELECT * FROM decision_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *PGRepository) UpdateDecisionEntry(ctx context.Context, entry *model.DecisionEntry) error {
	_, err := r.DB.NamedExecContext(ctx, `
        UPDATE decision_entries SET
            decision = :decision,
            settled = :settled,
            decided_at = :decided_at,
            decided_by = :decided_by,
            settled_at = :settled_at
        WHERE id = :id`, entry)
	return err
}

func (r *PGRepository) ListDecisions(ctx context.Context, f *dto.DecisionFilters) ([]model.DecisionEntry, error) {
	query := `SELECT * FROM decision_entries WHERE 1=1`
	args := map[string]interface{}{}

	if f.BranchID != "" {
		query += ` AND branch_id = :branch_id`
		args["branch_id"] = f.BranchID
	}
	if f.Source != "" {
		query += ` AND cancellation_source = :source`
		args["source"] = f.Source
	}
	if f.PendingOnly {
		query += ` AND decision = :pending`
		args["pending"] = model.DecisionPending
	}
	query += ` ORDER BY created_at`

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer nstmt.Close()

	var items []model.DecisionEntry
	err = nstmt.SelectContext(ctx, &items, args)
	return items, err
}

func (r *PGRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]model.DecisionEntry, error) {
	var items []model.DecisionEntry
	err := r.DB.SelectContext(ctx, &items, `
        SELECT * FROM decision_entries
        WHERE decision = $1 AND created_at < $2
        ORDER BY created_at`, model.DecisionPending, cutoff)
	return items, err
}

func (r *PGRepository) ListPendingBySession(ctx context.Context, sessionID string) ([]model.DecisionEntry, error) {
	var items []model.DecisionEntry
	err := r.DB.SelectContext(ctx, &items, `
        SELECT * FROM decision_entries
        WHERE decision = $1 AND session_id = $2
        ORDER BY created_at`, model.DecisionPending, sessionID)
	return items, err
}

func (r *PGRepository) ListUnsettledReturnsByOrder(ctx context.Context, orderID string) ([]model.DecisionEntry, error) {
	var items []model.DecisionEntry
	err := r.DB.SelectContext(ctx, &items, `
        SELECT * FROM decision_entries
        WHERE order_id = $1 AND decision = $2 AND settled = FALSE
        ORDER BY created_at`, orderID, model.DecisionReturn)
	return items, err
}
