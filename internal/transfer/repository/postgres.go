package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertTransferQuery = `
        INSERT INTO transfers (
            id, source_branch_id, dest_branch_id, status, notes,
            created_by, created_at, updated_at
        )
        VALUES (
            :id, :source_branch_id, :dest_branch_id, :status, :notes,
            :created_by, :created_at, :updated_at
        )
    `

const insertTransferItemQuery = `
        INSERT INTO transfer_items (id, transfer_id, item_id, quantity)
        VALUES (:id, :transfer_id, :item_id, :quantity)
    `

func (r *PGRepository) CreateTransfer(ctx context.Context, t *model.Transfer) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertTransferQuery, t); err != nil {
		return err
	}
	if len(t.Items) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertTransferItemQuery, t.Items); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PGRepository) GetTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	var t model.Transfer
	err := r.DB.GetContext(ctx, &t, `SELECT * FROM transfers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	err = r.DB.SelectContext(ctx, &t.Items,
		`SELECT * FROM transfer_items WHERE transfer_id = $1 ORDER BY item_id`, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, id string, status model.TransferStatus, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE transfers SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound("transfer", id)
	}
	return nil
}

func (r *PGRepository) ListTransfers(ctx context.Context, f *dto.TransferFilters) ([]model.Transfer, int, error) {
	query := `SELECT * FROM transfers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM transfers WHERE 1=1`
	args := map[string]interface{}{}

	if f.BranchID != "" {
		cond := ` AND (source_branch_id = :branch_id OR dest_branch_id = :branch_id)`
		query += cond
		countQuery += cond
		args["branch_id"] = f.BranchID
	}
	if f.Status != "" {
		cond := ` AND status = :status`
		query += cond
		countQuery += cond
		args["status"] = f.Status
	}

	var total int
	cq, cargs, err := sqlx.Named(countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(cq), cargs...); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC, id`
	if f.PageSize > 0 {
		query += ` LIMIT :limit OFFSET :offset`
		args["limit"] = f.PageSize
		page := f.Page
		if page < 1 {
			page = 1
		}
		args["offset"] = (page - 1) * f.PageSize
	}

	q, qargs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	var items []model.Transfer
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(q), qargs...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
