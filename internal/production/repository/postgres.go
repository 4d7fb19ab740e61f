package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertRunQuery = `
        INSERT INTO production_runs (
            id, composite_item_id, branch_id, batch_count, yielded_quantity,
            status, notes, created_by, created_at
        )
        VALUES (
            :id, :composite_item_id, :branch_id, :batch_count, :yielded_quantity,
            :status, :notes, :created_by, :created_at
        )
    `

const insertRunLineQuery = `
        INSERT INTO production_lines (id, production_run_id, item_id, quantity)
        VALUES (:id, :production_run_id, :item_id, :quantity)
    `

func (r *PGRepository) CreateRun(ctx context.Context, run *model.ProductionRun) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertRunQuery, run); err != nil {
		return err
	}
	if len(run.Lines) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertRunLineQuery, run.Lines); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PGRepository) GetRun(ctx context.Context, id string) (*model.ProductionRun, error) {
	var run model.ProductionRun
	err := r.DB.GetContext(ctx, &run, `SELECT * FROM production_runs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	err = r.DB.SelectContext(ctx, &run.Lines,
		`SELECT * FROM production_lines WHERE production_run_id = $1 ORDER BY item_id`, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *PGRepository) ListRuns(ctx context.Context, f *dto.RunFilters) ([]model.ProductionRun, int, error) {
	query := `SELECT * FROM production_runs WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM production_runs WHERE 1=1`
	args := map[string]interface{}{}

	if f.BranchID != "" {
		query += ` AND branch_id = :branch_id`
		countQuery += ` AND branch_id = :branch_id`
		args["branch_id"] = f.BranchID
	}
	if f.CompositeItemID != "" {
		query += ` AND composite_item_id = :composite_item_id`
		countQuery += ` AND composite_item_id = :composite_item_id`
		args["composite_item_id"] = f.CompositeItemID
	}
	if f.Status != "" {
		query += ` AND status = :status`
		countQuery += ` AND status = :status`
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
	var items []model.ProductionRun
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(q), qargs...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
