package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByKey(ctx context.Context, itemID, branchID string) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.DB.GetContext(ctx, &rec,
		`SELECT * FROM stock_records WHERE item_id = $1 AND branch_id = $2`, itemID, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller creates lazily on first movement
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	var items []model.StockRecord
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ItemID != "" {
		conditions = append(conditions, "item_id = :item_id")
		args["item_id"] = f.ItemID
	}
	if f.BranchID != "" {
		conditions = append(conditions, "branch_id = :branch_id")
		args["branch_id"] = f.BranchID
	}
	if f.LowStock {
		conditions = append(conditions, "quantity - reserved_quantity - held_quantity <= reorder_point AND reorder_point > 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_records" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_records" + whereClause + " ORDER BY updated_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

const upsertStockQuery = `
        INSERT INTO stock_records (
            id, item_id, branch_id,
            quantity, reserved_quantity, held_quantity,
            reorder_point, reorder_quantity, updated_at
        )
        VALUES (
            :id, :item_id, :branch_id,
            :quantity, :reserved_quantity, :held_quantity,
            :reorder_point, :reorder_quantity, :updated_at
        )
        ON CONFLICT (item_id, branch_id)
        DO UPDATE SET
            quantity = EXCLUDED.quantity,
            reserved_quantity = EXCLUDED.reserved_quantity,
            held_quantity = EXCLUDED.held_quantity,
            updated_at = EXCLUDED.updated_at
    `

const insertMovementQuery = `
        INSERT INTO stock_movements (
            id, item_id, branch_id, movement_type,
            quantity_change, quantity_before, quantity_after,
            reserved_before, reserved_after, held_before, held_after,
            reference_type, reference_id, reason_code, notes, created_by, created_at
        )
        VALUES (
            :id, :item_id, :branch_id, :movement_type,
            :quantity_change, :quantity_before, :quantity_after,
            :reserved_before, :reserved_after, :held_before, :held_after,
            :reference_type, :reference_id, :reason_code, :notes, :created_by, :created_at
        )
    `

func (r *PGRepository) Save(ctx context.Context, rec *model.StockRecord) error {
	_, err := r.DB.NamedExecContext(ctx, upsertStockQuery, rec)
	return err
}

func (r *PGRepository) SaveWithMovement(ctx context.Context, rec *model.StockRecord, mv *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, upsertStockQuery, rec); err != nil {
		return fmt.Errorf("failed to update stock record: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ItemID != "" {
		conditions = append(conditions, "item_id = :item_id")
		args["item_id"] = f.ItemID
	}
	if f.BranchID != "" {
		conditions = append(conditions, "branch_id = :branch_id")
		args["branch_id"] = f.BranchID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) SummarizeMovements(ctx context.Context, branchID string, from, to time.Time) (float64, float64, error) {
	var row struct {
		Additions  float64 `db:"additions"`
		Deductions float64 `db:"deductions"`
	}
	err := r.DB.GetContext(ctx, &row, `
        SELECT
            COALESCE(SUM(CASE WHEN quantity_change > 0 THEN quantity_change ELSE 0 END), 0) AS additions,
            COALESCE(SUM(CASE WHEN quantity_change < 0 THEN -quantity_change ELSE 0 END), 0) AS deductions
        FROM stock_movements
        WHERE branch_id = $1
          AND created_at >= $2 AND created_at < $3
          AND movement_type NOT IN ($4, $5)`,
		branchID, from, to, model.MovementSaleReserve, model.MovementCancelReturn)
	if err != nil {
		return 0, 0, err
	}
	return row.Additions, row.Deductions, nil
}
