package resolver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// PGResolver reads the catalog service's recipe tables directly. The tables
// are owned by the catalog; this side only selects.
type PGResolver struct {
	DB *sqlx.DB
}

func NewPGResolver(db *sqlx.DB) *PGResolver {
	return &PGResolver{DB: db}
}

func (r *PGResolver) ResolveRecipe(ctx context.Context, productID string, variantID *string) ([]catalog.RecipeLine, error) {
	query := `
        SELECT item_id, quantity_per_unit, removable
        FROM product_recipes
        WHERE product_id = $1`
	args := []interface{}{productID}

	if variantID != nil && *variantID != "" {
		query += ` AND (variant_id = $2 OR variant_id IS NULL)`
		args = append(args, *variantID)
	} else {
		query += ` AND variant_id IS NULL`
	}

	var lines []catalog.RecipeLine
	if err := r.DB.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *PGResolver) ResolveCompositeRecipe(ctx context.Context, compositeItemID string) (*catalog.CompositeRecipe, error) {
	var yield float64
	err := r.DB.GetContext(ctx, &yield,
		`SELECT yield_per_batch FROM composite_items WHERE id = $1`, compositeItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound("composite item", compositeItemID)
		}
		return nil, err
	}

	var lines []catalog.CompositeLine
	err = r.DB.SelectContext(ctx, &lines, `
        SELECT raw_item_id, quantity_per_unit
        FROM composite_recipes
        WHERE composite_item_id = $1
        ORDER BY raw_item_id`, compositeItemID)
	if err != nil {
		return nil, err
	}

	return &catalog.CompositeRecipe{
		CompositeItemID: compositeItemID,
		YieldPerBatch:   yield,
		Lines:           lines,
	}, nil
}
