// Package catalog is the read-only boundary to the catalog service. Recipe
// authoring lives elsewhere; this package only resolves the ingredient
// requirements the reservation and production engines need.
package catalog

import "context"

// RecipeLine is one ingredient requirement per unit of a sold product,
// already exploded through variants and modifiers by the catalog.
type RecipeLine struct {
	ItemID          string  `db:"item_id"`
	QuantityPerUnit float64 `db:"quantity_per_unit"`
	Removable       bool    `db:"removable"`
}

// CompositeLine is one raw ingredient consumed per produced batch.
type CompositeLine struct {
	ItemID          string  `db:"raw_item_id"`
	QuantityPerUnit float64 `db:"quantity_per_unit"`
}

type CompositeRecipe struct {
	CompositeItemID string
	YieldPerBatch   float64
	Lines           []CompositeLine
}

type Resolver interface {
	// ResolveRecipe returns the ingredient requirement for one unit of a
	// product (variant optional). Empty result means the product has no
	// tracked ingredients.
	ResolveRecipe(ctx context.Context, productID string, variantID *string) ([]RecipeLine, error)

	// ResolveCompositeRecipe returns the raw ingredients and yield for one
	// production batch of a composite item.
	ResolveCompositeRecipe(ctx context.Context, compositeItemID string) (*CompositeRecipe, error)
}
