package resolver

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

// StaticResolver serves recipes from fixed maps. Used by tests and by dev mode
// when no catalog database is reachable.
type StaticResolver struct {
	Recipes    map[string][]catalog.RecipeLine // key: productID or productID+"@"+variantID
	Composites map[string]*catalog.CompositeRecipe
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		Recipes:    make(map[string][]catalog.RecipeLine),
		Composites: make(map[string]*catalog.CompositeRecipe),
	}
}

func (r *StaticResolver) AddRecipe(productID string, variantID *string, lines ...catalog.RecipeLine) {
	r.Recipes[recipeKey(productID, variantID)] = lines
}

func (r *StaticResolver) AddComposite(rec *catalog.CompositeRecipe) {
	r.Composites[rec.CompositeItemID] = rec
}

func (r *StaticResolver) ResolveRecipe(_ context.Context, productID string, variantID *string) ([]catalog.RecipeLine, error) {
	if lines, ok := r.Recipes[recipeKey(productID, variantID)]; ok {
		return lines, nil
	}
	// Variant without its own recipe falls back to the base product.
	if lines, ok := r.Recipes[recipeKey(productID, nil)]; ok {
		return lines, nil
	}
	return nil, model.ErrNotFound("recipe for product", productID)
}

func (r *StaticResolver) ResolveCompositeRecipe(_ context.Context, compositeItemID string) (*catalog.CompositeRecipe, error) {
	rec, ok := r.Composites[compositeItemID]
	if !ok {
		return nil, model.ErrNotFound("composite item", compositeItemID)
	}
	return rec, nil
}

func recipeKey(productID string, variantID *string) string {
	if variantID != nil && *variantID != "" {
		return productID + "@" + *variantID
	}
	return productID
}
