package resolver

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

func TestResolveRecipeVariantFallback(t *testing.T) {
	r := NewStaticResolver()
	ctx := context.Background()

	r.AddRecipe("latte", nil, catalog.RecipeLine{ItemID: "milk", QuantityPerUnit: 0.2})
	large := "large"
	r.AddRecipe("latte", &large, catalog.RecipeLine{ItemID: "milk", QuantityPerUnit: 0.3})

	lines, err := r.ResolveRecipe(ctx, "latte", &large)
	if err != nil {
		t.Fatalf("variant recipe: %v", err)
	}
	if len(lines) != 1 || lines[0].QuantityPerUnit != 0.3 {
		t.Fatalf("variant lines = %+v", lines)
	}

	// Unknown variant falls back to the base product.
	small := "small"
	lines, err = r.ResolveRecipe(ctx, "latte", &small)
	if err != nil {
		t.Fatalf("fallback recipe: %v", err)
	}
	if len(lines) != 1 || lines[0].QuantityPerUnit != 0.2 {
		t.Fatalf("fallback lines = %+v", lines)
	}

	_, err = r.ResolveRecipe(ctx, "unknown", nil)
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestResolveCompositeRecipe(t *testing.T) {
	r := NewStaticResolver()
	r.AddComposite(&catalog.CompositeRecipe{
		CompositeItemID: "sauce",
		YieldPerBatch:   3,
		Lines:           []catalog.CompositeLine{{ItemID: "tomato", QuantityPerUnit: 2}},
	})

	rec, err := r.ResolveCompositeRecipe(context.Background(), "sauce")
	if err != nil || rec.YieldPerBatch != 3 {
		t.Fatalf("composite: %+v err=%v", rec, err)
	}

	_, err = r.ResolveCompositeRecipe(context.Background(), "nope")
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
