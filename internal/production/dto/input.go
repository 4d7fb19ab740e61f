package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type ProduceInput struct {
	CompositeItemID string `json:"composite_item_id"`
	BranchID        string `json:"branch_id"`
	BatchCount      int    `json:"batch_count"`
	Notes           string `json:"notes"`
	ActorID         string `json:"-"`
}

type CheckInput struct {
	CompositeItemID string
	BranchID        string
	BatchCount      int
}

// IngredientCheck is one raw ingredient's requirement against what the branch
// actually has available.
type IngredientCheck struct {
	ItemID    string  `json:"item_id"`
	Required  float64 `json:"required"`
	Available float64 `json:"available"`
	Shortage  float64 `json:"shortage"`
}

type AvailabilityReport struct {
	CompositeItemID string            `json:"composite_item_id"`
	BranchID        string            `json:"branch_id"`
	BatchCount      int               `json:"batch_count"`
	ExpectedYield   float64           `json:"expected_yield"`
	CanProduce      bool              `json:"can_produce"`
	Ingredients     []IngredientCheck `json:"ingredients"`
}

type RunFilters struct {
	BranchID        string
	CompositeItemID string
	Status          model.ProductionStatus
	Page            int
	PageSize        int
}
