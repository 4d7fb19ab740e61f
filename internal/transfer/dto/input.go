package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type TransferItemInput struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

type CreateTransferInput struct {
	SourceBranchID string              `json:"source_branch_id"`
	DestBranchID   string              `json:"dest_branch_id"`
	Notes          string              `json:"notes"`
	Items          []TransferItemInput `json:"items"`
	ActorID        string              `json:"-"`
}

type TransferFilters struct {
	BranchID string
	Status   model.TransferStatus
	Page     int
	PageSize int
}
