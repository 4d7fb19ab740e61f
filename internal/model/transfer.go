package model

import "time"

type TransferStatus string

const (
	TransferCreated   TransferStatus = "created"
	TransferReceived  TransferStatus = "received"
	TransferCancelled TransferStatus = "cancelled"
)

// Transfer moves held stock from one branch to another. Stock is held at the
// source on creation and only moves on receive.
type Transfer struct {
	ID             string         `db:"id"`
	SourceBranchID string         `db:"source_branch_id"`
	DestBranchID   string         `db:"dest_branch_id"`
	Status         TransferStatus `db:"status"`
	Notes          string         `db:"notes"`
	CreatedBy      *string        `db:"created_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`

	Items []TransferItem `db:"-"`
}

type TransferItem struct {
	ID         string  `db:"id"`
	TransferID string  `db:"transfer_id"`
	ItemID     string  `db:"item_id"`
	Quantity   float64 `db:"quantity"`
}
