package transfer

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

type Repository interface {
	// CreateTransfer persists the transfer and its items atomically.
	CreateTransfer(ctx context.Context, t *model.Transfer) error

	// GetTransfer loads a transfer with its items, (nil, nil) when absent.
	GetTransfer(ctx context.Context, id string) (*model.Transfer, error)

	SetStatus(ctx context.Context, id string, status model.TransferStatus, at time.Time) error

	// ListTransfers matches transfers touching the branch as source or dest.
	ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error)
}
