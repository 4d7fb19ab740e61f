package transfer

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

// UseCase runs the branch transfer lifecycle: create holds stock at the
// source, receive moves it, cancel unwinds the hold. Receive and cancel are
// only legal while the transfer is still in the created state.
type UseCase interface {
	CreateTransfer(ctx context.Context, in *dto.CreateTransferInput) (*model.Transfer, error)
	ReceiveTransfer(ctx context.Context, transferID, actorID string) error
	CancelTransfer(ctx context.Context, transferID, actorID string) error

	GetTransfer(ctx context.Context, id string) (*model.Transfer, error)
	ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.Transfer, int, error)
}
