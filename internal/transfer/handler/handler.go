package handler

import (
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/httperr"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TransferHandler struct {
	uc     transfer.UseCase
	logger *zap.Logger
}

func NewTransferHandler(uc transfer.UseCase, log *zap.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, logger: log}
}

func (h *TransferHandler) Register(router fiber.Router) {
	router.Post("/transfers", h.CreateTransfer)
	router.Get("/transfers", h.ListTransfers)
	router.Get("/transfers/:transferID", h.GetTransfer)
	router.Post("/transfers/:transferID/receive", h.ReceiveTransfer)
	router.Post("/transfers/:transferID/cancel", h.CancelTransfer)
}

func (h *TransferHandler) CreateTransfer(c *fiber.Ctx) error {
	var in dto.CreateTransferInput
	if err := c.BodyParser(&in); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}
	if in.SourceBranchID == "" {
		in.SourceBranchID = auth.BranchID(c)
	}
	in.ActorID = auth.ActorID(c)

	t, err := h.uc.CreateTransfer(c.Context(), &in)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *TransferHandler) GetTransfer(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.Context(), c.Params("transferID"))
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(t)
}

func (h *TransferHandler) ListTransfers(c *fiber.Ctx) error {
	filters := &dto.TransferFilters{
		BranchID: c.Query("branch_id", auth.BranchID(c)),
		Status:   model.TransferStatus(c.Query("status")),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	items, total, err := h.uc.ListTransfers(c.Context(), filters)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"transfers": items, "total": total})
}

func (h *TransferHandler) ReceiveTransfer(c *fiber.Ctx) error {
	id := c.Params("transferID")
	if err := h.uc.ReceiveTransfer(c.Context(), id, auth.ActorID(c)); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"transfer_id": id, "status": model.TransferReceived})
}

func (h *TransferHandler) CancelTransfer(c *fiber.Ctx) error {
	id := c.Params("transferID")
	if err := h.uc.CancelTransfer(c.Context(), id, auth.ActorID(c)); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"transfer_id": id, "status": model.TransferCancelled})
}
