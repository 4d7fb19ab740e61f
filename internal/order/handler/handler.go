package handler

import (
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/order"
	"github.com/fekuna/omnipos-stock-service/internal/order/dto"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/httperr"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger *zap.Logger
}

func NewOrderHandler(uc order.UseCase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func (h *OrderHandler) Register(router fiber.Router) {
	router.Post("/orders/reservations", h.CreateReservation)
	router.Post("/orders/:orderID/complete", h.CompleteOrder)
	router.Post("/orders/:orderID/cancel", h.CancelOrder)
	router.Post("/orders/:orderID/edit", h.EditOrder)
	router.Get("/decisions", h.ListDecisions)
	router.Post("/decisions/:entryID", h.RecordDecision)
}

func (h *OrderHandler) CreateReservation(c *fiber.Ctx) error {
	var in dto.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}
	if in.BranchID == "" {
		in.BranchID = auth.BranchID(c)
	}
	in.ActorID = auth.ActorID(c)

	if err := h.uc.CreateOrderReservation(c.Context(), &in); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order_id": in.OrderID, "status": "reserved"})
}

func (h *OrderHandler) CompleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderID")
	if err := h.uc.CompleteOrder(c.Context(), orderID, auth.ActorID(c)); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"order_id": orderID, "status": "completed"})
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderID")
	if err := h.uc.CancelOrder(c.Context(), orderID, auth.ActorID(c)); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"order_id": orderID, "status": "cancelled"})
}

func (h *OrderHandler) EditOrder(c *fiber.Ctx) error {
	var in dto.EditOrderInput
	if err := c.BodyParser(&in); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}
	in.OrderID = c.Params("orderID")
	in.ActorID = auth.ActorID(c)

	if err := h.uc.EditOrder(c.Context(), &in); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"order_id": in.OrderID, "status": "edited"})
}

func (h *OrderHandler) ListDecisions(c *fiber.Ctx) error {
	branchID := c.Query("branch_id", auth.BranchID(c))
	source := model.CancellationSource(c.Query("source"))

	entries, err := h.uc.ListDecisionQueue(c.Context(), branchID, source)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"entries": entries, "total": len(entries)})
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (h *OrderHandler) RecordDecision(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}

	in := &dto.DecisionInput{
		EntryID:  c.Params("entryID"),
		Decision: model.Decision(req.Decision),
		ActorID:  auth.ActorID(c),
	}
	if err := h.uc.RecordDecision(c.Context(), in); err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"entry_id": in.EntryID, "decision": in.Decision})
}
