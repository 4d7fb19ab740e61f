package handler

import (
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/httperr"
	"github.com/fekuna/omnipos-stock-service/internal/production"
	"github.com/fekuna/omnipos-stock-service/internal/production/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductionHandler struct {
	uc     production.UseCase
	logger *zap.Logger
}

func NewProductionHandler(uc production.UseCase, log *zap.Logger) *ProductionHandler {
	return &ProductionHandler{uc: uc, logger: log}
}

func (h *ProductionHandler) Register(router fiber.Router) {
	router.Get("/production/availability", h.CheckAvailability)
	router.Post("/production/runs", h.Produce)
	router.Get("/production/runs", h.ListRuns)
	router.Get("/production/runs/:runID", h.GetRun)
}

func (h *ProductionHandler) CheckAvailability(c *fiber.Ctx) error {
	in := &dto.CheckInput{
		CompositeItemID: c.Query("composite_item_id"),
		BranchID:        c.Query("branch_id", auth.BranchID(c)),
		BatchCount:      c.QueryInt("batch_count", 1),
	}
	report, err := h.uc.CheckAvailability(c.Context(), in)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(report)
}

func (h *ProductionHandler) Produce(c *fiber.Ctx) error {
	var in dto.ProduceInput
	if err := c.BodyParser(&in); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}
	if in.BranchID == "" {
		in.BranchID = auth.BranchID(c)
	}
	in.ActorID = auth.ActorID(c)

	run, err := h.uc.Produce(c.Context(), &in)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *ProductionHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.uc.GetRun(c.Context(), c.Params("runID"))
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(run)
}

func (h *ProductionHandler) ListRuns(c *fiber.Ctx) error {
	filters := &dto.RunFilters{
		BranchID:        c.Query("branch_id", auth.BranchID(c)),
		CompositeItemID: c.Query("composite_item_id"),
		Status:          model.ProductionStatus(c.Query("status")),
		Page:            c.QueryInt("page", 1),
		PageSize:        c.QueryInt("page_size", 20),
	}
	items, total, err := h.uc.ListRuns(c.Context(), filters)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"runs": items, "total": total})
}
