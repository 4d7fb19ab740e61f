package handler

import (
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/httperr"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type StockHandler struct {
	uc     stock.UseCase
	logger *zap.Logger
}

func NewStockHandler(uc stock.UseCase, log *zap.Logger) *StockHandler {
	return &StockHandler{uc: uc, logger: log}
}

func (h *StockHandler) Register(router fiber.Router) {
	router.Get("/stock", h.ListStock)
	router.Get("/stock/summary", h.DailySummary)
	router.Get("/stock/:itemID/availability", h.GetAvailability)
	router.Post("/stock/adjust", h.Adjust)
	router.Post("/stock/count", h.ApplyCount)
	router.Get("/movements", h.ListMovements)
}

func (h *StockHandler) GetAvailability(c *fiber.Ctx) error {
	branchID := c.Query("branch_id", auth.BranchID(c))
	if branchID == "" {
		return httperr.Respond(c, h.logger, model.ErrValidation("branch_id", "branch_id is required"))
	}

	av, err := h.uc.GetAvailability(c.Context(), c.Params("itemID"), branchID)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(av)
}

func (h *StockHandler) ListStock(c *fiber.Ctx) error {
	filters := &dto.StockFilters{
		ItemID:   c.Query("item_id"),
		BranchID: c.Query("branch_id", auth.BranchID(c)),
		LowStock: c.QueryBool("low_stock"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	items, total, err := h.uc.ListStock(c.Context(), filters)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

type adjustRequest struct {
	ItemID         string  `json:"item_id"`
	BranchID       string  `json:"branch_id"`
	QuantityChange float64 `json:"quantity_change"`
	MovementType   string  `json:"movement_type"`
	ReasonCode     string  `json:"reason_code"`
	ReferenceType  string  `json:"reference_type"`
	ReferenceID    string  `json:"reference_id"`
	Notes          string  `json:"notes"`
}

func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}

	in := &dto.AdjustInput{
		ItemID:         req.ItemID,
		BranchID:       req.BranchID,
		QuantityChange: req.QuantityChange,
		MovementType:   model.MovementType(req.MovementType),
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Notes:          req.Notes,
		ActorID:        auth.ActorID(c),
	}
	if req.ReasonCode != "" {
		reason := model.DeductionReason(req.ReasonCode)
		in.ReasonCode = &reason
	}

	mut, err := h.uc.Adjust(c.Context(), in)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(mut)
}

type countRequest struct {
	ItemID          string  `json:"item_id"`
	BranchID        string  `json:"branch_id"`
	CountedQuantity float64 `json:"counted_quantity"`
	Notes           string  `json:"notes"`
}

func (h *StockHandler) ApplyCount(c *fiber.Ctx) error {
	var req countRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Respond(c, h.logger, model.ErrValidation("body", "invalid request body"))
	}

	mut, err := h.uc.ApplyCount(c.Context(), &dto.CountInput{
		ItemID:          req.ItemID,
		BranchID:        req.BranchID,
		CountedQuantity: req.CountedQuantity,
		Notes:           req.Notes,
		ActorID:         auth.ActorID(c),
	})
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	if mut == nil {
		return c.JSON(fiber.Map{"variance": 0})
	}
	return c.JSON(mut)
}

func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	filters := &dto.MovementFilters{
		ItemID:       c.Query("item_id"),
		BranchID:     c.Query("branch_id", auth.BranchID(c)),
		MovementType: model.MovementType(c.Query("type")),
		Page:         c.QueryInt("page", 1),
		PageSize:     c.QueryInt("page_size", 20),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartDate = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndDate = &t
		}
	}

	items, total, err := h.uc.ListMovements(c.Context(), filters)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"movements": items, "total": total})
}

func (h *StockHandler) DailySummary(c *fiber.Ctx) error {
	branchID := c.Query("branch_id", auth.BranchID(c))
	if branchID == "" {
		return httperr.Respond(c, h.logger, model.ErrValidation("branch_id", "branch_id is required"))
	}

	day := time.Now()
	if v := c.Query("day"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			day = t
		}
	}

	summary, err := h.uc.DailySummary(c.Context(), branchID, day)
	if err != nil {
		return httperr.Respond(c, h.logger, err)
	}
	return c.JSON(summary)
}
