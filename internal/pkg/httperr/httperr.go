// Package httperr maps the domain error taxonomy onto HTTP responses.
package httperr

import (
	"errors"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var kindStatus = map[model.ErrorKind]int{
	model.KindInsufficientStock:   fiber.StatusConflict,
	model.KindInvalidState:        fiber.StatusConflict,
	model.KindValidation:          fiber.StatusBadRequest,
	model.KindNotFound:            fiber.StatusNotFound,
	model.KindConcurrencyConflict: fiber.StatusLocked,
}

// Respond writes the error. Domain errors surface their kind and detail;
// anything else becomes a generic failure carrying a correlation id that is
// also logged, so ledger internals never leak to the caller.
func Respond(c *fiber.Ctx, log *zap.Logger, err error) error {
	var de *model.DomainError
	if errors.As(err, &de) {
		body := fiber.Map{
			"error": de.Kind.String(),
			"msg":   de.Msg,
		}
		switch de.Kind {
		case model.KindInsufficientStock:
			body["item_id"] = de.ItemID
			body["branch_id"] = de.BranchID
			body["requested"] = de.Requested
			body["available"] = de.Available
			body["shortage"] = de.Shortage()
		case model.KindValidation:
			body["field"] = de.Field
		}
		return c.Status(kindStatus[de.Kind]).JSON(body)
	}

	correlationID := uuid.New().String()
	log.Error("operation failed",
		zap.String("correlation_id", correlationID),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":          "operation_failed",
		"correlation_id": correlationID,
	})
}
