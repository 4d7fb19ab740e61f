package auth

import "github.com/gofiber/fiber/v2"

const (
	localUserID   = "user_id"
	localBranchID = "branch_id"
)

// Middleware lifts the gateway-provided identity headers into request locals.
// Authentication itself happens upstream; this service only attributes.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v := c.Get("X-User-Id"); v != "" {
			c.Locals(localUserID, v)
		}
		if v := c.Get("X-Branch-Id"); v != "" {
			c.Locals(localBranchID, v)
		}
		return c.Next()
	}
}

func ActorID(c *fiber.Ctx) string {
	if v, ok := c.Locals(localUserID).(string); ok {
		return v
	}
	return ""
}

func BranchID(c *fiber.Ctx) string {
	if v, ok := c.Locals(localBranchID).(string); ok {
		return v
	}
	return ""
}
