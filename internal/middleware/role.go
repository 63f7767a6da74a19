package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/models"
)

// RequireRoles passes when the caller's capability set contains at least one
// of the allowed roles.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles := CallerRoles(c)
		if roles == nil {
			return apperr.Unauthorized("missing credentials")
		}
		for _, r := range allowed {
			if roles.Has(r) {
				return c.Next()
			}
		}
		return apperr.Forbidden("insufficient role")
	}
}
