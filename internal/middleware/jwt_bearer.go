package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/utils"
)

// BearerAuth validates the Authorization bearer token and stores the caller's
// id and capability set in locals for downstream guards.
func BearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return apperr.Unauthorized("missing bearer token")
		}

		claims, err := utils.ParseJWT(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperr.Unauthorized("invalid or expired token")
		}

		uid := strings.TrimSpace(claims.UserID)
		if uid == "" {
			return apperr.Unauthorized("invalid token claims")
		}

		c.Locals("userId", uid)
		c.Locals("roles", models.RoleSetFromStrings(claims.Roles))
		return c.Next()
	}
}

// CallerRoles reads the capability set BearerAuth stored on the request.
func CallerRoles(c *fiber.Ctx) models.RoleSet {
	if roles, ok := c.Locals("roles").(models.RoleSet); ok {
		return roles
	}
	return nil
}

// CallerID returns the authenticated user id, empty when unauthenticated.
func CallerID(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userId").(string); ok {
		return uid
	}
	return ""
}
