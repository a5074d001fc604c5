package middleware

// roles.go: role-based access control. The app has two roles, admin and player.

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padelhub/padelhub/internal/models"
)

// RequireRole allows only users whose role is one of roles and answers
// 403 Forbidden otherwise:
//
//	api.Put("/matches/:id", middleware.RequireRole(models.RoleAdmin), handlers.EditMatch(svc))
//
// It must run after Auth, which is what puts the user in c.Locals.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			// Auth was not applied to this route.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
