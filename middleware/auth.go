// middleware/auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts user identity and roles set by the Gateway
// and attaches them to the request context for handlers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// AdminOnly gates the administrative engine triggers. A request passes with
// the admin role from the Gateway, or with the shared system token that
// scheduled system callers present.
func AdminOnly() fiber.Handler {
	systemToken := os.Getenv("SEASON_SYSTEM_TOKEN")

	return func(c *fiber.Ctx) error {
		if systemToken != "" && c.Get("X-System-Token") == systemToken {
			return c.Next()
		}

		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == "admin" {
				return c.Next()
			}
		}

		log.Printf("[ADMIN_AUTH] Rejected non-admin request to %s", c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin role or system credential required",
		})
	}
}
