// middleware/admin_auth.go
package middleware

import (
	"strings"

	"claim-link-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminUserKey is the fiber Locals key holding the authenticated admin name.
const AdminUserKey = "admin_user"

// AdminAuth validates the admin Bearer token issued by /api/admin/login.
func AdminAuth(auth *services.AuthService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.Warn("admin token missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "No token provided"})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		subject, err := auth.VerifyToken(token)
		if err != nil {
			logger.Warn("admin token rejected", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		c.Locals(AdminUserKey, subject)
		return c.Next()
	}
}
