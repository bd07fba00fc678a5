// handlers/links.go
package handlers

import (
	"claim-link-service/middleware"
	"claim-link-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupLinkRoutes wires public listings, admin login and the admin-only
// link/event management endpoints.
func SetupLinkRoutes(app *fiber.App, linkService *services.LinkService, authService *services.AuthService, logger *zap.Logger) {
	// 🔓 Public
	app.Get("/api/public/winners", linkService.GetPublicWinners)
	app.Get("/api/public/next-event", linkService.GetNextEvent)
	app.Post("/api/admin/login", authService.AdminLogin)

	// 🔐 Admin
	admin := middleware.AdminAuth(authService, logger)
	app.Post("/api/generate-link", admin, linkService.GenerateLink)
	app.Post("/api/admin/add-event", admin, linkService.AddEvent)
	app.Get("/api/winners", admin, linkService.GetWinners)
}
