package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const apiVersion = "1.0.0"

// SetupSystemRoutes registers the API index and the health check.
func SetupSystemRoutes(app *fiber.App, db *gorm.DB, dbTimeout time.Duration, logger *zap.Logger) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Claim Link API",
			"version": apiVersion,
			"endpoints": fiber.Map{
				"health": "/api/health",
				"admin": fiber.Map{
					"login":        "/api/admin/login",
					"generateLink": "/api/generate-link",
					"addEvent":     "/api/admin/add-event",
					"winners":      "/api/winners",
				},
				"public": fiber.Map{
					"nextEvent": "/api/public/next-event",
					"winners":   "/api/public/winners",
					"checkLink": "/api/check-link/:linkId",
					"submit":    "/api/submit/:linkId",
				},
			},
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := pingDB(c.UserContext(), db, dbTimeout); err != nil {
			logger.Warn("health check: database unreachable", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "error",
				"message":   "Server is running but database connection failed",
				"database":  "disconnected",
				"timestamp": now,
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"message":   "Server is running and database is connected",
			"database":  "connected",
			"timestamp": now,
		})
	})
}

// NotFound answers any route nothing else matched. Register it last.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":        "error",
		"message":       fmt.Sprintf("Cannot %s %s", c.Method(), c.OriginalURL()),
		"documentation": "/",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func pingDB(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
