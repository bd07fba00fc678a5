// handlers/claim.go
package handlers

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"claim-link-service/models"
	"claim-link-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	maxUsernameLen  = 100
	maxDiscordIDLen = 50
)

type claimRequest struct {
	Username  string `json:"username"`
	DiscordID string `json:"discordId"`
}

// validate normalises the claimant; the engine never re-checks it.
func (r claimRequest) validate() (models.Claimant, string) {
	claimant := models.Claimant{
		Username:  strings.TrimSpace(r.Username),
		DiscordID: strings.TrimSpace(r.DiscordID),
	}
	switch {
	case claimant.Username == "":
		return claimant, "username is required"
	case claimant.DiscordID == "":
		return claimant, "discordId is required"
	case utf8.RuneCountInString(claimant.Username) > maxUsernameLen:
		return claimant, "username is too long"
	case utf8.RuneCountInString(claimant.DiscordID) > maxDiscordIDLen:
		return claimant, "discordId is too long"
	}
	return claimant, ""
}

func claimStatus(outcome services.ClaimOutcome) int {
	switch outcome {
	case services.OutcomeSuccess:
		return fiber.StatusOK
	case services.OutcomeNotFound:
		return fiber.StatusNotFound
	case services.OutcomeAlreadyClaimed, services.OutcomeExpired:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// SetupClaimRoutes exposes the claim and status-check endpoints. Both are anonymous.
func SetupClaimRoutes(app *fiber.App, engine *services.ClaimEngine, store services.LinkStore, logger *zap.Logger) {
	app.Post("/api/submit/:linkId", func(c *fiber.Ctx) error {
		linkID := strings.TrimSpace(c.Params("linkId"))

		var req claimRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
		}
		claimant, problem := req.validate()
		if problem != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": problem})
		}

		result := engine.AttemptClaim(c.UserContext(), linkID, claimant)

		if result.Outcome == services.OutcomeSuccess {
			return c.JSON(fiber.Map{
				"message":    result.Message,
				"roleReward": result.Reward,
				"expiresAt":  result.ExpiresAt.UTC().Format(time.RFC3339),
			})
		}
		return c.Status(claimStatus(result.Outcome)).JSON(fiber.Map{
			"message":       result.Message,
			"outcome":       result.Outcome,
			"attempt_count": result.AttemptCount,
		})
	})

	app.Get("/api/check-link/:linkId", func(c *fiber.Ctx) error {
		linkID := strings.TrimSpace(c.Params("linkId"))
		claimed, err := store.IsClaimed(c.UserContext(), linkID)
		if err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Link not found"})
			}
			logger.Error("check link failed", zap.String("link_id", linkID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to check link status"})
		}
		return c.JSON(fiber.Map{"is_used": claimed})
	})
}
