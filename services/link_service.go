// services/link_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claim-link-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LinkService covers the plain reads and writes around links and events:
// creation, winner listings and the next scheduled drop.
type LinkService struct {
	DB      *gorm.DB
	LinkTTL time.Duration
	Logger  *zap.Logger
	now     func() time.Time
}

func NewLinkService(db *gorm.DB, linkTTL time.Duration, logger *zap.Logger) *LinkService {
	return &LinkService{
		DB:      db,
		LinkTTL: linkTTL,
		Logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Winner is the admin view of a claimed link.
type Winner struct {
	ID             string     `json:"id"`
	WinnerUsername string     `json:"winner_username"`
	DiscordID      string     `json:"discord_id"`
	RoleReward     string     `json:"role_reward"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PublicWinner leaves out anything that identifies the Discord account.
type PublicWinner struct {
	WinnerUsername string    `json:"winner_username"`
	RoleReward     string    `json:"role_reward"`
	CreatedAt      time.Time `json:"created_at"`
}

// LinkStats is a point-in-time count of links by derived state.
type LinkStats struct {
	Open    int64 `json:"open"`
	Expired int64 `json:"expired"`
	Claimed int64 `json:"claimed"`
}

// CreateLink stores a fresh unclaimed link.
func (s *LinkService) CreateLink(ctx context.Context, eventID *uint, expiresAt time.Time) (*models.ClaimLink, error) {
	link := &models.ClaimLink{
		ID:        uuid.NewString(),
		EventID:   eventID,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(link).Error; err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	return link, nil
}

// CreateEventWithLink schedules an event and its link in one transaction.
// The link stays claimable for LinkTTL after the event starts.
func (s *LinkService) CreateEventWithLink(ctx context.Context, eventDate time.Time) (*models.Event, *models.ClaimLink, error) {
	event := &models.Event{EventDate: eventDate.UTC()}
	var link *models.ClaimLink

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		link = &models.ClaimLink{
			ID:        uuid.NewString(),
			EventID:   &event.ID,
			ExpiresAt: event.EventDate.Add(s.LinkTTL),
		}
		if err := tx.Create(link).Error; err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return event, link, nil
}

// ListWinners returns every claimed link, newest first.
func (s *LinkService) ListWinners(ctx context.Context) ([]Winner, error) {
	var links []models.ClaimLink
	if err := s.DB.WithContext(ctx).
		Where("is_used = ?", true).
		Order("created_at DESC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}

	winners := make([]Winner, 0, len(links))
	for _, l := range links {
		winners = append(winners, Winner{
			ID:             l.ID,
			WinnerUsername: deref(l.WinnerUsername),
			DiscordID:      deref(l.DiscordID),
			RoleReward:     deref(l.RoleReward),
			ClaimedAt:      l.ClaimedAt,
			CreatedAt:      l.CreatedAt,
		})
	}
	return winners, nil
}

func (s *LinkService) ListPublicWinners(ctx context.Context) ([]PublicWinner, error) {
	winners, err := s.ListWinners(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PublicWinner, 0, len(winners))
	for _, w := range winners {
		out = append(out, PublicWinner{
			WinnerUsername: w.WinnerUsername,
			RoleReward:     w.RoleReward,
			CreatedAt:      w.CreatedAt,
		})
	}
	return out, nil
}

// NextEvent returns the earliest event still in the future and its link.
// Both are nil when nothing is scheduled.
func (s *LinkService) NextEvent(ctx context.Context) (*models.Event, *models.ClaimLink, error) {
	db := s.DB.WithContext(ctx)

	var event models.Event
	if err := db.Where("event_date > ?", s.now()).
		Order("event_date ASC").
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("find next event: %w", err)
	}

	var link models.ClaimLink
	if err := db.Where("event_id = ?", event.ID).
		Order("created_at ASC").
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &event, nil, nil
		}
		return nil, nil, fmt.Errorf("find link for event %d: %w", event.ID, err)
	}
	return &event, &link, nil
}

// Stats counts links by state; expiry is derived from expires_at.
func (s *LinkService) Stats(ctx context.Context) (LinkStats, error) {
	var stats LinkStats
	now := s.now()
	db := s.DB.WithContext(ctx).Model(&models.ClaimLink{})

	if err := db.Session(&gorm.Session{}).Where("is_used = ?", true).Count(&stats.Claimed).Error; err != nil {
		return stats, fmt.Errorf("count claimed links: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("is_used = ? AND expires_at < ?", false, now).Count(&stats.Expired).Error; err != nil {
		return stats, fmt.Errorf("count expired links: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("is_used = ? AND expires_at >= ?", false, now).Count(&stats.Open).Error; err != nil {
		return stats, fmt.Errorf("count open links: %w", err)
	}
	return stats, nil
}

// SeedDemoEvent creates one event two days ahead when the table is empty.
func (s *LinkService) SeedDemoEvent(ctx context.Context) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Event{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		return nil
	}
	event, link, err := s.CreateEventWithLink(ctx, s.now().Add(48*time.Hour))
	if err != nil {
		return err
	}
	s.Logger.Info("demo event seeded", zap.Uint("event_id", event.ID), zap.String("link_id", link.ID))
	return nil
}

// --- Admin Handlers ---

// GenerateLink creates a standalone link valid for LinkTTL (Admin only)
func (s *LinkService) GenerateLink(c *fiber.Ctx) error {
	link, err := s.CreateLink(c.UserContext(), nil, s.now().Add(s.LinkTTL))
	if err != nil {
		s.Logger.Error("generate link failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to generate link"})
	}
	return c.JSON(fiber.Map{"linkId": link.ID, "expiresAt": link.ExpiresAt})
}

// AddEvent schedules an event together with its link (Admin only)
func (s *LinkService) AddEvent(c *fiber.Ctx) error {
	var req struct {
		EventDate *time.Time `json:"eventDate"`
	}
	if err := c.BodyParser(&req); err != nil || req.EventDate == nil || req.EventDate.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "eventDate is required (RFC3339, UTC)"})
	}

	event, link, err := s.CreateEventWithLink(c.UserContext(), *req.EventDate)
	if err != nil {
		s.Logger.Error("add event failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to add event and link"})
	}

	return c.JSON(fiber.Map{
		"message":   "Event and link added",
		"eventId":   event.ID,
		"linkId":    link.ID,
		"expiresAt": link.ExpiresAt,
	})
}

// GetWinners returns the full winner history (Admin only)
func (s *LinkService) GetWinners(c *fiber.Ctx) error {
	winners, err := s.ListWinners(c.UserContext())
	if err != nil {
		s.Logger.Error("fetch admin winners failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch winners"})
	}
	return c.JSON(winners)
}

// --- Public Handlers ---

// GetPublicWinners lists winners without Discord ids
func (s *LinkService) GetPublicWinners(c *fiber.Ctx) error {
	winners, err := s.ListPublicWinners(c.UserContext())
	if err != nil {
		s.Logger.Error("fetch public winners failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":    "error",
			"message":   "Failed to fetch winners",
			"timestamp": s.now().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"data":      winners,
		"count":     len(winners),
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// GetNextEvent returns the next scheduled drop, or nulls
func (s *LinkService) GetNextEvent(c *fiber.Ctx) error {
	event, link, err := s.NextEvent(c.UserContext())
	if err != nil {
		s.Logger.Error("fetch next event failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch next event"})
	}
	if event == nil {
		return c.JSON(fiber.Map{"event_date": nil, "link_id": nil, "message": "No upcoming event yet."})
	}

	var linkID *string
	if link != nil {
		linkID = &link.ID
	}
	return c.JSON(fiber.Map{
		"event_date": event.EventDate.UTC().Format(time.RFC3339),
		"link_id":    linkID,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
