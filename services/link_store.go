// services/link_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claim-link-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimTx is the view of one open claim transaction.
type ClaimTx interface {
	// LockLink reads the link under an exclusive row lock held until the
	// transaction ends. Returns ErrLinkNotFound when no row exists.
	LockLink(id string) (*models.ClaimLink, error)
	// MarkClaimed writes the winner only if the link is still unclaimed.
	// It reports whether the write was applied.
	MarkClaimed(id string, claimant models.Claimant, reward string, at time.Time) (bool, error)
}

// LinkStore is what the claim engine needs from persistence.
type LinkStore interface {
	// WithLinkTx runs fn in one transaction; an error from fn rolls back.
	WithLinkTx(ctx context.Context, fn func(tx ClaimTx) error) error
	// IncrementAttempts bumps attempt_count by one and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// IsClaimed is the plain status read used by the check-link endpoint.
	IsClaimed(ctx context.Context, id string) (bool, error)
}

// GormLinkStore keeps links in Postgres (or anything gorm speaks).
type GormLinkStore struct {
	DB          *gorm.DB
	LockTimeout time.Duration
}

func NewGormLinkStore(db *gorm.DB, lockTimeout time.Duration) *GormLinkStore {
	return &GormLinkStore{DB: db, LockTimeout: lockTimeout}
}

func (s *GormLinkStore) WithLinkTx(ctx context.Context, fn func(tx ClaimTx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.LockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			// SET LOCAL cannot take bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&gormClaimTx{tx: tx})
	})
}

type gormClaimTx struct {
	tx *gorm.DB
}

func (t *gormClaimTx) LockLink(id string) (*models.ClaimLink, error) {
	var link models.ClaimLink
	if err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("lock link %s: %w", id, err)
	}
	return &link, nil
}

func (t *gormClaimTx) MarkClaimed(id string, claimant models.Claimant, reward string, at time.Time) (bool, error) {
	result := t.tx.Model(&models.ClaimLink{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":         true,
			"winner_username": claimant.Username,
			"discord_id":      claimant.DiscordID,
			"role_reward":     reward,
			"claimed_at":      at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark link %s claimed: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// IncrementAttempts runs in its own short transaction so the read-back value
// is the one this call produced. It only ever touches attempt_count.
func (s *GormLinkStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var count int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ClaimLink{}).
			Where("id = ?", id).
			UpdateColumn("attempt_count", gorm.Expr("attempt_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return tx.Model(&models.ClaimLink{}).
			Select("attempt_count").
			Where("id = ?", id).
			Scan(&count).Error
	})
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("increment attempts for %s: %w", id, err)
	}
	return count, nil
}

func (s *GormLinkStore) IsClaimed(ctx context.Context, id string) (bool, error) {
	var link models.ClaimLink
	if err := s.DB.WithContext(ctx).
		Select("id", "is_used").
		Where("id = ?", id).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrLinkNotFound
		}
		return false, err
	}
	return link.Claimed, nil
}
