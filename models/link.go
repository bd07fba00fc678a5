// models/link.go
package models

import "time"

// ClaimLink is a single-use link that many users race to redeem.
// Claimed flips false → true once; winner fields are written in the same update.
type ClaimLink struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	EventID        *uint      `gorm:"index" json:"event_id,omitempty"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expires_at"`
	Claimed        bool       `gorm:"column:is_used;not null;default:false;index" json:"claimed"`
	WinnerUsername *string    `gorm:"size:100" json:"winner_username,omitempty"`
	DiscordID      *string    `gorm:"size:50" json:"discord_id,omitempty"`
	RoleReward     *string    `gorm:"size:50" json:"role_reward,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	AttemptCount   int        `gorm:"not null;default:0" json:"attempt_count"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (ClaimLink) TableName() string { return "links" }

// IsExpired reports whether the claim window closed before now.
func (l *ClaimLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Claimant identifies who is trying to redeem a link.
type Claimant struct {
	Username  string `json:"username"`
	DiscordID string `json:"discord_id"`
}

// Event schedules a drop; a link may point at one, but claim logic never looks at it.
type Event struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	EventDate time.Time   `gorm:"not null;index" json:"event_date"`
	Links     []ClaimLink `gorm:"foreignKey:EventID" json:"links,omitempty"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}
