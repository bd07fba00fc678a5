package models

import "time"

// Reward is one entry of the prize catalog (a Discord role).
type Reward struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ClaimNotification is published once a claim has committed.
type ClaimNotification struct {
	Username  string    `json:"username"`
	DiscordID string    `json:"discord_id"`
	Reward    string    `json:"reward"`
	LinkID    string    `json:"link_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}
