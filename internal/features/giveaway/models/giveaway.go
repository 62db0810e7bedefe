package models

import (
	"time"
)

// Giveaway is one time-bounded drawing. Identity is the platform message ID
// of the announcement post.
type Giveaway struct {
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	GuildID     string    `json:"guild_id"`
	Prize       string    `json:"prize"`
	WinnerCount int       `json:"winner_count"`
	EndsAt      time.Time `json:"ends_at"`
	Ended       bool      `json:"ended"`
	Winners     []string  `json:"winners,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expired reports whether the deadline has passed. The deadline itself is
// the only durable scheduling state; timers are rebuilt from it on restart.
func (g *Giveaway) Expired(now time.Time) bool {
	return !now.Before(g.EndsAt)
}
