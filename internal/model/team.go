package model

import "time"

type Team struct {
	ID                string    `json:"team_id" validate:"required"`
	Name              string    `json:"team_name" validate:"required"`
	Description       string    `json:"description,omitempty"`
	OwnerID           string    `json:"owner_id" validate:"required"`
	JoinCode          string    `json:"join_code,omitempty"`
	ResetIntervalDays int       `json:"reset_interval_days,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// Members is the projected leaderboard: sorted descending by points,
	// ties keep join order.
	Members []*Member `json:"members,omitempty"`
}
