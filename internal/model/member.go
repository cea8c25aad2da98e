package model

import "time"

// PointChange is the audit record of the most recent ledger mutation.
// For increments Amount holds the delta; for absolute overwrites it holds
// the new total (historical field semantics, kept as-is).
type PointChange struct {
	Timestamp time.Time `json:"timestamp"`
	Amount    int64     `json:"amount"`
}

type Member struct {
	UserID          string       `json:"user_id" validate:"required"`
	DisplayName     string       `json:"display_name"`
	Points          int64        `json:"points"`
	JoinedAt        time.Time    `json:"joined_at"`
	LastPointChange *PointChange `json:"last_point_change"`
}
