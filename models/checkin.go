package models

import "time"

// SettlementStatus tracks the external confirmation of a check-in.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementFailed    SettlementStatus = "failed"
)

// Valid reports whether s is a known status.
func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementPending, SettlementConfirmed, SettlementFailed:
		return true
	}
	return false
}

// CheckIn stores one daily check-in. The (user_id, day) unique index is the
// idempotency gate: a second insert for the same day must fail.
type CheckIn struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UserID           uint             `gorm:"not null;uniqueIndex:idx_checkin_user_day" json:"user_id"`
	Day              string           `gorm:"size:10;not null;uniqueIndex:idx_checkin_user_day" json:"day"`
	PointsAwarded    int64            `gorm:"not null" json:"points_awarded"`
	StreakDay        int              `gorm:"not null" json:"streak_day"`
	SettlementRef    string           `gorm:"size:128" json:"settlement_ref"`
	SettlementStatus SettlementStatus `gorm:"size:16;not null" json:"settlement_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (CheckIn) TableName() string {
	return "check_ins"
}
