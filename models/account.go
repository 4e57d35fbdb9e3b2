package models

import (
	"time"

	"gorm.io/gorm"
)

// UserAccount is the identity-linked points record. Balance changes only
// through the ledger, which appends a LedgerEntry for every change.
type UserAccount struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Handle        string     `gorm:"size:191;not null;uniqueIndex" json:"handle"`
	DisplayName   string     `gorm:"size:64" json:"display_name"`
	Balance       int64      `gorm:"not null;default:0" json:"balance"`
	TotalEarned   int64      `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent    int64      `gorm:"not null;default:0" json:"total_spent"`
	CurrentStreak int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longest_streak"`
	LastCheckInAt *time.Time `json:"last_check_in_at"`
	Level         int        `gorm:"not null;default:1" json:"level"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName pins the table name.
func (UserAccount) TableName() string {
	return "user_accounts"
}

// BeforeCreate hook ensures timestamps and level are set even when not provided.
func (u *UserAccount) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Level == 0 {
		u.Level = 1
	}
	return nil
}
