package models

import "time"

// RedemptionStatus describes the fulfillment state of a redemption.
type RedemptionStatus string

const RedemptionDelivered RedemptionStatus = "delivered"

// Redemption is written in the same transaction as its debit entry.
type Redemption struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"index;not null" json:"user_id"`
	RewardID      uint             `gorm:"index;not null" json:"reward_id"`
	RewardName    string           `gorm:"size:191;not null" json:"reward_name"`
	Category      RewardCategory   `gorm:"size:32;not null" json:"category"`
	PointsSpent   int64            `gorm:"not null" json:"points_spent"`
	Code          string           `gorm:"size:64;not null;index" json:"code"`
	Status        RedemptionStatus `gorm:"size:16;not null" json:"status"`
	LedgerEntryID uint             `gorm:"not null" json:"ledger_entry_id"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
