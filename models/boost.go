package models

import "time"

// Boost is a time-bounded percentage multiplier granted by an external
// source such as an NFT. A nil ExpiresAt counts as already expired.
type Boost struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_boost_user_source" json:"user_id"`
	SourceID    string     `gorm:"size:191;not null;uniqueIndex:idx_boost_user_source" json:"source_id"`
	Percentage  int        `gorm:"not null" json:"percentage"`
	Active      bool       `gorm:"not null" json:"active"`
	ActivatedAt time.Time  `gorm:"not null" json:"activated_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Boost) TableName() string {
	return "boosts"
}

// EffectiveAt reports whether the boost counts toward multipliers at now.
func (b Boost) EffectiveAt(now time.Time) bool {
	return b.Active && b.ExpiresAt != nil && b.ExpiresAt.After(now)
}
