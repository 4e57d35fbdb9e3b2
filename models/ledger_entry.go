package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrImmutableEntry is returned when something tries to rewrite the ledger.
var ErrImmutableEntry = errors.New("ledger entries are append-only")

// LedgerEntry records one credit (positive) or debit (negative).
type LedgerEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Reason       string    `gorm:"size:255;not null" json:"reason"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}
