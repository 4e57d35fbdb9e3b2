package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// Ledger owns the account balance. Nothing else writes the balance column.
type Ledger struct {
	*env
}

func accountLockKey(userID uint) string {
	return fmt.Sprintf("lock:account:%d", userID)
}

// AccountCachePrefix prefixes every cached read derived from one account.
func AccountCachePrefix(userID uint) string {
	return fmt.Sprintf("cache:account:%d:", userID)
}

// WithAccount runs fn in a transaction holding the account lock and a row
// lock on the account. Once the lock is held the work is not cancellable:
// the transaction runs to commit or rollback even if ctx is cancelled.
func (l *Ledger) WithAccount(ctx context.Context, userID uint, fn func(tx *gorm.DB, acct *models.UserAccount) error) error {
	unlock, err := l.locks.Lock(ctx, accountLockKey(userID))
	if err != nil {
		return lockError(err)
	}
	defer unlock()

	err = l.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var acct models.UserAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acct, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		return fn(tx, &acct)
	})
	if err == nil {
		utils.InvalidateByPrefix(AccountCachePrefix(userID))
	}
	return err
}

// Credit adds amount to the balance and appends the matching entry.
func (l *Ledger) Credit(ctx context.Context, userID uint, amount int64, reason string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := l.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		var err error
		entry, err = l.CreditTx(tx, acct, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Debit removes amount from the balance. It fails with ErrInsufficientBalance
// and changes nothing when the balance is lower than amount.
func (l *Ledger) Debit(ctx context.Context, userID uint, amount int64, reason string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := l.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		var err error
		entry, err = l.DebitTx(tx, acct, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditTx is Credit for callers already inside WithAccount.
func (l *Ledger) CreditTx(tx *gorm.DB, acct *models.UserAccount, amount int64, reason string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidReason
	}

	if amount > math.MaxInt64-acct.Balance || amount > math.MaxInt64-acct.TotalEarned {
		return nil, ErrAmountOverflow
	}
	balance := acct.Balance + amount
	earned := acct.TotalEarned + amount
	level := l.rules.LevelFor(earned)
	if err := tx.Model(&models.UserAccount{}).Where("id = ?", acct.ID).Updates(map[string]interface{}{
		"balance":      balance,
		"total_earned": earned,
		"level":        level,
		"updated_at":   l.clock(),
	}).Error; err != nil {
		return nil, err
	}

	entry, err := l.appendEntry(tx, acct.ID, amount, reason, balance)
	if err != nil {
		return nil, err
	}
	acct.Balance = balance
	acct.TotalEarned = earned
	acct.Level = level

	utils.Logger.Info("ledger credit",
		zap.Uint("user_id", acct.ID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("balance", balance),
	)
	return entry, nil
}

// DebitTx is Debit for callers already inside WithAccount.
func (l *Ledger) DebitTx(tx *gorm.DB, acct *models.UserAccount, amount int64, reason string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidReason
	}
	if acct.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	if amount > math.MaxInt64-acct.TotalSpent {
		return nil, ErrAmountOverflow
	}
	balance := acct.Balance - amount
	spent := acct.TotalSpent + amount
	if err := tx.Model(&models.UserAccount{}).Where("id = ?", acct.ID).Updates(map[string]interface{}{
		"balance":     balance,
		"total_spent": spent,
		"updated_at":  l.clock(),
	}).Error; err != nil {
		return nil, err
	}

	entry, err := l.appendEntry(tx, acct.ID, -amount, reason, balance)
	if err != nil {
		return nil, err
	}
	acct.Balance = balance
	acct.TotalSpent = spent

	utils.Logger.Info("ledger debit",
		zap.Uint("user_id", acct.ID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("balance", balance),
	)
	return entry, nil
}

func (l *Ledger) appendEntry(tx *gorm.DB, userID uint, amount int64, reason string, balanceAfter int64) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{
		UserID:       userID,
		Amount:       amount,
		Reason:       truncate(reason, 255),
		BalanceAfter: balanceAfter,
		CreatedAt:    l.clock(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the account's entries newest first.
func (l *Ledger) ListEntries(ctx context.Context, userID uint, page, pageSize int) ([]models.LedgerEntry, int64, error) {
	var total int64
	db := l.db.WithContext(ctx)
	if err := db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	entries := []models.LedgerEntry{}
	if err := db.Where("user_id = ?", userID).Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func truncate(s string, max int) string {
	if rs := []rune(s); len(rs) > max {
		return string(rs[:max])
	}
	return s
}
