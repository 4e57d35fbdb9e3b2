package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// Accounts maps identity handles to ledger accounts.
type Accounts struct {
	*env
}

// Ensure returns the account for handle, creating it with a zero balance on first sight.
func (a *Accounts) Ensure(ctx context.Context, handle, displayName string) (*models.UserAccount, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrUnauthenticated
	}
	db := a.db.WithContext(ctx)

	var acct models.UserAccount
	err := db.Where("handle = ?", handle).Take(&acct).Error
	if err == nil {
		return &acct, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	acct = models.UserAccount{
		Handle:      truncate(handle, 191),
		DisplayName: utils.CleanText(displayName, 64),
		Level:       1,
	}
	if err := db.Create(&acct).Error; err != nil {
		if !isDuplicate(err) {
			return nil, err
		}
		// Another request created it first.
		if err := db.Where("handle = ?", handle).Take(&acct).Error; err != nil {
			return nil, err
		}
		return &acct, nil
	}
	utils.Logger.Info("account created", zap.Uint("user_id", acct.ID), zap.String("handle", acct.Handle))
	return &acct, nil
}

// Get loads an account by id.
func (a *Accounts) Get(ctx context.Context, userID uint) (*models.UserAccount, error) {
	var acct models.UserAccount
	if err := a.db.WithContext(ctx).First(&acct, userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// FindByHandle loads an account by its identity handle.
func (a *Accounts) FindByHandle(ctx context.Context, handle string) (*models.UserAccount, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrAccountNotFound
	}
	var acct models.UserAccount
	if err := a.db.WithContext(ctx).Where("handle = ?", handle).Take(&acct).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// LeaderboardRow is one ranked account.
type LeaderboardRow struct {
	Rank          int    `json:"rank"`
	Handle        string `json:"handle"`
	DisplayName   string `json:"display_name"`
	Balance       int64  `json:"balance"`
	Level         int    `json:"level"`
	LongestStreak int    `json:"longest_streak"`
}

// Leaderboard ranks accounts by balance. Results are cached briefly.
func (a *Accounts) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := fmt.Sprintf("cache:leaderboard:%d", limit)
	var rows []LeaderboardRow
	if utils.CacheGetJSON(key, &rows) {
		return rows, nil
	}

	var accts []models.UserAccount
	if err := a.db.WithContext(ctx).Order("balance DESC").Order("id ASC").Limit(limit).Find(&accts).Error; err != nil {
		return nil, err
	}
	rows = make([]LeaderboardRow, 0, len(accts))
	for i, acct := range accts {
		rows = append(rows, LeaderboardRow{
			Rank:          i + 1,
			Handle:        acct.Handle,
			DisplayName:   acct.DisplayName,
			Balance:       acct.Balance,
			Level:         acct.Level,
			LongestStreak: acct.LongestStreak,
		})
	}
	utils.CacheSetJSON(key, rows, time.Minute)
	return rows, nil
}
