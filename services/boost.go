package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// BoostEngine tracks multipliers granted by external assets. Expiry is
// evaluated when boosts are read; nothing sweeps expired rows.
type BoostEngine struct {
	*env
}

func boostLockKey(userID uint) string {
	return fmt.Sprintf("lock:boost:%d", userID)
}

// Activate creates or re-arms the boost for (user, source). Re-arming
// replaces the percentage, restarts the window at now and marks it active.
// duration <= 0 uses the configured window.
func (b *BoostEngine) Activate(ctx context.Context, userID uint, sourceID string, percentage int, duration time.Duration) (*models.Boost, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || len(sourceID) > 191 {
		return nil, ErrInvalidBoostSource
	}
	if percentage <= 0 || percentage > b.rules.MaxBoostPercent {
		return nil, ErrInvalidBoostPercent
	}
	if duration <= 0 {
		duration = b.rules.BoostWindow
	}

	unlock, err := b.locks.Lock(ctx, boostLockKey(userID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	now := b.clock()
	expires := now.Add(duration)
	var boost models.Boost
	err = b.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var acct models.UserAccount
		if err := tx.Select("id").First(&acct, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND source_id = ?", userID, sourceID).Take(&boost).Error
		switch {
		case isNotFound(err):
			boost = models.Boost{
				UserID:      userID,
				SourceID:    sourceID,
				Percentage:  percentage,
				Active:      true,
				ActivatedAt: now,
				ExpiresAt:   &expires,
			}
			if err := tx.Create(&boost).Error; err != nil {
				if isDuplicate(err) {
					return ErrDuplicate
				}
				return err
			}
			return nil
		case err != nil:
			return err
		}

		if err := tx.Model(&models.Boost{}).Where("id = ?", boost.ID).Updates(map[string]interface{}{
			"percentage":   percentage,
			"active":       true,
			"activated_at": now,
			"expires_at":   expires,
		}).Error; err != nil {
			return err
		}
		boost.Percentage = percentage
		boost.Active = true
		boost.ActivatedAt = now
		boost.ExpiresAt = &expires
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("boost activated",
		zap.Uint("user_id", userID),
		zap.String("source_id", sourceID),
		zap.Int("percentage", percentage),
		zap.Time("expires_at", expires),
	)
	return &boost, nil
}

// Deactivate switches a boost off, e.g. when the asset leaves the wallet.
func (b *BoostEngine) Deactivate(ctx context.Context, userID uint, sourceID string) (*models.Boost, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, ErrInvalidBoostSource
	}
	unlock, err := b.locks.Lock(ctx, boostLockKey(userID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	var boost models.Boost
	db := b.db.WithContext(context.WithoutCancel(ctx))
	if err := db.Where("user_id = ? AND source_id = ?", userID, sourceID).Take(&boost).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrBoostNotFound
		}
		return nil, err
	}
	if err := db.Model(&models.Boost{}).Where("id = ?", boost.ID).Update("active", false).Error; err != nil {
		return nil, err
	}
	boost.Active = false
	return &boost, nil
}

// Boosted applies an additive percentage: floor(base * (100 + pct) / 100).
// Results beyond int64 saturate at math.MaxInt64.
func Boosted(base int64, totalPercent int) int64 {
	if base <= 0 || totalPercent <= 0 {
		return base
	}
	factor := int64(100 + totalPercent)
	if base <= math.MaxInt64/factor {
		return base * factor / 100
	}
	// base*factor/100 == (base/100)*factor + (base%100)*factor/100
	whole, rest := base/100, base%100
	if whole > math.MaxInt64/factor {
		return math.MaxInt64
	}
	hi, lo := whole*factor, rest*factor/100
	if hi > math.MaxInt64-lo {
		return math.MaxInt64
	}
	return hi + lo
}

// TotalPercentTx sums the percentages of boosts that are active and unexpired at now.
func (b *BoostEngine) TotalPercentTx(tx *gorm.DB, userID uint, now time.Time) (int, error) {
	var boosts []models.Boost
	if err := tx.Where("user_id = ? AND active = ? AND expires_at > ?", userID, true, now).Find(&boosts).Error; err != nil {
		return 0, err
	}
	total := 0
	for _, boost := range boosts {
		if boost.EffectiveAt(now) {
			total += boost.Percentage
		}
	}
	return total, nil
}

// ApplyBoost returns basePoints multiplied by the user's effective boosts at now.
// It reads only.
func (b *BoostEngine) ApplyBoost(ctx context.Context, userID uint, basePoints int64, now time.Time) (int64, error) {
	return b.ApplyBoostTx(b.db.WithContext(ctx), userID, basePoints, now)
}

// ApplyBoostTx is ApplyBoost inside an existing transaction.
func (b *BoostEngine) ApplyBoostTx(tx *gorm.DB, userID uint, basePoints int64, now time.Time) (int64, error) {
	total, err := b.TotalPercentTx(tx, userID, now)
	if err != nil {
		return 0, err
	}
	return Boosted(basePoints, total), nil
}

// BoostView is a boost with its state evaluated at a given instant.
type BoostView struct {
	models.Boost
	Effective bool `json:"effective"`
}

// BoostSummary lists every boost and the percentage currently in effect.
type BoostSummary struct {
	Boosts       []BoostView `json:"boosts"`
	TotalPercent int         `json:"total_percent"`
}

// List returns all boosts of the user, expired ones included.
func (b *BoostEngine) List(ctx context.Context, userID uint) (*BoostSummary, error) {
	now := b.clock()
	var boosts []models.Boost
	if err := b.db.WithContext(ctx).Where("user_id = ?", userID).Order("activated_at DESC").Find(&boosts).Error; err != nil {
		return nil, err
	}
	summary := &BoostSummary{Boosts: make([]BoostView, 0, len(boosts))}
	for _, boost := range boosts {
		eff := boost.EffectiveAt(now)
		if eff {
			summary.TotalPercent += boost.Percentage
		}
		summary.Boosts = append(summary.Boosts, BoostView{Boost: boost, Effective: eff})
	}
	return summary, nil
}
