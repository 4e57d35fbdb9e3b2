package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// StreakEngine runs daily check-ins.
type StreakEngine struct {
	*env
	ledger *Ledger
	quests *QuestTracker
}

// CheckInResult is returned by a successful check-in.
type CheckInResult struct {
	CheckInID     uint   `json:"check_in_id"`
	Day           string `json:"day"`
	PointsAwarded int64  `json:"points_awarded"`
	StreakDay     int    `json:"streak_day"`
	LongestStreak int    `json:"longest_streak"`
	Balance       int64  `json:"balance"`
}

// NextStreakDay continues the streak when the last check-in was the day
// before today, and resets it to 1 otherwise.
func NextStreakDay(lastCheckIn *time.Time, currentStreak int, today string) int {
	if lastCheckIn != nil && DayKey(*lastCheckIn) == PreviousDay(today) {
		return currentStreak + 1
	}
	return 1
}

// CheckIn records today's check-in, moves the streak, credits the award and
// advances check-in quests, all in one transaction. Points are granted right
// away; settlementRef is only tracked.
func (s *StreakEngine) CheckIn(ctx context.Context, userID uint, settlementRef string) (*CheckInResult, error) {
	// Quest lock before account lock. No path takes them the other way round.
	unlock, err := s.locks.Lock(ctx, questLockKey(userID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	now := s.clock()
	today := DayKey(now)

	var result CheckInResult
	err = s.ledger.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		var existing int64
		if err := tx.Model(&models.CheckIn{}).Where("user_id = ? AND day = ?", userID, today).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyCheckedInToday
		}

		streakDay := NextStreakDay(acct.LastCheckInAt, acct.CurrentStreak, today)
		points := s.rules.CheckInAward(streakDay)

		record := models.CheckIn{
			UserID:           userID,
			Day:              today,
			PointsAwarded:    points,
			StreakDay:        streakDay,
			SettlementRef:    truncate(settlementRef, 128),
			SettlementStatus: models.SettlementPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyCheckedInToday
			}
			return err
		}

		longest := acct.LongestStreak
		if streakDay > longest {
			longest = streakDay
		}
		if err := tx.Model(&models.UserAccount{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"current_streak":   streakDay,
			"longest_streak":   longest,
			"last_check_in_at": now,
		}).Error; err != nil {
			return err
		}
		acct.CurrentStreak = streakDay
		acct.LongestStreak = longest
		acct.LastCheckInAt = &now

		if _, err := s.ledger.CreditTx(tx, acct, points, fmt.Sprintf("Daily check-in (Day %d)", streakDay)); err != nil {
			return err
		}
		if err := s.quests.advanceTx(tx, userID, models.MetricCheckIn, 1, now); err != nil {
			return err
		}

		result = CheckInResult{
			CheckInID:     record.ID,
			Day:           today,
			PointsAwarded: points,
			StreakDay:     streakDay,
			LongestStreak: longest,
			Balance:       acct.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmSettlement records the external outcome of a check-in. It never
// touches the balance: the award was already credited at check-in time.
// Repeating the current final status is a no-op.
func (s *StreakEngine) ConfirmSettlement(ctx context.Context, userID uint, day string, status models.SettlementStatus) (*models.CheckIn, error) {
	if _, err := ParseDay(day); err != nil {
		return nil, err
	}
	if status != models.SettlementConfirmed && status != models.SettlementFailed {
		return nil, ErrInvalidSettlement
	}

	var record models.CheckIn
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND day = ?", userID, day).Take(&record).Error; err != nil {
			if isNotFound(err) {
				return ErrCheckInNotFound
			}
			return err
		}
		if record.SettlementStatus == status {
			return nil
		}
		if record.SettlementStatus != models.SettlementPending {
			return ErrSettlementFinal
		}
		res := tx.Model(&models.CheckIn{}).
			Where("id = ? AND settlement_status = ?", record.ID, models.SettlementPending).
			Update("settlement_status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSettlementFinal
		}
		record.SettlementStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == models.SettlementFailed {
		utils.Logger.Warn("check-in settlement failed; award stays credited",
			zap.Uint("user_id", userID),
			zap.Uint("check_in_id", record.ID),
			zap.String("day", day),
			zap.Int64("points", record.PointsAwarded),
			zap.String("settlement_ref", record.SettlementRef),
		)
	}
	utils.InvalidateByPrefix(AccountCachePrefix(userID))
	return &record, nil
}

// CheckInStatus is the advisory view of a user's check-in state.
type CheckInStatus struct {
	CheckedInToday bool       `json:"checked_in_today"`
	Today          string     `json:"today"`
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastCheckInAt  *time.Time `json:"last_check_in_at"`
	NextAward      int64      `json:"next_award"`
	Balance        int64      `json:"balance"`
	Level          int        `json:"level"`
}

// Status describes the account's streak. A streak whose last check-in is
// older than yesterday is reported as 0 since the next check-in resets it.
func (s *StreakEngine) Status(ctx context.Context, userID uint) (*CheckInStatus, error) {
	key := AccountCachePrefix(userID) + "checkin-status"
	var cached CheckInStatus
	now := s.clock()
	today := DayKey(now)
	if utils.CacheGetJSON(key, &cached) && cached.Today == today {
		return &cached, nil
	}

	var acct models.UserAccount
	if err := s.db.WithContext(ctx).First(&acct, userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	status := CheckInStatus{
		Today:         today,
		LongestStreak: acct.LongestStreak,
		LastCheckInAt: acct.LastCheckInAt,
		Balance:       acct.Balance,
		Level:         acct.Level,
	}
	if acct.LastCheckInAt != nil {
		switch DayKey(*acct.LastCheckInAt) {
		case today:
			status.CheckedInToday = true
			status.CurrentStreak = acct.CurrentStreak
		case PreviousDay(today):
			status.CurrentStreak = acct.CurrentStreak
		}
	}
	if status.CheckedInToday {
		// Award for tomorrow if the streak continues.
		status.NextAward = s.rules.CheckInAward(status.CurrentStreak + 1)
	} else {
		status.NextAward = s.rules.CheckInAward(NextStreakDay(acct.LastCheckInAt, acct.CurrentStreak, today))
	}

	utils.CacheSetJSON(key, status, 0)
	return &status, nil
}

// History lists the most recent check-ins.
func (s *StreakEngine) History(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	records := []models.CheckIn{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("day DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
