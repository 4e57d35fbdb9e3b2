package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// QuestTracker records per-period progress and pays out claimed quests.
type QuestTracker struct {
	*env
	ledger *Ledger
	boosts *BoostEngine
}

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	QuestKey      string `json:"quest_key"`
	PeriodKey     string `json:"period_key"`
	BasePoints    int64  `json:"base_points"`
	PointsAwarded int64  `json:"points_awarded"`
	Balance       int64  `json:"balance"`
}

// QuestView is a quest with the caller's progress in the current period.
type QuestView struct {
	models.Quest
	PeriodKey string `json:"period_key"`
	Progress  int64  `json:"progress"`
	Completed bool   `json:"completed"`
	Claimed   bool   `json:"claimed"`
}

func questLockKey(userID uint) string {
	return fmt.Sprintf("lock:quest:%d", userID)
}

func (q *QuestTracker) findQuest(tx *gorm.DB, key string) (*models.Quest, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrQuestNotFound
	}
	var quest models.Quest
	if err := tx.Where(&models.Quest{Key: key}).Take(&quest).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	return &quest, nil
}

// UpdateProgress adds delta to a manually tracked quest for the current period.
func (q *QuestTracker) UpdateProgress(ctx context.Context, userID uint, questKey string, delta int64) (*models.QuestProgress, error) {
	if delta <= 0 {
		return nil, ErrInvalidProgress
	}
	unlock, err := q.locks.Lock(ctx, questLockKey(userID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	var progress *models.QuestProgress
	err = q.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		quest, err := q.findQuest(tx, questKey)
		if err != nil {
			return err
		}
		if !quest.Active {
			return ErrQuestInactive
		}
		if quest.Metric != models.MetricManual {
			return ErrQuestAutoTracked
		}
		progress, err = q.updateProgressTx(tx, userID, quest, delta, q.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateByPrefix(AccountCachePrefix(userID))
	return progress, nil
}

// Advance feeds delta into every active quest tracking metric. Each quest is
// updated in its own transaction; failures are joined and returned.
func (q *QuestTracker) Advance(ctx context.Context, userID uint, metric models.QuestMetric, delta int64) error {
	if delta <= 0 {
		return nil
	}
	var quests []models.Quest
	if err := q.db.WithContext(ctx).Where("metric = ? AND active = ?", metric, true).Order("id ASC").Find(&quests).Error; err != nil {
		return err
	}
	if len(quests) == 0 {
		return nil
	}

	unlock, err := q.locks.Lock(ctx, questLockKey(userID))
	if err != nil {
		return lockError(err)
	}
	defer unlock()

	now := q.clock()
	db := q.db.WithContext(context.WithoutCancel(ctx))
	var errs []error
	for i := range quests {
		quest := &quests[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := q.updateProgressTx(tx, userID, quest, delta, now)
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("quest %s: %w", quest.Key, err))
		}
	}
	utils.InvalidateByPrefix(AccountCachePrefix(userID))
	return errors.Join(errs...)
}

// advanceTx feeds delta into every active quest tracking metric inside tx.
// The caller holds the quest lock.
func (q *QuestTracker) advanceTx(tx *gorm.DB, userID uint, metric models.QuestMetric, delta int64, now time.Time) error {
	var quests []models.Quest
	if err := tx.Where("metric = ? AND active = ?", metric, true).Order("id ASC").Find(&quests).Error; err != nil {
		return err
	}
	for i := range quests {
		if _, err := q.updateProgressTx(tx, userID, &quests[i], delta, now); err != nil {
			return fmt.Errorf("quest %s: %w", quests[i].Key, err)
		}
	}
	return nil
}

// updateProgressTx expects the quest lock to be held.
func (q *QuestTracker) updateProgressTx(tx *gorm.DB, userID uint, quest *models.Quest, delta int64, now time.Time) (*models.QuestProgress, error) {
	periodKey := PeriodKey(quest.Period, now)

	var progress models.QuestProgress
	err := tx.Where("user_id = ? AND quest_id = ? AND period_key = ?", userID, quest.ID, periodKey).Take(&progress).Error
	if isNotFound(err) {
		progress = models.QuestProgress{
			UserID:    userID,
			QuestID:   quest.ID,
			PeriodKey: periodKey,
			Progress:  delta,
		}
		if delta >= quest.Requirement {
			progress.Completed = true
			progress.CompletedAt = &now
		}
		if err := tx.Create(&progress).Error; err != nil {
			if isDuplicate(err) {
				return nil, ErrDuplicate
			}
			return nil, err
		}
		q.logCompletion(userID, quest, &progress)
		return &progress, nil
	}
	if err != nil {
		return nil, err
	}

	wasCompleted := progress.Completed
	progress.Progress += delta
	updates := map[string]interface{}{"progress": progress.Progress}
	if !progress.Completed && progress.Progress >= quest.Requirement {
		progress.Completed = true
		progress.CompletedAt = &now
		updates["completed"] = true
		updates["completed_at"] = now
	}
	if err := tx.Model(&models.QuestProgress{}).Where("id = ?", progress.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	if !wasCompleted {
		q.logCompletion(userID, quest, &progress)
	}
	return &progress, nil
}

func (q *QuestTracker) logCompletion(userID uint, quest *models.Quest, progress *models.QuestProgress) {
	if progress.Completed {
		utils.Logger.Info("quest completed",
			zap.Uint("user_id", userID),
			zap.String("quest", quest.Key),
			zap.String("period", progress.PeriodKey),
		)
	}
}

// Claim pays the quest's reward for periodKey, or for the current period
// when periodKey is empty. Completed past periods stay claimable. The claimed
// flag and the credit commit together.
func (q *QuestTracker) Claim(ctx context.Context, userID uint, questKey, periodKey string) (*ClaimResult, error) {
	var result ClaimResult
	err := q.ledger.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		quest, err := q.findQuest(tx, questKey)
		if err != nil {
			return err
		}
		now := q.clock()
		periodKey, err = ClaimablePeriod(quest.Period, periodKey, now)
		if err != nil {
			return err
		}

		var progress models.QuestProgress
		err = tx.Where("user_id = ? AND quest_id = ? AND period_key = ?", userID, quest.ID, periodKey).Take(&progress).Error
		if isNotFound(err) {
			return ErrNotCompleted
		}
		if err != nil {
			return err
		}
		if progress.Claimed {
			return ErrAlreadyClaimed
		}
		if !progress.Completed {
			return ErrNotCompleted
		}

		points := quest.RewardPoints
		if quest.Boostable {
			if points, err = q.boosts.ApplyBoostTx(tx, userID, points, now); err != nil {
				return err
			}
		}

		res := tx.Model(&models.QuestProgress{}).
			Where("id = ? AND claimed = ? AND completed = ?", progress.ID, false, true).
			Updates(map[string]interface{}{"claimed": true, "claimed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyClaimed
		}

		if _, err := q.ledger.CreditTx(tx, acct, points, "Quest reward: "+quest.Title); err != nil {
			return err
		}
		result = ClaimResult{
			QuestKey:      quest.Key,
			PeriodKey:     periodKey,
			BasePoints:    quest.RewardPoints,
			PointsAwarded: points,
			Balance:       acct.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns active quests with the user's progress for the current
// period. A zero userID yields the definitions with empty progress.
func (q *QuestTracker) List(ctx context.Context, userID uint) ([]QuestView, error) {
	db := q.db.WithContext(ctx)
	var quests []models.Quest
	if err := db.Where("active = ?", true).Order("period ASC").Order("id ASC").Find(&quests).Error; err != nil {
		return nil, err
	}

	now := q.clock()
	progressByKey := map[string]models.QuestProgress{}
	if userID != 0 && len(quests) > 0 {
		var rows []models.QuestProgress
		keys := []string{DayKey(now), MonthKey(now)}
		if err := db.Where("user_id = ? AND period_key IN ?", userID, keys).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			progressByKey[fmt.Sprintf("%d:%s", row.QuestID, row.PeriodKey)] = row
		}
	}

	views := make([]QuestView, 0, len(quests))
	for _, quest := range quests {
		view := QuestView{Quest: quest, PeriodKey: PeriodKey(quest.Period, now)}
		if row, ok := progressByKey[fmt.Sprintf("%d:%s", quest.ID, view.PeriodKey)]; ok {
			view.Progress = row.Progress
			view.Completed = row.Completed
			view.Claimed = row.Claimed
		}
		views = append(views, view)
	}
	return views, nil
}
