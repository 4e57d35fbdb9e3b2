package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// RedemptionEngine exchanges points for catalog rewards.
type RedemptionEngine struct {
	*env
	ledger *Ledger
}

// RedeemResult carries the issued code back to the caller.
type RedeemResult struct {
	RedemptionID uint   `json:"redemption_id"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	PointsSpent  int64  `json:"points_spent"`
	Balance      int64  `json:"balance"`
}

// NewRedemptionCode returns the category prefix followed by a random suffix.
// Codes are not guaranteed unique.
func NewRedemptionCode(category models.RewardCategory) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return category.CodePrefix() + "-" + suffix
}

// Redeem debits the reward's cost and records the redemption in one transaction.
func (r *RedemptionEngine) Redeem(ctx context.Context, userID, rewardID uint) (*RedeemResult, error) {
	var result RedeemResult
	err := r.ledger.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		var item models.RewardCatalogItem
		if err := tx.First(&item, rewardID).Error; err != nil {
			if isNotFound(err) {
				return ErrRewardNotFound
			}
			return err
		}
		if !item.Active {
			return ErrRewardInactive
		}

		entry, err := r.ledger.DebitTx(tx, acct, item.PointsCost, "Redeemed: "+item.Name)
		if err != nil {
			return err
		}

		redemption := models.Redemption{
			UserID:        userID,
			RewardID:      item.ID,
			RewardName:    item.Name,
			Category:      item.Category,
			PointsSpent:   item.PointsCost,
			Code:          NewRedemptionCode(item.Category),
			Status:        models.RedemptionDelivered,
			LedgerEntryID: entry.ID,
			CreatedAt:     r.clock(),
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}

		result = RedeemResult{
			RedemptionID: redemption.ID,
			Code:         redemption.Code,
			Message:      fmt.Sprintf("%s redeemed. Your code: %s", item.Name, redemption.Code),
			PointsSpent:  item.PointsCost,
			Balance:      acct.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("reward redeemed",
		zap.Uint("user_id", userID),
		zap.Uint("reward_id", rewardID),
		zap.Uint("redemption_id", result.RedemptionID),
	)
	return &result, nil
}

// ListRedemptions returns the user's redemptions, newest first.
func (r *RedemptionEngine) ListRedemptions(ctx context.Context, userID uint, page, pageSize int) ([]models.Redemption, int64, error) {
	var total int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Redemption{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	list := []models.Redemption{}
	if err := db.Where("user_id = ?", userID).Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListRewards returns the catalog ordered by category then cost.
func (r *RedemptionEngine) ListRewards(ctx context.Context, activeOnly bool) ([]models.RewardCatalogItem, error) {
	items := []models.RewardCatalogItem{}
	q := r.db.WithContext(ctx).Model(&models.RewardCatalogItem{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("category ASC").Order("points_cost ASC").Find(&items).Error
	return items, err
}
