package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// RewardController serves the catalog and redemptions.
type RewardController struct {
	svc *services.Services
}

func NewRewardController(svc *services.Services) *RewardController {
	return &RewardController{svc: svc}
}

// ListRewards returns active catalog items.
func (r *RewardController) ListRewards(ctx *gin.Context) {
	items, err := r.svc.Redemptions.ListRewards(ctx.Request.Context(), true)
	if err != nil {
		respondError(ctx, err, 50050, "failed to load rewards")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Redeem exchanges points for a reward and returns the issued code.
func (r *RewardController) Redeem(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	rewardID, ok := uintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid reward id")
		return
	}
	result, err := r.svc.Redemptions.Redeem(ctx.Request.Context(), userID, rewardID)
	if err != nil {
		respondError(ctx, err, 50051, "failed to redeem reward")
		return
	}
	utils.Success(ctx, result)
}

// ListRedemptions returns the caller's redemption history.
func (r *RewardController) ListRedemptions(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	page, size := pageParams(ctx)
	list, total, err := r.svc.Redemptions.ListRedemptions(ctx.Request.Context(), userID, page, size)
	if err != nil {
		respondError(ctx, err, 50052, "failed to load redemptions")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      list,
		"pagination": utils.NewPagination(page, size, total),
	})
}
