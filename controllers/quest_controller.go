package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// QuestController handles quest progress and claims.
type QuestController struct {
	svc *services.Services
}

func NewQuestController(svc *services.Services) *QuestController {
	return &QuestController{svc: svc}
}

// ListQuests returns active quests with the caller's progress this period.
func (q *QuestController) ListQuests(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	views, err := q.svc.Quests.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50060, "failed to load quests")
		return
	}
	utils.Success(ctx, gin.H{"items": views})
}

type progressRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// UpdateProgress advances a manually tracked quest.
func (q *QuestController) UpdateProgress(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	var req progressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidProgress.Code, "invalid request payload")
		return
	}
	progress, err := q.svc.Quests.UpdateProgress(ctx.Request.Context(), userID, ctx.Param("key"), req.Delta)
	if err != nil {
		respondError(ctx, err, 50061, "failed to update quest progress")
		return
	}
	utils.Success(ctx, progress)
}

type claimRequest struct {
	Period string `json:"period"`
}

// Claim pays out a completed quest once per period. The period comes from
// the body or the query and defaults to the current one.
func (q *QuestController) Claim(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	req := claimRequest{Period: ctx.Query("period")}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidPeriod.Code, "invalid request payload")
			return
		}
	}
	result, err := q.svc.Quests.Claim(ctx.Request.Context(), userID, ctx.Param("key"), strings.TrimSpace(req.Period))
	if err != nil {
		respondError(ctx, err, 50062, "failed to claim quest")
		return
	}
	utils.Success(ctx, result)
}
