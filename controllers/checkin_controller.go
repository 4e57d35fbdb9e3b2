package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	svc *services.Services
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(svc *services.Services) *CheckInController {
	return &CheckInController{svc: svc}
}

type checkInRequest struct {
	SettlementRef string `json:"settlement_ref"`
}

// CheckIn records today's check-in and credits the streak award.
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	var req checkInRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid request payload")
			return
		}
	}

	result, err := c.svc.Streaks.CheckIn(ctx.Request.Context(), userID, req.SettlementRef)
	if err != nil {
		respondError(ctx, err, 50030, "failed to record check-in")
		return
	}
	utils.Success(ctx, result)
}

// Status is advisory: anonymous or unknown callers get a zero status.
func (c *CheckInController) Status(ctx *gin.Context) {
	rules := c.svc.Rules()
	empty := services.CheckInStatus{
		Level:     1,
		NextAward: rules.CheckInAward(1),
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Success(ctx, empty)
		return
	}
	status, err := c.svc.Streaks.Status(ctx.Request.Context(), userID)
	if err != nil {
		if services.KindOf(err) == services.KindNotFound {
			utils.Success(ctx, empty)
			return
		}
		respondError(ctx, err, 50031, "failed to load check-in status")
		return
	}
	utils.Success(ctx, status)
}

// History lists recent check-ins with their settlement state.
func (c *CheckInController) History(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "30"))
	records, err := c.svc.Streaks.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err, 50032, "failed to load check-in history")
		return
	}
	utils.Success(ctx, gin.H{"items": records})
}
