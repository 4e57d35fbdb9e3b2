package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// PlaytimeController exposes recorded playtime.
type PlaytimeController struct {
	svc *services.Services
}

func NewPlaytimeController(svc *services.Services) *PlaytimeController {
	return &PlaytimeController{svc: svc}
}

// ListTitles returns the caller's titles with cumulative minutes.
func (p *PlaytimeController) ListTitles(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	titles, err := p.svc.Playtime.ListTitles(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50070, "failed to load titles")
		return
	}
	utils.Success(ctx, gin.H{"items": titles})
}

// ListDaily returns per-day deltas between from and to (YYYY-MM-DD).
func (p *PlaytimeController) ListDaily(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	records, err := p.svc.Playtime.ListDaily(ctx.Request.Context(), userID, ctx.Query("from"), ctx.Query("to"))
	if err != nil {
		respondError(ctx, err, 50071, "failed to load playtime")
		return
	}
	utils.Success(ctx, gin.H{"items": records})
}
