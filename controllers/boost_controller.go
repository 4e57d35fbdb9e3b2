package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// BoostController lists the caller's boosts.
type BoostController struct {
	svc *services.Services
}

func NewBoostController(svc *services.Services) *BoostController {
	return &BoostController{svc: svc}
}

// ListBoosts returns every boost and the percentage in effect now.
func (b *BoostController) ListBoosts(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	summary, err := b.svc.Boosts.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50040, "failed to load boosts")
		return
	}
	utils.Success(ctx, summary)
}
