package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// LedgerController exposes the caller's balance history.
type LedgerController struct {
	svc *services.Services
}

func NewLedgerController(svc *services.Services) *LedgerController {
	return &LedgerController{svc: svc}
}

// ListEntries returns ledger entries newest first.
func (l *LedgerController) ListEntries(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	page, size := pageParams(ctx)
	entries, total, err := l.svc.Ledger.ListEntries(ctx.Request.Context(), userID, page, size)
	if err != nil {
		respondError(ctx, err, 50020, "failed to load ledger")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      entries,
		"pagination": utils.NewPagination(page, size, total),
	})
}
