package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playpoints/ledger/middleware"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// AdminController holds operator endpoints: manual credits and audits.
type AdminController struct {
	svc *services.Services
}

func NewAdminController(svc *services.Services) *AdminController {
	return &AdminController{svc: svc}
}

type creditRequest struct {
	Handle string `json:"handle" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Boost  bool   `json:"boost"`
}

// Credit grants points to a user, optionally multiplied by their boosts.
func (a *AdminController) Credit(ctx *gin.Context) {
	var req creditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidAmount.Code, "invalid request payload")
		return
	}
	acct, err := a.svc.Accounts.FindByHandle(ctx.Request.Context(), req.Handle)
	if err != nil {
		respondError(ctx, err, 50010, "failed to resolve account")
		return
	}
	reason := utils.CleanText(req.Reason, 200)
	entry, err := a.svc.Grant(ctx.Request.Context(), acct.ID, req.Amount, reason, req.Boost)
	if err != nil {
		respondError(ctx, err, 50021, "failed to credit account")
		return
	}
	utils.Logger.Info("admin credit",
		zap.String("admin", ctx.GetString(middleware.ContextHandleKey)),
		zap.String("handle", acct.Handle),
		zap.Int64("amount", entry.Amount),
	)
	utils.Success(ctx, entry)
}

// Reconcile checks one account against its ledger.
func (a *AdminController) Reconcile(ctx *gin.Context) {
	acct, err := a.svc.Accounts.FindByHandle(ctx.Request.Context(), ctx.Param("handle"))
	if err != nil {
		respondError(ctx, err, 50010, "failed to resolve account")
		return
	}
	rec, err := a.svc.Auditor.Reconcile(ctx.Request.Context(), acct.ID)
	if err != nil {
		respondError(ctx, err, 50080, "failed to reconcile account")
		return
	}
	utils.Success(ctx, rec)
}

// ReconcileAll audits every account and returns the mismatches.
func (a *AdminController) ReconcileAll(ctx *gin.Context) {
	batch, _ := strconv.Atoi(ctx.DefaultQuery("batch", "200"))
	report, err := a.svc.Auditor.ReconcileAll(ctx.Request.Context(), batch)
	if err != nil {
		respondError(ctx, err, 50081, "failed to reconcile accounts")
		return
	}
	utils.Success(ctx, report)
}
