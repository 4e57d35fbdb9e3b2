package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// ServiceController receives events from the game-library sync and the
// wallet flow. Users are addressed by identity handle.
type ServiceController struct {
	svc *services.Services
}

func NewServiceController(svc *services.Services) *ServiceController {
	return &ServiceController{svc: svc}
}

type playtimeRequest struct {
	Handle      string              `json:"handle" binding:"required"`
	DisplayName string              `json:"display_name"`
	Snapshots   []services.Snapshot `json:"snapshots" binding:"required"`
}

// IngestPlaytime applies one playtime sync.
func (s *ServiceController) IngestPlaytime(ctx *gin.Context) {
	var req playtimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidSnapshot.Code, "invalid request payload")
		return
	}
	acct, err := s.svc.Accounts.Ensure(ctx.Request.Context(), req.Handle, req.DisplayName)
	if err != nil {
		respondError(ctx, err, 50010, "failed to resolve account")
		return
	}
	result, err := s.svc.Playtime.Ingest(ctx.Request.Context(), acct.ID, req.Snapshots)
	if err != nil {
		respondError(ctx, err, 50072, "failed to ingest playtime")
		return
	}
	utils.Success(ctx, result)
}

type boostRequest struct {
	Handle       string `json:"handle" binding:"required"`
	SourceID     string `json:"source_id" binding:"required"`
	Percentage   int    `json:"percentage"`
	DurationDays int    `json:"duration_days"`
	Active       *bool  `json:"active"`
}

// ActivateBoost arms or re-arms a boost. active=false switches it off instead.
func (s *ServiceController) ActivateBoost(ctx *gin.Context) {
	var req boostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidBoostSource.Code, "invalid request payload")
		return
	}

	if req.Active != nil && !*req.Active {
		acct, err := s.svc.Accounts.FindByHandle(ctx.Request.Context(), req.Handle)
		if err != nil {
			respondError(ctx, err, 50010, "failed to resolve account")
			return
		}
		boost, err := s.svc.Boosts.Deactivate(ctx.Request.Context(), acct.ID, req.SourceID)
		if err != nil {
			respondError(ctx, err, 50041, "failed to deactivate boost")
			return
		}
		utils.Success(ctx, boost)
		return
	}

	acct, err := s.svc.Accounts.Ensure(ctx.Request.Context(), req.Handle, "")
	if err != nil {
		respondError(ctx, err, 50010, "failed to resolve account")
		return
	}
	var duration time.Duration
	if req.DurationDays > 0 {
		duration = time.Duration(req.DurationDays) * 24 * time.Hour
	}
	boost, err := s.svc.Boosts.Activate(ctx.Request.Context(), acct.ID, req.SourceID, req.Percentage, duration)
	if err != nil {
		respondError(ctx, err, 50042, "failed to activate boost")
		return
	}
	utils.Success(ctx, boost)
}

type settlementRequest struct {
	Handle string `json:"handle" binding:"required"`
	Day    string `json:"day" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// ConfirmSettlement records the external outcome of a check-in.
func (s *ServiceController) ConfirmSettlement(ctx *gin.Context) {
	var req settlementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, services.ErrInvalidSettlement.Code, "invalid request payload")
		return
	}
	acct, err := s.svc.Accounts.FindByHandle(ctx.Request.Context(), req.Handle)
	if err != nil {
		respondError(ctx, err, 50010, "failed to resolve account")
		return
	}
	status := models.SettlementStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	record, err := s.svc.Streaks.ConfirmSettlement(ctx.Request.Context(), acct.ID, req.Day, status)
	if err != nil {
		respondError(ctx, err, 50033, "failed to record settlement")
		return
	}
	utils.Success(ctx, record)
}
