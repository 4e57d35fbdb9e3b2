package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// StatsController provides the leaderboard and economy-wide counters.
type StatsController struct {
	db  *gorm.DB
	svc *services.Services
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, svc *services.Services) *StatsController {
	return &StatsController{db: db, svc: svc}
}

// GetLeaderboard ranks accounts by balance.
func (s *StatsController) GetLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	rows, err := s.svc.Accounts.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err, 50090, "failed to load leaderboard")
		return
	}
	utils.Success(ctx, gin.H{"items": rows})
}

// GetStats returns aggregate counters for the economy.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var accountCount int64
	var pointsInCirculation int64
	var checkInsToday int64
	var redemptionCount int64

	if err := s.db.Model(&models.UserAccount{}).Count(&accountCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		accountCount = 0
	}

	if err := s.db.Model(&models.UserAccount{}).
		Select("COALESCE(SUM(balance),0)").
		Scan(&pointsInCirculation).Error; err != nil {
		pointsInCirculation = 0
	}

	// Day keys are stored as strings, compare by equality
	today := services.DayKey(time.Now())
	if err := s.db.Model(&models.CheckIn{}).Where("day = ?", today).Count(&checkInsToday).Error; err != nil {
		checkInsToday = 0
	}

	if err := s.db.Model(&models.Redemption{}).Count(&redemptionCount).Error; err != nil {
		redemptionCount = 0
	}

	utils.Success(ctx, gin.H{
		"account_count":         accountCount,
		"points_in_circulation": pointsInCirculation,
		"check_ins_today":       checkInsToday,
		"redemption_count":      redemptionCount,
	})
}
