package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// ConfigController serves the environment-driven economy rules.
type ConfigController struct {
	rules services.Rules
}

func NewConfigController(rules services.Rules) *ConfigController {
	return &ConfigController{rules: rules}
}

// GetRules returns the point rules so clients can explain awards.
func (c *ConfigController) GetRules(ctx *gin.Context) {
	r := c.rules
	utils.Success(ctx, gin.H{
		"check_in": gin.H{
			"base_points":        r.CheckInBase,
			"streak_bonus_every": r.StreakBonusEvery,
			"streak_bonus_step":  r.StreakBonusStep,
			"streak_bonus_cap":   r.StreakBonusCap,
		},
		"boost": gin.H{
			"window_days":    int(r.BoostWindow.Hours() / 24),
			"max_percentage": r.MaxBoostPercent,
			"stacking":       "additive",
		},
		"level_step_points": r.LevelStep,
		"timezone":          "UTC",
	})
}
