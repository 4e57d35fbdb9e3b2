package services

import (
	"time"

	"github.com/playpoints/ledger/config"
)

// Rules holds the economy constants.
type Rules struct {
	CheckInBase      int64
	StreakBonusEvery int
	StreakBonusStep  int64
	StreakBonusCap   int64
	BoostWindow      time.Duration
	MaxBoostPercent  int
	LevelStep        int64
}

// DefaultRules: 10 points per check-in, +5 per full week of streak capped at +50, 30 day boosts.
func DefaultRules() Rules {
	return Rules{
		CheckInBase:      10,
		StreakBonusEvery: 7,
		StreakBonusStep:  5,
		StreakBonusCap:   50,
		BoostWindow:      30 * 24 * time.Hour,
		MaxBoostPercent:  100,
		LevelStep:        500,
	}
}

// RulesFromConfig reads the economy settings.
func RulesFromConfig(c config.AppConfig) Rules {
	r := DefaultRules()
	if c.CheckInBasePoints > 0 {
		r.CheckInBase = int64(c.CheckInBasePoints)
	}
	if c.StreakBonusEvery > 0 {
		r.StreakBonusEvery = c.StreakBonusEvery
	}
	if c.StreakBonusStep >= 0 {
		r.StreakBonusStep = int64(c.StreakBonusStep)
	}
	if c.StreakBonusCap >= 0 {
		r.StreakBonusCap = int64(c.StreakBonusCap)
	}
	if c.BoostWindowDays > 0 {
		r.BoostWindow = time.Duration(c.BoostWindowDays) * 24 * time.Hour
	}
	if c.MaxBoostPercent > 0 {
		r.MaxBoostPercent = c.MaxBoostPercent
	}
	if c.LevelStepPoints > 0 {
		r.LevelStep = int64(c.LevelStepPoints)
	}
	return r
}

// CheckInAward is base + min(floor(streakDay/every)*step, cap).
func (r Rules) CheckInAward(streakDay int) int64 {
	bonus := int64(streakDay/r.StreakBonusEvery) * r.StreakBonusStep
	if bonus > r.StreakBonusCap {
		bonus = r.StreakBonusCap
	}
	return r.CheckInBase + bonus
}

// LevelFor derives the coarse level from lifetime earnings.
func (r Rules) LevelFor(totalEarned int64) int {
	if totalEarned <= 0 || r.LevelStep <= 0 {
		return 1
	}
	return int(totalEarned/r.LevelStep) + 1
}
