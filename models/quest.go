package models

import "time"

// QuestPeriod decides how progress is bucketed.
type QuestPeriod string

const (
	QuestDaily   QuestPeriod = "daily"
	QuestMonthly QuestPeriod = "monthly"
)

// QuestMetric names the signal that moves a quest forward.
type QuestMetric string

const (
	MetricManual          QuestMetric = "manual"
	MetricCheckIn         QuestMetric = "check_in"
	MetricPlaytimeMinutes QuestMetric = "playtime_minutes"
)

// Quest is a catalog definition. Key is the natural identifier used when seeding.
type Quest struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Key          string      `gorm:"size:64;not null;uniqueIndex" json:"key"`
	Title        string      `gorm:"size:191;not null" json:"title"`
	Description  string      `gorm:"size:512" json:"description"`
	Period       QuestPeriod `gorm:"size:16;not null" json:"period"`
	Metric       QuestMetric `gorm:"size:32;not null;index" json:"metric"`
	Requirement  int64       `gorm:"not null" json:"requirement"`
	RewardPoints int64       `gorm:"not null" json:"reward_points"`
	Boostable    bool        `gorm:"not null" json:"boostable"`
	Active       bool        `gorm:"not null" json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Quest) TableName() string {
	return "quests"
}

// QuestProgress is unique per (user, quest, period key). Completed and
// Claimed only ever move from false to true.
type QuestProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_quest_progress_key" json:"user_id"`
	QuestID     uint       `gorm:"not null;uniqueIndex:idx_quest_progress_key" json:"quest_id"`
	PeriodKey   string     `gorm:"size:10;not null;uniqueIndex:idx_quest_progress_key" json:"period_key"`
	Progress    int64      `gorm:"not null;default:0" json:"progress"`
	Completed   bool       `gorm:"not null" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Claimed     bool       `gorm:"not null" json:"claimed"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (QuestProgress) TableName() string {
	return "quest_progress"
}
