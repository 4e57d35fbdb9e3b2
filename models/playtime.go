package models

import "time"

// GameTitle is the per-user profile of one title. CumulativeMinutes is the
// last accepted snapshot and is what new snapshots are diffed against.
type GameTitle struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;uniqueIndex:idx_title_user_title" json:"user_id"`
	TitleID           string     `gorm:"size:64;not null;uniqueIndex:idx_title_user_title" json:"title_id"`
	Name              string     `gorm:"size:255" json:"name"`
	CumulativeMinutes int64      `gorm:"not null;default:0" json:"cumulative_minutes"`
	LastPlayedAt      *time.Time `json:"last_played_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (GameTitle) TableName() string {
	return "game_titles"
}

// DailyPlaytime holds the minutes played on one title during one UTC day.
type DailyPlaytime struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_playtime_user_title_day" json:"user_id"`
	TitleID   string    `gorm:"size:64;not null;uniqueIndex:idx_playtime_user_title_day" json:"title_id"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:idx_playtime_user_title_day;index" json:"day"`
	Minutes   int64     `gorm:"not null;default:0" json:"minutes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyPlaytime) TableName() string {
	return "daily_playtime"
}
