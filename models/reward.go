package models

import "time"

// RewardCategory is the closed set of reward kinds the catalog can hold.
type RewardCategory string

const (
	RewardSteamWallet RewardCategory = "steam_wallet"
	RewardAmazon      RewardCategory = "amazon"
	RewardNintendo    RewardCategory = "nintendo"
	RewardPlayStation RewardCategory = "playstation"
	RewardXbox        RewardCategory = "xbox"
)

var codePrefixes = map[RewardCategory]string{
	RewardSteamWallet: "STEAM",
	RewardAmazon:      "AMAZON",
	RewardNintendo:    "NINTENDO",
	RewardPlayStation: "PSN",
	RewardXbox:        "XBOX",
}

// Valid reports whether c is a known category.
func (c RewardCategory) Valid() bool {
	_, ok := codePrefixes[c]
	return ok
}

// CodePrefix is the uppercase prefix used for redemption codes.
func (c RewardCategory) CodePrefix() string {
	if p, ok := codePrefixes[c]; ok {
		return p
	}
	return "REWARD"
}

// RewardCatalogItem is a redeemable reward. Name is the natural key used when seeding.
type RewardCatalogItem struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:191;not null;uniqueIndex" json:"name"`
	Category   RewardCategory `gorm:"size:32;not null;index" json:"category"`
	PointsCost int64          `gorm:"not null" json:"points_cost"`
	Value      int            `gorm:"not null;default:0" json:"value"`
	Currency   string         `gorm:"size:8" json:"currency"`
	Active     bool           `gorm:"not null" json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (RewardCatalogItem) TableName() string {
	return "reward_catalog"
}
