package models

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&UserAccount{},
		&LedgerEntry{},
		&CheckIn{},
		&Boost{},
		&GameTitle{},
		&DailyPlaytime{},
		&RewardCatalogItem{},
		&Redemption{},
		&Quest{},
		&QuestProgress{},
	}
}
