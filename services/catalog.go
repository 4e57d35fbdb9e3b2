package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// Catalog bootstraps rewards and quests from a file at deploy time.
type Catalog struct {
	*env
}

type RewardSpec struct {
	Name       string `mapstructure:"name"`
	Category   string `mapstructure:"category"`
	PointsCost int64  `mapstructure:"points_cost"`
	Value      int    `mapstructure:"value"`
	Currency   string `mapstructure:"currency"`
	Active     *bool  `mapstructure:"active"`
}

type QuestSpec struct {
	Key          string `mapstructure:"key"`
	Title        string `mapstructure:"title"`
	Description  string `mapstructure:"description"`
	Period       string `mapstructure:"period"`
	Metric       string `mapstructure:"metric"`
	Requirement  int64  `mapstructure:"requirement"`
	RewardPoints int64  `mapstructure:"reward_points"`
	Boostable    bool   `mapstructure:"boostable"`
	Active       *bool  `mapstructure:"active"`
}

// CatalogFile is the decoded bootstrap document.
type CatalogFile struct {
	Rewards []RewardSpec `mapstructure:"rewards"`
	Quests  []QuestSpec  `mapstructure:"quests"`
}

// SeedReport counts what a seed run wrote.
type SeedReport struct {
	RewardsCreated int `json:"rewards_created"`
	RewardsSkipped int `json:"rewards_skipped"`
	QuestsCreated  int `json:"quests_created"`
	QuestsSkipped  int `json:"quests_skipped"`
}

// LoadCatalogFile reads a yaml, json or toml catalog document.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var file CatalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (r RewardSpec) model() (*models.RewardCatalogItem, error) {
	name := strings.TrimSpace(r.Name)
	category := models.RewardCategory(strings.ToLower(strings.TrimSpace(r.Category)))
	if name == "" || !category.Valid() || r.PointsCost <= 0 {
		return nil, fmt.Errorf("reward %q: %w", r.Name, ErrInvalidCatalog)
	}
	return &models.RewardCatalogItem{
		Name:       name,
		Category:   category,
		PointsCost: r.PointsCost,
		Value:      r.Value,
		Currency:   strings.ToUpper(strings.TrimSpace(r.Currency)),
		Active:     r.Active == nil || *r.Active,
	}, nil
}

func (q QuestSpec) model() (*models.Quest, error) {
	key := strings.TrimSpace(q.Key)
	period := models.QuestPeriod(strings.ToLower(strings.TrimSpace(q.Period)))
	metric := models.QuestMetric(strings.ToLower(strings.TrimSpace(q.Metric)))
	if metric == "" {
		metric = models.MetricManual
	}
	switch {
	case key == "", strings.TrimSpace(q.Title) == "":
		return nil, fmt.Errorf("quest %q: %w", q.Key, ErrInvalidCatalog)
	case period != models.QuestDaily && period != models.QuestMonthly:
		return nil, fmt.Errorf("quest %q period %q: %w", q.Key, q.Period, ErrInvalidCatalog)
	case metric != models.MetricManual && metric != models.MetricCheckIn && metric != models.MetricPlaytimeMinutes:
		return nil, fmt.Errorf("quest %q metric %q: %w", q.Key, q.Metric, ErrInvalidCatalog)
	case q.Requirement <= 0 || q.RewardPoints <= 0:
		return nil, fmt.Errorf("quest %q: %w", q.Key, ErrInvalidCatalog)
	}
	return &models.Quest{
		Key:          key,
		Title:        strings.TrimSpace(q.Title),
		Description:  strings.TrimSpace(q.Description),
		Period:       period,
		Metric:       metric,
		Requirement:  q.Requirement,
		RewardPoints: q.RewardPoints,
		Boostable:    q.Boostable,
		Active:       q.Active == nil || *q.Active,
	}, nil
}

// Seed inserts entries that do not exist yet, matching rewards by name and
// quests by key. Existing rows are left untouched, so running it again is a no-op.
func (c *Catalog) Seed(ctx context.Context, file *CatalogFile) (*SeedReport, error) {
	if file == nil {
		return &SeedReport{}, nil
	}
	rewards := make([]*models.RewardCatalogItem, 0, len(file.Rewards))
	for _, spec := range file.Rewards {
		item, err := spec.model()
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, item)
	}
	quests := make([]*models.Quest, 0, len(file.Quests))
	for _, spec := range file.Quests {
		quest, err := spec.model()
		if err != nil {
			return nil, err
		}
		quests = append(quests, quest)
	}

	report := &SeedReport{}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range rewards {
			var count int64
			if err := tx.Model(&models.RewardCatalogItem{}).Where("name = ?", item.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				report.RewardsSkipped++
				continue
			}
			if err := tx.Create(item).Error; err != nil {
				if isDuplicate(err) {
					report.RewardsSkipped++
					continue
				}
				return err
			}
			report.RewardsCreated++
		}
		for _, quest := range quests {
			var count int64
			if err := tx.Model(&models.Quest{}).Where(&models.Quest{Key: quest.Key}).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				report.QuestsSkipped++
				continue
			}
			if err := tx.Create(quest).Error; err != nil {
				if isDuplicate(err) {
					report.QuestsSkipped++
					continue
				}
				return err
			}
			report.QuestsCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.Logger.Info("catalog seeded",
		zap.Int("rewards_created", report.RewardsCreated),
		zap.Int("rewards_skipped", report.RewardsSkipped),
		zap.Int("quests_created", report.QuestsCreated),
		zap.Int("quests_skipped", report.QuestsSkipped),
	)
	return report, nil
}
