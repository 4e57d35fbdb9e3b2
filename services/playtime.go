package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// PlaytimeTracker turns cumulative per-title snapshots into daily deltas.
// It never awards points; quests consume the minutes it records.
type PlaytimeTracker struct {
	*env
	quests *QuestTracker
}

// Snapshot is one title as reported by the game-library sync.
type Snapshot struct {
	TitleID           string     `json:"title_id"`
	Name              string     `json:"name"`
	CumulativeMinutes int64      `json:"cumulative_minutes"`
	LastPlayedAt      *time.Time `json:"last_played_at"`
}

// TitleDelta is the outcome for one title of an ingest.
type TitleDelta struct {
	TitleID      string `json:"title_id"`
	DeltaMinutes int64  `json:"delta_minutes"`
	NewTitle     bool   `json:"new_title"`
}

// IngestResult summarises one sync.
type IngestResult struct {
	Day          string       `json:"day"`
	Titles       []TitleDelta `json:"titles"`
	TotalMinutes int64        `json:"total_minutes"`
}

func playtimeLockKey(userID uint) string {
	return fmt.Sprintf("lock:playtime:%d", userID)
}

// normalizeSnapshots validates the batch and keeps the highest cumulative
// value when a title appears more than once.
func normalizeSnapshots(snapshots []Snapshot) ([]Snapshot, error) {
	byTitle := make(map[string]Snapshot, len(snapshots))
	for _, snap := range snapshots {
		snap.TitleID = strings.TrimSpace(snap.TitleID)
		if snap.TitleID == "" || len(snap.TitleID) > 64 || snap.CumulativeMinutes < 0 {
			return nil, ErrInvalidSnapshot
		}
		snap.Name = utils.CleanText(snap.Name, 255)
		if prev, ok := byTitle[snap.TitleID]; ok && prev.CumulativeMinutes >= snap.CumulativeMinutes {
			continue
		}
		byTitle[snap.TitleID] = snap
	}
	out := make([]Snapshot, 0, len(byTitle))
	for _, snap := range byTitle {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TitleID < out[j].TitleID })
	return out, nil
}

// Ingest applies one sync for the user. The first snapshot of a title only
// sets the baseline; later snapshots add max(0, cumulative-previous) to
// today's record.
func (p *PlaytimeTracker) Ingest(ctx context.Context, userID uint, snapshots []Snapshot) (*IngestResult, error) {
	snaps, err := normalizeSnapshots(snapshots)
	if err != nil {
		return nil, err
	}

	unlock, err := p.locks.Lock(ctx, playtimeLockKey(userID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	now := p.clock()
	result := &IngestResult{Day: DayKey(now), Titles: make([]TitleDelta, 0, len(snaps))}
	err = p.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var acct models.UserAccount
		if err := tx.Select("id").First(&acct, userID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		for _, snap := range snaps {
			delta, err := p.ingestTitle(tx, userID, snap, result.Day)
			if err != nil {
				return err
			}
			result.Titles = append(result.Titles, delta)
			result.TotalMinutes += delta.DeltaMinutes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.TotalMinutes > 0 {
		utils.InvalidateByPrefix(AccountCachePrefix(userID))
		if err := p.quests.Advance(ctx, userID, models.MetricPlaytimeMinutes, result.TotalMinutes); err != nil {
			utils.Logger.Warn("playtime quest progress failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	utils.Logger.Info("playtime ingested",
		zap.Uint("user_id", userID),
		zap.Int("titles", len(result.Titles)),
		zap.Int64("minutes", result.TotalMinutes),
	)
	return result, nil
}

func (p *PlaytimeTracker) ingestTitle(tx *gorm.DB, userID uint, snap Snapshot, day string) (TitleDelta, error) {
	out := TitleDelta{TitleID: snap.TitleID}

	var title models.GameTitle
	err := tx.Where("user_id = ? AND title_id = ?", userID, snap.TitleID).Take(&title).Error
	if isNotFound(err) {
		title = models.GameTitle{
			UserID:            userID,
			TitleID:           snap.TitleID,
			Name:              snap.Name,
			CumulativeMinutes: snap.CumulativeMinutes,
			LastPlayedAt:      snap.LastPlayedAt,
		}
		if err := tx.Create(&title).Error; err != nil {
			if isDuplicate(err) {
				return out, ErrDuplicate
			}
			return out, err
		}
		out.NewTitle = true
		return out, nil
	}
	if err != nil {
		return out, err
	}

	updates := map[string]interface{}{}
	if snap.Name != "" && snap.Name != title.Name {
		updates["name"] = snap.Name
	}
	if snap.LastPlayedAt != nil && (title.LastPlayedAt == nil || !snap.LastPlayedAt.Equal(*title.LastPlayedAt)) {
		updates["last_played_at"] = snap.LastPlayedAt
	}

	delta := snap.CumulativeMinutes - title.CumulativeMinutes
	if delta > 0 {
		if err := addDailyMinutes(tx, userID, snap.TitleID, day, delta); err != nil {
			return out, err
		}
		updates["cumulative_minutes"] = snap.CumulativeMinutes
		out.DeltaMinutes = delta
	}

	if len(updates) > 0 {
		if err := tx.Model(&models.GameTitle{}).Where("id = ?", title.ID).Updates(updates).Error; err != nil {
			return out, err
		}
	}
	return out, nil
}

func addDailyMinutes(tx *gorm.DB, userID uint, titleID, day string, delta int64) error {
	var record models.DailyPlaytime
	err := tx.Where("user_id = ? AND title_id = ? AND day = ?", userID, titleID, day).Take(&record).Error
	if isNotFound(err) {
		record = models.DailyPlaytime{UserID: userID, TitleID: titleID, Day: day, Minutes: delta}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(&models.DailyPlaytime{}).Where("id = ?", record.ID).
		Update("minutes", gorm.Expr("minutes + ?", delta)).Error
}

// ListTitles returns the user's titles, most played first.
func (p *PlaytimeTracker) ListTitles(ctx context.Context, userID uint) ([]models.GameTitle, error) {
	titles := []models.GameTitle{}
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("cumulative_minutes DESC").Order("id ASC").Find(&titles).Error
	return titles, err
}

// ListDaily returns daily records between from and to inclusive. Empty
// bounds default to the last 30 days.
func (p *PlaytimeTracker) ListDaily(ctx context.Context, userID uint, from, to string) ([]models.DailyPlaytime, error) {
	now := p.clock()
	if to == "" {
		to = DayKey(now)
	}
	if from == "" {
		from = DayKey(now.AddDate(0, 0, -29))
	}
	if _, err := ParseDay(from); err != nil {
		return nil, err
	}
	if _, err := ParseDay(to); err != nil {
		return nil, err
	}

	records := []models.DailyPlaytime{}
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND day >= ? AND day <= ?", userID, from, to).
		Order("day DESC").Order("title_id ASC").Find(&records).Error
	return records, err
}
