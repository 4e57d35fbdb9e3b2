package services

import (
	"time"

	"github.com/playpoints/ledger/models"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// DayKey is the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// MonthKey is the UTC calendar month of t.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// PreviousDay returns the day key before day. day must be a valid key.
func PreviousDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dayLayout)
}

// ParseDay validates a YYYY-MM-DD key.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return t, nil
}

// PeriodKey buckets now by the quest's period.
func PeriodKey(period models.QuestPeriod, now time.Time) string {
	if period == models.QuestMonthly {
		return MonthKey(now)
	}
	return DayKey(now)
}

// ClaimablePeriod resolves the period key a claim targets. An empty key is
// the current period. Keys must match the quest's period layout and must not
// be in the future.
func ClaimablePeriod(period models.QuestPeriod, key string, now time.Time) (string, error) {
	current := PeriodKey(period, now)
	if key == "" {
		return current, nil
	}
	layout := dayLayout
	if period == models.QuestMonthly {
		layout = monthLayout
	}
	t, err := time.Parse(layout, key)
	if err != nil || t.Format(layout) != key || key > current {
		return "", ErrInvalidPeriod
	}
	return key, nil
}
