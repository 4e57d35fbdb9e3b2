package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/models"
)

func (f *fixture) setStreak(t *testing.T, userID uint, last time.Time, current int) {
	t.Helper()
	err := f.db.Model(&models.UserAccount{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_check_in_at": last,
		"current_streak":   current,
		"longest_streak":   current,
	}).Error
	if err != nil {
		t.Fatalf("set streak: %v", err)
	}
}

func TestCheckInAward(t *testing.T) {
	r := DefaultRules()
	cases := map[int]int64{1: 10, 6: 10, 7: 15, 13: 15, 14: 20, 70: 60, 700: 60}
	for day, want := range cases {
		if got := r.CheckInAward(day); got != want {
			t.Fatalf("day %d: expected %d, got %d", day, want, got)
		}
	}
}

func TestRulesFromConfigAllowsNoStreakBonus(t *testing.T) {
	r := RulesFromConfig(config.AppConfig{CheckInBasePoints: 12, StreakBonusEvery: 7})
	for _, day := range []int{1, 7, 70} {
		if got := r.CheckInAward(day); got != 12 {
			t.Fatalf("day %d: expected flat 12, got %d", day, got)
		}
	}
}

func TestCheckInContinuesStreak(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:10")
	f.setStreak(t, acct.ID, testNow.AddDate(0, 0, -1), 6)

	res, err := f.svc.Streaks.CheckIn(context.Background(), acct.ID, "tx-1")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.StreakDay != 7 || res.PointsAwarded != 15 {
		t.Fatalf("expected day 7 for 15 points, got day %d for %d", res.StreakDay, res.PointsAwarded)
	}
	if res.LongestStreak != 7 {
		t.Fatalf("expected longest streak 7, got %d", res.LongestStreak)
	}

	got := f.reload(t, acct.ID)
	if got.Balance != 15 || got.CurrentStreak != 7 {
		t.Fatalf("unexpected account after check-in: %+v", got)
	}
	f.assertReconciled(t, acct.ID)

	var entry models.LedgerEntry
	if err := f.db.Where("user_id = ?", acct.ID).Take(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Reason != "Daily check-in (Day 7)" {
		t.Fatalf("unexpected reason %q", entry.Reason)
	}
}

func TestCheckInResetsAfterGap(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:11")
	f.setStreak(t, acct.ID, testNow.AddDate(0, 0, -3), 12)

	res, err := f.svc.Streaks.CheckIn(context.Background(), acct.ID, "")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.StreakDay != 1 || res.PointsAwarded != 10 {
		t.Fatalf("expected reset to day 1 for 10 points, got day %d for %d", res.StreakDay, res.PointsAwarded)
	}
	if res.LongestStreak != 12 {
		t.Fatalf("expected longest streak to stay 12, got %d", res.LongestStreak)
	}
}

func TestCheckInTwiceSameDayConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:12")

	if _, err := f.svc.Streaks.CheckIn(ctx, acct.ID, ""); err != nil {
		t.Fatalf("first check in: %v", err)
	}
	f.now = testNow.Add(11 * time.Hour)
	_, err := f.svc.Streaks.CheckIn(ctx, acct.ID, "")
	expectErr(t, err, ErrAlreadyCheckedInToday)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", KindOf(err))
	}

	if got := f.reload(t, acct.ID); got.Balance != 10 {
		t.Fatalf("expected one award of 10, got %d", got.Balance)
	}
}

func TestCheckInNextDayContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:13")

	for i := 0; i < 7; i++ {
		f.now = testNow.AddDate(0, 0, i)
		if _, err := f.svc.Streaks.CheckIn(ctx, acct.ID, ""); err != nil {
			t.Fatalf("day %d: %v", i, err)
		}
	}
	got := f.reload(t, acct.ID)
	if got.CurrentStreak != 7 || got.Balance != 6*10+15 {
		t.Fatalf("expected streak 7 and balance 75, got %d and %d", got.CurrentStreak, got.Balance)
	}
	f.assertReconciled(t, acct.ID)
}

func TestConcurrentCheckInsCreditOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:14")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Streaks.CheckIn(ctx, acct.ID, "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) != KindConflict:
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
	if n := f.count(t, &models.CheckIn{}, "user_id = ?", acct.ID); n != 1 {
		t.Fatalf("expected one check-in row, got %d", n)
	}
	if n := f.count(t, &models.LedgerEntry{}, "user_id = ?", acct.ID); n != 1 {
		t.Fatalf("expected one ledger entry, got %d", n)
	}
}

func TestUniqueIndexBacksUpCheckInGate(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:15")
	row := models.CheckIn{UserID: acct.ID, Day: DayKey(testNow), PointsAwarded: 10, StreakDay: 1, SettlementStatus: models.SettlementPending}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := row
	dup.ID = 0
	if err := f.db.Create(&dup).Error; !isDuplicate(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestConfirmSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:16")
	res, err := f.svc.Streaks.CheckIn(ctx, acct.ID, "0xabc")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}

	record, err := f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, res.Day, models.SettlementFailed)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if record.SettlementStatus != models.SettlementFailed {
		t.Fatalf("expected failed status, got %s", record.SettlementStatus)
	}
	// Repeating the same outcome is harmless.
	if _, err := f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, res.Day, models.SettlementFailed); err != nil {
		t.Fatalf("repeat settle: %v", err)
	}
	_, err = f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, res.Day, models.SettlementConfirmed)
	expectErr(t, err, ErrSettlementFinal)

	// The award is never reversed.
	if got := f.reload(t, acct.ID); got.Balance != res.PointsAwarded {
		t.Fatalf("expected balance %d, got %d", res.PointsAwarded, got.Balance)
	}

	_, err = f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, "2026-13-40", models.SettlementConfirmed)
	expectErr(t, err, ErrInvalidDay)
	_, err = f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, res.Day, models.SettlementPending)
	expectErr(t, err, ErrInvalidSettlement)
	_, err = f.svc.Streaks.ConfirmSettlement(ctx, acct.ID, "2020-01-01", models.SettlementConfirmed)
	expectErr(t, err, ErrCheckInNotFound)
}

func TestStatusReportsBrokenStreakAsZero(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:17")
	f.setStreak(t, acct.ID, testNow.AddDate(0, 0, -2), 9)

	status, err := f.svc.Streaks.Status(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CheckedInToday || status.CurrentStreak != 0 || status.LongestStreak != 9 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.NextAward != 10 {
		t.Fatalf("expected next award 10, got %d", status.NextAward)
	}
}

func TestCheckInRollsBackWhenQuestProgressFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:58")
	f.quest(t, models.Quest{Key: "show-up", Title: "Show up", Metric: models.MetricCheckIn, Requirement: 1, RewardPoints: 5})

	errStore := errors.New("progress store down")
	const hook = "streak_test:fail_progress"
	if err := f.db.Callback().Create().Before("gorm:create").Register(hook, func(db *gorm.DB) {
		if db.Statement.Table == "quest_progress" {
			_ = db.AddError(errStore)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err := f.svc.Streaks.CheckIn(ctx, acct.ID, "")
	if !errors.Is(err, errStore) {
		t.Fatalf("expected %v, got %v", errStore, err)
	}
	if n := f.count(t, &models.CheckIn{}, "user_id = ?", acct.ID); n != 0 {
		t.Fatalf("expected no check-in row, got %d", n)
	}
	if got := f.reload(t, acct.ID); got.Balance != 0 || got.CurrentStreak != 0 {
		t.Fatalf("expected untouched account, got %+v", got)
	}

	if err := f.db.Callback().Create().Remove(hook); err != nil {
		t.Fatalf("remove callback: %v", err)
	}
	if _, err := f.svc.Streaks.CheckIn(ctx, acct.ID, ""); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if n := f.count(t, &models.QuestProgress{}, "user_id = ? AND completed = ?", acct.ID, true); n != 1 {
		t.Fatalf("expected completed check-in quest, got %d", n)
	}
	f.assertReconciled(t, acct.ID)
}
