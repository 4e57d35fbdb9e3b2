package services

import (
	"context"
	"testing"
	"time"

	"github.com/playpoints/ledger/models"
)

func (f *fixture) quest(t *testing.T, q models.Quest) *models.Quest {
	t.Helper()
	if q.Period == "" {
		q.Period = models.QuestDaily
	}
	if q.Metric == "" {
		q.Metric = models.MetricManual
	}
	q.Active = true
	if err := f.db.Create(&q).Error; err != nil {
		t.Fatalf("create quest: %v", err)
	}
	return &q
}

func TestQuestProgressCompletesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:50")
	f.quest(t, models.Quest{Key: "share", Title: "Share", Requirement: 3, RewardPoints: 20})

	p, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, "share", 2)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Completed {
		t.Fatal("expected incomplete quest at 2/3")
	}
	p, err = f.svc.Quests.UpdateProgress(ctx, acct.ID, "share", 5)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !p.Completed || p.Progress != 7 || p.CompletedAt == nil {
		t.Fatalf("expected completed at 7, got %+v", p)
	}
	if p.PeriodKey != DayKey(testNow) {
		t.Fatalf("expected period %s, got %s", DayKey(testNow), p.PeriodKey)
	}
}

func TestQuestClaimFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:51")
	f.quest(t, models.Quest{Key: "share", Title: "Share", Requirement: 1, RewardPoints: 20})

	_, err := f.svc.Quests.Claim(ctx, acct.ID, "share", "")
	expectErr(t, err, ErrNotCompleted)

	if _, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, "share", 1); err != nil {
		t.Fatalf("progress: %v", err)
	}
	res, err := f.svc.Quests.Claim(ctx, acct.ID, "share", "")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.PointsAwarded != 20 || res.Balance != 20 {
		t.Fatalf("unexpected claim %+v", res)
	}

	_, err = f.svc.Quests.Claim(ctx, acct.ID, "share", "")
	expectErr(t, err, ErrAlreadyClaimed)
	if got := f.reload(t, acct.ID); got.Balance != 20 {
		t.Fatalf("expected single payout, got balance %d", got.Balance)
	}
	f.assertReconciled(t, acct.ID)

	// A new day is a new period.
	f.now = testNow.Add(24 * time.Hour)
	_, err = f.svc.Quests.Claim(ctx, acct.ID, "share", "")
	expectErr(t, err, ErrNotCompleted)
}

func TestBoostableQuestClaimIsBoosted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:52")
	f.quest(t, models.Quest{Key: "grind", Title: "Grind", Requirement: 1, RewardPoints: 100, Boostable: true})
	f.quest(t, models.Quest{Key: "plain", Title: "Plain", Requirement: 1, RewardPoints: 100})
	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft", 10, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	for _, key := range []string{"grind", "plain"} {
		if _, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, key, 1); err != nil {
			t.Fatalf("progress %s: %v", key, err)
		}
	}
	boosted, err := f.svc.Quests.Claim(ctx, acct.ID, "grind", "")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	plain, err := f.svc.Quests.Claim(ctx, acct.ID, "plain", "")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if boosted.PointsAwarded != 110 || plain.PointsAwarded != 100 {
		t.Fatalf("expected 110 and 100, got %d and %d", boosted.PointsAwarded, plain.PointsAwarded)
	}
}

func TestAutoTrackedQuestsFollowEngines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:53")
	f.quest(t, models.Quest{Key: "show-up", Title: "Show up", Metric: models.MetricCheckIn, Requirement: 1, RewardPoints: 5})
	f.quest(t, models.Quest{Key: "play", Title: "Play", Metric: models.MetricPlaytimeMinutes, Period: models.QuestMonthly, Requirement: 60, RewardPoints: 50})

	_, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, "show-up", 1)
	expectErr(t, err, ErrQuestAutoTracked)

	if _, err := f.svc.Streaks.CheckIn(ctx, acct.ID, ""); err != nil {
		t.Fatalf("check in: %v", err)
	}
	if _, err := f.svc.Playtime.Ingest(ctx, acct.ID, []Snapshot{{TitleID: "1", CumulativeMinutes: 0}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := f.svc.Playtime.Ingest(ctx, acct.ID, []Snapshot{{TitleID: "1", CumulativeMinutes: 90}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	views, err := f.svc.Quests.List(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byKey := map[string]QuestView{}
	for _, v := range views {
		byKey[v.Key] = v
	}
	if !byKey["show-up"].Completed {
		t.Fatalf("expected check-in quest completed, got %+v", byKey["show-up"])
	}
	if play := byKey["play"]; !play.Completed || play.Progress != 90 || play.PeriodKey != MonthKey(testNow) {
		t.Fatalf("expected playtime quest at 90 for %s, got %+v", MonthKey(testNow), play)
	}

	if _, err := f.svc.Quests.Claim(ctx, acct.ID, "play", ""); err != nil {
		t.Fatalf("claim: %v", err)
	}
	f.assertReconciled(t, acct.ID)
}

func TestQuestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:54")
	q := f.quest(t, models.Quest{Key: "old", Title: "Old", Requirement: 1, RewardPoints: 1})
	if err := f.db.Model(q).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, "missing", 1)
	expectErr(t, err, ErrQuestNotFound)
	_, err = f.svc.Quests.UpdateProgress(ctx, acct.ID, "old", 1)
	expectErr(t, err, ErrQuestInactive)
	_, err = f.svc.Quests.UpdateProgress(ctx, acct.ID, "old", 0)
	expectErr(t, err, ErrInvalidProgress)
	_, err = f.svc.Quests.Claim(ctx, acct.ID, "missing", "")
	expectErr(t, err, ErrQuestNotFound)
}

func TestQuestProgressIsUniquePerPeriod(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:55")
	q := f.quest(t, models.Quest{Key: "k", Title: "K", Requirement: 1, RewardPoints: 1})
	row := models.QuestProgress{UserID: acct.ID, QuestID: q.ID, PeriodKey: DayKey(testNow)}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := row
	dup.ID = 0
	if err := f.db.Create(&dup).Error; !isDuplicate(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestCompletedQuestClaimableAfterPeriodEnds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:56")
	f.quest(t, models.Quest{Key: "late", Title: "Late night", Requirement: 1, RewardPoints: 15})

	f.now = time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	if _, err := f.svc.Quests.UpdateProgress(ctx, acct.ID, "late", 1); err != nil {
		t.Fatalf("progress: %v", err)
	}

	f.now = time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	_, err := f.svc.Quests.Claim(ctx, acct.ID, "late", "")
	expectErr(t, err, ErrNotCompleted)

	res, err := f.svc.Quests.Claim(ctx, acct.ID, "late", "2026-03-14")
	if err != nil {
		t.Fatalf("claim previous day: %v", err)
	}
	if res.PeriodKey != "2026-03-14" || res.PointsAwarded != 15 {
		t.Fatalf("expected 15 points for 2026-03-14, got %+v", res)
	}
	_, err = f.svc.Quests.Claim(ctx, acct.ID, "late", "2026-03-14")
	expectErr(t, err, ErrAlreadyClaimed)
	f.assertReconciled(t, acct.ID)
}

func TestClaimRejectsMalformedOrFuturePeriods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:57")
	f.quest(t, models.Quest{Key: "daily", Title: "Daily", Requirement: 1, RewardPoints: 5})
	f.quest(t, models.Quest{Key: "monthly", Title: "Monthly", Period: models.QuestMonthly, Requirement: 1, RewardPoints: 5})

	cases := []struct {
		quest  string
		period string
	}{
		{"daily", "2026-03"},
		{"daily", "2026-3-1"},
		{"daily", "2026-03-15"},
		{"monthly", "2026-03-14"},
		{"monthly", "2026-04"},
	}
	for _, tc := range cases {
		t.Run(tc.quest+"/"+tc.period, func(t *testing.T) {
			_, err := f.svc.Quests.Claim(ctx, acct.ID, tc.quest, tc.period)
			expectErr(t, err, ErrInvalidPeriod)
		})
	}
}
