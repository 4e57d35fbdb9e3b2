package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/playpoints/ledger/models"
)

func TestBoostedIsAdditive(t *testing.T) {
	cases := []struct {
		base int64
		pct  int
		want int64
	}{
		{100, 25, 125},
		{100, 0, 100},
		{7, 10, 7},
		{15, 50, 22},
		{0, 50, 0},
		{math.MaxInt64 / 100, 100, 2 * (math.MaxInt64 / 100)},
		{math.MaxInt64 / 2, 100, math.MaxInt64 - 1},
		{math.MaxInt64, 10, math.MaxInt64},
	}
	for _, c := range cases {
		if got := Boosted(c.base, c.pct); got != c.want {
			t.Fatalf("Boosted(%d, %d): expected %d, got %d", c.base, c.pct, c.want, got)
		}
	}
}

func TestApplyBoostSumsActiveBoosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:20")

	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft-a", 10, 0); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft-b", 15, 0); err != nil {
		t.Fatalf("activate b: %v", err)
	}

	got, err := f.svc.Boosts.ApplyBoost(ctx, acct.ID, 100, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != 125 {
		t.Fatalf("expected 125, got %d", got)
	}
}

func TestExpiredBoostContributesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:21")

	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xshort", 10, time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xlong", 15, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	got, err := f.svc.Boosts.ApplyBoost(ctx, acct.ID, 100, testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != 115 {
		t.Fatalf("expected 115, got %d", got)
	}

	// The default window is 30 days.
	got, err = f.svc.Boosts.ApplyBoost(ctx, acct.ID, 100, testNow.Add(31*24*time.Hour))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != 100 {
		t.Fatalf("expected unboosted 100, got %d", got)
	}
}

func TestBoostWithoutExpiryCountsAsExpired(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t, "github:22")
	row := models.Boost{UserID: acct.ID, SourceID: "legacy", Percentage: 50, Active: true, ActivatedAt: testNow}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if row.EffectiveAt(testNow) {
		t.Fatal("expected nil expiry to be ineffective")
	}
	got, err := f.svc.Boosts.ApplyBoost(context.Background(), acct.ID, 100, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestReactivationRearmsBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:23")

	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft", 10, time.Hour); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.svc.Boosts.Deactivate(ctx, acct.ID, "0xnft"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got, _ := f.svc.Boosts.ApplyBoost(ctx, acct.ID, 100, testNow); got != 100 {
		t.Fatalf("expected deactivated boost to be ignored, got %d", got)
	}

	f.now = testNow.Add(48 * time.Hour)
	boost, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft", 20, 0)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !boost.Active || boost.Percentage != 20 || !boost.ActivatedAt.Equal(f.now) {
		t.Fatalf("expected re-armed boost, got %+v", boost)
	}
	if n := f.count(t, &models.Boost{}, "user_id = ?", acct.ID); n != 1 {
		t.Fatalf("expected one boost row, got %d", n)
	}

	summary, err := f.svc.Boosts.List(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if summary.TotalPercent != 20 || len(summary.Boosts) != 1 || !summary.Boosts[0].Effective {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestActivateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:24")

	_, err := f.svc.Boosts.Activate(ctx, acct.ID, " ", 10, 0)
	expectErr(t, err, ErrInvalidBoostSource)
	_, err = f.svc.Boosts.Activate(ctx, acct.ID, "0x1", 0, 0)
	expectErr(t, err, ErrInvalidBoostPercent)
	_, err = f.svc.Boosts.Activate(ctx, acct.ID, "0x1", 101, 0)
	expectErr(t, err, ErrInvalidBoostPercent)
	_, err = f.svc.Boosts.Activate(ctx, 4242, "0x1", 10, 0)
	expectErr(t, err, ErrAccountNotFound)
	_, err = f.svc.Boosts.Deactivate(ctx, acct.ID, "0xmissing")
	expectErr(t, err, ErrBoostNotFound)
}

func TestGrantAppliesBoostOnlyWhenAsked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:25")
	if _, err := f.svc.Boosts.Activate(ctx, acct.ID, "0xnft", 50, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	plain, err := f.svc.Grant(ctx, acct.ID, 100, "plain", false)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	boosted, err := f.svc.Grant(ctx, acct.ID, 100, "boosted", true)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if plain.Amount != 100 || boosted.Amount != 150 {
		t.Fatalf("expected 100 and 150, got %d and %d", plain.Amount, boosted.Amount)
	}
	f.assertReconciled(t, acct.ID)
}
