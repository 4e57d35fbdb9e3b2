package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
)

func TestReconcileAllFindsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.account(t, "github:60")
	bad := f.account(t, "github:61")
	for _, id := range []uint{good.ID, bad.ID} {
		if _, err := f.svc.Ledger.Credit(ctx, id, 40, "seed"); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	if _, err := f.svc.Ledger.Debit(ctx, good.ID, 15, "spend"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	// Simulate an out-of-band write that bypassed the ledger.
	if err := f.db.Model(&models.UserAccount{}).Where("id = ?", bad.ID).Update("balance", 1000).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	report, err := f.svc.Auditor.ReconcileAll(ctx, 1)
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if report.Accounts != 2 || len(report.Mismatches) != 1 {
		t.Fatalf("expected 1 mismatch across 2 accounts, got %+v", report)
	}
	m := report.Mismatches[0]
	if m.UserID != bad.ID || m.Balance != 1000 || m.EntriesSum != 40 {
		t.Fatalf("unexpected mismatch %+v", m)
	}

	rec, err := f.svc.Auditor.Reconcile(ctx, good.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent || rec.EntriesSum != 25 || rec.CreditsSum != 40 || rec.DebitsSum != 15 || rec.Entries != 2 {
		t.Fatalf("unexpected reconciliation %+v", rec)
	}

	if err := f.svc.Auditor.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestReconcileAllRereadsAccountsCommittedMidPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, "github:62")
	if _, err := f.svc.Ledger.Credit(ctx, acct.ID, 40, "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Commit a credit right after the pass first reads the accounts table.
	fired := false
	err := f.db.Callback().Query().After("gorm:query").Register("audit_test:credit_mid_pass", func(db *gorm.DB) {
		if fired || db.Statement.Table != "user_accounts" {
			return
		}
		fired = true
		if _, err := f.svc.Ledger.Credit(context.Background(), acct.ID, 5, "mid pass"); err != nil {
			t.Errorf("credit mid pass: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	report, err := f.svc.Auditor.ReconcileAll(ctx, 10)
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if !fired {
		t.Fatal("expected the mid-pass credit to run")
	}
	if report.Accounts != 1 || len(report.Mismatches) != 0 {
		t.Fatalf("expected a clean pass, got %+v", report)
	}
	if got := f.reload(t, acct.ID); got.Balance != 45 {
		t.Fatalf("expected balance 45, got %d", got.Balance)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Accounts.Ensure(ctx, "google:9", "Nine")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, err := f.svc.Accounts.Ensure(ctx, "google:9", "Other")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if a.ID != b.ID || b.Balance != 0 || b.CurrentStreak != 0 || b.Level != 1 {
		t.Fatalf("unexpected accounts %+v %+v", a, b)
	}
	_, err = f.svc.Accounts.Ensure(ctx, "  ", "")
	expectErr(t, err, ErrUnauthenticated)
}
