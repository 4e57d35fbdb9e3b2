package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/models"
)

func TestMain(m *testing.M) {
	// No Redis: caches are skipped and locks stay in-process.
	config.Override(config.AppConfig{JWTSecret: "test-secret", DBDriver: "sqlite"})
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc *Services
	db  *gorm.DB
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig("silent"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{db: db, now: testNow}
	f.svc = New(db, nil, DefaultRules())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) account(t *testing.T, handle string) *models.UserAccount {
	t.Helper()
	acct, err := f.svc.Accounts.Ensure(context.Background(), handle, handle)
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	return acct
}

func (f *fixture) reload(t *testing.T, userID uint) *models.UserAccount {
	t.Helper()
	acct, err := f.svc.Accounts.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return acct
}

// assertReconciled checks that balance equals the sum of ledger entries.
func (f *fixture) assertReconciled(t *testing.T, userID uint) {
	t.Helper()
	rec, err := f.svc.Auditor.Reconcile(context.Background(), userID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent {
		t.Fatalf("expected consistent ledger, got %+v", rec)
	}
}

func (f *fixture) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func expectErr(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
