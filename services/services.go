// Package services holds the points and engagement ledger: the balance
// primitives and the engines that feed them (check-in streaks, boosts,
// playtime deltas, redemptions and quests).
//
// Every balance change goes through Ledger.CreditTx or Ledger.DebitTx while
// the account row is locked. Ledger.WithAccount provides that scope: a
// per-account lock (Redis lease or in-process) wrapped around a database
// transaction that re-reads the account FOR UPDATE.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// env is shared by all engines of one Services value.
type env struct {
	db    *gorm.DB
	locks utils.Locker
	rules Rules
	now   func() time.Time
}

func (e *env) clock() time.Time {
	return e.now().UTC()
}

// Services bundles the engines around one store.
type Services struct {
	env *env

	Accounts    *Accounts
	Ledger      *Ledger
	Streaks     *StreakEngine
	Boosts      *BoostEngine
	Playtime    *PlaytimeTracker
	Redemptions *RedemptionEngine
	Quests      *QuestTracker
	Catalog     *Catalog
	Auditor     *Auditor
}

// New wires the engines. A nil locker falls back to an in-process lock.
func New(db *gorm.DB, locks utils.Locker, rules Rules) *Services {
	if locks == nil {
		locks = utils.NewLocalLocker()
	}
	e := &env{db: db, locks: locks, rules: rules, now: time.Now}

	s := &Services{env: e}
	s.Ledger = &Ledger{env: e}
	s.Accounts = &Accounts{env: e}
	s.Boosts = &BoostEngine{env: e}
	s.Quests = &QuestTracker{env: e, ledger: s.Ledger, boosts: s.Boosts}
	s.Streaks = &StreakEngine{env: e, ledger: s.Ledger, quests: s.Quests}
	s.Playtime = &PlaytimeTracker{env: e, quests: s.Quests}
	s.Redemptions = &RedemptionEngine{env: e, ledger: s.Ledger}
	s.Catalog = &Catalog{env: e}
	s.Auditor = &Auditor{env: e, ledger: s.Ledger}
	return s
}

// SetClock replaces the time source for every engine.
func (s *Services) SetClock(now func() time.Time) {
	s.env.now = now
}

// Rules returns the economy settings in use.
func (s *Services) Rules() Rules {
	return s.env.rules
}

// Grant credits amount to the user, multiplied by their boosts when boosted
// is set. The boost lookup and the credit share one transaction.
func (s *Services) Grant(ctx context.Context, userID uint, amount int64, reason string, boosted bool) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var entry *models.LedgerEntry
	err := s.Ledger.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		points := amount
		if boosted {
			var err error
			if points, err = s.Boosts.ApplyBoostTx(tx, userID, amount, s.env.clock()); err != nil {
				return err
			}
		}
		var err error
		entry, err = s.Ledger.CreditTx(tx, acct, points, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
