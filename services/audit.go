package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/utils"
)

// Auditor checks that every balance equals the sum of its ledger entries.
type Auditor struct {
	*env
	ledger *Ledger
}

// Reconciliation compares the stored counters with the ledger.
type Reconciliation struct {
	UserID      uint   `json:"user_id"`
	Handle      string `json:"handle"`
	Balance     int64  `json:"balance"`
	EntriesSum  int64  `json:"entries_sum"`
	TotalEarned int64  `json:"total_earned"`
	CreditsSum  int64  `json:"credits_sum"`
	TotalSpent  int64  `json:"total_spent"`
	DebitsSum   int64  `json:"debits_sum"`
	Entries     int64  `json:"entries"`
	Consistent  bool   `json:"consistent"`
}

// AuditReport summarises a full pass.
type AuditReport struct {
	Accounts   int              `json:"accounts"`
	Mismatches []Reconciliation `json:"mismatches"`
}

type entryTotals struct {
	Credits int64
	Debits  int64
	Entries int64
}

// Reconcile checks one account. The account row and its entry totals are
// read in one transaction under the account lock, so a concurrent credit or
// debit is seen either entirely or not at all.
func (a *Auditor) Reconcile(ctx context.Context, userID uint) (*Reconciliation, error) {
	var rec *Reconciliation
	err := a.ledger.WithAccount(ctx, userID, func(tx *gorm.DB, acct *models.UserAccount) error {
		var err error
		rec, err = reconcileTx(tx, acct)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func reconcileTx(tx *gorm.DB, acct *models.UserAccount) (*Reconciliation, error) {
	var totals entryTotals
	err := tx.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS credits, "+
			"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS debits, "+
			"COUNT(*) AS entries").
		Where("user_id = ?", acct.ID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		UserID:      acct.ID,
		Handle:      acct.Handle,
		Balance:     acct.Balance,
		EntriesSum:  totals.Credits - totals.Debits,
		TotalEarned: acct.TotalEarned,
		CreditsSum:  totals.Credits,
		TotalSpent:  acct.TotalSpent,
		DebitsSum:   totals.Debits,
		Entries:     totals.Entries,
	}
	rec.Consistent = rec.Balance == rec.EntriesSum &&
		rec.TotalEarned == rec.CreditsSum &&
		rec.TotalSpent == rec.DebitsSum
	return rec, nil
}

// ReconcileAll walks every account in id order, batch ids at a time, and
// returns the accounts that do not reconcile. Each account is re-read when
// it is checked.
func (a *Auditor) ReconcileAll(ctx context.Context, batch int) (*AuditReport, error) {
	if batch <= 0 {
		batch = 200
	}
	report := &AuditReport{Mismatches: []Reconciliation{}}
	var lastID uint
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var ids []uint
		if err := a.db.WithContext(ctx).Model(&models.UserAccount{}).
			Where("id > ?", lastID).Order("id ASC").Limit(batch).
			Pluck("id", &ids).Error; err != nil {
			return report, err
		}
		if len(ids) == 0 {
			return report, nil
		}
		for _, id := range ids {
			rec, err := a.Reconcile(ctx, id)
			if errors.Is(err, ErrAccountNotFound) {
				continue
			}
			if err != nil {
				return report, err
			}
			report.Accounts++
			if !rec.Consistent {
				report.Mismatches = append(report.Mismatches, *rec)
			}
		}
		lastID = ids[len(ids)-1]
	}
}

// Run is the periodic audit job.
func (a *Auditor) Run(ctx context.Context) error {
	report, err := a.ReconcileAll(ctx, 200)
	if err != nil {
		return err
	}
	for _, m := range report.Mismatches {
		utils.Logger.Warn("ledger mismatch",
			zap.Uint("user_id", m.UserID),
			zap.Int64("balance", m.Balance),
			zap.Int64("entries_sum", m.EntriesSum),
			zap.Int64("total_earned", m.TotalEarned),
			zap.Int64("credits_sum", m.CreditsSum),
		)
	}
	utils.Logger.Info("ledger audit finished",
		zap.Int("accounts", report.Accounts),
		zap.Int("mismatches", len(report.Mismatches)),
	)
	return nil
}
