package services

import (
	"testing"
	"time"

	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/testutil"

	"gorm.io/gorm"
)

func monthlyRule() frequency.Rule {
	return frequency.Rule{Type: frequency.TypeStandard, Name: frequency.Monthly}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ledger bundles every fund-flow service wired the way cmd/api wires them.
type ledger struct {
	accounts    AccountServicer
	buckets     BucketServicer
	months      MonthServicer
	snapshots   SnapshotServicer
	transfers   TransferServicer
	recurring   RecurringServicer
	payments    PaymentServicer
	incomes     IncomeServicer
	adjustments AdjustmentServicer
}

func newLedger(db *gorm.DB) *ledger {
	l := &ledger{
		accounts:  NewAccountService(db),
		buckets:   NewBucketService(db),
		snapshots: NewSnapshotService(db),
	}
	l.months = NewMonthService(db, l.snapshots, nil)
	l.transfers = NewTransferService(db, l.accounts, l.buckets, l.months)
	l.recurring = NewRecurringService(db, l.accounts)
	l.payments = NewPaymentService(db, l.accounts, l.buckets, l.transfers, l.months, l.recurring)
	l.incomes = NewIncomeService(db, l.accounts, l.months, l.recurring)
	l.adjustments = NewAdjustmentService(db, l.accounts, l.months)
	return l
}

// openToday pins the user's open month to the current month so entries dated
// today are writable.
func openToday(t *testing.T, db *gorm.DB, userID string) time.Time {
	t.Helper()
	today := testutil.Today()
	testutil.SetOpenMonth(t, db, userID, today.Year(), today.Month())
	return today
}

func countBucketRows(t *testing.T, db *gorm.DB, bucketID string) int64 {
	t.Helper()
	return testutil.CountRows(t, db, &models.BucketTransaction{}, "bucket_id = ?", bucketID)
}
