package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenMonthMaster is the per-user cursor for the month that accepts writes.
type OpenMonthMaster struct {
	Base
	UserID       string     `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentYear  int        `gorm:"not null" json:"current_year"`
	CurrentMonth int        `gorm:"not null" json:"current_month"`
	HasData      bool       `gorm:"not null;default:false" json:"has_data"`
	IsClosed     bool       `gorm:"not null;default:false" json:"is_closed"`
	ReopenCount  int        `gorm:"not null;default:0" json:"reopen_count"`
	LastClosedAt *time.Time `json:"last_closed_at,omitempty"`
}

// Start returns the first day of the open month.
func (m OpenMonthMaster) Start() time.Time {
	return time.Date(m.CurrentYear, time.Month(m.CurrentMonth), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the open month.
func (m OpenMonthMaster) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// Contains reports whether d is inside the open month.
func (m OpenMonthMaster) Contains(d time.Time) bool {
	return d.Year() == m.CurrentYear && int(d.Month()) == m.CurrentMonth
}

// CloseMonthMaster is the closed-month ledger. A row is never deleted; a
// reopened month is marked so it can be closed again.
type CloseMonthMaster struct {
	Base
	UserID      string     `gorm:"type:uuid;not null;index:idx_close_month_unique,unique,where:reopened_at IS NULL" json:"user_id"`
	ClosedYear  int        `gorm:"not null;index:idx_close_month_unique" json:"closed_year"`
	ClosedMonth int        `gorm:"not null;index:idx_close_month_unique" json:"closed_month"`
	ClosedAt    time.Time  `gorm:"not null" json:"closed_at"`
	ReopenedAt  *time.Time `json:"reopened_at,omitempty"`
}

// ReconciliationStatus is the state of a reconciliation record.
type ReconciliationStatus string

const (
	ReconciliationPending    ReconciliationStatus = "pending"
	ReconciliationReconciled ReconciliationStatus = "reconciled"
)

// ReconciliationRecord holds statement figures for one account and month.
type ReconciliationRecord struct {
	Base
	UserID                   string               `gorm:"type:uuid;not null;uniqueIndex:idx_reconciliation_unique" json:"user_id"`
	AccountID                string               `gorm:"type:uuid;not null;uniqueIndex:idx_reconciliation_unique" json:"account_id"`
	Year                     int                  `gorm:"not null;uniqueIndex:idx_reconciliation_unique" json:"year"`
	Month                    int                  `gorm:"not null;uniqueIndex:idx_reconciliation_unique" json:"month"`
	OutsideBalance           *decimal.Decimal     `gorm:"type:decimal(12,2)" json:"outside_balance,omitempty"`
	StatementPaymentCount    *int                 `json:"statement_payment_count,omitempty"`
	StatementDepositCount    *int                 `json:"statement_deposit_count,omitempty"`
	StatementAdjustmentCount *int                 `json:"statement_adjustment_count,omitempty"`
	Status                   ReconciliationStatus `gorm:"size:20;not null;default:pending" json:"status"`
	ReconciledAt             *time.Time           `json:"reconciled_at,omitempty"`
}
