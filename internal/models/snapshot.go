package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountMonthSnapshot captures an account's balances for a closed month.
type AccountMonthSnapshot struct {
	Base
	UserID           string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID        string          `gorm:"type:uuid;not null;uniqueIndex:idx_account_month" json:"account_id"`
	Year             int             `gorm:"not null;uniqueIndex:idx_account_month" json:"year"`
	Month            int             `gorm:"not null;uniqueIndex:idx_account_month" json:"month"`
	BeginningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"beginning_balance"`
	EndingBalance    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"ending_balance"`
	IsStale          bool            `gorm:"not null;default:false" json:"is_stale"`
}

// DashboardMonthSnapshot captures the month's headline totals.
type DashboardMonthSnapshot struct {
	Base
	UserID               string          `gorm:"type:uuid;not null;uniqueIndex:idx_dashboard_month" json:"user_id"`
	Year                 int             `gorm:"not null;uniqueIndex:idx_dashboard_month" json:"year"`
	Month                int             `gorm:"not null;uniqueIndex:idx_dashboard_month" json:"month"`
	TotalSpent           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_spent"`
	TotalIncome          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_income"`
	BeginningBudgetTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"beginning_budget_total"`
	EndingBudgetTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"ending_budget_total"`
	NetWorth             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_worth"`
	IsStale              bool            `gorm:"not null;default:false" json:"is_stale"`
}

// NetWorthSnapshot is a point-in-time net worth figure.
type NetWorthSnapshot struct {
	Base
	UserID       string          `gorm:"type:uuid;not null;uniqueIndex:idx_net_worth_date" json:"user_id"`
	SnapshotDate time.Time       `gorm:"type:date;not null;uniqueIndex:idx_net_worth_date" json:"snapshot_date"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}
