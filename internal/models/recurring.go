package models

import (
	"time"

	"budgethq/internal/frequency"

	"github.com/shopspring/decimal"
)

// FrequencyMaster is a stored frequency rule. Seeded rules have no owner.
type FrequencyMaster struct {
	Base
	UserID        *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name          string         `gorm:"size:80;not null" json:"name"`
	FrequencyType frequency.Type `gorm:"size:40;not null;index" json:"frequency_type"`
	IntervalDays  int            `gorm:"not null;default:0" json:"interval_days"`
	DayOfMonth    int            `gorm:"not null;default:0" json:"day_of_month"`
	IsLastDay     bool           `gorm:"not null;default:false" json:"is_last_day"`
	Weekday       int            `gorm:"not null;default:0" json:"weekday"`
	Ordinal       int            `gorm:"not null;default:0" json:"ordinal"`
	SortOrder     int            `gorm:"not null;index" json:"sort_order"`
	Active        bool           `gorm:"not null;default:true" json:"active"`
}

// Rule converts the row into a calculator rule.
func (f FrequencyMaster) Rule() frequency.Rule {
	return frequency.Rule{
		Type:         f.FrequencyType,
		Name:         f.Name,
		IntervalDays: f.IntervalDays,
		DayOfMonth:   f.DayOfMonth,
		IsLastDay:    f.IsLastDay,
		Weekday:      f.Weekday,
		Ordinal:      f.Ordinal,
	}
}

// IncomeRecurring is a template that materializes IncomeEntry rows.
type IncomeRecurring struct {
	Base
	SoftDelete
	UserID            string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID         *string         `gorm:"type:uuid" json:"account_id,omitempty"`
	FrequencyMasterID string          `gorm:"type:uuid;not null" json:"frequency_master_id"`
	Name              string          `gorm:"size:80;not null" json:"name"`
	Description       string          `gorm:"size:255" json:"description"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	NextDate          time.Time       `gorm:"type:date;not null;index" json:"next_date"`
	UseFlag           bool            `gorm:"not null" json:"use_flag"`
}

// PaymentRecurring is a template that materializes Payment rows.
type PaymentRecurring struct {
	Base
	SoftDelete
	UserID             string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID          string          `gorm:"type:uuid;not null" json:"account_id"`
	SpendingCategoryID string          `gorm:"type:uuid;not null" json:"spending_category_id"`
	FrequencyMasterID  string          `gorm:"type:uuid;not null" json:"frequency_master_id"`
	Description        string          `gorm:"size:255;not null" json:"description"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	NextDate           time.Time       `gorm:"type:date;not null;index" json:"next_date"`
	UseFlag            bool            `gorm:"not null" json:"use_flag"`
}

// RecurringObligation is a projection-only recurring bill.
type RecurringObligation struct {
	Base
	SoftDelete
	UserID             string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID          *string         `gorm:"type:uuid" json:"account_id,omitempty"`
	SpendingCategoryID *string         `gorm:"type:uuid" json:"spending_category_id,omitempty"`
	FrequencyMasterID  string          `gorm:"type:uuid;not null" json:"frequency_master_id"`
	Name               string          `gorm:"size:80;not null" json:"name"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	StartDate          time.Time       `gorm:"type:date;not null" json:"start_date"`
	DueDay             int             `gorm:"not null;default:0" json:"due_day"`
	UseFlag            bool            `gorm:"not null" json:"use_flag"`
}
