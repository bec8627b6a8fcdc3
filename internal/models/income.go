package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeEntry is a deposit. It only moves the account balance once received.
type IncomeEntry struct {
	Base
	SoftDelete
	UserID            string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID         *string         `gorm:"type:uuid;index" json:"account_id,omitempty"`
	IncomeRecurringID *string         `gorm:"type:uuid;index" json:"income_recurring_id,omitempty"`
	FrequencyMasterID *string         `gorm:"type:uuid" json:"frequency_master_id,omitempty"`
	SourceName        string          `gorm:"size:80;not null" json:"source_name"`
	Description       string          `gorm:"size:255" json:"description"`
	EntryDate         time.Time       `gorm:"type:date;not null;index" json:"entry_date"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	ReceivedFlag      bool            `gorm:"not null;default:false" json:"received_flag"`
	Reconciled        bool            `gorm:"not null;default:false" json:"reconciled"`
}
