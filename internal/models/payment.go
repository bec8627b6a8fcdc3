package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is money leaving an account, optionally funded from a bucket.
type Payment struct {
	Base
	SoftDelete
	UserID                 string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID              string          `gorm:"type:uuid;not null;index" json:"account_id"`
	SpendingCategoryID     string          `gorm:"type:uuid;not null;index" json:"spending_category_id"`
	SpendingTypeOverrideID *string         `gorm:"type:uuid" json:"spending_type_override_id,omitempty"`
	BucketID               *string         `gorm:"type:uuid;index" json:"bucket_id,omitempty"`
	IsBucketExecution      bool            `gorm:"not null;default:false" json:"is_bucket_execution"`
	PaymentRecurringID     *string         `gorm:"type:uuid;index" json:"payment_recurring_id,omitempty"`
	PaymentDate            time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	Description            string          `gorm:"size:255;not null" json:"description"`
	Notes                  string          `gorm:"type:text" json:"notes"`
	Amount                 decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reconciled             bool            `gorm:"not null;default:false" json:"reconciled"`
}
