package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferMaster moves money between two accounts, or between two buckets of
// one account when FromAccountID equals ToAccountID.
type TransferMaster struct {
	Base
	SoftDelete
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	FromAccountID   string          `gorm:"type:uuid;not null;index" json:"from_account_id"`
	ToAccountID     string          `gorm:"type:uuid;not null;index" json:"to_account_id"`
	FromBucketID    *string         `gorm:"type:uuid" json:"from_bucket_id,omitempty"`
	ToBucketID      *string         `gorm:"type:uuid" json:"to_bucket_id,omitempty"`
	TransferDate    time.Time       `gorm:"type:date;not null;index" json:"transfer_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Memo            string          `gorm:"size:255" json:"memo"`
	AutoGenerated   bool            `gorm:"not null;default:false" json:"auto_generated"`
	SourcePaymentID *string         `gorm:"type:uuid;index" json:"source_payment_id,omitempty"`
	Reconciled      bool            `gorm:"not null;default:false" json:"reconciled"`
}

// IsBucketMove reports whether the transfer only moves funds between buckets.
func (t TransferMaster) IsBucketMove() bool {
	return t.FromAccountID == t.ToAccountID
}

// BalanceAdjustment is a signed manual correction to an account balance.
type BalanceAdjustment struct {
	Base
	SoftDelete
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID      string          `gorm:"type:uuid;not null;index" json:"account_id"`
	AdjustmentDate time.Time       `gorm:"type:date;not null;index" json:"adjustment_date"`
	Description    string          `gorm:"size:255;not null" json:"description"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reconciled     bool            `gorm:"not null;default:false" json:"reconciled"`
}
