package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is a named envelope inside one account.
type Bucket struct {
	Base
	SoftDelete
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID      string          `gorm:"type:uuid;not null;index:idx_buckets_default,unique,where:is_default AND deleted_at IS NULL;index:idx_buckets_priority_zero,unique,where:priority = 0 AND deleted_at IS NULL" json:"account_id"`
	Name           string          `gorm:"size:80;not null" json:"name"`
	IsDefault      bool            `gorm:"not null;default:false" json:"is_default"`
	Priority       int             `gorm:"not null;default:0" json:"priority"`
	TargetAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"target_amount"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"current_balance"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	SortOrder      int             `gorm:"not null;default:0" json:"sort_order"`
}

// Direction is the sign of a bucket ledger row.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// BucketSource names the operation that produced a bucket ledger row.
type BucketSource string

const (
	SourceTransfer         BucketSource = "TRANSFER"
	SourcePaymentExecution BucketSource = "PAYMENT_EXECUTION"
	SourceAdjustment       BucketSource = "ADJUSTMENT"
	SourceDeposit          BucketSource = "DEPOSIT"
	SourceInitial          BucketSource = "INITIAL"
	SourceFundMove         BucketSource = "FUND_MOVE"
)

// Valid reports whether s is a known source type.
func (s BucketSource) Valid() bool {
	switch s {
	case SourceTransfer, SourcePaymentExecution, SourceAdjustment, SourceDeposit, SourceInitial, SourceFundMove:
		return true
	}
	return false
}

// BucketTransaction is an immutable row in a bucket's ledger. Rows are never
// updated or deleted.
type BucketTransaction struct {
	Base
	UserID     string          `gorm:"type:uuid;not null;index" json:"user_id"`
	BucketID   string          `gorm:"type:uuid;not null;index" json:"bucket_id"`
	Direction  Direction       `gorm:"size:3;not null" json:"direction"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	SourceType BucketSource    `gorm:"size:30;not null" json:"source_type"`
	SourceID   *string         `gorm:"type:uuid;index" json:"source_id,omitempty"`
	TxnDate    time.Time       `gorm:"type:date;not null" json:"txn_date"`
	Memo       string          `gorm:"size:255" json:"memo"`
}

// Signed returns the row's effect on the bucket balance.
func (t BucketTransaction) Signed() decimal.Decimal {
	if t.Direction == DirectionOut {
		return t.Amount.Neg()
	}
	return t.Amount
}
