package models

import "github.com/shopspring/decimal"

// Account is a cash account whose balance every fund-flow operation mutates.
type Account struct {
	Base
	SoftDelete
	UserID           string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name             string          `gorm:"size:80;not null" json:"name"`
	AccountType      string          `gorm:"size:40" json:"account_type"`
	Description      string          `gorm:"size:255" json:"description"`
	Balance          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	BeginningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"beginning_balance"`
	BeginningSet     bool            `gorm:"not null;default:false" json:"-"`
	IncludeInBudget  bool            `gorm:"not null;default:true" json:"include_in_budget"`
	SortOrder        int             `gorm:"not null;default:0" json:"sort_order"`
}
