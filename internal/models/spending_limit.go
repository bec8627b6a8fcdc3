package models

import "github.com/shopspring/decimal"

// LimitScope is what a spending limit applies to.
type LimitScope string

const (
	LimitScopeCategory     LimitScope = "CATEGORY"
	LimitScopeSpendingType LimitScope = "SPENDING_TYPE"
)

// LimitMode is how LimitValue is interpreted.
type LimitMode string

const (
	LimitModeAmount  LimitMode = "AMOUNT"
	LimitModePercent LimitMode = "PERCENT"
)

// ModeFor returns the value mode used by a scope.
func ModeFor(scope LimitScope) LimitMode {
	if scope == LimitScopeSpendingType {
		return LimitModePercent
	}
	return LimitModeAmount
}

// SpendingLimitHistory is one validity window of a limit. A nil end month
// means the row is the open version for its scope.
type SpendingLimitHistory struct {
	Base
	SoftDelete
	UserID               string          `gorm:"type:uuid;not null;index:idx_limits_open,unique,where:effective_end_yyyymm IS NULL AND deleted_at IS NULL" json:"user_id"`
	ScopeType            LimitScope      `gorm:"size:20;not null;index:idx_limits_open" json:"scope_type"`
	ScopeID              string          `gorm:"type:uuid;not null;index:idx_limits_open" json:"scope_id"`
	LimitValue           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"limit_value"`
	LimitMode            LimitMode       `gorm:"size:10;not null" json:"limit_mode"`
	EffectiveStartYYYYMM int             `gorm:"column:effective_start_yyyymm;not null;index" json:"effective_start_yyyymm"`
	EffectiveEndYYYYMM   *int            `gorm:"column:effective_end_yyyymm" json:"effective_end_yyyymm,omitempty"`
}

// TableName keeps the historical table name.
func (SpendingLimitHistory) TableName() string { return "spending_limits_history" }
