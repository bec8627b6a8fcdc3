package models

// SpendingType groups categories (Need, Want, Savings, ...).
type SpendingType struct {
	Base
	SoftDelete
	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string `gorm:"size:80;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

// SpendingCategory classifies payments.
type SpendingCategory struct {
	Base
	SoftDelete
	UserID         string  `gorm:"type:uuid;not null;index" json:"user_id"`
	SpendingTypeID *string `gorm:"type:uuid" json:"spending_type_id,omitempty"`
	Name           string  `gorm:"size:80;not null" json:"name"`
	Description    string  `gorm:"size:255" json:"description"`
	IsDebt         bool    `gorm:"not null;default:false" json:"is_debt"`
}
