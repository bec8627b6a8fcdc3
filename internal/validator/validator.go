// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"budgethq/internal/frequency"
	"budgethq/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("yyyymm", validateYYYYMM)
		_ = v.RegisterValidation("frequency_type", validateFrequencyType)
		_ = v.RegisterValidation("limit_scope", validateLimitScope)
		_ = v.RegisterValidation("direction", validateDirection)
		_ = v.RegisterValidation("recurring_kind", validateRecurringKind)
	}
}

// validateYYYYMM accepts integers such as 202603 with a month of 01..12.
func validateYYYYMM(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	month := v % 100
	return v >= 190001 && v <= 999912 && month >= 1 && month <= 12
}

func validateFrequencyType(fl validator.FieldLevel) bool {
	switch frequency.Type(fl.Field().String()) {
	case frequency.TypeStandard, frequency.TypeExactDay, frequency.TypeOrdinalWeekday:
		return true
	}
	return false
}

func validateLimitScope(fl validator.FieldLevel) bool {
	switch models.LimitScope(fl.Field().String()) {
	case models.LimitScopeCategory, models.LimitScopeSpendingType:
		return true
	}
	return false
}

func validateDirection(fl validator.FieldLevel) bool {
	switch models.Direction(fl.Field().String()) {
	case models.DirectionIn, models.DirectionOut:
		return true
	}
	return false
}

func validateRecurringKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "payment", "obligation":
		return true
	}
	return false
}
