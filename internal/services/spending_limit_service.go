package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
)

var hundred = decimal.NewFromInt(100)

type spendingLimitService struct {
	db *gorm.DB
}

// NewSpendingLimitService creates a new SpendingLimitServicer.
func NewSpendingLimitService(db *gorm.DB) SpendingLimitServicer {
	return &spendingLimitService{db: db}
}

// SetLimit versions the limit of one category or spending type. Rows that
// overlap the new effective month are closed at the month before it, or
// dropped when they had not started yet, and a new open row is inserted.
func (s *spendingLimitService) SetLimit(userID string, scope models.LimitScope, scopeID string, value decimal.Decimal, effectiveYYYYMM int) (*models.SpendingLimitHistory, error) {
	mode, err := validateLimit(scope, value, effectiveYYYYMM)
	if err != nil {
		return nil, err
	}

	row := &models.SpendingLimitHistory{
		UserID:               userID,
		ScopeType:            scope,
		ScopeID:              scopeID,
		LimitValue:           cents(value),
		LimitMode:            mode,
		EffectiveStartYYYYMM: effectiveYYYYMM,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkLimitScope(tx, userID, scope, scopeID); err != nil {
			return err
		}

		var overlapping []models.SpendingLimitHistory
		if err := forUpdate(tx).Scopes(models.Live).
			Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scope, scopeID).
			Where("effective_end_yyyymm IS NULL OR effective_end_yyyymm >= ?", effectiveYYYYMM).
			Find(&overlapping).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		end := prevYYYYMM(effectiveYYYYMM)
		for i := range overlapping {
			prior := &overlapping[i]
			if prior.EffectiveStartYYYYMM >= effectiveYYYYMM {
				if err := softDelete(tx, prior); err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(prior).Update("effective_end_yyyymm", end).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Create(row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrLimitConflict
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// LimitsForMonth returns the limit in force for each scope id of a scope type
// during the given month.
func (s *spendingLimitService) LimitsForMonth(userID string, scope models.LimitScope, month int) (map[string]decimal.Decimal, error) {
	if !validYYYYMM(month) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be formatted as YYYYMM")
	}

	var rows []models.SpendingLimitHistory
	if err := s.db.Scopes(models.Live).
		Where("user_id = ? AND scope_type = ? AND effective_start_yyyymm <= ?", userID, scope, month).
		Where("effective_end_yyyymm IS NULL OR effective_end_yyyymm >= ?", month).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	limits := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		limits[r.ScopeID] = r.LimitValue
	}
	return limits, nil
}

// GetLimitHistory lists every live version of one scope, oldest first.
func (s *spendingLimitService) GetLimitHistory(userID string, scope models.LimitScope, scopeID string) ([]models.SpendingLimitHistory, error) {
	var rows []models.SpendingLimitHistory
	if err := s.db.Scopes(models.Live).
		Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scope, scopeID).
		Order("effective_start_yyyymm ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// DeleteLimit soft-deletes one version. Neighbouring versions are left as
// they are.
func (s *spendingLimitService) DeleteLimit(userID, limitID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row models.SpendingLimitHistory
		if err := forUpdate(tx).Scopes(models.Live).Where("id = ? AND user_id = ?", limitID, userID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrLimitNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return softDelete(tx, &row)
	})
}

func validateLimit(scope models.LimitScope, value decimal.Decimal, effective int) (models.LimitMode, error) {
	if scope != models.LimitScopeCategory && scope != models.LimitScopeSpendingType {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown limit scope %q", scope))
	}
	if !validYYYYMM(effective) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "effective month must be formatted as YYYYMM")
	}
	if value.IsNegative() {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must not be negative")
	}
	mode := models.ModeFor(scope)
	if mode == models.LimitModePercent && value.GreaterThan(hundred) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "percent limit must not exceed 100")
	}
	return mode, nil
}

func checkLimitScope(tx *gorm.DB, userID string, scope models.LimitScope, scopeID string) error {
	if scope == models.LimitScopeSpendingType {
		_, err := findLiveSpendingType(tx, userID, scopeID)
		return err
	}
	_, err := findLiveCategory(tx, userID, scopeID)
	return err
}
