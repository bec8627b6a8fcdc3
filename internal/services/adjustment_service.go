package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

type adjustmentService struct {
	db       *gorm.DB
	accounts AccountServicer
	months   MonthServicer
}

// NewAdjustmentService creates a new AdjustmentServicer.
func NewAdjustmentService(db *gorm.DB, accounts AccountServicer, months MonthServicer) AdjustmentServicer {
	return &adjustmentService{db: db, accounts: accounts, months: months}
}

// CreateAdjustment applies a signed correction to an account balance.
func (s *adjustmentService) CreateAdjustment(userID string, in AdjustmentInput) (*models.BalanceAdjustment, error) {
	if err := validateAdjustmentInput(in); err != nil {
		return nil, err
	}

	adj := &models.BalanceAdjustment{UserID: userID}
	assignAdjustment(adj, in)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.months.EnsureOpenWithDB(tx, userID, adj.AdjustmentDate); err != nil {
			return err
		}
		if _, err := findLiveAccount(tx, userID, adj.AccountID); err != nil {
			return err
		}
		if err := tx.Create(adj).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.accounts.Adjust(tx, adj.AccountID, adj.Amount)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// GetAdjustments lists live adjustments newest first.
func (s *adjustmentService) GetAdjustments(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.BalanceAdjustment], error) {
	base := applyEntryFilter(s.db.Model(&models.BalanceAdjustment{}).Scopes(models.Live).Where("user_id = ?", userID), "adjustment_date", filter)

	result, err := pagination.Fetch[models.BalanceAdjustment](base, "adjustment_date DESC, created_at DESC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAdjustmentByID retrieves an adjustment by ID for a specific user.
func (s *adjustmentService) GetAdjustmentByID(userID, adjustmentID string) (*models.BalanceAdjustment, error) {
	return findLiveAdjustment(s.db, userID, adjustmentID)
}

// UpdateAdjustment reverses the stored amount and applies the new one.
func (s *adjustmentService) UpdateAdjustment(userID, adjustmentID string, in AdjustmentInput) (*models.BalanceAdjustment, error) {
	if err := validateAdjustmentInput(in); err != nil {
		return nil, err
	}

	var adj *models.BalanceAdjustment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		adj, err = findLiveAdjustment(forUpdate(tx), userID, adjustmentID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, adj.AdjustmentDate, in.AdjustmentDate); err != nil {
			return err
		}
		if err := s.accounts.Adjust(tx, adj.AccountID, adj.Amount.Neg()); err != nil {
			return err
		}

		assignAdjustment(adj, in)
		if _, err := findLiveAccount(tx, userID, adj.AccountID); err != nil {
			return err
		}
		if err := tx.Select("*").Omit("created_at").Save(adj).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.accounts.Adjust(tx, adj.AccountID, adj.Amount)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// DeleteAdjustment reverses the adjustment and soft-deletes it.
func (s *adjustmentService) DeleteAdjustment(userID, adjustmentID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		adj, err := findLiveAdjustment(forUpdate(tx), userID, adjustmentID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, adj.AdjustmentDate); err != nil {
			return err
		}
		if err := s.accounts.Adjust(tx, adj.AccountID, adj.Amount.Neg()); err != nil {
			return err
		}
		return softDelete(tx, adj)
	})
}

func validateAdjustmentInput(in AdjustmentInput) error {
	if in.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if in.AdjustmentDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "adjustment date is required")
	}
	if cents(in.Amount).IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be zero")
	}
	return nil
}

func assignAdjustment(a *models.BalanceAdjustment, in AdjustmentInput) {
	a.AccountID = in.AccountID
	a.AdjustmentDate = frequency.Date(in.AdjustmentDate)
	a.Description = strings.TrimSpace(in.Description)
	a.Notes = in.Notes
	a.Amount = cents(in.Amount)
}

func findLiveAdjustment(db *gorm.DB, userID, adjustmentID string) (*models.BalanceAdjustment, error) {
	var adj models.BalanceAdjustment
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", adjustmentID, userID).First(&adj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAdjustmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &adj, nil
}
