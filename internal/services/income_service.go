package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

type incomeService struct {
	db        *gorm.DB
	accounts  AccountServicer
	months    MonthServicer
	recurring RecurringServicer
}

// NewIncomeService creates a new IncomeServicer.
func NewIncomeService(db *gorm.DB, accounts AccountServicer, months MonthServicer, recurring RecurringServicer) IncomeServicer {
	return &incomeService{db: db, accounts: accounts, months: months, recurring: recurring}
}

// CreateIncome records an income entry. Only a received entry credits its
// account.
func (s *incomeService) CreateIncome(userID string, in IncomeInput) (*models.IncomeEntry, error) {
	if err := validateIncomeInput(in); err != nil {
		return nil, err
	}

	entry := &models.IncomeEntry{UserID: userID}
	assignIncome(entry, in)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.months.EnsureOpenWithDB(tx, userID, entry.EntryDate); err != nil {
			return err
		}
		if entry.AccountID != nil {
			if _, err := findLiveAccount(tx, userID, *entry.AccountID); err != nil {
				return err
			}
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetIncomes materializes due recurring income, then lists live entries
// newest first.
func (s *incomeService) GetIncomes(userID string, today time.Time, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.IncomeEntry], error) {
	if _, err := s.recurring.GenerateDueIncome(userID, today); err != nil {
		return nil, err
	}
	base := applyEntryFilter(s.db.Model(&models.IncomeEntry{}).Scopes(models.Live).Where("user_id = ?", userID), "entry_date", filter)

	result, err := pagination.Fetch[models.IncomeEntry](base, "entry_date DESC, created_at DESC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetIncomeByID retrieves an income entry by ID for a specific user.
func (s *incomeService) GetIncomeByID(userID, incomeID string) (*models.IncomeEntry, error) {
	return findLiveIncome(s.db, userID, incomeID)
}

// UpdateIncome reverses the stored entry's effect and applies the new values.
// Flipping received_flag credits or debits the account accordingly.
func (s *incomeService) UpdateIncome(userID, incomeID string, in IncomeInput) (*models.IncomeEntry, error) {
	if err := validateIncomeInput(in); err != nil {
		return nil, err
	}

	var entry *models.IncomeEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = findLiveIncome(forUpdate(tx), userID, incomeID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, entry.EntryDate, in.EntryDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, entry); err != nil {
			return err
		}

		assignIncome(entry, in)
		if entry.AccountID != nil {
			if _, err := findLiveAccount(tx, userID, *entry.AccountID); err != nil {
				return err
			}
		}
		if err := tx.Select("*").Omit("created_at").Save(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteIncome reverses a received entry and soft-deletes it.
func (s *incomeService) DeleteIncome(userID, incomeID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := findLiveIncome(forUpdate(tx), userID, incomeID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, entry.EntryDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, entry); err != nil {
			return err
		}
		return softDelete(tx, entry)
	})
}

func (s *incomeService) applyWithDB(tx *gorm.DB, e *models.IncomeEntry) error {
	if !e.ReceivedFlag || e.AccountID == nil {
		return nil
	}
	return s.accounts.Adjust(tx, *e.AccountID, e.Amount)
}

func (s *incomeService) reverseWithDB(tx *gorm.DB, e *models.IncomeEntry) error {
	if !e.ReceivedFlag || e.AccountID == nil {
		return nil
	}
	return s.accounts.Adjust(tx, *e.AccountID, e.Amount.Neg())
}

func validateIncomeInput(in IncomeInput) error {
	if strings.TrimSpace(in.SourceName) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "source name is required")
	}
	if in.EntryDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "entry date is required")
	}
	if err := requirePositive(in.Amount, "amount"); err != nil {
		return err
	}
	if in.ReceivedFlag && (in.AccountID == nil || *in.AccountID == "") {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "a received deposit needs an account")
	}
	return nil
}

func assignIncome(e *models.IncomeEntry, in IncomeInput) {
	e.AccountID = in.AccountID
	if e.AccountID != nil && *e.AccountID == "" {
		e.AccountID = nil
	}
	e.SourceName = strings.TrimSpace(in.SourceName)
	e.Description = in.Description
	e.EntryDate = frequency.Date(in.EntryDate)
	e.Amount = cents(in.Amount)
	e.ReceivedFlag = in.ReceivedFlag
}

func findLiveIncome(db *gorm.DB, userID, incomeID string) (*models.IncomeEntry, error) {
	var entry models.IncomeEntry
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", incomeID, userID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &entry, nil
}
