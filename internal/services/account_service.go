package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

const maxNameLength = 80

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new cash account for a user. A nonzero opening
// balance is captured as the beginning balance.
func (s *accountService) CreateAccount(userID string, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "account name"); err != nil {
		return nil, err
	}
	if err := s.checkNameAvailable(s.db, userID, name, ""); err != nil {
		return nil, err
	}

	includeInBudget := true
	if in.IncludeInBudget != nil {
		includeInBudget = *in.IncludeInBudget
	}

	var maxSort int
	if err := s.db.Model(&models.Account{}).Scopes(models.Live).Where("user_id = ?", userID).
		Select("COALESCE(MAX(sort_order), 0)").Scan(&maxSort).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	balance := cents(in.Balance)
	account := &models.Account{
		UserID:           userID,
		Name:             name,
		AccountType:      in.AccountType,
		Description:      in.Description,
		Balance:          balance,
		BeginningBalance: balance,
		BeginningSet:     !balance.IsZero(),
		IncludeInBudget:  includeInBudget,
		SortOrder:        maxSort + 1,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	base := s.db.Model(&models.Account{}).Scopes(models.Live).Where("user_id = ?", userID)
	result, err := pagination.Fetch[models.Account](base, "sort_order ASC, name ASC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	return findLiveAccount(s.db, userID, accountID)
}

// UpdateAccount updates an existing account. The balance can only be set here
// until the beginning balance has been captured; after that every change goes
// through a balance adjustment.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	var account *models.Account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = findLiveAccount(forUpdate(tx), userID, accountID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if fields.Name != nil {
			name := strings.TrimSpace(*fields.Name)
			if err := validateName(name, "account name"); err != nil {
				return err
			}
			if !strings.EqualFold(name, account.Name) {
				if err := s.checkNameAvailable(tx, userID, name, account.ID); err != nil {
					return err
				}
			}
			updates["name"] = name
		}
		if fields.AccountType != nil {
			updates["account_type"] = *fields.AccountType
		}
		if fields.Description != nil {
			updates["description"] = *fields.Description
		}
		if fields.IncludeInBudget != nil {
			updates["include_in_budget"] = *fields.IncludeInBudget
		}
		if fields.SortOrder != nil {
			updates["sort_order"] = *fields.SortOrder
		}
		if fields.Balance != nil && !fields.Balance.Equal(account.BeginningBalance) {
			if account.BeginningSet {
				return apperrors.ErrBalanceNotEditable
			}
			opening := cents(*fields.Balance)
			// Entries recorded before the opening balance was known stay in effect.
			updates["balance"] = account.Balance.Add(opening)
			updates["beginning_balance"] = opening
			updates["beginning_set"] = !opening.IsZero()
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(account).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id = ?", account.ID).First(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount soft-deletes an account that has no live buckets and no
// active recurring definitions.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		account, err := findLiveAccount(tx, userID, accountID)
		if err != nil {
			return err
		}

		var buckets int64
		if err := tx.Model(&models.Bucket{}).Scopes(models.Live).Where("account_id = ?", account.ID).Count(&buckets).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if buckets > 0 {
			return apperrors.WithMessage(apperrors.ErrAccountInUse, "account still has buckets")
		}

		var recurring int64
		for _, model := range []interface{}{&models.IncomeRecurring{}, &models.PaymentRecurring{}} {
			var n int64
			if err := tx.Model(model).Scopes(models.Live).
				Where("account_id = ? AND use_flag = ?", account.ID, true).Count(&n).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			recurring += n
		}
		if recurring > 0 {
			return apperrors.WithMessage(apperrors.ErrAccountInUse, "account is used by active recurring items")
		}

		return softDelete(tx, account)
	})
}

// Adjust adds a signed delta to an account balance under a row lock. It is the
// only write path for Account.balance after creation.
func (s *accountService) Adjust(tx *gorm.DB, accountID string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	var account models.Account
	if err := forUpdate(tx).Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&account).Update("balance", account.Balance.Add(delta)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// TotalBalance sums the balances of the user's live accounts.
func (s *accountService) TotalBalance(userID string) (decimal.Decimal, error) {
	var accounts []models.Account
	if err := s.db.Scopes(models.Live).Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total, nil
}

func (s *accountService) checkNameAvailable(db *gorm.DB, userID, name, exceptID string) error {
	q := db.Model(&models.Account{}).Scopes(models.Live).Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateAccount
	}
	return nil
}

// validateName enforces the shared name rules for accounts, buckets and the
// spending taxonomy.
func validateName(name, field string) error {
	if name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" is required")
	}
	if len([]rune(name)) > maxNameLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be at most 80 characters")
	}
	return nil
}
