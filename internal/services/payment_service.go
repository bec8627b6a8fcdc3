package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

const (
	memoPaymentEditReversal   = "Reversed: edit"
	memoPaymentDeleteReversal = "Reversed: delete"
)

// paymentService handles payments, including bucket-funded executions.
type paymentService struct {
	db        *gorm.DB
	accounts  AccountServicer
	buckets   BucketServicer
	transfers TransferServicer
	months    MonthServicer
	recurring RecurringServicer
}

// NewPaymentService creates a new PaymentServicer.
func NewPaymentService(
	db *gorm.DB,
	accounts AccountServicer,
	buckets BucketServicer,
	transfers TransferServicer,
	months MonthServicer,
	recurring RecurringServicer,
) PaymentServicer {
	return &paymentService{
		db:        db,
		accounts:  accounts,
		buckets:   buckets,
		transfers: transfers,
		months:    months,
		recurring: recurring,
	}
}

// CreatePayment records a payment and debits its account. A bucket execution
// also debits the bucket, and moves the cash across accounts when the bucket
// lives in another account.
func (s *paymentService) CreatePayment(userID string, in PaymentInput) (*models.Payment, error) {
	if err := validatePaymentInput(in); err != nil {
		return nil, err
	}

	payment := &models.Payment{UserID: userID}
	assignPayment(payment, in)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.months.EnsureOpenWithDB(tx, userID, payment.PaymentDate); err != nil {
			return err
		}
		if err := s.checkReferences(tx, payment); err != nil {
			return err
		}
		if err := tx.Create(payment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// GetPayments materializes due recurring payments, then lists live payments
// newest first.
func (s *paymentService) GetPayments(userID string, today time.Time, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error) {
	if _, err := s.recurring.GenerateDuePayments(userID, today); err != nil {
		return nil, err
	}
	base := applyEntryFilter(s.db.Model(&models.Payment{}).Scopes(models.Live).Where("user_id = ?", userID), "payment_date", filter)

	result, err := pagination.Fetch[models.Payment](base, "payment_date DESC, created_at DESC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetPaymentByID retrieves a payment by ID for a specific user.
func (s *paymentService) GetPaymentByID(userID, paymentID string) (*models.Payment, error) {
	return findLivePayment(s.db, userID, paymentID)
}

// UpdatePayment reverses the stored payment and applies the new values.
func (s *paymentService) UpdatePayment(userID, paymentID string, in PaymentInput) (*models.Payment, error) {
	if err := validatePaymentInput(in); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = findLivePayment(forUpdate(tx), userID, paymentID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, payment.PaymentDate, in.PaymentDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, payment, memoPaymentEditReversal); err != nil {
			return err
		}

		assignPayment(payment, in)
		if err := s.checkReferences(tx, payment); err != nil {
			return err
		}
		if err := tx.Select("*").Omit("created_at").Save(payment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment reverses the payment and soft-deletes it.
func (s *paymentService) DeletePayment(userID, paymentID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := findLivePayment(forUpdate(tx), userID, paymentID)
		if err != nil {
			return err
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, payment.PaymentDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, payment, memoPaymentDeleteReversal); err != nil {
			return err
		}
		return softDelete(tx, payment)
	})
}

func (s *paymentService) applyWithDB(tx *gorm.DB, p *models.Payment) error {
	var bucket *models.Bucket
	if p.IsBucketExecution {
		var err error
		bucket, err = findLiveBucket(tx, p.UserID, *p.BucketID)
		if err != nil {
			return err
		}
		if bucket.CurrentBalance.LessThan(p.Amount) {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("bucket '%s' has %s available", bucket.Name, bucket.CurrentBalance.StringFixed(2)))
		}
	}

	if err := s.accounts.Adjust(tx, p.AccountID, p.Amount.Neg()); err != nil {
		return err
	}
	if bucket == nil {
		return nil
	}

	if _, err := s.buckets.RecordTransaction(tx, BucketEntry{
		BucketID:   bucket.ID,
		UserID:     p.UserID,
		Direction:  models.DirectionOut,
		Amount:     p.Amount,
		SourceType: models.SourcePaymentExecution,
		SourceID:   strPtr(p.ID),
		TxnDate:    p.PaymentDate,
		Memo:       p.Description,
	}); err != nil {
		return err
	}
	if bucket.AccountID != p.AccountID {
		if _, err := s.transfers.CreateAutoTransferWithDB(tx, p, bucket.AccountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *paymentService) reverseWithDB(tx *gorm.DB, p *models.Payment, memo string) error {
	if err := s.accounts.Adjust(tx, p.AccountID, p.Amount); err != nil {
		return err
	}
	if p.IsBucketExecution && p.BucketID != nil {
		target, err := ledgerTarget(tx, *p.BucketID)
		if err != nil {
			return err
		}
		if target != "" {
			if _, err := s.buckets.RecordTransaction(tx, BucketEntry{
				BucketID:   target,
				UserID:     p.UserID,
				Direction:  models.DirectionIn,
				Amount:     p.Amount,
				SourceType: models.SourcePaymentExecution,
				SourceID:   strPtr(p.ID),
				TxnDate:    p.PaymentDate,
				Memo:       memo,
			}); err != nil {
				return err
			}
		}
	}
	return s.transfers.RemoveAutoTransfersWithDB(tx, p.ID)
}

// checkReferences verifies the account, category and optional spending type
// override exist for the payment's owner.
func (s *paymentService) checkReferences(tx *gorm.DB, p *models.Payment) error {
	if _, err := findLiveAccount(tx, p.UserID, p.AccountID); err != nil {
		return err
	}
	if _, err := findLiveCategory(tx, p.UserID, p.SpendingCategoryID); err != nil {
		return err
	}
	if p.SpendingTypeOverrideID != nil {
		if _, err := findLiveSpendingType(tx, p.UserID, *p.SpendingTypeOverrideID); err != nil {
			return err
		}
	}
	return nil
}

func validatePaymentInput(in PaymentInput) error {
	if in.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account is required")
	}
	if in.SpendingCategoryID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "spending category is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if in.PaymentDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "payment date is required")
	}
	if err := requirePositive(in.Amount, "amount"); err != nil {
		return err
	}
	if in.IsBucketExecution && (in.BucketID == nil || *in.BucketID == "") {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "bucket is required for a bucket execution")
	}
	return nil
}

func assignPayment(p *models.Payment, in PaymentInput) {
	p.AccountID = in.AccountID
	p.SpendingCategoryID = in.SpendingCategoryID
	p.SpendingTypeOverrideID = in.SpendingTypeOverrideID
	p.BucketID = in.BucketID
	p.IsBucketExecution = in.IsBucketExecution
	p.PaymentDate = frequency.Date(in.PaymentDate)
	p.Description = strings.TrimSpace(in.Description)
	p.Notes = in.Notes
	p.Amount = cents(in.Amount)
}

func findLivePayment(db *gorm.DB, userID, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &payment, nil
}
