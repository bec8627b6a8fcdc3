package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

const (
	memoTransferEditReversal   = "Reversed: transfer edit"
	memoTransferDeleteReversal = "Reversed: transfer delete"
	autoTransferMemo           = "Auto-transfer for payment: %s"
)

// transferService handles transfers between accounts and bucket moves inside
// one account.
type transferService struct {
	db       *gorm.DB
	accounts AccountServicer
	buckets  BucketServicer
	months   MonthServicer
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, accounts AccountServicer, buckets BucketServicer, months MonthServicer) TransferServicer {
	return &transferService{db: db, accounts: accounts, buckets: buckets, months: months}
}

// CreateTransfer records a transfer and applies both legs.
func (s *transferService) CreateTransfer(userID string, in TransferInput) (*models.TransferMaster, error) {
	if err := validateTransferInput(in); err != nil {
		return nil, err
	}

	transfer := &models.TransferMaster{UserID: userID}
	assignTransfer(transfer, in)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.months.EnsureOpenWithDB(tx, userID, transfer.TransferDate); err != nil {
			return err
		}
		if err := tx.Create(transfer).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// GetTransfers lists live transfers, newest first. An account filter matches
// either side.
func (s *transferService) GetTransfers(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.TransferMaster], error) {
	base := s.db.Model(&models.TransferMaster{}).Scopes(models.Live).Where("user_id = ?", userID)
	if filter.AccountID != nil {
		base = base.Where("from_account_id = ? OR to_account_id = ?", *filter.AccountID, *filter.AccountID)
	}
	base = applyEntryFilter(base, "transfer_date", EntryFilter{FromDate: filter.FromDate, ToDate: filter.ToDate})

	result, err := pagination.Fetch[models.TransferMaster](base, "transfer_date DESC, created_at DESC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetTransferByID retrieves a transfer by ID for a specific user.
func (s *transferService) GetTransferByID(userID, transferID string) (*models.TransferMaster, error) {
	return findLiveTransfer(s.db, userID, transferID)
}

// UpdateTransfer reverses the stored legs and applies the new values.
func (s *transferService) UpdateTransfer(userID, transferID string, in TransferInput) (*models.TransferMaster, error) {
	if err := validateTransferInput(in); err != nil {
		return nil, err
	}

	var transfer *models.TransferMaster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		transfer, err = findLiveTransfer(forUpdate(tx), userID, transferID)
		if err != nil {
			return err
		}
		if transfer.AutoGenerated {
			return apperrors.ErrAutoTransfer
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, transfer.TransferDate, in.TransferDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, transfer, memoTransferEditReversal); err != nil {
			return err
		}

		assignTransfer(transfer, in)
		if err := tx.Select("*").Omit("created_at").Save(transfer).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.applyWithDB(tx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// DeleteTransfer reverses both legs and soft-deletes the transfer.
func (s *transferService) DeleteTransfer(userID, transferID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		transfer, err := findLiveTransfer(forUpdate(tx), userID, transferID)
		if err != nil {
			return err
		}
		if transfer.AutoGenerated {
			return apperrors.ErrAutoTransfer
		}
		if err := s.months.EnsureOpenWithDB(tx, userID, transfer.TransferDate); err != nil {
			return err
		}
		if err := s.reverseWithDB(tx, transfer, memoTransferDeleteReversal); err != nil {
			return err
		}
		return softDelete(tx, transfer)
	})
}

// CreateAutoTransferWithDB moves a bucket-funded payment's cash from the
// bucket's account to the account the payment was charged to. Auto transfers
// never touch bucket ledgers.
func (s *transferService) CreateAutoTransferWithDB(tx *gorm.DB, payment *models.Payment, fromAccountID string) (*models.TransferMaster, error) {
	transfer := &models.TransferMaster{
		UserID:          payment.UserID,
		FromAccountID:   fromAccountID,
		ToAccountID:     payment.AccountID,
		TransferDate:    payment.PaymentDate,
		Amount:          payment.Amount,
		Memo:            fmt.Sprintf(autoTransferMemo, payment.Description),
		AutoGenerated:   true,
		SourcePaymentID: &payment.ID,
	}
	if err := tx.Create(transfer).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.accounts.Adjust(tx, transfer.FromAccountID, transfer.Amount.Neg()); err != nil {
		return nil, err
	}
	if err := s.accounts.Adjust(tx, transfer.ToAccountID, transfer.Amount); err != nil {
		return nil, err
	}
	return transfer, nil
}

// RemoveAutoTransfersWithDB reverses and soft-deletes every live auto
// transfer tied to a payment.
func (s *transferService) RemoveAutoTransfersWithDB(tx *gorm.DB, paymentID string) error {
	var transfers []models.TransferMaster
	if err := forUpdate(tx).Scopes(models.Live).
		Where("source_payment_id = ? AND auto_generated = ?", paymentID, true).
		Find(&transfers).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range transfers {
		if err := s.reverseWithDB(tx, &transfers[i], ""); err != nil {
			return err
		}
		if err := softDelete(tx, &transfers[i]); err != nil {
			return err
		}
	}
	return nil
}

// applyWithDB applies a stored transfer's account and bucket legs. A transfer
// into an account with buckets and no explicit destination bucket credits the
// default bucket, and the resolved id is persisted for exact reversal.
func (s *transferService) applyWithDB(tx *gorm.DB, t *models.TransferMaster) error {
	from, err := findLiveAccount(tx, t.UserID, t.FromAccountID)
	if err != nil {
		return err
	}
	to, err := findLiveAccount(tx, t.UserID, t.ToAccountID)
	if err != nil {
		return err
	}

	if t.IsBucketMove() {
		if t.FromBucketID == nil || t.ToBucketID == nil || *t.FromBucketID == *t.ToBucketID {
			return apperrors.ErrSameAccountTransfer
		}
		source, err := s.bucketIn(tx, t.UserID, *t.FromBucketID, from.ID)
		if err != nil {
			return err
		}
		dest, err := s.bucketIn(tx, t.UserID, *t.ToBucketID, to.ID)
		if err != nil {
			return err
		}
		if source.CurrentBalance.LessThan(t.Amount) {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("bucket '%s' has %s available", source.Name, source.CurrentBalance.StringFixed(2)))
		}
		if err := s.post(tx, t, source.ID, models.DirectionOut, fmt.Sprintf(memoMovedTo, dest.Name)); err != nil {
			return err
		}
		return s.post(tx, t, dest.ID, models.DirectionIn, fmt.Sprintf(memoReceivedFrom, source.Name))
	}

	if t.AutoGenerated {
		return apperrors.WithMessage(apperrors.ErrInvariant, "auto transfers are applied by their payment")
	}

	var source *models.Bucket
	if t.FromBucketID != nil {
		source, err = s.bucketIn(tx, t.UserID, *t.FromBucketID, from.ID)
		if err != nil {
			return err
		}
		if source.CurrentBalance.LessThan(t.Amount) {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("bucket '%s' has %s available", source.Name, source.CurrentBalance.StringFixed(2)))
		}
	}

	var dest *models.Bucket
	if t.ToBucketID != nil {
		dest, err = s.bucketIn(tx, t.UserID, *t.ToBucketID, to.ID)
		if err != nil {
			return err
		}
	} else {
		dest, err = findDefaultBucket(tx, to.ID)
		if err != nil {
			return err
		}
		if dest != nil {
			t.ToBucketID = strPtr(dest.ID)
			if err := tx.Model(t).Update("to_bucket_id", dest.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
	}

	if err := s.accounts.Adjust(tx, from.ID, t.Amount.Neg()); err != nil {
		return err
	}
	if err := s.accounts.Adjust(tx, to.ID, t.Amount); err != nil {
		return err
	}
	if source != nil {
		if err := s.post(tx, t, source.ID, models.DirectionOut, fmt.Sprintf("Transfer to %s", to.Name)); err != nil {
			return err
		}
	}
	if dest != nil {
		if err := s.post(tx, t, dest.ID, models.DirectionIn, fmt.Sprintf("Transfer from %s", from.Name)); err != nil {
			return err
		}
	}
	return nil
}

// reverseWithDB undoes the effects applyWithDB (or CreateAutoTransferWithDB)
// produced for a transfer.
func (s *transferService) reverseWithDB(tx *gorm.DB, t *models.TransferMaster, memo string) error {
	if !t.IsBucketMove() {
		if err := s.accounts.Adjust(tx, t.FromAccountID, t.Amount); err != nil {
			return err
		}
		if err := s.accounts.Adjust(tx, t.ToAccountID, t.Amount.Neg()); err != nil {
			return err
		}
	}
	if t.AutoGenerated {
		return nil
	}
	if t.FromBucketID != nil {
		if err := s.postReversal(tx, t, *t.FromBucketID, models.DirectionIn, memo); err != nil {
			return err
		}
	}
	if t.ToBucketID != nil {
		if err := s.postReversal(tx, t, *t.ToBucketID, models.DirectionOut, memo); err != nil {
			return err
		}
	}
	return nil
}

func (s *transferService) post(tx *gorm.DB, t *models.TransferMaster, bucketID string, dir models.Direction, memo string) error {
	if strings.TrimSpace(t.Memo) != "" {
		memo = t.Memo
	}
	_, err := s.buckets.RecordTransaction(tx, BucketEntry{
		BucketID:   bucketID,
		UserID:     t.UserID,
		Direction:  dir,
		Amount:     t.Amount,
		SourceType: models.SourceTransfer,
		SourceID:   strPtr(t.ID),
		TxnDate:    t.TransferDate,
		Memo:       memo,
	})
	return err
}

func (s *transferService) postReversal(tx *gorm.DB, t *models.TransferMaster, bucketID string, dir models.Direction, memo string) error {
	target, err := ledgerTarget(tx, bucketID)
	if err != nil || target == "" {
		return err
	}
	if dir == models.DirectionOut {
		if err := requireBucketFunds(tx, target, t.Amount); err != nil {
			return err
		}
	}
	_, err = s.buckets.RecordTransaction(tx, BucketEntry{
		BucketID:   target,
		UserID:     t.UserID,
		Direction:  dir,
		Amount:     t.Amount,
		SourceType: models.SourceTransfer,
		SourceID:   strPtr(t.ID),
		TxnDate:    t.TransferDate,
		Memo:       memo,
	})
	return err
}

// bucketIn loads a live bucket and checks that it belongs to accountID.
func (s *transferService) bucketIn(tx *gorm.DB, userID, bucketID, accountID string) (*models.Bucket, error) {
	bucket, err := findLiveBucket(tx, userID, bucketID)
	if err != nil {
		return nil, err
	}
	if bucket.AccountID != accountID {
		return nil, apperrors.ErrBucketAccountMatch
	}
	return bucket, nil
}

func validateTransferInput(in TransferInput) error {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "from and to accounts are required")
	}
	if in.TransferDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer date is required")
	}
	if err := requirePositive(in.Amount, "amount"); err != nil {
		return err
	}
	if in.FromAccountID == in.ToAccountID {
		if in.FromBucketID == nil || in.ToBucketID == nil || *in.FromBucketID == *in.ToBucketID {
			return apperrors.ErrSameAccountTransfer
		}
	}
	return nil
}

func assignTransfer(t *models.TransferMaster, in TransferInput) {
	t.FromAccountID = in.FromAccountID
	t.ToAccountID = in.ToAccountID
	t.FromBucketID = in.FromBucketID
	t.ToBucketID = in.ToBucketID
	t.TransferDate = frequency.Date(in.TransferDate)
	t.Amount = cents(in.Amount)
	t.Memo = in.Memo
}

func findLiveTransfer(db *gorm.DB, userID, transferID string) (*models.TransferMaster, error) {
	var transfer models.TransferMaster
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", transferID, userID).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransferNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transfer, nil
}
