package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

// Memos written by the bucket lifecycle.
const (
	memoInitialAllocation = "Initial bucket allocation"
	memoSweepOut          = "Balance transferred to default bucket on deletion"
	memoSweepIn           = "Balance received from deleted bucket '%s'"
	memoMovedTo           = "Moved to '%s'"
	memoReceivedFrom      = "Received from '%s'"
)

// bucketService handles the bucket ledger and bucket lifecycle.
type bucketService struct {
	db *gorm.DB
}

// NewBucketService creates a new BucketServicer.
func NewBucketService(db *gorm.DB) BucketServicer {
	return &bucketService{db: db}
}

// RecordTransaction appends one row to a bucket's ledger and moves its
// balance by the same amount. The bucket row is locked first, so concurrent
// debits cannot jointly overdraw it.
func (s *bucketService) RecordTransaction(tx *gorm.DB, entry BucketEntry) (*models.BucketTransaction, error) {
	if err := requirePositive(entry.Amount, "amount"); err != nil {
		return nil, err
	}
	if entry.Direction != models.DirectionIn && entry.Direction != models.DirectionOut {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "direction must be IN or OUT")
	}
	if !entry.SourceType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown source type")
	}

	var bucket models.Bucket
	if err := forUpdate(tx).Where("id = ?", entry.BucketID).First(&bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBucketNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	amount := cents(entry.Amount)
	newBalance := bucket.CurrentBalance.Add(amount)
	if entry.Direction == models.DirectionOut {
		newBalance = bucket.CurrentBalance.Sub(amount)
	}
	if newBalance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidBalance,
			fmt.Sprintf("bucket '%s' would go to %s", bucket.Name, newBalance.StringFixed(2)))
	}

	userID := entry.UserID
	if userID == "" {
		userID = bucket.UserID
	}
	txnDate := entry.TxnDate
	if txnDate.IsZero() {
		txnDate = time.Now()
	}

	row := &models.BucketTransaction{
		UserID:     userID,
		BucketID:   bucket.ID,
		Direction:  entry.Direction,
		Amount:     amount,
		SourceType: entry.SourceType,
		SourceID:   entry.SourceID,
		TxnDate:    frequency.Date(txnDate),
		Memo:       entry.Memo,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&bucket).Update("current_balance", newBalance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return row, nil
}

// CreateBucket creates a bucket in an account. The first bucket becomes the
// default and captures the account balance; later buckets are funded from
// the default.
func (s *bucketService) CreateBucket(userID, accountID string, in BucketInput) (*models.Bucket, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "bucket name"); err != nil {
		return nil, err
	}
	if in.TargetAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount cannot be negative")
	}
	if in.InitialAllocation.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial allocation cannot be negative")
	}
	if in.Priority != nil && *in.Priority < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "priority cannot be negative")
	}

	var bucket *models.Bucket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Locking the account serializes bucket creation within it.
		account, err := findLiveAccount(forUpdate(tx), userID, accountID)
		if err != nil {
			return err
		}
		if err := s.checkNameAvailable(tx, userID, account.ID, name, ""); err != nil {
			return err
		}

		var stats struct {
			Count       int64
			MaxSort     int
			MaxPriority int
		}
		if err := tx.Model(&models.Bucket{}).Scopes(models.Live).Where("account_id = ?", account.ID).
			Select("COUNT(*) AS count, COALESCE(MAX(sort_order), 0) AS max_sort, COALESCE(MAX(priority), 0) AS max_priority").
			Scan(&stats).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		bucket = &models.Bucket{
			UserID:       userID,
			AccountID:    account.ID,
			Name:         name,
			TargetAmount: cents(in.TargetAmount),
			IsActive:     true,
			SortOrder:    stats.MaxSort + 1,
		}

		if stats.Count == 0 {
			bucket.IsDefault = true
			bucket.Priority = 0
			if err := s.insertBucket(tx, bucket); err != nil {
				return err
			}
			if account.Balance.IsPositive() {
				if _, err := s.RecordTransaction(tx, BucketEntry{
					BucketID:   bucket.ID,
					UserID:     userID,
					Direction:  models.DirectionIn,
					Amount:     account.Balance,
					SourceType: models.SourceInitial,
					Memo:       memoInitialAllocation,
				}); err != nil {
					return err
				}
			}
			return s.reload(tx, bucket)
		}

		if in.IsDefault {
			return apperrors.ErrDefaultBucketExists
		}
		bucket.Priority = stats.MaxPriority + 1
		if in.Priority != nil {
			if *in.Priority == 0 {
				return apperrors.ErrPrimaryBucketExists
			}
			bucket.Priority = *in.Priority
		}

		allocation := cents(in.InitialAllocation)
		var source *models.Bucket
		if allocation.IsPositive() {
			source, err = findDefaultBucket(forUpdate(tx), account.ID)
			if err != nil {
				return err
			}
			if source == nil {
				return apperrors.WithMessage(apperrors.ErrConflict, "account has no default bucket to allocate from")
			}
			if source.CurrentBalance.LessThan(allocation) {
				return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
					fmt.Sprintf("default bucket has %s available", source.CurrentBalance.StringFixed(2)))
			}
		}

		if err := s.insertBucket(tx, bucket); err != nil {
			return err
		}
		if source != nil {
			if err := s.moveFunds(tx, userID, source, bucket, allocation); err != nil {
				return err
			}
		}
		return s.reload(tx, bucket)
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// GetBuckets lists the live buckets of an account, default first.
func (s *bucketService) GetBuckets(userID, accountID string) ([]models.Bucket, error) {
	if _, err := findLiveAccount(s.db, userID, accountID); err != nil {
		return nil, err
	}
	var buckets []models.Bucket
	if err := s.db.Scopes(models.Live).Where("account_id = ? AND user_id = ?", accountID, userID).
		Order("priority ASC, sort_order ASC").Find(&buckets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return buckets, nil
}

// GetBucketByID retrieves a bucket by ID for a specific user.
func (s *bucketService) GetBucketByID(userID, bucketID string) (*models.Bucket, error) {
	return findLiveBucket(s.db, userID, bucketID)
}

// UpdateBucket updates a bucket's descriptive fields. Balances are never
// edited here.
func (s *bucketService) UpdateBucket(userID, bucketID string, fields BucketUpdateFields) (*models.Bucket, error) {
	var bucket *models.Bucket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		bucket, err = findLiveBucket(forUpdate(tx), userID, bucketID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if fields.Name != nil {
			name := strings.TrimSpace(*fields.Name)
			if err := validateName(name, "bucket name"); err != nil {
				return err
			}
			if !strings.EqualFold(name, bucket.Name) {
				if err := s.checkNameAvailable(tx, userID, bucket.AccountID, name, bucket.ID); err != nil {
					return err
				}
			}
			updates["name"] = name
		}
		if fields.TargetAmount != nil {
			if fields.TargetAmount.IsNegative() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount cannot be negative")
			}
			updates["target_amount"] = cents(*fields.TargetAmount)
		}
		if fields.Priority != nil && *fields.Priority != bucket.Priority {
			switch {
			case *fields.Priority < 0:
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "priority cannot be negative")
			case bucket.IsDefault:
				return apperrors.WithMessage(apperrors.ErrConflict, "the default bucket keeps priority 0")
			case *fields.Priority == 0:
				return apperrors.ErrPrimaryBucketExists
			}
			updates["priority"] = *fields.Priority
		}
		if fields.IsActive != nil {
			updates["is_active"] = *fields.IsActive
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(bucket).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.reload(tx, bucket)
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// MakeDefault moves the default flag and priority 0 to another bucket of the
// same account. The previous default takes over the new default's priority.
func (s *bucketService) MakeDefault(userID, bucketID string) (*models.Bucket, error) {
	var bucket *models.Bucket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		bucket, err = findLiveBucket(forUpdate(tx), userID, bucketID)
		if err != nil {
			return err
		}
		if bucket.IsDefault {
			return nil
		}

		current, err := findDefaultBucket(forUpdate(tx), bucket.AccountID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := tx.Model(current).Updates(map[string]interface{}{
				"is_default": false,
				"priority":   bucket.Priority,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Model(bucket).Updates(map[string]interface{}{
			"is_default": true,
			"priority":   0,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.reload(tx, bucket)
	})
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// DeleteBucket sweeps a non-default bucket's balance into the default bucket
// and soft-deletes it.
func (s *bucketService) DeleteBucket(userID, bucketID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		bucket, err := findLiveBucket(forUpdate(tx), userID, bucketID)
		if err != nil {
			return err
		}
		if bucket.IsDefault {
			return apperrors.ErrDefaultBucketDelete
		}

		if bucket.CurrentBalance.IsPositive() {
			target, err := findDefaultBucket(tx, bucket.AccountID)
			if err != nil {
				return err
			}
			if target == nil {
				return apperrors.WithMessage(apperrors.ErrConflict, "account has no default bucket to receive the balance")
			}
			if _, err := s.RecordTransaction(tx, BucketEntry{
				BucketID:   bucket.ID,
				UserID:     userID,
				Direction:  models.DirectionOut,
				Amount:     bucket.CurrentBalance,
				SourceType: models.SourceAdjustment,
				Memo:       memoSweepOut,
			}); err != nil {
				return err
			}
			if _, err := s.RecordTransaction(tx, BucketEntry{
				BucketID:   target.ID,
				UserID:     userID,
				Direction:  models.DirectionIn,
				Amount:     bucket.CurrentBalance,
				SourceType: models.SourceAdjustment,
				Memo:       fmt.Sprintf(memoSweepIn, bucket.Name),
			}); err != nil {
				return err
			}
		}

		return softDelete(tx, bucket)
	})
}

// FundBucket moves an amount from one bucket to another in the same account.
func (s *bucketService) FundBucket(userID, toBucketID, fromBucketID string, amount decimal.Decimal) (*models.Bucket, error) {
	if err := requirePositive(amount, "amount"); err != nil {
		return nil, err
	}
	if toBucketID == fromBucketID {
		return nil, apperrors.ErrSelfFund
	}

	var dest *models.Bucket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		source, err := findLiveBucket(forUpdate(tx), userID, fromBucketID)
		if err != nil {
			return err
		}
		dest, err = findLiveBucket(forUpdate(tx), userID, toBucketID)
		if err != nil {
			return err
		}
		if source.AccountID != dest.AccountID {
			return apperrors.ErrBucketAccountMatch
		}
		amount = cents(amount)
		if source.CurrentBalance.LessThan(amount) {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("bucket '%s' has %s available", source.Name, source.CurrentBalance.StringFixed(2)))
		}
		if err := s.moveFunds(tx, userID, source, dest, amount); err != nil {
			return err
		}
		return s.reload(tx, dest)
	})
	if err != nil {
		return nil, err
	}
	return dest, nil
}

// GetBucketTransactions lists a bucket's ledger, newest first.
func (s *bucketService) GetBucketTransactions(userID, bucketID string, page pagination.PageRequest) (*pagination.PageResponse[models.BucketTransaction], error) {
	if _, err := findLiveBucket(s.db, userID, bucketID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.BucketTransaction{}).Where("bucket_id = ?", bucketID)
	result, err := pagination.Fetch[models.BucketTransaction](base, "txn_date DESC, created_at DESC, id DESC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// VerifyLedger recomputes a bucket's balance from its ledger rows.
func (s *bucketService) VerifyLedger(userID, bucketID string) (*LedgerCheck, error) {
	bucket, err := findLiveBucket(s.db, userID, bucketID)
	if err != nil {
		return nil, err
	}
	var rows []models.BucketTransaction
	if err := s.db.Where("bucket_id = ?", bucket.ID).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	folded := decimal.Zero
	for _, r := range rows {
		folded = folded.Add(r.Signed())
	}
	drift := bucket.CurrentBalance.Sub(folded)
	return &LedgerCheck{
		BucketID:       bucket.ID,
		CurrentBalance: bucket.CurrentBalance,
		LedgerBalance:  folded,
		Drift:          drift,
		Transactions:   int64(len(rows)),
		Consistent:     drift.IsZero(),
	}, nil
}

// moveFunds writes the paired FUND_MOVE rows between two buckets.
func (s *bucketService) moveFunds(tx *gorm.DB, userID string, from, to *models.Bucket, amount decimal.Decimal) error {
	if _, err := s.RecordTransaction(tx, BucketEntry{
		BucketID:   from.ID,
		UserID:     userID,
		Direction:  models.DirectionOut,
		Amount:     amount,
		SourceType: models.SourceFundMove,
		Memo:       fmt.Sprintf(memoMovedTo, to.Name),
	}); err != nil {
		return err
	}
	_, err := s.RecordTransaction(tx, BucketEntry{
		BucketID:   to.ID,
		UserID:     userID,
		Direction:  models.DirectionIn,
		Amount:     amount,
		SourceType: models.SourceFundMove,
		Memo:       fmt.Sprintf(memoReceivedFrom, from.Name),
	})
	return err
}

func (s *bucketService) insertBucket(tx *gorm.DB, bucket *models.Bucket) error {
	if err := tx.Create(bucket).Error; err != nil {
		if isUniqueConstraintError(err) {
			if bucket.IsDefault {
				return apperrors.ErrDefaultBucketExists
			}
			return apperrors.ErrPrimaryBucketExists
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *bucketService) reload(tx *gorm.DB, bucket *models.Bucket) error {
	if err := tx.Where("id = ?", bucket.ID).First(bucket).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *bucketService) checkNameAvailable(db *gorm.DB, userID, accountID, name, exceptID string) error {
	q := db.Model(&models.Bucket{}).Scopes(models.Live).
		Where("user_id = ? AND account_id = ? AND LOWER(name) = LOWER(?)", userID, accountID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateBucket
	}
	return nil
}
