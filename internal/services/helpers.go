package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
)

// isUniqueConstraintError checks if a GORM error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}

// forUpdate locks the selected rows until the surrounding transaction ends.
// SQLite has no row locks; there the single writer connection serializes.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// findLiveAccount loads a non-deleted account owned by userID.
func findLiveAccount(db *gorm.DB, userID, accountID string) (*models.Account, error) {
	var account models.Account
	err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// findLiveBucket loads a non-deleted bucket owned by userID.
func findLiveBucket(db *gorm.DB, userID, bucketID string) (*models.Bucket, error) {
	var bucket models.Bucket
	err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", bucketID, userID).First(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBucketNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &bucket, nil
}

// findDefaultBucket returns the account's default bucket, or nil when the
// account has no buckets.
func findDefaultBucket(db *gorm.DB, accountID string) (*models.Bucket, error) {
	var bucket models.Bucket
	err := db.Scopes(models.Live).Where("account_id = ? AND is_default = ?", accountID, true).First(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &bucket, nil
}

// softDelete stamps deleted_at on a row.
func softDelete(tx *gorm.DB, model interface{}) error {
	if err := tx.Model(model).Update("deleted_at", time.Now().UTC()).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// requirePositive rejects amounts that are not positive once rounded to
// cents, so 0.004 fails like 0.
func requirePositive(amount decimal.Decimal, field string) error {
	if !cents(amount).IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be greater than zero")
	}
	return nil
}

// cents rounds an amount to the stored precision.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func monthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func strPtr(s string) *string { return &s }

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ledgerTarget resolves the bucket a reversal should post to. A bucket that
// was deleted after the original entry had its balance swept into the
// account's default bucket, so the reversal follows the money there. An empty
// id means there is no bucket left to post to.
func ledgerTarget(tx *gorm.DB, bucketID string) (string, error) {
	var bucket models.Bucket
	if err := tx.Where("id = ?", bucketID).First(&bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !bucket.IsDeleted() {
		return bucket.ID, nil
	}
	def, err := findDefaultBucket(tx, bucket.AccountID)
	if err != nil || def == nil {
		return "", err
	}
	return def.ID, nil
}

// requireBucketFunds locks the bucket and fails with ErrInsufficientFunds
// when it holds less than amount.
func requireBucketFunds(tx *gorm.DB, bucketID string, amount decimal.Decimal) error {
	var bucket models.Bucket
	if err := forUpdate(tx).Where("id = ?", bucketID).First(&bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBucketNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if bucket.CurrentBalance.LessThan(amount) {
		return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
			fmt.Sprintf("bucket '%s' has %s available", bucket.Name, bucket.CurrentBalance.StringFixed(2)))
	}
	return nil
}

// applyEntryFilter narrows a query on a dated entry table.
func applyEntryFilter(q *gorm.DB, dateColumn string, filter EntryFilter) *gorm.DB {
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.FromDate != nil {
		q = q.Where(dateColumn+" >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		q = q.Where(dateColumn+" <= ?", *filter.ToDate)
	}
	return q
}

// yyyymm packs a calendar month as 202603.
func yyyymm(year int, month time.Month) int {
	return year*100 + int(month)
}

func validYYYYMM(v int) bool {
	month := v % 100
	return v >= 190001 && v <= 999912 && month >= 1 && month <= 12
}

// prevYYYYMM returns the month before v, wrapping January into December.
func prevYYYYMM(v int) int {
	if v%100 == 1 {
		return (v/100-1)*100 + 12
	}
	return v - 1
}
