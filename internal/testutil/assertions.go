package testutil

import (
	"errors"
	"testing"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertKind checks the taxonomy kind of err.
func AssertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Errorf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertDecimal compares a decimal against a literal.
func AssertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(D(want)) {
		t.Errorf("expected %s, got %s", want, got.StringFixed(2))
	}
}

// AssertBucketFold checks that a bucket's balance equals the signed sum of
// its ledger rows.
func AssertBucketFold(t *testing.T, db *gorm.DB, bucketID string) {
	t.Helper()

	var bucket models.Bucket
	if err := db.Where("id = ?", bucketID).First(&bucket).Error; err != nil {
		t.Fatalf("failed to load bucket: %v", err)
	}
	var rows []models.BucketTransaction
	if err := db.Where("bucket_id = ?", bucketID).Find(&rows).Error; err != nil {
		t.Fatalf("failed to load bucket transactions: %v", err)
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Signed())
	}
	if !sum.Equal(bucket.CurrentBalance) {
		t.Errorf("bucket %s balance %s does not match ledger fold %s",
			bucketID, bucket.CurrentBalance.StringFixed(2), sum.StringFixed(2))
	}
	if bucket.CurrentBalance.IsNegative() {
		t.Errorf("bucket %s has negative balance %s", bucketID, bucket.CurrentBalance.StringFixed(2))
	}
}

// CountRows counts rows of a model matching a condition.
func CountRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}
