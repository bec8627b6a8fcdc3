package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgethq/internal/frequency"
	"budgethq/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// D parses a decimal literal, panicking on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return frequency.Date(time.Now())
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an account with the given opening balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string, balance string) *models.Account {
	t.Helper()

	amount := D(balance)
	account := &models.Account{
		UserID:           userID,
		Name:             fmt.Sprintf("Test Account %d", nextID()),
		AccountType:      "checking",
		Balance:          amount,
		BeginningBalance: amount,
		BeginningSet:     !amount.IsZero(),
		IncludeInBudget:  true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestBucket inserts a bucket together with the INITIAL ledger row that
// explains its balance.
func CreateTestBucket(t *testing.T, db *gorm.DB, account *models.Account, isDefault bool, priority int, balance string) *models.Bucket {
	t.Helper()

	amount := D(balance)
	bucket := &models.Bucket{
		UserID:         account.UserID,
		AccountID:      account.ID,
		Name:           fmt.Sprintf("Test Bucket %d", nextID()),
		IsDefault:      isDefault,
		Priority:       priority,
		CurrentBalance: amount,
		IsActive:       true,
	}
	if err := db.Create(bucket).Error; err != nil {
		t.Fatalf("failed to create test bucket: %v", err)
	}
	if amount.IsPositive() {
		row := &models.BucketTransaction{
			UserID:     account.UserID,
			BucketID:   bucket.ID,
			Direction:  models.DirectionIn,
			Amount:     amount,
			SourceType: models.SourceInitial,
			TxnDate:    Today(),
			Memo:       "fixture",
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to create test bucket transaction: %v", err)
		}
	}
	return bucket
}

// CreateTestSpendingType creates a spending type.
func CreateTestSpendingType(t *testing.T, db *gorm.DB, userID string) *models.SpendingType {
	t.Helper()

	st := &models.SpendingType{UserID: userID, Name: fmt.Sprintf("Type %d", nextID())}
	if err := db.Create(st).Error; err != nil {
		t.Fatalf("failed to create test spending type: %v", err)
	}
	return st
}

// CreateTestCategory creates a spending category.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.SpendingCategory {
	t.Helper()

	category := &models.SpendingCategory{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestFrequency stores a frequency rule.
func CreateTestFrequency(t *testing.T, db *gorm.DB, rule frequency.Rule) *models.FrequencyMaster {
	t.Helper()

	name := rule.Name
	if name == "" {
		name = fmt.Sprintf("Rule %d", nextID())
	}
	fm := &models.FrequencyMaster{
		Name:          name,
		FrequencyType: rule.Type,
		IntervalDays:  rule.IntervalDays,
		DayOfMonth:    rule.DayOfMonth,
		IsLastDay:     rule.IsLastDay,
		Weekday:       rule.Weekday,
		Ordinal:       rule.Ordinal,
		SortOrder:     int(nextID()),
		Active:        true,
	}
	if err := db.Create(fm).Error; err != nil {
		t.Fatalf("failed to create test frequency: %v", err)
	}
	return fm
}

// SetOpenMonth pins the user's open month.
func SetOpenMonth(t *testing.T, db *gorm.DB, userID string, year int, month time.Month) *models.OpenMonthMaster {
	t.Helper()

	var om models.OpenMonthMaster
	err := db.Where("user_id = ?", userID).
		Assign(map[string]interface{}{"current_year": year, "current_month": int(month)}).
		FirstOrCreate(&om, models.OpenMonthMaster{UserID: userID, CurrentYear: year, CurrentMonth: int(month)}).Error
	if err != nil {
		t.Fatalf("failed to set open month: %v", err)
	}
	return &om
}

// ReloadAccount fetches the stored account.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.Where("id = ?", id).First(&account).Error; err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	return &account
}

// ReloadBucket fetches the stored bucket.
func ReloadBucket(t *testing.T, db *gorm.DB, id string) *models.Bucket {
	t.Helper()

	var bucket models.Bucket
	if err := db.Where("id = ?", id).First(&bucket).Error; err != nil {
		t.Fatalf("failed to reload bucket: %v", err)
	}
	return &bucket
}
