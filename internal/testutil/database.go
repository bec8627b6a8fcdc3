// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"fmt"
	"testing"

	"budgethq/internal/logger"
	"budgethq/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// allModels is the list of all GORM models to auto-migrate in tests.
var allModels = []interface{}{
	&models.User{},
	&models.Account{},
	&models.Bucket{},
	&models.BucketTransaction{},
	&models.SpendingType{},
	&models.SpendingCategory{},
	&models.Payment{},
	&models.IncomeEntry{},
	&models.TransferMaster{},
	&models.BalanceAdjustment{},
	&models.FrequencyMaster{},
	&models.IncomeRecurring{},
	&models.PaymentRecurring{},
	&models.RecurringObligation{},
	&models.SpendingLimitHistory{},
	&models.OpenMonthMaster{},
	&models.CloseMonthMaster{},
	&models.ReconciliationRecord{},
	&models.AccountMonthSnapshot{},
	&models.DashboardMonthSnapshot{},
	&models.NetWorthSnapshot{},
	&models.AuditLog{},
}

// AllModels returns every persisted model, in migration order.
func AllModels() []interface{} {
	return allModels
}

// SetupTestDB creates a private in-memory SQLite database with all models
// migrated. The pool holds a single connection so concurrent transactions
// serialize instead of failing on table locks.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init("test")

	dsn := fmt.Sprintf("file:budgethq_test_%d?mode=memory&cache=shared", nextID())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// QuietLogger silences the global logger for the duration of a test.
func QuietLogger(t *testing.T) {
	t.Helper()
	restore := logger.Replace(zap.NewNop())
	t.Cleanup(restore)
}
