package services

import (
	"testing"

	"budgethq/internal/models"
	"budgethq/internal/pagination"
	"budgethq/internal/testutil"

	"github.com/shopspring/decimal"
)

func TestCreateAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, AccountInput{Name: "Checking", Balance: testutil.D("1200.50")})
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected an account ID")
		}
		testutil.AssertDecimal(t, account.Balance, "1200.50")
		testutil.AssertDecimal(t, account.BeginningBalance, "1200.50")
		if !account.BeginningSet {
			t.Error("expected beginning balance to be captured")
		}
		if !account.IncludeInBudget {
			t.Error("expected account to be included in budget by default")
		}
	})

	t.Run("zero_balance_not_captured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, AccountInput{Name: "Wallet"})
		testutil.AssertNoError(t, err)
		if account.BeginningSet {
			t.Error("expected zero opening balance to leave beginning balance open")
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(user.ID, AccountInput{Name: "  "})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("duplicate_name_case_insensitive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(user.ID, AccountInput{Name: "Savings"})
		testutil.AssertNoError(t, err)
		_, err = svc.CreateAccount(user.ID, AccountInput{Name: "SAVINGS"})
		testutil.AssertAppError(t, err, "DUPLICATE_ACCOUNT_NAME")
	})

	t.Run("name_reusable_after_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.CreateAccount(user.ID, AccountInput{Name: "Old"})
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeleteAccount(user.ID, first.ID))

		_, err = svc.CreateAccount(user.ID, AccountInput{Name: "old"})
		testutil.AssertNoError(t, err)
	})
}

func TestGetUserAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.CreateAccount(user.ID, AccountInput{Name: name})
		testutil.AssertNoError(t, err)
	}
	testutil.CreateTestAccount(t, db, other.ID, "10.00")

	result, err := svc.GetUserAccounts(user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if result.TotalItems != 3 {
		t.Errorf("expected 3 accounts, got %d", result.TotalItems)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 accounts on page, got %d", len(result.Data))
	}
	if result.Data[0].Name != "A" {
		t.Errorf("expected sort order to start with A, got %s", result.Data[0].Name)
	}
}

func TestGetAccountByID(t *testing.T) {
	t.Run("other_users_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, other.ID, "0")

		_, err := svc.GetAccountByID(user.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("deleted_account_hidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "0")

		testutil.AssertNoError(t, svc.DeleteAccount(user.ID, account.ID))
		_, err := svc.GetAccountByID(user.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Run("rename_and_flags", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		name := "Joint Checking"
		include := false
		updated, err := svc.UpdateAccount(user.ID, account.ID, AccountUpdateFields{Name: &name, IncludeInBudget: &include})
		testutil.AssertNoError(t, err)

		if updated.Name != name {
			t.Errorf("expected name %s, got %s", name, updated.Name)
		}
		if updated.IncludeInBudget {
			t.Error("expected include_in_budget to be false")
		}
	})

	t.Run("balance_locked_after_capture", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		balance := testutil.D("250.00")
		_, err := svc.UpdateAccount(user.ID, account.ID, AccountUpdateFields{Balance: &balance})
		testutil.AssertAppError(t, err, "BALANCE_NOT_EDITABLE")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")
	})

	t.Run("first_nonzero_balance_captured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "0")

		// An entry recorded before the opening balance was known.
		testutil.AssertNoError(t, svc.Adjust(db, account.ID, testutil.D("-20.00")))

		balance := testutil.D("500.00")
		updated, err := svc.UpdateAccount(user.ID, account.ID, AccountUpdateFields{Balance: &balance})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, updated.BeginningBalance, "500.00")
		testutil.AssertDecimal(t, updated.Balance, "480.00")
		if !updated.BeginningSet {
			t.Error("expected beginning balance to be captured")
		}

		again := testutil.D("600.00")
		_, err = svc.UpdateAccount(user.ID, account.ID, AccountUpdateFields{Balance: &again})
		testutil.AssertAppError(t, err, "BALANCE_NOT_EDITABLE")
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		first := testutil.CreateTestAccount(t, db, user.ID, "0")
		second := testutil.CreateTestAccount(t, db, user.ID, "0")

		name := first.Name
		_, err := svc.UpdateAccount(user.ID, second.ID, AccountUpdateFields{Name: &name})
		testutil.AssertAppError(t, err, "DUPLICATE_ACCOUNT_NAME")
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("blocked_by_bucket", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		testutil.CreateTestBucket(t, db, account, true, 0, "100.00")

		err := svc.DeleteAccount(user.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_IN_USE")
	})

	t.Run("blocked_by_active_recurring", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "0")
		category := testutil.CreateTestCategory(t, db, user.ID)
		fm := testutil.CreateTestFrequency(t, db, monthlyRule())

		rec := &models.PaymentRecurring{
			UserID: user.ID, AccountID: account.ID, SpendingCategoryID: category.ID,
			FrequencyMasterID: fm.ID, Description: "Rent", Amount: testutil.D("900"),
			NextDate: testutil.Today(), UseFlag: true,
		}
		testutil.AssertNoError(t, db.Create(rec).Error)

		err := svc.DeleteAccount(user.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_IN_USE")
	})

	t.Run("soft_deletes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID, "0")

		testutil.AssertNoError(t, svc.DeleteAccount(user.ID, account.ID))
		if !testutil.ReloadAccount(t, db, account.ID).IsDeleted() {
			t.Error("expected account row to remain with deleted_at set")
		}
	})
}

func TestAdjust(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountService(db)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

	testutil.AssertNoError(t, svc.Adjust(db, account.ID, testutil.D("-30.25")))
	testutil.AssertNoError(t, svc.Adjust(db, account.ID, testutil.D("10.10")))
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "79.85")

	err := svc.Adjust(db, "00000000-0000-0000-0000-000000000000", decimal.NewFromInt(1))
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

	total, err := svc.TotalBalance(user.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, total, "79.85")
}
