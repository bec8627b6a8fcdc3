package services

import (
	"testing"

	"budgethq/internal/pagination"
	"budgethq/internal/testutil"
)

func TestAdjustments(t *testing.T) {
	t.Run("signed_amounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		_, err := l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Bank fee", Amount: testutil.D("-12.50")})
		testutil.AssertNoError(t, err)
		_, err = l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Interest", Amount: testutil.D("0.75")})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "88.25")

		result, err := l.adjustments.GetAdjustments(user.ID, EntryFilter{AccountID: &account.ID}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 adjustments, got %d", result.TotalItems)
		}
	})

	t.Run("zero_and_blank_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		_, err := l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Nothing", Amount: testutil.D("0.001")})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		_, err = l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Amount: testutil.D("5")})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("update_and_delete_reverse", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		adj, err := l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Correction", Amount: testutil.D("40.00")})
		testutil.AssertNoError(t, err)

		_, err = l.adjustments.UpdateAdjustment(user.ID, adj.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Correction", Amount: testutil.D("-15.00")})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "85.00")

		testutil.AssertNoError(t, l.adjustments.DeleteAdjustment(user.ID, adj.ID))
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")
	})

	t.Run("previous_month_locked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		_, err := l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today.AddDate(0, -1, 0), Description: "Late", Amount: testutil.D("1")})
		testutil.AssertAppError(t, err, "MONTH_LOCKED")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")
	})
}
