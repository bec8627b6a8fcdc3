package services

import (
	"testing"

	"gorm.io/gorm"

	"budgethq/internal/models"
	"budgethq/internal/pagination"
	"budgethq/internal/testutil"
)

func TestCreatePayment(t *testing.T) {
	t.Run("debits_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		payment, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Coffee", Amount: testutil.D("4.505"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, payment.Amount, "4.51")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "95.49")
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		valid := PaymentInput{AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Coffee", Amount: testutil.D("4")}

		zero := valid
		zero.Amount = testutil.D("0")
		_, err := l.payments.CreatePayment(user.ID, zero)
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		blank := valid
		blank.Description = " "
		_, err = l.payments.CreatePayment(user.ID, blank)
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		noBucket := valid
		noBucket.IsBucketExecution = true
		_, err = l.payments.CreatePayment(user.ID, noBucket)
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		badCategory := valid
		badCategory.SpendingCategoryID = missingID
		_, err = l.payments.CreatePayment(user.ID, badCategory)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")
	})

	t.Run("sub_cent_amount_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		other := testutil.CreateTestAccount(t, db, user.ID, "0")
		def := testutil.CreateTestBucket(t, db, account, true, 0, "100.00")
		goal := testutil.CreateTestBucket(t, db, account, false, 1, "0")
		cat := testutil.CreateTestCategory(t, db, user.ID)
		dust := testutil.D("0.004")

		_, err := l.payments.CreatePayment(user.ID, PaymentInput{AccountID: account.ID, SpendingCategoryID: cat.ID,
			PaymentDate: today, Description: "Dust", Amount: dust})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
		_, err = l.incomes.CreateIncome(user.ID, IncomeInput{AccountID: &account.ID, SourceName: "Dust",
			EntryDate: today, Amount: dust, ReceivedFlag: true})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
		_, err = l.transfers.CreateTransfer(user.ID, TransferInput{FromAccountID: account.ID, ToAccountID: other.ID,
			TransferDate: today, Amount: dust})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
		_, err = l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: account.ID,
			AdjustmentDate: today, Description: "Dust", Amount: dust.Neg()})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
		_, err = l.buckets.FundBucket(user.ID, goal.ID, def.ID, dust)
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
		err = db.Transaction(func(tx *gorm.DB) error {
			_, err := l.buckets.RecordTransaction(tx, BucketEntry{BucketID: def.ID, Direction: models.DirectionOut,
				Amount: dust, SourceType: models.SourceAdjustment})
			return err
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		if n := testutil.CountRows(t, db, &models.Payment{}, "user_id = ?", user.ID); n != 0 {
			t.Errorf("expected no payment rows, got %d", n)
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "100.00")
		testutil.AssertBucketFold(t, db, def.ID)
	})

	t.Run("bucket_execution_same_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "200.00")
		bucket := testutil.CreateTestBucket(t, db, account, true, 0, "200.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Groceries", Amount: testutil.D("80.00"),
			IsBucketExecution: true, BucketID: &bucket.ID,
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "120.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, bucket.ID).CurrentBalance, "120.00")
		testutil.AssertBucketFold(t, db, bucket.ID)
		if n := testutil.CountRows(t, db, &models.TransferMaster{}, "user_id = ?", user.ID); n != 0 {
			t.Errorf("expected no auto transfer for a same-account execution, got %d", n)
		}
	})

	t.Run("bucket_execution_insufficient", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "500.00")
		bucket := testutil.CreateTestBucket(t, db, account, true, 0, "30.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Shoes", Amount: testutil.D("30.01"),
			IsBucketExecution: true, BucketID: &bucket.ID,
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "500.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, bucket.ID).CurrentBalance, "30.00")
		if n := testutil.CountRows(t, db, &models.Payment{}, "user_id = ?", user.ID); n != 0 {
			t.Errorf("expected no payment rows, got %d", n)
		}
	})

	t.Run("outside_open_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today.AddDate(0, 1, 0),
			Description: "Future", Amount: testutil.D("1"),
		})
		testutil.AssertAppError(t, err, "MONTH_LOCKED")
	})
}

func TestBucketExecutionAcrossAccounts(t *testing.T) {
	t.Run("create_and_delete_round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		a := testutil.CreateTestAccount(t, db, user.ID, "200.00")
		b := testutil.CreateTestBucket(t, db, a, true, 0, "200.00")
		c := testutil.CreateTestAccount(t, db, user.ID, "0")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		payment, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: c.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Dentist", Amount: testutil.D("50.00"),
			IsBucketExecution: true, BucketID: &b.ID,
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, a.ID).Balance, "150.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, c.ID).Balance, "0.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, b.ID).CurrentBalance, "150.00")
		testutil.AssertBucketFold(t, db, b.ID)

		if n := testutil.CountRows(t, db, &models.BucketTransaction{},
			"bucket_id = ? AND direction = ? AND source_type = ? AND amount = ?",
			b.ID, models.DirectionOut, models.SourcePaymentExecution, testutil.D("50.00")); n != 1 {
			t.Errorf("expected one PAYMENT_EXECUTION OUT row, got %d", n)
		}

		var transfers []models.TransferMaster
		if err := db.Where("source_payment_id = ?", payment.ID).Find(&transfers).Error; err != nil {
			t.Fatalf("failed to load auto transfers: %v", err)
		}
		if len(transfers) != 1 {
			t.Fatalf("expected one auto transfer, got %d", len(transfers))
		}
		auto := transfers[0]
		if !auto.AutoGenerated || auto.FromAccountID != a.ID || auto.ToAccountID != c.ID {
			t.Errorf("unexpected auto transfer %+v", auto)
		}

		testutil.AssertNoError(t, l.payments.DeletePayment(user.ID, payment.ID))

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, a.ID).Balance, "200.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, c.ID).Balance, "0.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, b.ID).CurrentBalance, "200.00")
		testutil.AssertBucketFold(t, db, b.ID)
		if n := testutil.CountRows(t, db, &models.TransferMaster{}, "id = ? AND deleted_at IS NOT NULL", auto.ID); n != 1 {
			t.Error("expected auto transfer to be soft-deleted")
		}
	})
}

func TestUpdatePayment(t *testing.T) {
	t.Run("moves_between_accounts_and_buckets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		first := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		firstBucket := testutil.CreateTestBucket(t, db, first, true, 0, "100.00")
		second := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		payment, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: first.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Gym", Amount: testutil.D("40.00"),
			IsBucketExecution: true, BucketID: &firstBucket.ID,
		})
		testutil.AssertNoError(t, err)

		_, err = l.payments.UpdatePayment(user.ID, payment.ID, PaymentInput{
			AccountID: second.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Gym", Amount: testutil.D("25.00"),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, first.ID).Balance, "100.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, second.ID).Balance, "75.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, firstBucket.ID).CurrentBalance, "100.00")
		testutil.AssertBucketFold(t, db, firstBucket.ID)

		var reversal models.BucketTransaction
		if err := db.Where("bucket_id = ? AND memo = ?", firstBucket.ID, "Reversed: edit").First(&reversal).Error; err != nil {
			t.Fatalf("expected an edit reversal row: %v", err)
		}
	})

	t.Run("failed_reapply_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		bucket := testutil.CreateTestBucket(t, db, account, true, 0, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		payment, err := l.payments.CreatePayment(user.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Books", Amount: testutil.D("60.00"),
			IsBucketExecution: true, BucketID: &bucket.ID,
		})
		testutil.AssertNoError(t, err)

		_, err = l.payments.UpdatePayment(user.ID, payment.ID, PaymentInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, PaymentDate: today,
			Description: "Books", Amount: testutil.D("150.00"),
			IsBucketExecution: true, BucketID: &bucket.ID,
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "40.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, bucket.ID).CurrentBalance, "40.00")
		testutil.AssertBucketFold(t, db, bucket.ID)
		stored, err := l.payments.GetPaymentByID(user.ID, payment.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, stored.Amount, "60.00")
	})
}

func TestBalanceConservation(t *testing.T) {
	t.Run("deleting_everything_restores_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		checking := testutil.CreateTestAccount(t, db, user.ID, "1000.00")
		checkingBucket := testutil.CreateTestBucket(t, db, checking, true, 0, "1000.00")
		savings := testutil.CreateTestAccount(t, db, user.ID, "250.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		before, err := l.accounts.TotalBalance(user.ID)
		testutil.AssertNoError(t, err)

		p1, err := l.payments.CreatePayment(user.ID, PaymentInput{AccountID: checking.ID, SpendingCategoryID: cat.ID,
			PaymentDate: today, Description: "Rent", Amount: testutil.D("700.00")})
		testutil.AssertNoError(t, err)
		p2, err := l.payments.CreatePayment(user.ID, PaymentInput{AccountID: savings.ID, SpendingCategoryID: cat.ID,
			PaymentDate: today, Description: "Trip", Amount: testutil.D("120.00"),
			IsBucketExecution: true, BucketID: &checkingBucket.ID})
		testutil.AssertNoError(t, err)
		in1, err := l.incomes.CreateIncome(user.ID, IncomeInput{AccountID: &checking.ID, SourceName: "Salary",
			EntryDate: today, Amount: testutil.D("2000.00"), ReceivedFlag: true})
		testutil.AssertNoError(t, err)
		tr, err := l.transfers.CreateTransfer(user.ID, TransferInput{FromAccountID: checking.ID, ToAccountID: savings.ID,
			TransferDate: today, Amount: testutil.D("300.00")})
		testutil.AssertNoError(t, err)
		adj, err := l.adjustments.CreateAdjustment(user.ID, AdjustmentInput{AccountID: savings.ID,
			AdjustmentDate: today, Description: "Interest", Amount: testutil.D("3.21")})
		testutil.AssertNoError(t, err)

		mid, err := l.accounts.TotalBalance(user.ID)
		testutil.AssertNoError(t, err)
		// -700 -120 +2000 +3.21; transfers net to zero.
		testutil.AssertDecimal(t, mid.Sub(before), "1183.21")

		_, err = l.payments.UpdatePayment(user.ID, p1.ID, PaymentInput{AccountID: savings.ID, SpendingCategoryID: cat.ID,
			PaymentDate: today, Description: "Rent", Amount: testutil.D("650.00")})
		testutil.AssertNoError(t, err)
		_, err = l.transfers.UpdateTransfer(user.ID, tr.ID, TransferInput{FromAccountID: savings.ID, ToAccountID: checking.ID,
			TransferDate: today, Amount: testutil.D("10.00")})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, l.payments.DeletePayment(user.ID, p1.ID))
		testutil.AssertNoError(t, l.payments.DeletePayment(user.ID, p2.ID))
		testutil.AssertNoError(t, l.incomes.DeleteIncome(user.ID, in1.ID))
		testutil.AssertNoError(t, l.transfers.DeleteTransfer(user.ID, tr.ID))
		testutil.AssertNoError(t, l.adjustments.DeleteAdjustment(user.ID, adj.ID))

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, checking.ID).Balance, "1000.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, savings.ID).Balance, "250.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, checkingBucket.ID).CurrentBalance, "1000.00")
		testutil.AssertBucketFold(t, db, checkingBucket.ID)
	})
}

func TestGetPayments(t *testing.T) {
	t.Run("listing_generates_due_recurring", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)
		fm := testutil.CreateTestFrequency(t, db, monthlyRule())

		_, err := l.recurring.CreatePaymentRecurring(user.ID, PaymentRecurringInput{
			AccountID: account.ID, SpendingCategoryID: cat.ID, FrequencyMasterID: fm.ID,
			Description: "Streaming", Amount: testutil.D("9.99"), NextDate: today,
		})
		testutil.AssertNoError(t, err)

		result, err := l.payments.GetPayments(user.ID, today, EntryFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Fatalf("expected the generated payment to be listed, got %d", result.TotalItems)
		}
		if result.Data[0].PaymentRecurringID == nil {
			t.Error("expected generated payment to reference its definition")
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "90.01")
	})

	t.Run("filters_by_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		a := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		b := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		cat := testutil.CreateTestCategory(t, db, user.ID)

		for _, id := range []string{a.ID, a.ID, b.ID} {
			_, err := l.payments.CreatePayment(user.ID, PaymentInput{AccountID: id, SpendingCategoryID: cat.ID,
				PaymentDate: today, Description: "x", Amount: testutil.D("1")})
			testutil.AssertNoError(t, err)
		}

		result, err := l.payments.GetPayments(user.ID, today, EntryFilter{AccountID: &a.ID}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 payments for account a, got %d", result.TotalItems)
		}
	})
}
