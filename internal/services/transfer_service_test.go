package services

import (
	"testing"

	"budgethq/internal/models"
	"budgethq/internal/pagination"
	"budgethq/internal/testutil"
	"budgethq/internal/uuid"
)

func TestCreateTransfer(t *testing.T) {
	t.Run("cross_account_credits_default_bucket", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "500.00")
		fromBucket := testutil.CreateTestBucket(t, db, from, true, 0, "500.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		toBucket := testutil.CreateTestBucket(t, db, to, true, 0, "100.00")

		transfer, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			FromBucketID:  &fromBucket.ID,
			TransferDate:  today,
			Amount:        testutil.D("200.00"),
		})
		testutil.AssertNoError(t, err)

		if transfer.ToBucketID == nil || *transfer.ToBucketID != toBucket.ID {
			t.Errorf("expected destination bucket %s to be recorded, got %v", toBucket.ID, transfer.ToBucketID)
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "300.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "300.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, fromBucket.ID).CurrentBalance, "300.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, toBucket.ID).CurrentBalance, "300.00")
		testutil.AssertBucketFold(t, db, fromBucket.ID)
		testutil.AssertBucketFold(t, db, toBucket.ID)
	})

	t.Run("account_without_buckets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "50.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")

		transfer, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, TransferDate: today, Amount: testutil.D("50.00"),
		})
		testutil.AssertNoError(t, err)
		if transfer.ToBucketID != nil {
			t.Errorf("expected no destination bucket, got %s", *transfer.ToBucketID)
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "0.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "50.00")
	})

	t.Run("bucket_move_keeps_account_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "400.00")
		def := testutil.CreateTestBucket(t, db, account, true, 0, "300.00")
		savings := testutil.CreateTestBucket(t, db, account, false, 1, "100.00")

		_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: account.ID,
			ToAccountID:   account.ID,
			FromBucketID:  &def.ID,
			ToBucketID:    &savings.ID,
			TransferDate:  today,
			Amount:        testutil.D("120.00"),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, account.ID).Balance, "400.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, def.ID).CurrentBalance, "180.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, savings.ID).CurrentBalance, "220.00")
		testutil.AssertBucketFold(t, db, def.ID)
		testutil.AssertBucketFold(t, db, savings.ID)
	})

	t.Run("same_account_needs_two_buckets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		def := testutil.CreateTestBucket(t, db, account, true, 0, "100.00")

		_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: account.ID, ToAccountID: account.ID, TransferDate: today, Amount: testutil.D("10"),
		})
		testutil.AssertAppError(t, err, "SAME_ACCOUNT_TRANSFER")

		_, err = l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: account.ID, ToAccountID: account.ID, FromBucketID: &def.ID, ToBucketID: &def.ID,
			TransferDate: today, Amount: testutil.D("10"),
		})
		testutil.AssertAppError(t, err, "SAME_ACCOUNT_TRANSFER")
	})

	t.Run("insufficient_bucket_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		fromBucket := testutil.CreateTestBucket(t, db, from, true, 0, "40.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")

		_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, FromBucketID: &fromBucket.ID,
			TransferDate: today, Amount: testutil.D("60.00"),
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "100.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "0.00")
		if n := testutil.CountRows(t, db, &models.TransferMaster{}, "user_id = ?", user.ID); n != 0 {
			t.Errorf("expected no transfer rows, got %d", n)
		}
	})

	t.Run("bucket_from_other_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		toBucket := testutil.CreateTestBucket(t, db, to, true, 0, "100.00")

		_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, FromBucketID: &toBucket.ID,
			TransferDate: today, Amount: testutil.D("10"),
		})
		testutil.AssertAppError(t, err, "BUCKET_ACCOUNT_MISMATCH")
	})

	t.Run("outside_open_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")

		_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, TransferDate: today.AddDate(0, -1, 0), Amount: testutil.D("10"),
		})
		testutil.AssertAppError(t, err, "MONTH_LOCKED")
	})
}

func TestUpdateTransfer(t *testing.T) {
	t.Run("reverses_then_reapplies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "500.00")
		fromBucket := testutil.CreateTestBucket(t, db, from, true, 0, "500.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")
		toBucket := testutil.CreateTestBucket(t, db, to, true, 0, "0")

		in := TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, FromBucketID: &fromBucket.ID,
			TransferDate: today, Amount: testutil.D("200.00"),
		}
		transfer, err := l.transfers.CreateTransfer(user.ID, in)
		testutil.AssertNoError(t, err)

		in.Amount = testutil.D("50.00")
		updated, err := l.transfers.UpdateTransfer(user.ID, transfer.ID, in)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, updated.Amount, "50.00")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "450.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "50.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, fromBucket.ID).CurrentBalance, "450.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, toBucket.ID).CurrentBalance, "50.00")
		testutil.AssertBucketFold(t, db, fromBucket.ID)
		testutil.AssertBucketFold(t, db, toBucket.ID)
	})

	t.Run("auto_transfer_is_read_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")

		payment := &models.Payment{
			Base:        models.Base{ID: uuid.New()},
			UserID:      user.ID,
			AccountID:   to.ID,
			PaymentDate: today,
			Description: "Groceries",
			Amount:      testutil.D("25.00"),
		}
		auto, err := l.transfers.CreateAutoTransferWithDB(db, payment, from.ID)
		testutil.AssertNoError(t, err)
		if auto.Memo != "Auto-transfer for payment: Groceries" {
			t.Errorf("unexpected memo %q", auto.Memo)
		}

		_, err = l.transfers.UpdateTransfer(user.ID, auto.ID, TransferInput{
			FromAccountID: from.ID, ToAccountID: to.ID, TransferDate: today, Amount: testutil.D("1"),
		})
		testutil.AssertAppError(t, err, "AUTO_TRANSFER")
		testutil.AssertAppError(t, l.transfers.DeleteTransfer(user.ID, auto.ID), "AUTO_TRANSFER")

		testutil.AssertNoError(t, l.transfers.RemoveAutoTransfersWithDB(db, payment.ID))
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "100.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "0.00")
		if _, err := l.transfers.GetTransferByID(user.ID, auto.ID); err == nil {
			t.Error("expected removed auto transfer to be hidden")
		}
	})
}

func TestDeleteTransfer(t *testing.T) {
	t.Run("restores_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "300.00")
		def := testutil.CreateTestBucket(t, db, account, true, 0, "300.00")
		goal := testutil.CreateTestBucket(t, db, account, false, 1, "0")

		transfer, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: account.ID, ToAccountID: account.ID, FromBucketID: &def.ID, ToBucketID: &goal.ID,
			TransferDate: today, Amount: testutil.D("75.00"),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, l.transfers.DeleteTransfer(user.ID, transfer.ID))

		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, def.ID).CurrentBalance, "300.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, goal.ID).CurrentBalance, "0.00")
		testutil.AssertBucketFold(t, db, def.ID)
		testutil.AssertBucketFold(t, db, goal.ID)

		_, err = l.transfers.GetTransferByID(user.ID, transfer.ID)
		testutil.AssertAppError(t, err, "TRANSFER_NOT_FOUND")
	})

	t.Run("reversal_follows_deleted_bucket", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, user.ID, "300.00")
		def := testutil.CreateTestBucket(t, db, account, true, 0, "300.00")
		goal := testutil.CreateTestBucket(t, db, account, false, 1, "0")

		transfer, err := l.transfers.CreateTransfer(user.ID, TransferInput{
			FromAccountID: account.ID, ToAccountID: account.ID, FromBucketID: &def.ID, ToBucketID: &goal.ID,
			TransferDate: today, Amount: testutil.D("75.00"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, l.buckets.DeleteBucket(user.ID, goal.ID))
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, def.ID).CurrentBalance, "300.00")

		testutil.AssertNoError(t, l.transfers.DeleteTransfer(user.ID, transfer.ID))

		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, def.ID).CurrentBalance, "300.00")
		testutil.AssertBucketFold(t, db, def.ID)
		testutil.AssertBucketFold(t, db, goal.ID)
	})

	t.Run("spent_destination_blocks_reversal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		from := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		to := testutil.CreateTestAccount(t, db, user.ID, "0")
		main := testutil.CreateTestBucket(t, db, to, true, 0, "0")
		rent := testutil.CreateTestBucket(t, db, to, false, 1, "0")

		in := TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, TransferDate: today, Amount: testutil.D("100.00")}
		transfer, err := l.transfers.CreateTransfer(user.ID, in)
		testutil.AssertNoError(t, err)
		_, err = l.buckets.FundBucket(user.ID, rent.ID, main.ID, testutil.D("100.00"))
		testutil.AssertNoError(t, err)

		testutil.AssertAppError(t, l.transfers.DeleteTransfer(user.ID, transfer.ID), "INSUFFICIENT_FUNDS")
		in.Amount = testutil.D("40.00")
		_, err = l.transfers.UpdateTransfer(user.ID, transfer.ID, in)
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, from.ID).Balance, "0.00")
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, db, to.ID).Balance, "100.00")
		testutil.AssertDecimal(t, testutil.ReloadBucket(t, db, main.ID).CurrentBalance, "0.00")
		testutil.AssertBucketFold(t, db, main.ID)
		_, err = l.transfers.GetTransferByID(user.ID, transfer.ID)
		testutil.AssertNoError(t, err)
	})
}

func TestGetTransfers(t *testing.T) {
	t.Run("account_filter_matches_either_side", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(db)
		user := testutil.CreateTestUser(t, db)
		today := openToday(t, db, user.ID)
		a := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		b := testutil.CreateTestAccount(t, db, user.ID, "100.00")
		c := testutil.CreateTestAccount(t, db, user.ID, "100.00")

		for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}} {
			_, err := l.transfers.CreateTransfer(user.ID, TransferInput{
				FromAccountID: pair[0], ToAccountID: pair[1], TransferDate: today, Amount: testutil.D("5"),
			})
			testutil.AssertNoError(t, err)
		}

		result, err := l.transfers.GetTransfers(user.ID, EntryFilter{AccountID: &b.ID}, pagination.PageRequest{Page: 1, PageSize: 10})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 transfers touching b, got %d", result.TotalItems)
		}
	})
}
