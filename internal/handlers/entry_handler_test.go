package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/services"
	"budgethq/internal/testutil"
)

func TestPaymentRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.February, 15)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.February)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "200.00")
	cat := testutil.CreateTestCategory(t, s.db, s.user.ID)

	body := func(date, amount string) string {
		return fmt.Sprintf(`{"account_id":"%s","spending_category_id":"%s","payment_date":"%s","description":"Groceries","amount":"%s"}`,
			account.ID, cat.ID, date, amount)
	}

	t.Run("create_update_delete", func(t *testing.T) {
		payment := object(t, expectStatus(t, s.do("POST", "/payments", body("2026-02-03", "45.10")), http.StatusCreated), "payment")
		id := payment["id"].(string)
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "154.90")

		expectStatus(t, s.do("PUT", "/payments/"+id, body("2026-02-04", "50.00")), http.StatusOK)
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "150.00")

		expectStatus(t, s.do("DELETE", "/payments/"+id, ""), http.StatusNoContent)
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "200.00")
		assertErrorCode(t, expectStatus(t, s.do("GET", "/payments/"+id, ""), http.StatusNotFound), "PAYMENT_NOT_FOUND")

		n := testutil.CountRows(t, s.db, &models.AuditLog{}, "user_id = ? AND resource_id = ?", s.user.ID, id)
		if n != 3 {
			t.Errorf("expected create, update and delete audit entries, got %d", n)
		}
	})

	t.Run("rejects_locked_and_malformed_dates", func(t *testing.T) {
		assertErrorCode(t, expectStatus(t, s.do("POST", "/payments", body("2026-01-31", "5")), http.StatusConflict), "MONTH_LOCKED")
		assertErrorCode(t, expectStatus(t, s.do("POST", "/payments", body("02/03/2026", "5")), http.StatusBadRequest), "VALIDATION_FAILED")
		assertErrorCode(t, expectStatus(t, s.do("GET", "/payments?from_date=yesterday", ""), http.StatusBadRequest), "VALIDATION_FAILED")
	})

	t.Run("listing_generates_due_recurring", func(t *testing.T) {
		monthly := testutil.CreateTestFrequency(t, s.db, frequency.Rule{Type: frequency.TypeStandard, Name: frequency.Monthly})
		expectStatus(t, s.do("POST", "/recurring/payments", fmt.Sprintf(
			`{"account_id":"%s","spending_category_id":"%s","frequency_master_id":"%s","description":"Gym","amount":"25.00","next_date":"2026-02-01"}`,
			account.ID, cat.ID, monthly.ID)), http.StatusCreated)

		list := expectStatus(t, s.do("GET", "/payments?account_id="+account.ID+"&from_date=2026-02-01&to_date=2026-02-28", ""), http.StatusOK)
		if list["total_items"] != float64(1) {
			t.Fatalf("expected the generated payment to be listed, got %v", list)
		}
		testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "175.00")

		again := expectStatus(t, s.do("GET", "/payments", ""), http.StatusOK)
		if again["total_items"] != float64(1) {
			t.Errorf("expected listing to be idempotent within the month, got %v", again["total_items"])
		}
	})
}

func TestIncomeAndAdjustmentRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.March, 10)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.March)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "0")

	rec := s.do("POST", "/income-entries", `{"source_name":"Salary","entry_date":"2026-03-01","amount":"1500","received_flag":true}`)
	expectStatus(t, rec, http.StatusBadRequest)

	income := object(t, expectStatus(t, s.do("POST", "/income-entries", fmt.Sprintf(
		`{"account_id":"%s","source_name":"Salary","entry_date":"2026-03-01","amount":"1500","received_flag":true}`, account.ID)),
		http.StatusCreated), "income")
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "1500.00")

	expectStatus(t, s.do("PUT", "/income-entries/"+income["id"].(string), fmt.Sprintf(
		`{"account_id":"%s","source_name":"Salary","entry_date":"2026-03-01","amount":"1500","received_flag":false}`, account.ID)),
		http.StatusOK)
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "0.00")

	adj := object(t, expectStatus(t, s.do("POST", "/adjustments", fmt.Sprintf(
		`{"account_id":"%s","adjustment_date":"2026-03-02","description":"Bank fee","amount":"-3.50"}`, account.ID)),
		http.StatusCreated), "adjustment")
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "-3.50")

	list := expectStatus(t, s.do("GET", "/adjustments?account_id="+account.ID, ""), http.StatusOK)
	if list["total_items"] != float64(1) {
		t.Errorf("expected 1 adjustment, got %v", list["total_items"])
	}

	expectStatus(t, s.do("DELETE", "/adjustments/"+adj["id"].(string), ""), http.StatusNoContent)
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "0.00")
}

func TestTransferRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.April, 20)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.April)
	from := testutil.CreateTestAccount(t, s.db, s.user.ID, "300.00")
	to := testutil.CreateTestAccount(t, s.db, s.user.ID, "0")
	toDefault := testutil.CreateTestBucket(t, s.db, to, true, 0, "0")

	transfer := object(t, expectStatus(t, s.do("POST", "/transfers", fmt.Sprintf(
		`{"from_account_id":"%s","to_account_id":"%s","transfer_date":"2026-04-02","amount":"80","memo":"Savings"}`, from.ID, to.ID)),
		http.StatusCreated), "transfer")
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, from.ID).Balance, "220.00")
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, to.ID).Balance, "80.00")
	testutil.AssertDecimal(t, testutil.ReloadBucket(t, s.db, toDefault.ID).CurrentBalance, "80.00")

	rec := s.do("POST", "/transfers", fmt.Sprintf(
		`{"from_account_id":"%s","to_account_id":"%s","transfer_date":"2026-04-02","amount":"10"}`, from.ID, from.ID))
	assertErrorCode(t, expectStatus(t, rec, http.StatusConflict), "SAME_ACCOUNT_TRANSFER")

	list := expectStatus(t, s.do("GET", "/transfers?account_id="+to.ID, ""), http.StatusOK)
	if list["total_items"] != float64(1) {
		t.Errorf("expected the transfer to match by destination, got %v", list["total_items"])
	}

	expectStatus(t, s.do("DELETE", "/transfers/"+transfer["id"].(string), ""), http.StatusNoContent)
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, from.ID).Balance, "300.00")
	testutil.AssertDecimal(t, testutil.ReloadBucket(t, s.db, toDefault.ID).CurrentBalance, "0.00")
	testutil.AssertBucketFold(t, s.db, toDefault.ID)

	if n := testutil.CountRows(t, s.db, &models.AuditLog{}, "action = ?", services.AuditDeleteTransfer); n != 1 {
		t.Errorf("expected one delete audit entry, got %d", n)
	}
}
