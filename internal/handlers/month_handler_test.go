package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"budgethq/internal/models"
	"budgethq/internal/services"
	"budgethq/internal/testutil"
)

func TestSoftCloseRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.February, 27)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.February)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "400.00")
	cat := testutil.CreateTestCategory(t, s.db, s.user.ID)

	expectStatus(t, s.do("POST", "/payments", fmt.Sprintf(
		`{"account_id":"%s","spending_category_id":"%s","payment_date":"2026-02-10","description":"Rent","amount":"150"}`,
		account.ID, cat.ID)), http.StatusCreated)

	status := expectStatus(t, s.do("GET", "/soft-close", ""), http.StatusOK)
	if status["ready"] != true {
		t.Fatalf("expected the checklist to pass, got %v", status["checklist"])
	}
	if n := count(status["checklist"]); n != 5 {
		t.Errorf("expected 5 checklist items without reconciliation, got %d", n)
	}

	rec := s.do("POST", "/soft-close", `{"year":2026,"month":2,"reviewed_totals":true}`)
	assertErrorCode(t, expectStatus(t, rec, http.StatusBadRequest), "VALIDATION_FAILED")

	rec = s.do("POST", "/soft-close", `{"year":2026,"month":5,"reviewed_totals":true,"final_confirmation":true}`)
	assertErrorCode(t, expectStatus(t, rec, http.StatusConflict), "MONTH_NOT_OPEN")

	closed := object(t, expectStatus(t, s.do("POST", "/soft-close",
		`{"year":2026,"month":2,"reviewed_totals":true,"final_confirmation":true}`), http.StatusOK), "open_month")
	if closed["current_month"] != float64(3) || closed["current_year"] != float64(2026) {
		t.Fatalf("expected the cursor to advance to March, got %v", closed)
	}

	rec = s.do("POST", "/soft-close", `{"year":2026,"month":2,"reviewed_totals":true,"final_confirmation":true}`)
	assertErrorCode(t, expectStatus(t, rec, http.StatusConflict), "MONTH_ALREADY_CLOSED")

	snaps := expectStatus(t, s.do("GET", "/snapshots?year=2026&month=2", ""), http.StatusOK)
	dashboard := object(t, snaps, "dashboard")
	assertAmount(t, dashboard["total_spent"], "150")
	if n := count(snaps["accounts"]); n != 1 {
		t.Errorf("expected one account snapshot, got %d", n)
	}
	expectStatus(t, s.do("GET", "/snapshots?year=2026&month=1", ""), http.StatusNotFound)
	expectStatus(t, s.do("GET", "/snapshots?year=2026", ""), http.StatusBadRequest)

	worth := expectStatus(t, s.do("GET", "/snapshots/net-worth?from=2026-01-01&to=2026-12-31", ""), http.StatusOK)
	if n := count(worth["net_worth"]); n != 1 {
		t.Errorf("expected one net worth point, got %d", n)
	}

	reopened := object(t, expectStatus(t, s.do("POST", "/month/reopen", ""), http.StatusOK), "open_month")
	if reopened["current_month"] != float64(2) || reopened["reopen_count"] != float64(1) {
		t.Errorf("expected February reopened once, got %v", reopened)
	}
	open := object(t, expectStatus(t, s.do("GET", "/month", ""), http.StatusOK), "open_month")
	if open["current_month"] != float64(2) {
		t.Errorf("expected the open month to stay February, got %v", open["current_month"])
	}

	// The reopened month holds data, so a second step back is refused.
	assertErrorCode(t, expectStatus(t, s.do("POST", "/month/reopen", ""), http.StatusConflict), "REOPEN_BLOCKED")

	n := testutil.CountRows(t, s.db, &models.AuditLog{}, "action IN ?", []string{services.AuditCloseMonth, services.AuditReopenMonth})
	if n != 2 {
		t.Errorf("expected close and reopen audit entries, got %d", n)
	}
}

func TestSoftCloseRequiresReconciliation(t *testing.T) {
	s := newTestServer(t, true)
	pinClock(t, 2026, time.February, 27)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.February)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "100.00")

	adj := object(t, expectStatus(t, s.do("POST", "/adjustments", fmt.Sprintf(
		`{"account_id":"%s","adjustment_date":"2026-02-02","description":"Interest","amount":"1.25"}`, account.ID)),
		http.StatusCreated), "adjustment")

	status := expectStatus(t, s.do("GET", "/soft-close", ""), http.StatusOK)
	if status["ready"] != false {
		t.Fatal("expected an unreconciled adjustment to block the close")
	}

	rec := s.do("POST", "/soft-close", `{"year":2026,"month":2,"reviewed_totals":true,"final_confirmation":true}`)
	assertErrorCode(t, expectStatus(t, rec, http.StatusConflict), "CHECKLIST_FAILED")

	expectStatus(t, s.do("POST", "/reconciliation/toggle",
		fmt.Sprintf(`{"kind":"adjustment","id":"%s","reconciled":true}`, adj["id"])), http.StatusNoContent)

	status = expectStatus(t, s.do("GET", "/soft-close", ""), http.StatusOK)
	if status["ready"] != true {
		t.Errorf("expected the checklist to pass once reconciled, got %v", status["checklist"])
	}
}

func TestReconciliationRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.February, 27)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.February)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "1000.00")
	cat := testutil.CreateTestCategory(t, s.db, s.user.ID)
	base := "/accounts/" + account.ID + "/reconciliation"

	expectStatus(t, s.do("POST", "/payments", fmt.Sprintf(
		`{"account_id":"%s","spending_category_id":"%s","payment_date":"2026-02-03","description":"Groceries","amount":"120.40"}`,
		account.ID, cat.ID)), http.StatusCreated)

	summary := expectStatus(t, s.do("GET", base, ""), http.StatusOK)
	assertAmount(t, summary["budget_balance"], "879.6")
	if _, ok := summary["difference"]; ok {
		t.Error("expected no difference before an outside balance is set")
	}

	assertErrorCode(t, expectStatus(t, s.do("POST", base+"/mark", ""), http.StatusBadRequest), "VALIDATION_FAILED")

	expectStatus(t, s.do("PUT", base+"/outside-balance", `{"outside_balance":"879.50"}`), http.StatusOK)
	summary = expectStatus(t, s.do("GET", base, ""), http.StatusOK)
	assertAmount(t, summary["difference"], "-0.1")
	assertErrorCode(t, expectStatus(t, s.do("POST", base+"/mark", ""), http.StatusConflict), "RECONCILIATION_VARIANCE")

	expectStatus(t, s.do("PUT", base+"/statement-counts", `{"payments":2}`), http.StatusOK)
	diag := expectStatus(t, s.do("GET", base+"/diagnostics", ""), http.StatusOK)
	if count(diag["mismatches"]) != 1 {
		t.Errorf("expected a payment count mismatch, got %v", diag["mismatches"])
	}

	expectStatus(t, s.do("PUT", base+"/outside-balance", `{"outside_balance":"879.60"}`), http.StatusOK)
	record := object(t, expectStatus(t, s.do("POST", base+"/mark", ""), http.StatusOK), "reconciliation")
	if record["status"] != string(models.ReconciliationReconciled) {
		t.Errorf("expected a reconciled record, got %v", record["status"])
	}

	rec := s.do("POST", "/reconciliation/toggle", fmt.Sprintf(`{"kind":"loan","id":"%s","reconciled":true}`, uuid.NewString()))
	assertErrorCode(t, expectStatus(t, rec, http.StatusBadRequest), "VALIDATION_FAILED")

	rec = s.do("POST", "/reconciliation/toggle", fmt.Sprintf(`{"kind":"payment","id":"%s","reconciled":true}`, uuid.NewString()))
	assertErrorCode(t, expectStatus(t, rec, http.StatusNotFound), "PAYMENT_NOT_FOUND")
}

func TestSpendingLimitRoutes(t *testing.T) {
	s := newTestServer(t, false)
	cat := testutil.CreateTestCategory(t, s.db, s.user.ID)

	body := func(yyyymm int, value string) string {
		return fmt.Sprintf(`{"scope":"CATEGORY","scope_id":"%s","value":"%s","effective_yyyymm":%d}`, cat.ID, value, yyyymm)
	}

	assertErrorCode(t, expectStatus(t, s.do("POST", "/spending-limits", body(202613, "100")), http.StatusBadRequest), "VALIDATION_FAILED")
	rec := s.do("POST", "/spending-limits", fmt.Sprintf(`{"scope":"ACCOUNT","scope_id":"%s","value":"1","effective_yyyymm":202601}`, cat.ID))
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, s.do("POST", "/spending-limits", body(202601, "300")), http.StatusCreated)
	expectStatus(t, s.do("POST", "/spending-limits", body(202604, "250")), http.StatusCreated)

	march := expectStatus(t, s.do("GET", "/spending-limits/for-month?scope=CATEGORY&yyyymm=202603", ""), http.StatusOK)
	assertAmount(t, object(t, march, "limits")[cat.ID], "300")

	june := expectStatus(t, s.do("GET", "/spending-limits/for-month?scope=CATEGORY&yyyymm=202606", ""), http.StatusOK)
	assertAmount(t, object(t, june, "limits")[cat.ID], "250")

	earlier := expectStatus(t, s.do("GET", "/spending-limits/for-month?scope=CATEGORY&yyyymm=202512", ""), http.StatusOK)
	if limits := object(t, earlier, "limits"); len(limits) != 0 {
		t.Errorf("expected no limit before the first effective month, got %v", limits)
	}

	history := expectStatus(t, s.do("GET", "/spending-limits?scope=CATEGORY&scope_id="+cat.ID, ""), http.StatusOK)
	if n := count(history["limits"]); n != 2 {
		t.Fatalf("expected two history rows, got %d", n)
	}

	expectStatus(t, s.do("DELETE", "/spending-limits/"+uuid.NewString(), ""), http.StatusNotFound)
}

func TestRecurringRoutes(t *testing.T) {
	s := newTestServer(t, false)
	pinClock(t, 2026, time.March, 5)
	testutil.SetOpenMonth(t, s.db, s.user.ID, 2026, time.March)
	account := testutil.CreateTestAccount(t, s.db, s.user.ID, "0")

	freq := object(t, expectStatus(t, s.do("POST", "/frequencies",
		`{"name":"Every 10 days","frequency_type":"standard","interval_days":10}`), http.StatusCreated), "frequency")
	expectStatus(t, s.do("POST", "/frequencies", `{"name":"Odd","frequency_type":"lunar"}`), http.StatusBadRequest)

	list := expectStatus(t, s.do("GET", "/frequencies", ""), http.StatusOK)
	if count(list["frequencies"]) == 0 {
		t.Error("expected at least the created frequency")
	}

	expectStatus(t, s.do("POST", "/recurring/income", fmt.Sprintf(
		`{"account_id":"%s","frequency_master_id":"%s","name":"Stipend","amount":"40","next_date":"2026-03-01"}`,
		account.ID, freq["id"])), http.StatusCreated)

	generated := expectStatus(t, s.do("POST", "/recurring/generate", ""), http.StatusOK)
	if created := object(t, generated, "income")["created"]; created != float64(1) {
		t.Fatalf("expected one generated income entry, got %v", generated["income"])
	}
	again := expectStatus(t, s.do("POST", "/recurring/generate", ""), http.StatusOK)
	if created := object(t, again, "income")["created"]; created != float64(0) {
		t.Errorf("expected nothing left to generate, got %v", again["income"])
	}

	// Generated deposits are expected, not received.
	entries := expectStatus(t, s.do("GET", "/income-entries", ""), http.StatusOK)
	if entries["total_items"] != float64(1) {
		t.Errorf("expected one income entry, got %v", entries["total_items"])
	}
	testutil.AssertDecimal(t, testutil.ReloadAccount(t, s.db, account.ID).Balance, "0.00")

	defs := expectStatus(t, s.do("GET", "/recurring/income", ""), http.StatusOK)
	if count(defs["recurring"]) != 1 {
		t.Fatalf("expected one income definition, got %v", defs["recurring"])
	}
	def := defs["recurring"].([]interface{})[0].(map[string]interface{})
	if def["next_date"] == nil || def["next_date"].(string)[:10] != "2026-03-11" {
		t.Errorf("expected the next date to advance ten days, got %v", def["next_date"])
	}

	assertErrorCode(t, expectStatus(t, s.do("DELETE", "/recurring/loan/"+uuid.NewString(), ""), http.StatusBadRequest), "VALIDATION_FAILED")
	expectStatus(t, s.do("DELETE", "/recurring/income/"+uuid.NewString(), ""), http.StatusNotFound)
	expectStatus(t, s.do("DELETE", "/recurring/income/"+def["id"].(string), ""), http.StatusNoContent)

	expectStatus(t, s.do("GET", "/recurring/obligations/projection", ""), http.StatusBadRequest)
	projection := expectStatus(t, s.do("GET", "/recurring/obligations/projection?year=2026&month=3", ""), http.StatusOK)
	if n := count(projection["obligations"]); n != 0 {
		t.Errorf("expected no obligations, got %d", n)
	}
}
