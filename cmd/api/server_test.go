package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/config"
	"budgethq/internal/testutil"
	"budgethq/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

type testApp struct {
	router *gin.Engine
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	testutil.QuietLogger(t)
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cfg := config.DefaultConfig()
	cfg.Server.Env = "test"
	cfg.Auth.JWTSecret = "server-test-secret"
	cfg.Auth.AccessTTL = time.Minute
	cfg.Auth.RefreshTTL = time.Hour
	cfg.Ledger.RequireReconciliation = false
	config.Set(&cfg)

	return &testApp{router: newEngine(db, &cfg)}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func (app *testApp) registerUser(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["access_token"].(string)
}

func assertMoney(t *testing.T, got interface{}, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("expected a decimal string, got %T %v", got, got)
	}
	if !decimal.RequireFromString(s).Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s, got %s", want, s)
	}
}

func TestHealthAndCORS(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if parseJSON(t, rec)["currency"] != "USD" {
		t.Errorf("expected the configured currency label, got %s", rec.Body.String())
	}

	rec = app.request("OPTIONS", "/api/v1/accounts", "", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected preflight 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers on preflight")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on every response")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/accounts", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = app.request("GET", "/api/v1/accounts", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed token, got %d", rec.Code)
	}
}

func TestLedgerFlow(t *testing.T) {
	app := setupApp(t)
	alice := app.registerUser(t, "alice@test.com")
	bob := app.registerUser(t, "bob@test.com")
	today := time.Now().UTC().Format("2006-01-02")

	rec := app.request("POST", "/api/v1/accounts", `{"name":"Checking","balance":"250.00"}`, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	accountID := parseJSON(t, rec)["account"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", "/api/v1/spending-categories", `{"name":"Food"}`, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	categoryID := parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", "/api/v1/payments", fmt.Sprintf(
		`{"account_id":%q,"spending_category_id":%q,"payment_date":%q,"description":"Lunch","amount":"12.50"}`,
		accountID, categoryID, today), alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/accounts/"+accountID, "", alice)
	account := parseJSON(t, rec)["account"].(map[string]interface{})
	assertMoney(t, account["balance"], "237.50")

	// Another user cannot see the account.
	rec = app.request("GET", "/api/v1/accounts/"+accountID, "", bob)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's account, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/soft-close", "", alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)
	summary := status["summary"].(map[string]interface{})
	assertMoney(t, summary["total_spent"], "12.50")
}
