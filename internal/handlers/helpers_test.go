package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"budgethq/internal/config"
	"budgethq/internal/models"
	"budgethq/internal/testutil"
	"budgethq/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()

	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "handler-test-secret"
	cfg.Auth.AccessTTL = time.Minute
	cfg.Auth.RefreshTTL = time.Hour
	config.Set(&cfg)
}

// testServer runs the full route table on a private SQLite database with the
// given user already authenticated.
type testServer struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	user   *models.User
}

func newTestServer(t *testing.T, requireReconciliation bool) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	testutil.QuietLogger(t)

	user := testutil.CreateTestUser(t, db)
	engine := gin.New()
	NewRouter(db, requireReconciliation).Register(engine.Group("/api/v1"), injectUserID(user.ID))
	return &testServer{t: t, db: db, engine: engine, user: user}
}

func injectUserID(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

// pinClock fixes the handlers' notion of today for the rest of the test.
func pinClock(t *testing.T, year int, month time.Month, day int) time.Time {
	t.Helper()
	now := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	prev := clock
	clock = func() time.Time { return now }
	t.Cleanup(func() { clock = prev })
	return now
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	return doRequest(s.engine, method, "/api/v1"+path, body)
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		return nil
	}
	return parseJSON(t, rec)
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// object returns the nested object stored under key.
func object(t *testing.T, result map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	obj, ok := result[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object under %q, got %v", key, result[key])
	}
	return obj
}

// assertAmount compares a JSON decimal, which may be encoded as a string or a
// number, with want.
func assertAmount(t *testing.T, got interface{}, want string) {
	t.Helper()
	var d decimal.Decimal
	var err error
	switch v := got.(type) {
	case string:
		d, err = decimal.NewFromString(v)
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		t.Fatalf("expected a decimal, got %T %v", got, got)
	}
	if err != nil {
		t.Fatalf("malformed decimal %v: %v", got, err)
	}
	if !d.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s, got %s", want, d)
	}
}

func doRequestWithAuth(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// count returns the length of a decoded JSON array, treating null as empty.
func count(v interface{}) int {
	items, _ := v.([]interface{})
	return len(items)
}
