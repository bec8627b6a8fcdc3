package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"budgethq/internal/config"
	apperrors "budgethq/internal/errors"
	"budgethq/internal/logger"
	"budgethq/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "middleware-test-secret"
	cfg.Auth.AccessTTL = time.Minute
	cfg.Auth.RefreshTTL = time.Hour
	config.Set(&cfg)
}

var testUser = &models.User{Base: models.Base{ID: "0190f2a4-7f3e-7b4c-9d21-5f7f3a8e2c10"}, Email: "ada@example.com"}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})
	return r
}

func get(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	r := protectedRouter()

	t.Run("accepts_access_token", func(t *testing.T) {
		token, err := GenerateAccessToken(testUser)
		if err != nil {
			t.Fatal(err)
		}
		rec := get(r, "/me", "Bearer "+token)
		if rec.Code != http.StatusOK || rec.Body.String() != testUser.ID {
			t.Fatalf("expected 200 with user id, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects_refresh_token", func(t *testing.T) {
		token, err := GenerateRefreshToken(testUser)
		if err != nil {
			t.Fatal(err)
		}
		if rec := get(r, "/me", "Bearer "+token); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects_missing_and_malformed_headers", func(t *testing.T) {
		for _, header := range []string{"", "Token abc", "Bearer", "Bearer not.a.jwt"} {
			if rec := get(r, "/me", header); rec.Code != http.StatusUnauthorized {
				t.Errorf("header %q: expected 401, got %d", header, rec.Code)
			}
		}
	})
}

func TestValidateRefreshToken(t *testing.T) {
	refresh, _ := GenerateRefreshToken(testUser)
	claims, err := ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("expected a valid refresh token, got %v", err)
	}
	if claims.UserID != testUser.ID {
		t.Errorf("expected subject %s, got %s", testUser.ID, claims.UserID)
	}

	access, _ := GenerateAccessToken(testUser)
	if _, err := ValidateRefreshToken(access); err == nil {
		t.Error("expected an access token to be rejected as refresh token")
	}
	if len(HashToken(refresh)) != 64 {
		t.Error("expected a hex SHA-256 digest")
	}
}

func TestRequestLoggingAndErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(RequestLogging(), ErrorHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrMonthLocked)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("X-Request-ID", "0190f2a4-0000-7000-8000-000000000001")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "0190f2a4-0000-7000-8000-000000000001" {
		t.Errorf("expected the incoming request id to be echoed, got %q", got)
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 || entries[0].ContextMap()["status"] != int64(http.StatusConflict) {
		t.Errorf("expected one request log with status 409, got %+v", entries)
	}
}
