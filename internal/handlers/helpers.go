package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/frequency"
	"budgethq/internal/logger"
	"budgethq/internal/middleware"
	"budgethq/internal/pagination"
	"budgethq/internal/services"
	"budgethq/internal/uuid"
)

const dateLayout = "2006-01-02"

// clock returns the current time. Tests pin it.
var clock = time.Now

func today() time.Time {
	return frequency.Date(clock().UTC())
}

// getUserID extracts the authenticated user ID from the Gin context.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString("userID")
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a UUID path parameter.
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be a YYYY-MM-DD date")
	}
	return d, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func invalidInput(err error) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, invalidInput(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondWithError(c, invalidInput(err))
		return false
	}
	return true
}

// EntryListQuery holds the query parameters shared by ledger entry listings.
type EntryListQuery struct {
	pagination.PageRequest
	AccountID string  `form:"account_id" binding:"omitempty,uuid"`
	FromDate  *string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate    *string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

func (q EntryListQuery) filter() (services.EntryFilter, error) {
	var f services.EntryFilter
	if q.AccountID != "" {
		f.AccountID = &q.AccountID
	}
	var err error
	if f.FromDate, err = parseOptionalDate("from_date", q.FromDate); err != nil {
		return f, err
	}
	if f.ToDate, err = parseOptionalDate("to_date", q.ToDate); err != nil {
		return f, err
	}
	return f, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	log := logger.Get().With("request_id", middleware.RequestID(c), "path", c.Request.URL.Path)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Errorw("unexpected error", "error", err.Error(), "method", c.Request.Method)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		log.Errorw("app error", "code", appErr.Code, "internal", appErr.Internal.Error())
	}

	c.JSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"kind":    appErr.Kind,
			"message": appErr.Message,
		},
	})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
