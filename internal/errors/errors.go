// Package errors provides custom error types for the BudgetHQ API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError into the ledger's failure taxonomy.
type Kind string

const (
	KindValidation         Kind = "ValidationFailed"
	KindInsufficientFunds  Kind = "InsufficientFunds"
	KindConflict           Kind = "ConflictingState"
	KindNotFound           Kind = "NotFound"
	KindInvariantViolation Kind = "InvariantViolation"
	KindUnauthorized       Kind = "Unauthorized"
	KindInternal           Kind = "Internal"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"-"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches two AppErrors by code, so wrapped copies of a sentinel
// still satisfy errors.Is(err, sentinel).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// KindOf reports the taxonomy kind of err. Errors that are not AppErrors are Internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func newErr(kind Kind, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Kind: kind, StatusCode: status}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = newErr(KindUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrInvalidCredentials = newErr(KindUnauthorized, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrForbidden          = newErr(KindUnauthorized, http.StatusForbidden, "FORBIDDEN", "Access denied")
	ErrAccountLocked      = newErr(KindUnauthorized, http.StatusLocked, "ACCOUNT_LOCKED", "Account is temporarily locked")
)

// General errors.
var (
	ErrInvalidInput      = newErr(KindValidation, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid input")
	ErrNotFound          = newErr(KindNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrConflict          = newErr(KindConflict, http.StatusConflict, "CONFLICTING_STATE", "Request conflicts with current state")
	ErrInsufficientFunds = newErr(KindInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds")
	ErrInvariant         = newErr(KindInvariantViolation, http.StatusInternalServerError, "INVARIANT_VIOLATION", "Ledger invariant violated")
	ErrInternalServer    = newErr(KindInternal, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
)

// User errors.
var (
	ErrUserNotFound   = newErr(KindNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrDuplicateEmail = newErr(KindConflict, http.StatusConflict, "DUPLICATE_EMAIL", "A user with this email already exists")
)

// Account errors.
var (
	ErrAccountNotFound    = newErr(KindNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found")
	ErrDuplicateAccount   = newErr(KindValidation, http.StatusBadRequest, "DUPLICATE_ACCOUNT_NAME", "An account with this name already exists")
	ErrAccountInUse       = newErr(KindConflict, http.StatusConflict, "ACCOUNT_IN_USE", "Account has live buckets or active recurring items")
	ErrBalanceNotEditable = newErr(KindConflict, http.StatusConflict, "BALANCE_NOT_EDITABLE", "Use a balance adjustment to change the balance")
)

// Bucket errors.
var (
	ErrBucketNotFound      = newErr(KindNotFound, http.StatusNotFound, "BUCKET_NOT_FOUND", "Bucket not found")
	ErrDuplicateBucket     = newErr(KindValidation, http.StatusBadRequest, "DUPLICATE_BUCKET_NAME", "A bucket with this name already exists in this account")
	ErrDefaultBucketExists = newErr(KindConflict, http.StatusConflict, "DEFAULT_BUCKET_EXISTS", "This account already has a default bucket")
	ErrPrimaryBucketExists = newErr(KindConflict, http.StatusConflict, "PRIMARY_BUCKET_EXISTS", "Priority 0 is reserved for the default bucket")
	ErrDefaultBucketDelete = newErr(KindConflict, http.StatusConflict, "DEFAULT_BUCKET_DELETE", "The default bucket cannot be deleted")
	ErrSelfFund            = newErr(KindConflict, http.StatusConflict, "SELF_FUND", "A bucket cannot be funded from itself")
	ErrBucketAccountMatch  = newErr(KindConflict, http.StatusConflict, "BUCKET_ACCOUNT_MISMATCH", "Bucket does not belong to the expected account")
	ErrInvalidBalance      = newErr(KindInvariantViolation, http.StatusInternalServerError, "INVALID_BALANCE", "Bucket balance cannot go negative")
)

// Spending taxonomy errors.
var (
	ErrCategoryNotFound     = newErr(KindNotFound, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Spending category not found")
	ErrSpendingTypeNotFound = newErr(KindNotFound, http.StatusNotFound, "SPENDING_TYPE_NOT_FOUND", "Spending type not found")
	ErrDuplicateCategory    = newErr(KindValidation, http.StatusBadRequest, "DUPLICATE_NAME", "A record with this name already exists")
	ErrCategoryInUse        = newErr(KindConflict, http.StatusConflict, "CATEGORY_IN_USE", "Category is used by existing payments")
)

// Ledger entry errors.
var (
	ErrPaymentNotFound     = newErr(KindNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
	ErrIncomeNotFound      = newErr(KindNotFound, http.StatusNotFound, "INCOME_ENTRY_NOT_FOUND", "Income entry not found")
	ErrTransferNotFound    = newErr(KindNotFound, http.StatusNotFound, "TRANSFER_NOT_FOUND", "Transfer not found")
	ErrAdjustmentNotFound  = newErr(KindNotFound, http.StatusNotFound, "ADJUSTMENT_NOT_FOUND", "Balance adjustment not found")
	ErrSameAccountTransfer = newErr(KindConflict, http.StatusConflict, "SAME_ACCOUNT_TRANSFER", "A same-account transfer needs two distinct buckets")
	ErrAutoTransfer        = newErr(KindConflict, http.StatusConflict, "AUTO_TRANSFER", "Auto-generated transfers change only through their payment")
	ErrMonthLocked         = newErr(KindConflict, http.StatusConflict, "MONTH_LOCKED", "Transaction date is outside the open month")
)

// Recurring errors.
var (
	ErrRecurringNotFound = newErr(KindNotFound, http.StatusNotFound, "RECURRING_NOT_FOUND", "Recurring item not found")
	ErrFrequencyNotFound = newErr(KindNotFound, http.StatusNotFound, "FREQUENCY_NOT_FOUND", "Frequency not found")
	ErrInvalidFrequency  = newErr(KindValidation, http.StatusBadRequest, "INVALID_FREQUENCY", "Frequency rule is malformed")
)

// Spending limit errors.
var (
	ErrLimitNotFound = newErr(KindNotFound, http.StatusNotFound, "LIMIT_NOT_FOUND", "Spending limit not found")
	ErrLimitConflict = newErr(KindConflict, http.StatusConflict, "LIMIT_CONFLICT", "Another limit change for this scope is in progress")
)

// Month close and reconciliation errors.
var (
	ErrMonthNotOpen           = newErr(KindConflict, http.StatusConflict, "MONTH_NOT_OPEN", "Requested month is not the open month")
	ErrMonthAlreadyClosed     = newErr(KindConflict, http.StatusConflict, "MONTH_ALREADY_CLOSED", "This month has already been closed")
	ErrChecklistFailed        = newErr(KindConflict, http.StatusConflict, "CHECKLIST_FAILED", "Soft close checklist has failing items")
	ErrReopenBlocked          = newErr(KindConflict, http.StatusConflict, "REOPEN_BLOCKED", "The open month already has data")
	ErrReconciliationVariance = newErr(KindConflict, http.StatusConflict, "RECONCILIATION_VARIANCE", "Outside balance does not match the budget balance")
)
