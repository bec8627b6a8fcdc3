package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/services"
)

// PaymentHandler serves payments. Listing materializes due recurring payments first.
type PaymentHandler struct {
	paymentService services.PaymentServicer
	auditService   services.AuditServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.PaymentServicer, auditService services.AuditServicer) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, auditService: auditService}
}

// PaymentRequest is the payload for creating or updating a payment.
type PaymentRequest struct {
	AccountID              string          `json:"account_id" binding:"required,uuid"`
	SpendingCategoryID     string          `json:"spending_category_id" binding:"required,uuid"`
	SpendingTypeOverrideID *string         `json:"spending_type_override_id" binding:"omitempty,uuid"`
	BucketID               *string         `json:"bucket_id" binding:"omitempty,uuid"`
	IsBucketExecution      bool            `json:"is_bucket_execution"`
	PaymentDate            string          `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Description            string          `json:"description" binding:"required,max=255"`
	Notes                  string          `json:"notes" binding:"max=1000"`
	Amount                 decimal.Decimal `json:"amount"`
}

func (r PaymentRequest) input() (services.PaymentInput, error) {
	date, err := parseDate("payment_date", r.PaymentDate)
	if err != nil {
		return services.PaymentInput{}, err
	}
	return services.PaymentInput{
		AccountID:              r.AccountID,
		SpendingCategoryID:     r.SpendingCategoryID,
		SpendingTypeOverrideID: r.SpendingTypeOverrideID,
		BucketID:               r.BucketID,
		IsBucketExecution:      r.IsBucketExecution,
		PaymentDate:            date,
		Description:            r.Description,
		Notes:                  r.Notes,
		Amount:                 r.Amount,
	}, nil
}

// CreatePayment records a payment against an account.
// @Summary     Create a payment
// @Description Debits the account; with a bucket it also debits the bucket, and with bucket execution the bucket may live in another account.
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PaymentRequest true "Payment"
// @Success     201 {object} models.Payment
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Month locked"
// @Failure     422 {object} ErrorResponse "Insufficient bucket funds"
// @Router      /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.CreatePayment(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreatePayment, "payment", payment.ID, c.ClientIP(),
		map[string]interface{}{"account_id": payment.AccountID, "amount": payment.Amount.String()})
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetPayments lists payments, newest first, after generating due recurring payments.
// @Summary     List payments
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string false "Account filter"
// @Param       from_date  query string false "Inclusive start date"
// @Param       to_date    query string false "Inclusive end date"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Payment]
// @Router      /payments [get]
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q EntryListQuery
	if !bindQuery(c, &q) {
		return
	}
	filter, err := q.filter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	payments, err := h.paymentService.GetPayments(userID, today(), filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPayment returns one payment.
// @Summary     Get a payment
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment ID"
// @Success     200 {object} models.Payment
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Router      /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.GetPaymentByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// UpdatePayment reverses the stored payment and applies the new values.
// @Summary     Update a payment
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string         true "Payment ID"
// @Param       request body PaymentRequest true "Payment"
// @Success     200 {object} models.Payment
// @Router      /payments/{id} [put]
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.UpdatePayment(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdatePayment, "payment", id, c.ClientIP(),
		map[string]interface{}{"account_id": payment.AccountID, "amount": payment.Amount.String()})
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// DeletePayment reverses and removes a payment.
// @Summary     Delete a payment
// @Tags        payments
// @Security    BearerAuth
// @Param       id path string true "Payment ID"
// @Success     204
// @Router      /payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentService.DeletePayment(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeletePayment, "payment", id, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}
