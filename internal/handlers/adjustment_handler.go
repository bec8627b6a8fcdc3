package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/services"
)

// AdjustmentHandler serves manual balance adjustments.
type AdjustmentHandler struct {
	adjustmentService services.AdjustmentServicer
	auditService      services.AuditServicer
}

// NewAdjustmentHandler creates a new AdjustmentHandler.
func NewAdjustmentHandler(adjustmentService services.AdjustmentServicer, auditService services.AuditServicer) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentService: adjustmentService, auditService: auditService}
}

// AdjustmentRequest is the payload for a balance adjustment. The amount is
// signed and must not be zero.
type AdjustmentRequest struct {
	AccountID      string          `json:"account_id" binding:"required,uuid"`
	AdjustmentDate string          `json:"adjustment_date" binding:"required,datetime=2006-01-02"`
	Description    string          `json:"description" binding:"required,max=255"`
	Notes          string          `json:"notes" binding:"max=1000"`
	Amount         decimal.Decimal `json:"amount"`
}

func (r AdjustmentRequest) input() (services.AdjustmentInput, error) {
	date, err := parseDate("adjustment_date", r.AdjustmentDate)
	if err != nil {
		return services.AdjustmentInput{}, err
	}
	return services.AdjustmentInput{
		AccountID:      r.AccountID,
		AdjustmentDate: date,
		Description:    r.Description,
		Notes:          r.Notes,
		Amount:         r.Amount,
	}, nil
}

// @Summary     Create a balance adjustment
// @Tags        adjustments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AdjustmentRequest true "Adjustment"
// @Success     201 {object} models.BalanceAdjustment
// @Router      /adjustments [post]
func (h *AdjustmentHandler) CreateAdjustment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req AdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	adj, err := h.adjustmentService.CreateAdjustment(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditAdjustBalance, "adjustment", adj.ID, c.ClientIP(),
		map[string]interface{}{"account_id": adj.AccountID, "amount": adj.Amount.String()})
	c.JSON(http.StatusCreated, gin.H{"adjustment": adj})
}

// @Summary     List balance adjustments
// @Tags        adjustments
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string false "Account filter"
// @Param       from_date  query string false "Inclusive start date"
// @Param       to_date    query string false "Inclusive end date"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.BalanceAdjustment]
// @Router      /adjustments [get]
func (h *AdjustmentHandler) GetAdjustments(c *gin.Context) {
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

	adjustments, err := h.adjustmentService.GetAdjustments(userID, filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, adjustments)
}

// @Summary     Get a balance adjustment
// @Tags        adjustments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Adjustment ID"
// @Success     200 {object} models.BalanceAdjustment
// @Router      /adjustments/{id} [get]
func (h *AdjustmentHandler) GetAdjustment(c *gin.Context) {
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

	adj, err := h.adjustmentService.GetAdjustmentByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustment": adj})
}

// @Summary     Update a balance adjustment
// @Tags        adjustments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Adjustment ID"
// @Param       request body AdjustmentRequest true "Adjustment"
// @Success     200 {object} models.BalanceAdjustment
// @Router      /adjustments/{id} [put]
func (h *AdjustmentHandler) UpdateAdjustment(c *gin.Context) {
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
	var req AdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	adj, err := h.adjustmentService.UpdateAdjustment(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditAdjustBalance, "adjustment", adj.ID, c.ClientIP(),
		map[string]interface{}{"account_id": adj.AccountID, "amount": adj.Amount.String(), "edit": true})
	c.JSON(http.StatusOK, gin.H{"adjustment": adj})
}

// @Summary     Delete a balance adjustment
// @Tags        adjustments
// @Security    BearerAuth
// @Param       id path string true "Adjustment ID"
// @Success     204
// @Router      /adjustments/{id} [delete]
func (h *AdjustmentHandler) DeleteAdjustment(c *gin.Context) {
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

	if err := h.adjustmentService.DeleteAdjustment(userID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
