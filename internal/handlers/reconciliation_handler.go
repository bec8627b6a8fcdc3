package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/services"
)

// ReconciliationHandler serves statement reconciliation of the open month.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
	auditService          services.AuditServicer
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer, auditService services.AuditServicer) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService, auditService: auditService}
}

// OutsideBalanceRequest records the balance reported by the bank.
type OutsideBalanceRequest struct {
	OutsideBalance decimal.Decimal `json:"outside_balance"`
}

// StatementCountsRequest records the item counts reported by the bank.
type StatementCountsRequest struct {
	Payments    *int `json:"payments" binding:"omitempty,gte=0"`
	Deposits    *int `json:"deposits" binding:"omitempty,gte=0"`
	Adjustments *int `json:"adjustments" binding:"omitempty,gte=0"`
}

// ToggleRequest flips the reconciled flag of one entry.
type ToggleRequest struct {
	Kind       string `json:"kind" binding:"required,oneof=payment income transfer adjustment"`
	ID         string `json:"id" binding:"required,uuid"`
	Reconciled bool   `json:"reconciled"`
}

// GetSummary compares the ledger balance with the statement.
// @Summary     Reconciliation summary
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} services.ReconciliationSummary
// @Router      /accounts/{id}/reconciliation [get]
func (h *ReconciliationHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.reconciliationService.GetSummary(userID, accountID, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary     Set the outside balance
// @Tags        reconciliation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Account ID"
// @Param       request body OutsideBalanceRequest true "Statement balance"
// @Success     200 {object} models.ReconciliationRecord
// @Router      /accounts/{id}/reconciliation/outside-balance [put]
func (h *ReconciliationHandler) SetOutsideBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req OutsideBalanceRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.reconciliationService.SetOutsideBalance(userID, accountID, req.OutsideBalance, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": record})
}

// @Summary     Set statement counts
// @Tags        reconciliation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Account ID"
// @Param       request body StatementCountsRequest true "Statement counts"
// @Success     200 {object} models.ReconciliationRecord
// @Router      /accounts/{id}/reconciliation/statement-counts [put]
func (h *ReconciliationHandler) SetStatementCounts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req StatementCountsRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.reconciliationService.SetStatementCounts(userID, accountID, services.StatementCounts{
		Payments:    req.Payments,
		Deposits:    req.Deposits,
		Adjustments: req.Adjustments,
	}, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": record})
}

// Toggle flips the reconciled flag of one payment, income entry, transfer or adjustment.
// @Summary     Toggle the reconciled flag of an entry
// @Tags        reconciliation
// @Accept      json
// @Security    BearerAuth
// @Param       request body ToggleRequest true "Entry"
// @Success     204
// @Router      /reconciliation/toggle [post]
func (h *ReconciliationHandler) Toggle(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ToggleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.reconciliationService.ToggleReconciled(userID, services.ReconcileKind(req.Kind), req.ID, req.Reconciled); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkReconciled reconciles every entry of the month once the balances agree.
// @Summary     Mark the account reconciled
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.ReconciliationRecord
// @Failure     409 {object} ErrorResponse "Balances differ"
// @Router      /accounts/{id}/reconciliation/mark [post]
func (h *ReconciliationHandler) MarkReconciled(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.reconciliationService.MarkReconciled(userID, accountID, today())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditMarkReconciled, "account", accountID, c.ClientIP(),
		map[string]interface{}{"year": record.Year, "month": record.Month})
	c.JSON(http.StatusOK, gin.H{"reconciliation": record})
}

// @Summary     Reconciliation diagnostics
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} services.Diagnostics
// @Router      /accounts/{id}/reconciliation/diagnostics [get]
func (h *ReconciliationHandler) Diagnostics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	diag, err := h.reconciliationService.Diagnostics(userID, accountID, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, diag)
}
