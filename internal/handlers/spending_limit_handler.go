package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/models"
	"budgethq/internal/services"
)

// SpendingLimitHandler serves effective-dated spending limits.
type SpendingLimitHandler struct {
	limitService services.SpendingLimitServicer
	auditService services.AuditServicer
}

// NewSpendingLimitHandler creates a new SpendingLimitHandler.
func NewSpendingLimitHandler(limitService services.SpendingLimitServicer, auditService services.AuditServicer) *SpendingLimitHandler {
	return &SpendingLimitHandler{limitService: limitService, auditService: auditService}
}

// SetLimitRequest sets a limit from a month onwards. Category limits are
// amounts; spending type limits are percentages.
type SetLimitRequest struct {
	Scope           string          `json:"scope" binding:"required,limit_scope"`
	ScopeID         string          `json:"scope_id" binding:"required,uuid"`
	Value           decimal.Decimal `json:"value"`
	EffectiveYYYYMM int             `json:"effective_yyyymm" binding:"required,yyyymm"`
}

// LimitHistoryQuery selects the versions of one scope.
type LimitHistoryQuery struct {
	Scope   string `form:"scope" binding:"required,limit_scope"`
	ScopeID string `form:"scope_id" binding:"required,uuid"`
}

// LimitsForMonthQuery selects the limits in force in a month.
type LimitsForMonthQuery struct {
	Scope  string `form:"scope" binding:"required,limit_scope"`
	YYYYMM int    `form:"yyyymm" binding:"required,yyyymm"`
}

// SetLimit records a new limit version.
// @Summary     Set a spending limit
// @Tags        limits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetLimitRequest true "Limit"
// @Success     201 {object} models.SpendingLimitHistory
// @Failure     409 {object} ErrorResponse "Concurrent change to the same scope"
// @Router      /spending-limits [post]
func (h *SpendingLimitHandler) SetLimit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req SetLimitRequest
	if !bindJSON(c, &req) {
		return
	}

	limit, err := h.limitService.SetLimit(userID, models.LimitScope(req.Scope), req.ScopeID, req.Value, req.EffectiveYYYYMM)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditSetLimit, "spending_limit", limit.ID, c.ClientIP(),
		map[string]interface{}{"scope": req.Scope, "scope_id": req.ScopeID, "value": req.Value.String(), "effective": req.EffectiveYYYYMM})
	c.JSON(http.StatusCreated, gin.H{"limit": limit})
}

// GetLimitHistory lists every version of one scope, oldest first.
// @Summary     List limit versions of a scope
// @Tags        limits
// @Produce     json
// @Security    BearerAuth
// @Param       scope    query string true "CATEGORY or SPENDING_TYPE"
// @Param       scope_id query string true "Category or spending type ID"
// @Success     200 {array} models.SpendingLimitHistory
// @Router      /spending-limits [get]
func (h *SpendingLimitHandler) GetLimitHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q LimitHistoryQuery
	if !bindQuery(c, &q) {
		return
	}

	history, err := h.limitService.GetLimitHistory(userID, models.LimitScope(q.Scope), q.ScopeID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": history})
}

// LimitsForMonth returns the limit in force per scope id.
// @Summary     Limits in force for a month
// @Tags        limits
// @Produce     json
// @Security    BearerAuth
// @Param       scope  query string true "CATEGORY or SPENDING_TYPE"
// @Param       yyyymm query int    true "Month as YYYYMM"
// @Success     200 {object} map[string]string
// @Router      /spending-limits/for-month [get]
func (h *SpendingLimitHandler) LimitsForMonth(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q LimitsForMonthQuery
	if !bindQuery(c, &q) {
		return
	}

	limits, err := h.limitService.LimitsForMonth(userID, models.LimitScope(q.Scope), q.YYYYMM)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"yyyymm": q.YYYYMM, "limits": limits})
}

// DeleteLimit removes one limit version.
// @Summary     Delete a limit version
// @Tags        limits
// @Security    BearerAuth
// @Param       id path string true "Limit ID"
// @Success     204
// @Router      /spending-limits/{id} [delete]
func (h *SpendingLimitHandler) DeleteLimit(c *gin.Context) {
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

	if err := h.limitService.DeleteLimit(userID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
