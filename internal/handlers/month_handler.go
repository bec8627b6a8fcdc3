package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budgethq/internal/services"
)

// MonthHandler serves the open month cursor, the month-end close and the
// snapshots it writes.
type MonthHandler struct {
	monthService     services.MonthServicer
	softCloseService services.SoftCloseServicer
	snapshotService  services.SnapshotServicer
	auditService     services.AuditServicer
}

// NewMonthHandler creates a new MonthHandler.
func NewMonthHandler(
	monthService services.MonthServicer,
	softCloseService services.SoftCloseServicer,
	snapshotService services.SnapshotServicer,
	auditService services.AuditServicer,
) *MonthHandler {
	return &MonthHandler{
		monthService:     monthService,
		softCloseService: softCloseService,
		snapshotService:  snapshotService,
		auditService:     auditService,
	}
}

// CloseMonthRequest carries the month to close and both attestations.
type CloseMonthRequest struct {
	Year              int  `json:"year" binding:"required,min=1900,max=9999"`
	Month             int  `json:"month" binding:"required,min=1,max=12"`
	ReviewedTotals    bool `json:"reviewed_totals"`
	FinalConfirmation bool `json:"final_confirmation"`
}

// NetWorthQuery bounds the net worth history.
type NetWorthQuery struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

// GetOpenMonth returns the cursor, creating it at the current month.
// @Summary     Get the open month
// @Tags        month
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.OpenMonthMaster
// @Router      /month [get]
func (h *MonthHandler) GetOpenMonth(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	om, err := h.monthService.ForUser(userID, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open_month": om})
}

// ReopenPrevious moves the cursor back one month while the open month has no data.
// @Summary     Reopen the previous month
// @Tags        month
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.OpenMonthMaster
// @Failure     409 {object} ErrorResponse "Open month already has data"
// @Router      /month/reopen [post]
func (h *MonthHandler) ReopenPrevious(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	om, err := h.monthService.ReopenPrevious(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditReopenMonth, "month", om.ID, c.ClientIP(),
		map[string]interface{}{"year": om.CurrentYear, "month": om.CurrentMonth})
	c.JSON(http.StatusOK, gin.H{"open_month": om})
}

// GetSoftCloseStatus evaluates the month-end checklist.
// @Summary     Soft-close checklist and totals
// @Tags        month
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.SoftCloseStatus
// @Router      /soft-close [get]
func (h *MonthHandler) GetSoftCloseStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	status, err := h.softCloseService.GetStatus(userID, today())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CloseMonth closes the open month and advances the cursor.
// @Summary     Close the open month
// @Tags        month
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CloseMonthRequest true "Month and attestations"
// @Success     200 {object} models.OpenMonthMaster "The new open month"
// @Failure     400 {object} ErrorResponse "Attestations missing"
// @Failure     409 {object} ErrorResponse "Not the open month, already closed, or checklist failing"
// @Router      /soft-close [post]
func (h *MonthHandler) CloseMonth(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req CloseMonthRequest
	if !bindJSON(c, &req) {
		return
	}

	om, err := h.softCloseService.CloseMonth(userID, req.Year, time.Month(req.Month), services.Attestation{
		ReviewedTotals:    req.ReviewedTotals,
		FinalConfirmation: req.FinalConfirmation,
	}, today())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCloseMonth, "month", om.ID, c.ClientIP(),
		map[string]interface{}{"year": req.Year, "month": req.Month})
	c.JSON(http.StatusOK, gin.H{"open_month": om})
}

// GetMonthSnapshots returns the account and dashboard snapshots of a closed month.
// @Summary     Snapshots of a month
// @Tags        month
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int true "Year"
// @Param       month query int true "Month (1-12)"
// @Success     200 {object} map[string]interface{}
// @Failure     404 {object} ErrorResponse "Month has no snapshot"
// @Router      /snapshots [get]
func (h *MonthHandler) GetMonthSnapshots(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q MonthQuery
	if !bindQuery(c, &q) {
		return
	}

	dashboard, err := h.snapshotService.GetDashboardSnapshot(userID, q.Year, time.Month(q.Month))
	if err != nil {
		respondWithError(c, err)
		return
	}
	accounts, err := h.snapshotService.GetAccountSnapshots(userID, q.Year, time.Month(q.Month))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard, "accounts": accounts})
}

// @Summary     Net worth history
// @Tags        month
// @Produce     json
// @Security    BearerAuth
// @Param       from query string true "Inclusive start date"
// @Param       to   query string true "Inclusive end date"
// @Success     200 {array} models.NetWorthSnapshot
// @Router      /snapshots/net-worth [get]
func (h *MonthHandler) GetNetWorthHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q NetWorthQuery
	if !bindQuery(c, &q) {
		return
	}
	from, err := parseDate("from", q.From)
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseDate("to", q.To)
	if err != nil {
		respondWithError(c, err)
		return
	}

	history, err := h.snapshotService.GetNetWorthHistory(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"net_worth": history})
}
