package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/frequency"
	"budgethq/internal/services"
)

// RecurringHandler serves frequency rules, recurring definitions and the
// obligation projection.
type RecurringHandler struct {
	recurringService services.RecurringServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// FrequencyRequest describes a user-defined frequency rule.
type FrequencyRequest struct {
	Name          string `json:"name" binding:"required,max=80"`
	FrequencyType string `json:"frequency_type" binding:"required,frequency_type"`
	IntervalDays  int    `json:"interval_days" binding:"gte=0"`
	DayOfMonth    int    `json:"day_of_month" binding:"gte=0,lte=31"`
	IsLastDay     bool   `json:"is_last_day"`
	Weekday       int    `json:"weekday" binding:"gte=0,lte=5"`
	Ordinal       int    `json:"ordinal" binding:"gte=0,lte=5"`
}

// IncomeRecurringRequest is a recurring income definition.
type IncomeRecurringRequest struct {
	AccountID         *string         `json:"account_id" binding:"omitempty,uuid"`
	FrequencyMasterID string          `json:"frequency_master_id" binding:"required,uuid"`
	Name              string          `json:"name" binding:"required,max=120"`
	Description       string          `json:"description" binding:"max=255"`
	Amount            decimal.Decimal `json:"amount"`
	NextDate          string          `json:"next_date" binding:"required,datetime=2006-01-02"`
	UseFlag           *bool           `json:"use_flag"`
}

// PaymentRecurringRequest is a recurring payment definition.
type PaymentRecurringRequest struct {
	AccountID          string          `json:"account_id" binding:"required,uuid"`
	SpendingCategoryID string          `json:"spending_category_id" binding:"required,uuid"`
	FrequencyMasterID  string          `json:"frequency_master_id" binding:"required,uuid"`
	Description        string          `json:"description" binding:"required,max=255"`
	Amount             decimal.Decimal `json:"amount"`
	NextDate           string          `json:"next_date" binding:"required,datetime=2006-01-02"`
	UseFlag            *bool           `json:"use_flag"`
}

// ObligationRequest is a projection-only recurring obligation.
type ObligationRequest struct {
	AccountID          *string         `json:"account_id" binding:"omitempty,uuid"`
	SpendingCategoryID *string         `json:"spending_category_id" binding:"omitempty,uuid"`
	FrequencyMasterID  string          `json:"frequency_master_id" binding:"required,uuid"`
	Name               string          `json:"name" binding:"required,max=120"`
	Amount             decimal.Decimal `json:"amount"`
	StartDate          string          `json:"start_date" binding:"required,datetime=2006-01-02"`
	DueDay             int             `json:"due_day" binding:"gte=0,lte=31"`
	UseFlag            *bool           `json:"use_flag"`
}

// RecurringURI addresses one recurring definition of any kind.
type RecurringURI struct {
	Kind string `uri:"kind" binding:"required,recurring_kind"`
	ID   string `uri:"id" binding:"required,uuid"`
}

// MonthQuery selects a calendar month.
type MonthQuery struct {
	Year  int `form:"year" binding:"required,min=1900,max=9999"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// GetFrequencies lists the global frequency rules and the user's own.
// @Summary     List frequencies
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.FrequencyMaster
// @Router      /frequencies [get]
func (h *RecurringHandler) GetFrequencies(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	freqs, err := h.recurringService.GetFrequencies(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frequencies": freqs})
}

// CreateFrequency validates and stores a user-defined rule.
// @Summary     Create a frequency
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body FrequencyRequest true "Frequency rule"
// @Success     201 {object} models.FrequencyMaster
// @Failure     400 {object} ErrorResponse "Malformed rule"
// @Router      /frequencies [post]
func (h *RecurringHandler) CreateFrequency(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req FrequencyRequest
	if !bindJSON(c, &req) {
		return
	}

	freq, err := h.recurringService.CreateFrequency(userID, services.FrequencyInput{
		Name: req.Name,
		Rule: frequency.Rule{
			Type:         frequency.Type(req.FrequencyType),
			Name:         req.Name,
			IntervalDays: req.IntervalDays,
			DayOfMonth:   req.DayOfMonth,
			IsLastDay:    req.IsLastDay,
			Weekday:      req.Weekday,
			Ordinal:      req.Ordinal,
		},
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"frequency": freq})
}

func (r IncomeRecurringRequest) input() (services.IncomeRecurringInput, error) {
	next, err := parseDate("next_date", r.NextDate)
	if err != nil {
		return services.IncomeRecurringInput{}, err
	}
	return services.IncomeRecurringInput{
		AccountID:         r.AccountID,
		FrequencyMasterID: r.FrequencyMasterID,
		Name:              r.Name,
		Description:       r.Description,
		Amount:            r.Amount,
		NextDate:          next,
		UseFlag:           r.UseFlag,
	}, nil
}

func (r PaymentRecurringRequest) input() (services.PaymentRecurringInput, error) {
	next, err := parseDate("next_date", r.NextDate)
	if err != nil {
		return services.PaymentRecurringInput{}, err
	}
	return services.PaymentRecurringInput{
		AccountID:          r.AccountID,
		SpendingCategoryID: r.SpendingCategoryID,
		FrequencyMasterID:  r.FrequencyMasterID,
		Description:        r.Description,
		Amount:             r.Amount,
		NextDate:           next,
		UseFlag:            r.UseFlag,
	}, nil
}

func (r ObligationRequest) input() (services.ObligationInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return services.ObligationInput{}, err
	}
	return services.ObligationInput{
		AccountID:          r.AccountID,
		SpendingCategoryID: r.SpendingCategoryID,
		FrequencyMasterID:  r.FrequencyMasterID,
		Name:               r.Name,
		Amount:             r.Amount,
		StartDate:          start,
		DueDay:             r.DueDay,
		UseFlag:            r.UseFlag,
	}, nil
}

// @Summary     Create a recurring income definition
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body IncomeRecurringRequest true "Definition"
// @Success     201 {object} models.IncomeRecurring
// @Router      /recurring/income [post]
func (h *RecurringHandler) CreateIncomeRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req IncomeRecurringRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	def, err := h.recurringService.CreateIncomeRecurring(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recurring": def})
}

// @Summary     List recurring income definitions
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.IncomeRecurring
// @Router      /recurring/income [get]
func (h *RecurringHandler) GetIncomeRecurrings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defs, err := h.recurringService.GetIncomeRecurrings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurring": defs})
}

// @Summary     Update a recurring income definition
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Definition ID"
// @Param       request body IncomeRecurringRequest true "Definition"
// @Success     200 {object} models.IncomeRecurring
// @Router      /recurring/income/{id} [put]
func (h *RecurringHandler) UpdateIncomeRecurring(c *gin.Context) {
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
	var req IncomeRecurringRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	def, err := h.recurringService.UpdateIncomeRecurring(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurring": def})
}

// @Summary     Create a recurring payment definition
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PaymentRecurringRequest true "Definition"
// @Success     201 {object} models.PaymentRecurring
// @Router      /recurring/payments [post]
func (h *RecurringHandler) CreatePaymentRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req PaymentRecurringRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	def, err := h.recurringService.CreatePaymentRecurring(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recurring": def})
}

// @Summary     List recurring payment definitions
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.PaymentRecurring
// @Router      /recurring/payments [get]
func (h *RecurringHandler) GetPaymentRecurrings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defs, err := h.recurringService.GetPaymentRecurrings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurring": defs})
}

// @Summary     Update a recurring payment definition
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Definition ID"
// @Param       request body PaymentRecurringRequest true "Definition"
// @Success     200 {object} models.PaymentRecurring
// @Router      /recurring/payments/{id} [put]
func (h *RecurringHandler) UpdatePaymentRecurring(c *gin.Context) {
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
	var req PaymentRecurringRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	def, err := h.recurringService.UpdatePaymentRecurring(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurring": def})
}

// @Summary     Create a recurring obligation
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ObligationRequest true "Obligation"
// @Success     201 {object} models.RecurringObligation
// @Router      /recurring/obligations [post]
func (h *RecurringHandler) CreateObligation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ObligationRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	ob, err := h.recurringService.CreateObligation(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"obligation": ob})
}

// @Summary     List recurring obligations
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.RecurringObligation
// @Router      /recurring/obligations [get]
func (h *RecurringHandler) GetObligations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	obs, err := h.recurringService.GetObligations(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligations": obs})
}

// @Summary     Update a recurring obligation
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Obligation ID"
// @Param       request body ObligationRequest true "Obligation"
// @Success     200 {object} models.RecurringObligation
// @Router      /recurring/obligations/{id} [put]
func (h *RecurringHandler) UpdateObligation(c *gin.Context) {
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
	var req ObligationRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}
	ob, err := h.recurringService.UpdateObligation(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligation": ob})
}

// ProjectObligations lists the obligations due in a month. Nothing is generated.
// @Summary     Project obligations for a month
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int true "Year"
// @Param       month query int true "Month (1-12)"
// @Success     200 {array} services.ObligationDue
// @Router      /recurring/obligations/projection [get]
func (h *RecurringHandler) ProjectObligations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q MonthQuery
	if !bindQuery(c, &q) {
		return
	}
	due, err := h.recurringService.ObligationsForMonth(userID, q.Year, time.Month(q.Month))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligations": due})
}

// DeleteRecurring soft-deletes a definition of the kind named in the path.
// @Summary     Delete a recurring definition
// @Tags        recurring
// @Security    BearerAuth
// @Param       kind path string true "income, payment or obligation"
// @Param       id   path string true "Definition ID"
// @Success     204
// @Router      /recurring/{kind}/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var uri RecurringURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	if err := h.recurringService.DeleteRecurring(userID, services.RecurringKind(uri.Kind), uri.ID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateDue materializes every due recurring item, one occurrence per
// definition per call.
// @Summary     Generate due recurring entries
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]services.GenerationResult
// @Router      /recurring/generate [post]
func (h *RecurringHandler) GenerateDue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	now := today()
	income, err := h.recurringService.GenerateDueIncome(userID, now)
	if err != nil {
		respondWithError(c, err)
		return
	}
	payments, err := h.recurringService.GenerateDuePayments(userID, now)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"income": income, "payments": payments})
}
