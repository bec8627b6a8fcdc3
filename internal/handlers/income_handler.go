package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/services"
)

// IncomeHandler serves income entries.
type IncomeHandler struct {
	incomeService services.IncomeServicer
}

// NewIncomeHandler creates a new IncomeHandler.
func NewIncomeHandler(incomeService services.IncomeServicer) *IncomeHandler {
	return &IncomeHandler{incomeService: incomeService}
}

// IncomeRequest is the payload for creating or updating an income entry.
// Received entries need an account.
type IncomeRequest struct {
	AccountID    *string         `json:"account_id" binding:"omitempty,uuid"`
	SourceName   string          `json:"source_name" binding:"required,max=120"`
	Description  string          `json:"description" binding:"max=255"`
	EntryDate    string          `json:"entry_date" binding:"required,datetime=2006-01-02"`
	Amount       decimal.Decimal `json:"amount"`
	ReceivedFlag bool            `json:"received_flag"`
}

func (r IncomeRequest) input() (services.IncomeInput, error) {
	date, err := parseDate("entry_date", r.EntryDate)
	if err != nil {
		return services.IncomeInput{}, err
	}
	return services.IncomeInput{
		AccountID:    r.AccountID,
		SourceName:   r.SourceName,
		Description:  r.Description,
		EntryDate:    date,
		Amount:       r.Amount,
		ReceivedFlag: r.ReceivedFlag,
	}, nil
}

// @Summary     Create an income entry
// @Tags        income
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body IncomeRequest true "Income entry"
// @Success     201 {object} models.IncomeEntry
// @Failure     409 {object} ErrorResponse "Month locked"
// @Router      /income-entries [post]
func (h *IncomeHandler) CreateIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req IncomeRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.incomeService.CreateIncome(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"income": entry})
}

// @Summary     List income entries
// @Description Generates due recurring income before listing.
// @Tags        income
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string false "Account filter"
// @Param       from_date  query string false "Inclusive start date"
// @Param       to_date    query string false "Inclusive end date"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.IncomeEntry]
// @Router      /income-entries [get]
func (h *IncomeHandler) GetIncomes(c *gin.Context) {
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

	entries, err := h.incomeService.GetIncomes(userID, today(), filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// @Summary     Get an income entry
// @Tags        income
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Income entry ID"
// @Success     200 {object} models.IncomeEntry
// @Router      /income-entries/{id} [get]
func (h *IncomeHandler) GetIncome(c *gin.Context) {
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

	entry, err := h.incomeService.GetIncomeByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"income": entry})
}

// @Summary     Update an income entry
// @Tags        income
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string        true "Income entry ID"
// @Param       request body IncomeRequest true "Income entry"
// @Success     200 {object} models.IncomeEntry
// @Router      /income-entries/{id} [put]
func (h *IncomeHandler) UpdateIncome(c *gin.Context) {
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
	var req IncomeRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.incomeService.UpdateIncome(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"income": entry})
}

// @Summary     Delete an income entry
// @Tags        income
// @Security    BearerAuth
// @Param       id path string true "Income entry ID"
// @Success     204
// @Router      /income-entries/{id} [delete]
func (h *IncomeHandler) DeleteIncome(c *gin.Context) {
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

	if err := h.incomeService.DeleteIncome(userID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
