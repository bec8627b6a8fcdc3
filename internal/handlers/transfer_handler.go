package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/services"
)

// TransferHandler serves transfers between accounts and between buckets.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// TransferRequest is the payload for creating or updating a transfer. A
// transfer within one account must name two distinct buckets.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string          `json:"to_account_id" binding:"required,uuid"`
	FromBucketID  *string         `json:"from_bucket_id" binding:"omitempty,uuid"`
	ToBucketID    *string         `json:"to_bucket_id" binding:"omitempty,uuid"`
	TransferDate  string          `json:"transfer_date" binding:"required,datetime=2006-01-02"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo" binding:"max=255"`
}

func (r TransferRequest) input() (services.TransferInput, error) {
	date, err := parseDate("transfer_date", r.TransferDate)
	if err != nil {
		return services.TransferInput{}, err
	}
	return services.TransferInput{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		FromBucketID:  r.FromBucketID,
		ToBucketID:    r.ToBucketID,
		TransferDate:  date,
		Amount:        r.Amount,
		Memo:          r.Memo,
	}, nil
}

// CreateTransfer moves money between accounts or buckets.
// @Summary     Create a transfer
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransferRequest true "Transfer"
// @Success     201 {object} models.TransferMaster
// @Failure     409 {object} ErrorResponse "Same-account transfer without distinct buckets, or month locked"
// @Failure     422 {object} ErrorResponse "Insufficient bucket funds"
// @Router      /transfers [post]
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.CreateTransfer(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateTransfer, "transfer", transfer.ID, c.ClientIP(),
		map[string]interface{}{
			"from_account_id": transfer.FromAccountID,
			"to_account_id":   transfer.ToAccountID,
			"amount":          transfer.Amount.String(),
		})
	c.JSON(http.StatusCreated, gin.H{"transfer": transfer})
}

// GetTransfers lists transfers touching the user's accounts.
// @Summary     List transfers
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string false "Either side matches"
// @Param       from_date  query string false "Inclusive start date"
// @Param       to_date    query string false "Inclusive end date"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.TransferMaster]
// @Router      /transfers [get]
func (h *TransferHandler) GetTransfers(c *gin.Context) {
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

	transfers, err := h.transferService.GetTransfers(userID, filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// GetTransfer returns one transfer.
// @Summary     Get a transfer
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     200 {object} models.TransferMaster
// @Router      /transfers/{id} [get]
func (h *TransferHandler) GetTransfer(c *gin.Context) {
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

	transfer, err := h.transferService.GetTransferByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": transfer})
}

// UpdateTransfer reverses the stored legs and applies the new ones.
// Auto-generated transfers are rejected.
// @Summary     Update a transfer
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Transfer ID"
// @Param       request body TransferRequest true "Transfer"
// @Success     200 {object} models.TransferMaster
// @Router      /transfers/{id} [put]
func (h *TransferHandler) UpdateTransfer(c *gin.Context) {
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
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.UpdateTransfer(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": transfer})
}

// DeleteTransfer reverses and removes a transfer.
// @Summary     Delete a transfer
// @Tags        transfers
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     204
// @Router      /transfers/{id} [delete]
func (h *TransferHandler) DeleteTransfer(c *gin.Context) {
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

	if err := h.transferService.DeleteTransfer(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteTransfer, "transfer", id, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}
