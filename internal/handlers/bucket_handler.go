package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"budgethq/internal/pagination"
	"budgethq/internal/services"
)

// BucketHandler serves the bucket ledger of an account.
type BucketHandler struct {
	bucketService services.BucketServicer
	auditService  services.AuditServicer
}

// NewBucketHandler creates a new BucketHandler.
func NewBucketHandler(bucketService services.BucketServicer, auditService services.AuditServicer) *BucketHandler {
	return &BucketHandler{bucketService: bucketService, auditService: auditService}
}

// CreateBucketRequest is the payload for creating a bucket.
type CreateBucketRequest struct {
	Name              string          `json:"name" binding:"required,min=1,max=80"`
	Priority          *int            `json:"priority" binding:"omitempty,gte=0"`
	IsDefault         bool            `json:"is_default"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	InitialAllocation decimal.Decimal `json:"initial_allocation"`
}

// UpdateBucketRequest is the payload for updating a bucket.
type UpdateBucketRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=80"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	Priority     *int             `json:"priority" binding:"omitempty,gte=0"`
	IsActive     *bool            `json:"is_active"`
}

// FundBucketRequest moves money into a bucket from another bucket of the
// same account.
type FundBucketRequest struct {
	FromBucketID string          `json:"from_bucket_id" binding:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
}

// GetBuckets lists the buckets of an account.
// @Summary     List buckets
// @Tags        buckets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {array} models.Bucket
// @Router      /accounts/{id}/buckets [get]
func (h *BucketHandler) GetBuckets(c *gin.Context) {
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

	buckets, err := h.bucketService.GetBuckets(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// CreateBucket adds a bucket to an account. The first bucket becomes the
// default and takes the account balance.
// @Summary     Create a bucket
// @Tags        buckets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Account ID"
// @Param       request body CreateBucketRequest true "Bucket details"
// @Success     201 {object} models.Bucket
// @Failure     409 {object} ErrorResponse "Default or priority conflict"
// @Failure     422 {object} ErrorResponse "Insufficient funds in the default bucket"
// @Router      /accounts/{id}/buckets [post]
func (h *BucketHandler) CreateBucket(c *gin.Context) {
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

	var req CreateBucketRequest
	if !bindJSON(c, &req) {
		return
	}

	bucket, err := h.bucketService.CreateBucket(userID, accountID, services.BucketInput{
		Name:              req.Name,
		Priority:          req.Priority,
		IsDefault:         req.IsDefault,
		TargetAmount:      req.TargetAmount,
		InitialAllocation: req.InitialAllocation,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateBucket, "bucket", bucket.ID, c.ClientIP(),
		map[string]interface{}{"account_id": accountID, "name": bucket.Name, "initial_allocation": req.InitialAllocation.String()})
	c.JSON(http.StatusCreated, gin.H{"bucket": bucket})
}

// GetBucket returns one bucket.
// @Summary     Get a bucket
// @Tags        buckets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bucket ID"
// @Success     200 {object} models.Bucket
// @Failure     404 {object} ErrorResponse "Bucket not found"
// @Router      /buckets/{id} [get]
func (h *BucketHandler) GetBucket(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bucket, err := h.bucketService.GetBucketByID(userID, bucketID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bucket": bucket})
}

// UpdateBucket changes a bucket's name, target, priority or active flag.
// @Summary     Update a bucket
// @Tags        buckets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Bucket ID"
// @Param       request body UpdateBucketRequest true "Fields to update"
// @Success     200 {object} models.Bucket
// @Router      /buckets/{id} [put]
func (h *BucketHandler) UpdateBucket(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBucketRequest
	if !bindJSON(c, &req) {
		return
	}

	bucket, err := h.bucketService.UpdateBucket(userID, bucketID, services.BucketUpdateFields{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Priority:     req.Priority,
		IsActive:     req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bucket": bucket})
}

// MakeDefault moves the default flag of the account to this bucket.
// @Summary     Make a bucket the default
// @Tags        buckets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bucket ID"
// @Success     200 {object} models.Bucket
// @Router      /buckets/{id}/default [post]
func (h *BucketHandler) MakeDefault(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bucket, err := h.bucketService.MakeDefault(userID, bucketID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bucket": bucket})
}

// DeleteBucket sweeps a bucket's balance to the default bucket and removes it.
// @Summary     Delete a bucket
// @Tags        buckets
// @Security    BearerAuth
// @Param       id path string true "Bucket ID"
// @Success     204
// @Failure     409 {object} ErrorResponse "Default bucket cannot be deleted"
// @Router      /buckets/{id} [delete]
func (h *BucketHandler) DeleteBucket(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.bucketService.DeleteBucket(userID, bucketID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteBucket, "bucket", bucketID, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// FundBucket moves money between two buckets of one account.
// @Summary     Fund a bucket
// @Tags        buckets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Destination bucket ID"
// @Param       request body FundBucketRequest true "Source and amount"
// @Success     200 {object} models.Bucket
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /buckets/{id}/fund [post]
func (h *BucketHandler) FundBucket(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FundBucketRequest
	if !bindJSON(c, &req) {
		return
	}

	bucket, err := h.bucketService.FundBucket(userID, bucketID, req.FromBucketID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditFundBucket, "bucket", bucketID, c.ClientIP(),
		map[string]interface{}{"from_bucket_id": req.FromBucketID, "amount": req.Amount.String()})
	c.JSON(http.StatusOK, gin.H{"bucket": bucket})
}

// GetBucketTransactions lists a bucket's ledger, newest first.
// @Summary     List bucket transactions
// @Tags        buckets
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Bucket ID"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.BucketTransaction]
// @Router      /buckets/{id}/transactions [get]
func (h *BucketHandler) GetBucketTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if !bindQuery(c, &page) {
		return
	}

	txns, err := h.bucketService.GetBucketTransactions(userID, bucketID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// VerifyLedger recomputes a bucket's balance from its ledger.
// @Summary     Verify a bucket ledger
// @Tags        buckets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bucket ID"
// @Success     200 {object} services.LedgerCheck
// @Router      /buckets/{id}/verify [get]
func (h *BucketHandler) VerifyLedger(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	bucketID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	check, err := h.bucketService.VerifyLedger(userID, bucketID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
