package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgethq/internal/pagination"
	"budgethq/internal/services"
)

// CategoryHandler serves spending types and spending categories.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// SpendingTypeRequest is the payload for creating or updating a spending type.
type SpendingTypeRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=80"`
	Description string `json:"description" binding:"max=255"`
}

// CategoryRequest is the payload for creating or updating a spending category.
type CategoryRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=80"`
	Description    string  `json:"description" binding:"max=255"`
	SpendingTypeID *string `json:"spending_type_id" binding:"omitempty,uuid"`
	IsDebt         bool    `json:"is_debt"`
}

func (r CategoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:           r.Name,
		Description:    r.Description,
		SpendingTypeID: r.SpendingTypeID,
		IsDebt:         r.IsDebt,
	}
}

// CreateSpendingType adds a user-owned spending type.
// @Summary     Create a spending type
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SpendingTypeRequest true "Spending type"
// @Success     201 {object} models.SpendingType
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate name"
// @Router      /spending-types [post]
func (h *CategoryHandler) CreateSpendingType(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req SpendingTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.categoryService.CreateSpendingType(userID, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"spending_type": st})
}

// @Summary     List spending types
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.SpendingType
// @Router      /spending-types [get]
func (h *CategoryHandler) GetSpendingTypes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	types, err := h.categoryService.GetSpendingTypes(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spending_types": types})
}

// @Summary     Get a spending type
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Spending type ID"
// @Success     200 {object} models.SpendingType
// @Router      /spending-types/{id} [get]
func (h *CategoryHandler) GetSpendingType(c *gin.Context) {
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
	st, err := h.categoryService.GetSpendingTypeByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spending_type": st})
}

// @Summary     Update a spending type
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Spending type ID"
// @Param       request body SpendingTypeRequest true "Spending type"
// @Success     200 {object} models.SpendingType
// @Router      /spending-types/{id} [put]
func (h *CategoryHandler) UpdateSpendingType(c *gin.Context) {
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
	var req SpendingTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.categoryService.UpdateSpendingType(userID, id, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spending_type": st})
}

// @Summary     Delete a spending type
// @Tags        categories
// @Security    BearerAuth
// @Param       id path string true "Spending type ID"
// @Success     204
// @Router      /spending-types/{id} [delete]
func (h *CategoryHandler) DeleteSpendingType(c *gin.Context) {
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
	if err := h.categoryService.DeleteSpendingType(userID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCategory handles the creation of a new spending category
// @Summary     Create a spending category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategoryRequest true "Category details"
// @Success     201 {object} models.SpendingCategory
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate name"
// @Failure     404 {object} ErrorResponse "Spending type not found"
// @Router      /spending-categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// GetUserCategories handles retrieving the user's spending categories
// @Summary     List spending categories
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.SpendingCategory]
// @Router      /spending-categories [get]
func (h *CategoryHandler) GetUserCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var page pagination.PageRequest
	if !bindQuery(c, &page) {
		return
	}

	categories, err := h.categoryService.GetUserCategories(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategoryByID handles retrieving a specific category
// @Summary     Get a spending category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} models.SpendingCategory
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /spending-categories/{id} [get]
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
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

	category, err := h.categoryService.GetCategoryByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdateCategory handles updating a category
// @Summary     Update a spending category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Category ID"
// @Param       request body CategoryRequest true "Category details"
// @Success     200 {object} models.SpendingCategory
// @Router      /spending-categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
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
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.UpdateCategory(userID, id, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory handles deleting a category. Categories used by live
// payments cannot be deleted.
// @Summary     Delete a spending category
// @Tags        categories
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     204
// @Failure     409 {object} ErrorResponse "Category in use"
// @Router      /spending-categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
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

	if err := h.categoryService.DeleteCategory(userID, id); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
