package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

// categoryService handles the spending taxonomy: spending types and the
// categories grouped under them.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateSpendingType creates a new spending type
func (s *categoryService) CreateSpendingType(userID, name, description string) (*models.SpendingType, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name, "spending type name"); err != nil {
		return nil, err
	}
	if err := checkTaxonomyName(s.db, &models.SpendingType{}, userID, name, ""); err != nil {
		return nil, err
	}

	st := &models.SpendingType{UserID: userID, Name: name, Description: description}
	if err := s.db.Create(st).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return st, nil
}

// GetSpendingTypes lists the user's live spending types by name.
func (s *categoryService) GetSpendingTypes(userID string) ([]models.SpendingType, error) {
	var types []models.SpendingType
	if err := s.db.Scopes(models.Live).Where("user_id = ?", userID).Order("name ASC").Find(&types).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return types, nil
}

// GetSpendingTypeByID retrieves a spending type by ID for a specific user
func (s *categoryService) GetSpendingTypeByID(userID, id string) (*models.SpendingType, error) {
	return findLiveSpendingType(s.db, userID, id)
}

// UpdateSpendingType updates a spending type. Empty fields are left unchanged.
func (s *categoryService) UpdateSpendingType(userID, id, name, description string) (*models.SpendingType, error) {
	st, err := findLiveSpendingType(s.db, userID, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" {
		if err := validateName(name, "spending type name"); err != nil {
			return nil, err
		}
		if err := checkTaxonomyName(s.db, &models.SpendingType{}, userID, name, st.ID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}

	if len(updates) > 0 {
		if err := s.db.Model(st).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return st, nil
}

// DeleteSpendingType soft-deletes a spending type and detaches the
// categories that pointed at it.
func (s *categoryService) DeleteSpendingType(userID, id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		st, err := findLiveSpendingType(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.SpendingCategory{}).Where("spending_type_id = ?", st.ID).
			Update("spending_type_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return softDelete(tx, st)
	})
}

// CreateCategory creates a new spending category
func (s *categoryService) CreateCategory(userID string, in CategoryInput) (*models.SpendingCategory, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name, "category name"); err != nil {
		return nil, err
	}
	if err := checkTaxonomyName(s.db, &models.SpendingCategory{}, userID, name, ""); err != nil {
		return nil, err
	}

	typeID, err := s.resolveSpendingType(userID, in.SpendingTypeID)
	if err != nil {
		return nil, err
	}

	category := &models.SpendingCategory{
		UserID:         userID,
		SpendingTypeID: typeID,
		Name:           name,
		Description:    in.Description,
		IsDebt:         in.IsDebt,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user.
func (s *categoryService) GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SpendingCategory], error) {
	base := s.db.Model(&models.SpendingCategory{}).Scopes(models.Live).Where("user_id = ?", userID)
	result, err := pagination.Fetch[models.SpendingCategory](base, "name ASC", page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.SpendingCategory, error) {
	return findLiveCategory(s.db, userID, categoryID)
}

// UpdateCategory updates an existing category. An empty spending type id
// clears the grouping.
func (s *categoryService) UpdateCategory(userID, categoryID string, in CategoryInput) (*models.SpendingCategory, error) {
	category, err := findLiveCategory(s.db, userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(in.Name); name != "" {
		if err := validateName(name, "category name"); err != nil {
			return nil, err
		}
		if err := checkTaxonomyName(s.db, &models.SpendingCategory{}, userID, name, category.ID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Description != "" {
		updates["description"] = in.Description
	}
	if in.SpendingTypeID != nil {
		typeID, err := s.resolveSpendingType(userID, in.SpendingTypeID)
		if err != nil {
			return nil, err
		}
		updates["spending_type_id"] = typeID
	}
	updates["is_debt"] = in.IsDebt

	if err := s.db.Model(category).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return findLiveCategory(s.db, userID, categoryID)
}

// DeleteCategory soft-deletes a category that no live payment uses.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findLiveCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}

		var inUse int64
		if err := tx.Model(&models.Payment{}).Scopes(models.Live).
			Where("spending_category_id = ?", category.ID).Count(&inUse).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if inUse > 0 {
			return apperrors.ErrCategoryInUse
		}

		return softDelete(tx, category)
	})
}

func (s *categoryService) resolveSpendingType(userID string, id *string) (*string, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	st, err := findLiveSpendingType(s.db, userID, *id)
	if err != nil {
		return nil, err
	}
	return &st.ID, nil
}

// checkTaxonomyName enforces case-insensitive name uniqueness per user among
// live rows of a taxonomy table.
func checkTaxonomyName(db *gorm.DB, model interface{}, userID, name, exceptID string) error {
	q := db.Model(model).Scopes(models.Live).Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

func findLiveCategory(db *gorm.DB, userID, categoryID string) (*models.SpendingCategory, error) {
	var category models.SpendingCategory
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func findLiveSpendingType(db *gorm.DB, userID, id string) (*models.SpendingType, error) {
	var st models.SpendingType
	if err := db.Scopes(models.Live).Where("id = ? AND user_id = ?", id, userID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSpendingTypeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &st, nil
}
