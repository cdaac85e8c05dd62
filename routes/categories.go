package routes

import (
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"rentloop-server/models"
	"rentloop-server/utils"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

// GetCategories returns all active categories in sort order.
func (h *CategoryHandler) GetCategories(ctx iris.Context) {
	var categories []models.Category
	err := h.DB.Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&categories).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Success(ctx, categories)
}

type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,max=64"`
	Icon        string `json:"icon" validate:"max=64"`
	Description string `json:"description" validate:"max=512"`
	SortOrder   int    `json:"sortOrder"`
}

// CreateCategory is admin-only (gated by middleware in main).
func (h *CategoryHandler) CreateCategory(ctx iris.Context) {
	var input CreateCategoryInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	category := models.Category{
		Name:        input.Name,
		Icon:        input.Icon,
		Description: input.Description,
		IsActive:    true,
		SortOrder:   input.SortOrder,
	}

	if err := h.DB.Create(&category).Error; err != nil {
		utils.Error(ctx, iris.StatusConflict, "Conflict", "a category with this name already exists")
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	utils.Success(ctx, category)
}
