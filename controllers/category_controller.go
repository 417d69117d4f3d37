package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// CategoryController manages post categories.
type CategoryController struct {
	categories *services.CategoriesService
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(categories *services.CategoriesService) *CategoryController {
	return &CategoryController{categories: categories}
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"max=500"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// CreateCategory adds a category. Admin only.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req createCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, err := c.categories.Create(ctx.Request.Context(), services.CategoryInput{
		Name:        &req.Name,
		Description: &req.Description,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Created(ctx, category)
}

// ListCategories returns every category with its post count.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	categories, err := c.categories.FindAll(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, categories)
}

// GetCategory returns a category with its published posts.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	category, err := c.categories.FindOne(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, category)
}

// UpdateCategory renames or re-describes a category.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, err := c.categories.Update(ctx.Request.Context(), id, services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, category)
}

// DeleteCategory removes a category and detaches its posts.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categories.Remove(ctx.Request.Context(), id); err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "category deleted", nil)
}
