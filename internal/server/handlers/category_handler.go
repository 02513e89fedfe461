package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// CategoryService is the category surface the HTTP layer needs.
type CategoryService interface {
	GetCategories(ctx context.Context, farmID string) ([]models.AnimalCategory, error)
	GetCategory(ctx context.Context, farmID, id string) (*models.AnimalCategory, error)
	CreateCategory(ctx context.Context, farmID string, in models.CategoryInput) (*models.AnimalCategory, error)
	UpdateCategory(ctx context.Context, farmID, id string, in models.CategoryInput) (*models.AnimalCategory, error)
	DeleteCategory(ctx context.Context, farmID, id string) error
	GetMatchingAnimals(ctx context.Context, farmID, categoryID string, limit int) ([]models.AnimalSnapshot, int, error)
}

// CategoryHandler serves animal categories.
type CategoryHandler struct {
	svc    CategoryService
	logger *zap.Logger
}

// NewCategoryHandler constructs the category handler.
func NewCategoryHandler(svc CategoryService, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryHandler{svc: svc, logger: logger}
}

// List returns the farm's categories.
func (h *CategoryHandler) List(c *gin.Context) {
	list, err := h.svc.GetCategories(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

// Get returns one category.
func (h *CategoryHandler) Get(c *gin.Context) {
	cat, err := h.svc.GetCategory(c.Request.Context(), c.Param("farmId"), c.Param("categoryId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// Create adds a category.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CategoryInput
	if !bindAndValidate(c, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), c.Param("farmId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// Update edits a category.
func (h *CategoryHandler) Update(c *gin.Context) {
	var req models.CategoryInput
	if !bindAndValidate(c, &req) {
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), c.Param("farmId"), c.Param("categoryId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// Delete removes a non-default category.
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("farmId"), c.Param("categoryId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Animals lists the active animals matching the category.
func (h *CategoryHandler) Animals(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	animals, total, err := h.svc.GetMatchingAnimals(c.Request.Context(), c.Param("farmId"), c.Param("categoryId"), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"animals": animals, "total": total})
}
