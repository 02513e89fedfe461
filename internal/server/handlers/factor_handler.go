package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// FactorService is the factor surface the HTTP layer needs.
type FactorService interface {
	GetFactors(ctx context.Context, farmID string) ([]models.ConsumptionBatchFactor, error)
	CreateFactor(ctx context.Context, farmID string, in models.FactorInput) (*models.ConsumptionBatchFactor, error)
	UpdateFactor(ctx context.Context, farmID, id string, in models.FactorInput) (*models.ConsumptionBatchFactor, error)
	GetAnimalBatchFactors(ctx context.Context, farmID, batchID, animalID string) ([]models.AnimalBatchFactor, error)
	UpdateAnimalBatchFactors(ctx context.Context, farmID, batchID string, updates []models.FactorUpdate) ([]models.AnimalBatchFactor, error)
}

type factorUpdatesRequest struct {
	Factors []models.FactorUpdate `json:"factors" validate:"required,min=1"`
}

// FactorHandler serves factor definitions and per-animal factor values.
type FactorHandler struct {
	svc    FactorService
	logger *zap.Logger
}

// NewFactorHandler constructs the factor handler.
func NewFactorHandler(svc FactorService, logger *zap.Logger) *FactorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactorHandler{svc: svc, logger: logger}
}

// List returns the farm's factor definitions.
func (h *FactorHandler) List(c *gin.Context) {
	list, err := h.svc.GetFactors(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"factors": list})
}

// Create adds a factor definition.
func (h *FactorHandler) Create(c *gin.Context) {
	var req models.FactorInput
	if !bindAndValidate(c, &req) {
		return
	}
	f, err := h.svc.CreateFactor(c.Request.Context(), c.Param("farmId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Update edits a factor definition.
func (h *FactorHandler) Update(c *gin.Context) {
	var req models.FactorInput
	if !bindAndValidate(c, &req) {
		return
	}
	f, err := h.svc.UpdateFactor(c.Request.Context(), c.Param("farmId"), c.Param("factorId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// BatchValues lists the factor values of a batch.
func (h *FactorHandler) BatchValues(c *gin.Context) {
	values, err := h.svc.GetAnimalBatchFactors(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), c.Query("animal_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"factors": values})
}

// UpdateBatchValues writes a set of factor values atomically.
func (h *FactorHandler) UpdateBatchValues(c *gin.Context) {
	var req factorUpdatesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	values, err := h.svc.UpdateAnimalBatchFactors(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), req.Factors)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"factors": values})
}
