package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// BatchService is the batch surface the HTTP layer needs.
type BatchService interface {
	GetBatches(ctx context.Context, farmID string) ([]models.ConsumptionBatch, error)
	GetBatch(ctx context.Context, farmID, id string) (*models.ConsumptionBatch, error)
	CreateBatch(ctx context.Context, farmID string, in models.BatchInput) (*models.ConsumptionBatch, error)
	UpdateBatch(ctx context.Context, farmID, id string, in models.BatchInput) (*models.ConsumptionBatch, error)
	DeleteBatch(ctx context.Context, farmID, id string) error
	GetBatchTargets(ctx context.Context, farmID, batchID string, includeAvailable bool) (*models.BatchTargets, error)
	AddAnimalToBatch(ctx context.Context, farmID, batchID, animalID string) (bool, error)
	RemoveAnimalFromBatch(ctx context.Context, farmID, batchID, animalID string) error
}

// InsightService computes batch insights.
type InsightService interface {
	GetBatchInsights(ctx context.Context, farmID, batchID string) (*models.BatchInsights, error)
}

// BatchHandler serves consumption batches, their membership and insights.
type BatchHandler struct {
	svc      BatchService
	insights InsightService
	logger   *zap.Logger
}

// NewBatchHandler constructs the batch handler.
func NewBatchHandler(svc BatchService, insights InsightService, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{svc: svc, insights: insights, logger: logger}
}

// List returns the farm's batches.
func (h *BatchHandler) List(c *gin.Context) {
	list, err := h.svc.GetBatches(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": list})
}

// Get returns one batch.
func (h *BatchHandler) Get(c *gin.Context) {
	b, err := h.svc.GetBatch(c.Request.Context(), c.Param("farmId"), c.Param("batchId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Create adds a batch.
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.BatchInput
	if !bindAndValidate(c, &req) {
		return
	}
	b, err := h.svc.CreateBatch(c.Request.Context(), c.Param("farmId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// Update edits a batch.
func (h *BatchHandler) Update(c *gin.Context) {
	var req models.BatchInput
	if !bindAndValidate(c, &req) {
		return
	}
	b, err := h.svc.UpdateBatch(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Delete removes a batch.
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteBatch(c.Request.Context(), c.Param("farmId"), c.Param("batchId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Targets resolves the batch's current targets.
func (h *BatchHandler) Targets(c *gin.Context) {
	includeAvailable, ok := queryBool(c, "include_available")
	if !ok {
		return
	}
	targets, err := h.svc.GetBatchTargets(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), includeAvailable)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

// AddAnimal links an animal to the batch.
func (h *BatchHandler) AddAnimal(c *gin.Context) {
	created, err := h.svc.AddAnimalToBatch(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), c.Param("animalId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created})
}

// RemoveAnimal unlinks an animal from the batch.
func (h *BatchHandler) RemoveAnimal(c *gin.Context) {
	if err := h.svc.RemoveAnimalFromBatch(c.Request.Context(), c.Param("farmId"), c.Param("batchId"), c.Param("animalId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Insights returns the batch's consumption and cost summary.
func (h *BatchHandler) Insights(c *gin.Context) {
	out, err := h.insights.GetBatchInsights(c.Request.Context(), c.Param("farmId"), c.Param("batchId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
