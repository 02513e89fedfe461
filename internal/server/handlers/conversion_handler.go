package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// ConversionService is the unit conversion surface the HTTP layer needs.
type ConversionService interface {
	GetConversions(ctx context.Context, farmID string) ([]models.WeightConversion, error)
	CreateConversion(ctx context.Context, farmID string, in models.ConversionInput) (*models.WeightConversion, error)
	UpdateConversion(ctx context.Context, farmID, id string, in models.ConversionInput) (*models.WeightConversion, error)
	DeleteConversion(ctx context.Context, farmID, id string) error
	Convert(ctx context.Context, farmID string, quantity float64, unitSymbol string) (float64, error)
}

type convertRequest struct {
	Quantity   float64 `json:"quantity" validate:"min=0"`
	UnitSymbol string  `json:"unit_symbol" validate:"required"`
}

// ConversionHandler serves the farm's weight conversion table.
type ConversionHandler struct {
	svc    ConversionService
	logger *zap.Logger
}

// NewConversionHandler constructs the conversion handler.
func NewConversionHandler(svc ConversionService, logger *zap.Logger) *ConversionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionHandler{svc: svc, logger: logger}
}

// List returns the farm's conversions.
func (h *ConversionHandler) List(c *gin.Context) {
	list, err := h.svc.GetConversions(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": list})
}

// Create adds a unit.
func (h *ConversionHandler) Create(c *gin.Context) {
	var req models.ConversionInput
	if !bindAndValidate(c, &req) {
		return
	}
	conv, err := h.svc.CreateConversion(c.Request.Context(), c.Param("farmId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Update edits a unit.
func (h *ConversionHandler) Update(c *gin.Context) {
	var req models.ConversionInput
	if !bindAndValidate(c, &req) {
		return
	}
	conv, err := h.svc.UpdateConversion(c.Request.Context(), c.Param("farmId"), c.Param("conversionId"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Delete removes a user-defined unit.
func (h *ConversionHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteConversion(c.Request.Context(), c.Param("farmId"), c.Param("conversionId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Convert expresses a quantity in kilograms.
func (h *ConversionHandler) Convert(c *gin.Context) {
	var req convertRequest
	if !bindAndValidate(c, &req) {
		return
	}
	kg, err := h.svc.Convert(c.Request.Context(), c.Param("farmId"), req.Quantity, req.UnitSymbol)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": req.Quantity, "unit_symbol": req.UnitSymbol, "quantity_kg": kg})
}
