package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
)

type animalChangedRequest struct {
	AnimalIDs []string `json:"animal_ids"`
	Reason    string   `json:"reason" validate:"max=200"`
}

// AnimalHandler receives change notifications from the animal registry.
type AnimalHandler struct {
	invalidator cache.Invalidator
	logger      *zap.Logger
}

// NewAnimalHandler constructs the registry notification handler.
func NewAnimalHandler(invalidator cache.Invalidator, logger *zap.Logger) *AnimalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &AnimalHandler{invalidator: invalidator, logger: logger}
}

// Changed drops every cached result of the farm. Any attribute change can flip
// a category match, so the notification is not filtered.
func (h *AnimalHandler) Changed(c *gin.Context) {
	var req animalChangedRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	farmID := c.Param("farmId")
	h.invalidator.InvalidateFarm(farmID)
	h.logger.Info("animal change notification",
		zap.String("farm_id", farmID),
		zap.Int("animals", len(req.AnimalIDs)),
		zap.String("reason", req.Reason))
	c.Status(http.StatusAccepted)
}
