package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/server/handlers"
)

// Handlers bundles the HTTP handlers mounted by the router.
type Handlers struct {
	Categories  *handlers.CategoryHandler
	Batches     *handlers.BatchHandler
	Factors     *handlers.FactorHandler
	Conversions *handlers.ConversionHandler
	Animals     *handlers.AnimalHandler
}

// New wires the Gin engine with required routes and middlewares. A nil
// registry disables the /metrics endpoint.
func New(h Handlers, registry *prometheus.Registry, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	farm := r.Group("/api/v1/farms/:farmId")

	categories := farm.Group("/categories")
	categories.GET("", h.Categories.List)
	categories.POST("", h.Categories.Create)
	categories.GET("/:categoryId", h.Categories.Get)
	categories.PUT("/:categoryId", h.Categories.Update)
	categories.DELETE("/:categoryId", h.Categories.Delete)
	categories.GET("/:categoryId/animals", h.Categories.Animals)

	batches := farm.Group("/batches")
	batches.GET("", h.Batches.List)
	batches.POST("", h.Batches.Create)
	batches.GET("/:batchId", h.Batches.Get)
	batches.PUT("/:batchId", h.Batches.Update)
	batches.DELETE("/:batchId", h.Batches.Delete)
	batches.GET("/:batchId/targets", h.Batches.Targets)
	batches.POST("/:batchId/animals/:animalId", h.Batches.AddAnimal)
	batches.DELETE("/:batchId/animals/:animalId", h.Batches.RemoveAnimal)
	batches.GET("/:batchId/factors", h.Factors.BatchValues)
	batches.PUT("/:batchId/factors", h.Factors.UpdateBatchValues)
	batches.GET("/:batchId/insights", h.Batches.Insights)

	factors := farm.Group("/factors")
	factors.GET("", h.Factors.List)
	factors.POST("", h.Factors.Create)
	factors.PUT("/:factorId", h.Factors.Update)

	conversions := farm.Group("/conversions")
	conversions.GET("", h.Conversions.List)
	conversions.POST("", h.Conversions.Create)
	conversions.POST("/convert", h.Conversions.Convert)
	conversions.PUT("/:conversionId", h.Conversions.Update)
	conversions.DELETE("/:conversionId", h.Conversions.Delete)

	farm.POST("/animals/changed", h.Animals.Changed)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("farm_id", c.Param("farmId")),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
