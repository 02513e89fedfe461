// Package insights rolls resolved batch targets up into daily consumption and
// cost estimates.
package insights

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/metrics"
	"github.com/mamadbah2/feedengine/internal/repository"
	"github.com/mamadbah2/feedengine/pkg/clients/feedcatalog"
)

const (
	consumptionPlaces = 3
	costPlaces        = 2
)

// TargetResolver resolves the animals a batch targets.
type TargetResolver interface {
	ResolveTargets(ctx context.Context, batch models.ConsumptionBatch) ([]models.TargetedAnimal, error)
}

// MultiplierSource returns the effective factor multipliers of a batch.
type MultiplierSource interface {
	Multipliers(ctx context.Context, farmID, batchID string) (map[string]decimal.Decimal, error)
}

// Cache stores computed insights per (farm, batch).
type Cache interface {
	Generation(farmID, batchID string) cache.Generation
	Insights(farmID, batchID string) (models.BatchInsights, bool)
	SetInsights(farmID, batchID string, gen cache.Generation, insights models.BatchInsights) bool
}

// Service computes batch insights.
type Service struct {
	batches  repository.BatchStore
	resolver TargetResolver
	factors  MultiplierSource
	catalog  feedcatalog.Client
	cache    Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires an insights service. Cache and metrics may be nil.
func NewService(
	batches repository.BatchStore,
	resolver TargetResolver,
	factors MultiplierSource,
	catalog feedcatalog.Client,
	cache Cache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:  batches,
		resolver: resolver,
		factors:  factors,
		catalog:  catalog,
		cache:    cache,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// GetBatchInsights loads the batch and computes its insights.
func (s *Service) GetBatchInsights(ctx context.Context, farmID, batchID string) (*models.BatchInsights, error) {
	b, err := s.batches.GetBatch(ctx, farmID, batchID)
	if err != nil {
		return nil, err
	}
	out, err := s.ComputeInsights(ctx, *b)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ComputeInsights aggregates the batch's current targets. A missing or
// unreachable feed cost leaves DailyCost nil; the counts remain valid. Results
// with an unreachable cost are not cached.
func (s *Service) ComputeInsights(ctx context.Context, batch models.ConsumptionBatch) (models.BatchInsights, error) {
	var gen cache.Generation
	if s.cache != nil {
		if cached, ok := s.cache.Insights(batch.FarmID, batch.ID); ok {
			return cached, nil
		}
		gen = s.cache.Generation(batch.FarmID, batch.ID)
	}

	targets, err := s.resolver.ResolveTargets(ctx, batch)
	if err != nil {
		return models.BatchInsights{}, err
	}
	multipliers, err := s.factors.Multipliers(ctx, batch.FarmID, batch.ID)
	if err != nil {
		return models.BatchInsights{}, err
	}

	consumption := DailyConsumptionKg(batch, targets, multipliers)
	out := models.BatchInsights{
		FarmID:             batch.FarmID,
		BatchID:            batch.ID,
		TargetedCount:      len(targets),
		DailyConsumptionKg: consumption.Round(consumptionPlaces).InexactFloat64(),
		ComputedAt:         s.now().UTC(),
	}

	cost, ok, degraded := s.costPerKg(ctx, batch)
	if ok {
		perKg := cost.InexactFloat64()
		daily := consumption.Mul(cost).Round(costPlaces).InexactFloat64()
		out.CostPerKg = &perKg
		out.DailyCost = &daily
	}

	s.metrics.InsightComputed()
	if s.cache != nil && !degraded {
		s.cache.SetInsights(batch.FarmID, batch.ID, gen, out)
	}
	return out, nil
}

// DailyConsumptionKg sums the effective ration of every target times the daily
// feeding frequency. Targets absent from multipliers use a neutral multiplier.
func DailyConsumptionKg(batch models.ConsumptionBatch, targets []models.TargetedAnimal, multipliers map[string]decimal.Decimal) decimal.Decimal {
	base := decimal.NewFromFloat(batch.DefaultQuantityKg)
	frequency := decimal.NewFromInt(int64(batch.FeedingFrequencyPerDay))

	total := decimal.Zero
	for _, t := range targets {
		m, ok := multipliers[t.AnimalID]
		if !ok {
			m = decimal.NewFromInt(1)
		}
		total = total.Add(base.Mul(m).Mul(frequency))
	}
	return total
}

// costPerKg looks up the batch's feed cost. degraded is set when the catalog
// could not be reached.
func (s *Service) costPerKg(ctx context.Context, batch models.ConsumptionBatch) (cost decimal.Decimal, ok, degraded bool) {
	if batch.FeedTypeID == "" || s.catalog == nil {
		return decimal.Zero, false, false
	}
	cost, ok, err := s.catalog.CostPerKg(ctx, batch.FarmID, batch.FeedTypeID)
	if err != nil {
		s.metrics.DependencyFailed("feed_catalog")
		s.logger.Warn("feed cost unavailable, reporting unknown cost",
			zap.String("farm_id", batch.FarmID),
			zap.String("batch_id", batch.ID),
			zap.String("feed_type_id", batch.FeedTypeID),
			zap.Error(err))
		return decimal.Zero, false, true
	}
	return cost, ok, false
}
