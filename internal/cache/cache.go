// Package cache fronts target resolution and insights with a short-lived,
// explicitly invalidated cache keyed by (farm, batch).
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/metrics"
)

const (
	kindTargets  = "targets"
	kindInsights = "insights"
)

var kinds = []string{kindTargets, kindInsights}

// Invalidator is implemented by anything that can drop cached batch results.
type Invalidator interface {
	InvalidateBatch(farmID, batchID string)
	InvalidateFarm(farmID string)
}

// Generation is the invalidation state a read started from. Results computed
// under an older generation are not stored.
type Generation struct {
	all, farm, batch uint64
}

type batchKey struct{ farm, batch string }

// BatchCache stores resolved targets and insights per (farm, batch).
type BatchCache struct {
	store   *gocache.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger

	// mu orders stores against invalidations.
	mu       sync.Mutex
	epoch    uint64
	farmGen  map[string]uint64
	batchGen map[batchKey]uint64
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *BatchCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchCache{
		store:    gocache.New(ttl, 2*ttl),
		metrics:  m,
		logger:   logger,
		farmGen:  make(map[string]uint64),
		batchGen: make(map[batchKey]uint64),
	}
}

func farmPrefix(kind, farmID string) string {
	return kind + "|" + strconv.Quote(farmID) + "|"
}

func key(kind, farmID, batchID string) string {
	return farmPrefix(kind, farmID) + strconv.Quote(batchID)
}

// Generation returns the current generation of the batch. Take it before
// computing a result and pass it to the matching setter.
func (c *BatchCache) Generation(farmID, batchID string) Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(farmID, batchID)
}

func (c *BatchCache) generationLocked(farmID, batchID string) Generation {
	return Generation{
		all:   c.epoch,
		farm:  c.farmGen[farmID],
		batch: c.batchGen[batchKey{farmID, batchID}],
	}
}

// set stores value unless the batch was invalidated since gen was taken.
func (c *BatchCache) set(kind, farmID, batchID string, gen Generation, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generationLocked(farmID, batchID) != gen {
		c.logger.Debug("stale result not cached",
			zap.String("kind", kind), zap.String("farm_id", farmID), zap.String("batch_id", batchID))
		return false
	}
	c.store.SetDefault(key(kind, farmID, batchID), value)
	return true
}

// Targets returns cached targets for the batch.
func (c *BatchCache) Targets(farmID, batchID string) ([]models.TargetedAnimal, bool) {
	v, ok := c.store.Get(key(kindTargets, farmID, batchID))
	c.metrics.CacheResult(kindTargets, ok)
	if !ok {
		return nil, false
	}
	targets := v.([]models.TargetedAnimal)
	return append([]models.TargetedAnimal(nil), targets...), true
}

// SetTargets caches the batch targets computed under gen. It reports whether
// the value was stored.
func (c *BatchCache) SetTargets(farmID, batchID string, gen Generation, targets []models.TargetedAnimal) bool {
	return c.set(kindTargets, farmID, batchID, gen, append([]models.TargetedAnimal(nil), targets...))
}

// Insights returns cached insights for the batch.
func (c *BatchCache) Insights(farmID, batchID string) (models.BatchInsights, bool) {
	v, ok := c.store.Get(key(kindInsights, farmID, batchID))
	c.metrics.CacheResult(kindInsights, ok)
	if !ok {
		return models.BatchInsights{}, false
	}
	return v.(models.BatchInsights), true
}

// SetInsights caches the batch insights computed under gen. It reports whether
// the value was stored.
func (c *BatchCache) SetInsights(farmID, batchID string, gen Generation, insights models.BatchInsights) bool {
	return c.set(kindInsights, farmID, batchID, gen, insights)
}

// InvalidateBatch drops every cached entry of one batch.
func (c *BatchCache) InvalidateBatch(farmID, batchID string) {
	c.mu.Lock()
	c.batchGen[batchKey{farmID, batchID}]++
	for _, kind := range kinds {
		c.store.Delete(key(kind, farmID, batchID))
	}
	c.mu.Unlock()

	c.metrics.Invalidated("batch")
	c.logger.Debug("batch cache invalidated", zap.String("farm_id", farmID), zap.String("batch_id", batchID))
}

// InvalidateFarm drops every cached entry of the farm's batches.
func (c *BatchCache) InvalidateFarm(farmID string) {
	c.mu.Lock()
	c.farmGen[farmID]++
	for k := range c.store.Items() {
		for _, kind := range kinds {
			if strings.HasPrefix(k, farmPrefix(kind, farmID)) {
				c.store.Delete(k)
				break
			}
		}
	}
	c.mu.Unlock()

	c.metrics.Invalidated("farm")
	c.logger.Debug("farm cache invalidated", zap.String("farm_id", farmID))
}

// Flush drops everything, used at day rollover when age-based matches change.
func (c *BatchCache) Flush() {
	c.mu.Lock()
	c.epoch++
	c.store.Flush()
	c.mu.Unlock()

	c.metrics.Invalidated("all")
}

// Len returns the number of live entries.
func (c *BatchCache) Len() int {
	return c.store.ItemCount()
}

// Nop is an Invalidator that does nothing.
type Nop struct{}

func (Nop) InvalidateBatch(string, string) {}
func (Nop) InvalidateFarm(string)          {}
