// Package repository declares the farm-scoped persistence contracts of the
// feed engine. Every lookup takes the farm id; a row belonging to another farm
// is reported exactly like a missing one.
package repository

import (
	"context"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// CategoryStore persists animal categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, farmID string) ([]models.AnimalCategory, error)
	GetCategory(ctx context.Context, farmID, id string) (*models.AnimalCategory, error)
	// FindCategoryByName returns nil without error when no category has the name key.
	FindCategoryByName(ctx context.Context, farmID, nameKey string) (*models.AnimalCategory, error)
	InsertCategories(ctx context.Context, categories ...models.AnimalCategory) error
	UpdateCategory(ctx context.Context, category models.AnimalCategory) error
	DeleteCategory(ctx context.Context, farmID, id string) error
}

// BatchStore persists consumption batches.
type BatchStore interface {
	ListBatches(ctx context.Context, farmID string) ([]models.ConsumptionBatch, error)
	ListActiveFarmIDs(ctx context.Context) ([]string, error)
	GetBatch(ctx context.Context, farmID, id string) (*models.ConsumptionBatch, error)
	InsertBatch(ctx context.Context, batch models.ConsumptionBatch) error
	UpdateBatch(ctx context.Context, batch models.ConsumptionBatch) error
	// DeleteBatch removes the batch together with its links and factor values.
	DeleteBatch(ctx context.Context, farmID, id string) error
}

// LinkStore persists specific-mode batch membership.
type LinkStore interface {
	// AddLink is idempotent; created is false when the link already existed.
	AddLink(ctx context.Context, link models.BatchAnimalLink) (created bool, err error)
	RemoveLink(ctx context.Context, farmID, batchID, animalID string) error
	ListLinks(ctx context.Context, farmID, batchID string) ([]models.BatchAnimalLink, error)
}

// FactorStore persists factor definitions and per-animal factor values.
type FactorStore interface {
	ListFactors(ctx context.Context, farmID string) ([]models.ConsumptionBatchFactor, error)
	GetFactor(ctx context.Context, farmID, id string) (*models.ConsumptionBatchFactor, error)
	InsertFactor(ctx context.Context, factor models.ConsumptionBatchFactor) error
	UpdateFactor(ctx context.Context, factor models.ConsumptionBatchFactor) error
	// ListAnimalBatchFactors returns every value of the batch, or only those of
	// animalID when it is not empty.
	ListAnimalBatchFactors(ctx context.Context, farmID, batchID, animalID string) ([]models.AnimalBatchFactor, error)
	// UpsertAnimalBatchFactors writes all values or none of them.
	UpsertAnimalBatchFactors(ctx context.Context, farmID, batchID string, values []models.AnimalBatchFactor) error
}

// ConversionStore persists weight conversions.
type ConversionStore interface {
	ListConversions(ctx context.Context, farmID string) ([]models.WeightConversion, error)
	GetConversion(ctx context.Context, farmID, id string) (*models.WeightConversion, error)
	// FindConversionBySymbol returns nil without error when the symbol key is unknown.
	FindConversionBySymbol(ctx context.Context, farmID, symbolKey string) (*models.WeightConversion, error)
	InsertConversions(ctx context.Context, conversions ...models.WeightConversion) error
	UpdateConversion(ctx context.Context, conversion models.WeightConversion) error
	DeleteConversion(ctx context.Context, farmID, id string) error
}

// InsightStore keeps the daily insight history.
type InsightStore interface {
	SaveInsightSnapshot(ctx context.Context, snapshot models.InsightSnapshot) error
}

// Store bundles every contract; both the MongoDB and in-memory stores implement it.
type Store interface {
	CategoryStore
	BatchStore
	LinkStore
	FactorStore
	ConversionStore
	InsightStore
}
