package batches

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/metrics"
	"github.com/mamadbah2/feedengine/internal/repository"
)

const feedingTimeLayout = "15:04"

// AnimalSource supplies animal snapshots from the registry.
type AnimalSource interface {
	ActiveAnimals(ctx context.Context, farmID string) ([]models.AnimalSnapshot, error)
	Animal(ctx context.Context, farmID, animalID string) (*models.AnimalSnapshot, error)
	Today() time.Time
}

// UnitConverter converts a quantity expressed in a farm unit to kilograms.
type UnitConverter interface {
	Convert(ctx context.Context, farmID string, quantity float64, unitSymbol string) (float64, error)
}

// TargetCache stores resolved targets and accepts invalidations.
type TargetCache interface {
	cache.Invalidator
	Generation(farmID, batchID string) cache.Generation
	Targets(farmID, batchID string) ([]models.TargetedAnimal, bool)
	SetTargets(farmID, batchID string, gen cache.Generation, targets []models.TargetedAnimal) bool
}

// Service manages batches, their explicit membership and target resolution.
type Service struct {
	batches    repository.BatchStore
	links      repository.LinkStore
	categories repository.CategoryStore
	animals    AnimalSource
	converter  UnitConverter
	cache      TargetCache
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// Deps groups the collaborators of the batch service.
type Deps struct {
	Batches    repository.BatchStore
	Links      repository.LinkStore
	Categories repository.CategoryStore
	Animals    AnimalSource
	Converter  UnitConverter
	Cache      TargetCache
	Metrics    *metrics.Metrics
}

// NewService wires a batch service. Cache and Metrics may be nil.
func NewService(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:    deps.Batches,
		links:      deps.Links,
		categories: deps.Categories,
		animals:    deps.Animals,
		converter:  deps.Converter,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// GetBatches lists the farm's batches.
func (s *Service) GetBatches(ctx context.Context, farmID string) ([]models.ConsumptionBatch, error) {
	return s.batches.ListBatches(ctx, farmID)
}

// GetBatch returns one batch of the farm.
func (s *Service) GetBatch(ctx context.Context, farmID, id string) (*models.ConsumptionBatch, error) {
	return s.batches.GetBatch(ctx, farmID, id)
}

// CreateBatch validates and stores a new batch.
func (s *Service) CreateBatch(ctx context.Context, farmID string, in models.BatchInput) (*models.ConsumptionBatch, error) {
	now := s.now().UTC()
	b := models.ConsumptionBatch{
		ID:        uuid.NewString(),
		FarmID:    farmID,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.apply(ctx, &b, in, now); err != nil {
		return nil, err
	}

	if err := s.batches.InsertBatch(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("batch created",
		zap.String("farm_id", farmID),
		zap.String("batch_id", b.ID),
		zap.String("target_mode", string(b.TargetMode)))
	return &b, nil
}

// UpdateBatch replaces the writable fields of a batch. Links are kept when the
// mode changes; they only count again once the mode uses them.
func (s *Service) UpdateBatch(ctx context.Context, farmID, id string, in models.BatchInput) (*models.ConsumptionBatch, error) {
	b, err := s.batches.GetBatch(ctx, farmID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, b, in, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.batches.UpdateBatch(ctx, *b); err != nil {
		return nil, err
	}
	s.invalidate(farmID, id)
	return b, nil
}

// DeleteBatch removes a batch with its links and factor values. Presets fail closed.
func (s *Service) DeleteBatch(ctx context.Context, farmID, id string) error {
	b, err := s.batches.GetBatch(ctx, farmID, id)
	if err != nil {
		return err
	}
	if b.IsPreset {
		return models.Errorf(models.ErrProtectedDefault, "preset batch %q cannot be deleted", b.BatchName)
	}
	if err := s.batches.DeleteBatch(ctx, farmID, id); err != nil {
		return err
	}
	s.invalidate(farmID, id)
	return nil
}

// GetBatchTargets resolves the batch and, on request, lists the farm's active
// animals that are not targeted yet.
func (s *Service) GetBatchTargets(ctx context.Context, farmID, batchID string, includeAvailable bool) (*models.BatchTargets, error) {
	b, err := s.batches.GetBatch(ctx, farmID, batchID)
	if err != nil {
		return nil, err
	}
	targeted, err := s.ResolveTargets(ctx, *b)
	if err != nil {
		return nil, err
	}

	out := &models.BatchTargets{Targeted: targeted}
	if !includeAvailable {
		return out, nil
	}

	animals, err := s.animals.ActiveAnimals(ctx, farmID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(targeted))
	for _, t := range targeted {
		taken[t.AnimalID] = struct{}{}
	}
	out.Available = make([]models.AnimalSnapshot, 0, len(animals))
	for _, a := range animals {
		if _, ok := taken[a.ID]; !ok {
			out.Available = append(out.Available, a)
		}
	}
	return out, nil
}

// AddAnimalToBatch links an animal to a specific or mixed batch. Adding an
// already linked animal succeeds without creating a second link.
func (s *Service) AddAnimalToBatch(ctx context.Context, farmID, batchID, animalID string) (bool, error) {
	animalID, err := models.ValidateAnimalID(animalID)
	if err != nil {
		return false, err
	}

	b, err := s.batches.GetBatch(ctx, farmID, batchID)
	if err != nil {
		return false, err
	}
	if !b.TargetMode.UsesLinks() {
		return false, models.Errorf(models.ErrInvalidTargetMode, "batch %q targets by category only", b.BatchName)
	}
	if _, err := s.animals.Animal(ctx, farmID, animalID); err != nil {
		return false, err
	}

	created, err := s.links.AddLink(ctx, models.BatchAnimalLink{
		FarmID:    farmID,
		BatchID:   batchID,
		AnimalID:  animalID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if created {
		s.invalidate(farmID, batchID)
	}
	return created, nil
}

// RemoveAnimalFromBatch deletes the explicit link. In a mixed batch an animal
// that still matches one of the batch categories stays targeted: removal
// never touches category-derived membership.
func (s *Service) RemoveAnimalFromBatch(ctx context.Context, farmID, batchID, animalID string) error {
	animalID, err := models.ValidateAnimalID(animalID)
	if err != nil {
		return err
	}

	b, err := s.batches.GetBatch(ctx, farmID, batchID)
	if err != nil {
		return err
	}
	if !b.TargetMode.UsesLinks() {
		return models.Errorf(models.ErrInvalidTargetMode, "batch %q targets by category only", b.BatchName)
	}

	if err := s.links.RemoveLink(ctx, farmID, batchID, animalID); err != nil {
		if errors.Is(err, models.ErrAnimalNotLinked) {
			return models.Errorf(models.ErrAnimalNotLinked, "animal %s is not linked to batch %q", animalID, b.BatchName)
		}
		return err
	}
	s.invalidate(farmID, batchID)
	return nil
}

func (s *Service) invalidate(farmID, batchID string) {
	if s.cache != nil {
		s.cache.InvalidateBatch(farmID, batchID)
	}
}

func (s *Service) apply(ctx context.Context, b *models.ConsumptionBatch, in models.BatchInput, now time.Time) error {
	name := strings.TrimSpace(in.BatchName)
	if name == "" {
		return models.Errorf(models.ErrValidation, "batch_name is required")
	}
	if !in.TargetMode.Valid() {
		return models.Errorf(models.ErrInvalidTargetMode, "target_mode must be one of category, specific, mixed; got %q", in.TargetMode)
	}
	if in.FeedingFrequencyPerDay < models.MinFeedingFrequency || in.FeedingFrequencyPerDay > models.MaxFeedingFrequency {
		return models.Errorf(models.ErrValidation, "feeding_frequency_per_day must be between %d and %d",
			models.MinFeedingFrequency, models.MaxFeedingFrequency)
	}
	if math.IsNaN(in.DefaultQuantity) || math.IsInf(in.DefaultQuantity, 0) || in.DefaultQuantity < 0 {
		return models.Errorf(models.ErrValidation, "default quantity must be a non-negative number")
	}

	times, err := normalizeFeedingTimes(in.FeedingTimes, in.FeedingFrequencyPerDay)
	if err != nil {
		return err
	}

	categoryIDs := dedupe(in.AnimalCategoryIDs)
	if in.TargetMode == models.TargetCategory && len(categoryIDs) == 0 {
		return models.Errorf(models.ErrValidation, "category target mode requires at least one animal_category_id")
	}
	if in.TargetMode.UsesCategories() {
		for _, id := range categoryIDs {
			if _, err := s.categories.GetCategory(ctx, b.FarmID, id); err != nil {
				return err
			}
		}
	}

	quantityKg := in.DefaultQuantity
	if unit := strings.TrimSpace(in.QuantityUnit); unit != "" {
		if s.converter == nil {
			return models.Errorf(models.ErrValidation, "quantity units are not supported")
		}
		quantityKg, err = s.converter.Convert(ctx, b.FarmID, in.DefaultQuantity, unit)
		if err != nil {
			return err
		}
	}

	b.BatchName = name
	b.Description = strings.TrimSpace(in.Description)
	b.TargetMode = in.TargetMode
	b.AnimalCategoryIDs = categoryIDs
	b.DefaultQuantityKg = quantityKg
	b.FeedingFrequencyPerDay = in.FeedingFrequencyPerDay
	b.FeedingTimes = times
	b.FeedTypeID = strings.TrimSpace(in.FeedTypeID)
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	b.UpdatedAt = now
	return nil
}

func normalizeFeedingTimes(values []string, frequency int) ([]string, error) {
	if len(values) > frequency {
		return nil, models.Errorf(models.ErrValidation, "%d feeding_times given for %d feedings per day", len(values), frequency)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		t, err := time.Parse(feedingTimeLayout, strings.TrimSpace(v))
		if err != nil {
			return nil, models.Errorf(models.ErrValidation, "feeding time %q must use HH:MM", v)
		}
		out = append(out, t.Format(feedingTimeLayout))
	}
	return out, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
