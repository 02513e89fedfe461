package factors

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
)

// Neutral is the multiplier of an animal without overrides.
var Neutral = decimal.NewFromInt(1)

// AnimalLookup confirms that an animal exists in the farm.
type AnimalLookup interface {
	Animal(ctx context.Context, farmID, animalID string) (*models.AnimalSnapshot, error)
}

// Service manages factor definitions and per-animal factor values.
type Service struct {
	factors     repository.FactorStore
	batches     repository.BatchStore
	animals     AnimalLookup
	invalidator cache.Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires a factor service. A nil invalidator disables cache invalidation.
func NewService(factors repository.FactorStore, batches repository.BatchStore, animals AnimalLookup, invalidator cache.Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &Service{
		factors:     factors,
		batches:     batches,
		animals:     animals,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// GetFactors lists the farm's factor definitions.
func (s *Service) GetFactors(ctx context.Context, farmID string) ([]models.ConsumptionBatchFactor, error) {
	return s.factors.ListFactors(ctx, farmID)
}

// CreateFactor stores a new factor definition, active unless stated otherwise.
func (s *Service) CreateFactor(ctx context.Context, farmID string, in models.FactorInput) (*models.ConsumptionBatchFactor, error) {
	if err := validateFactorInput(&in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	f := models.ConsumptionBatchFactor{
		ID:          uuid.NewString(),
		FarmID:      farmID,
		FactorName:  in.FactorName,
		FactorType:  in.FactorType,
		Description: in.Description,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.factors.InsertFactor(ctx, f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFactor edits a factor definition. Toggling is_active changes every
// batch's insights, so the whole farm is invalidated.
func (s *Service) UpdateFactor(ctx context.Context, farmID, id string, in models.FactorInput) (*models.ConsumptionBatchFactor, error) {
	if err := validateFactorInput(&in); err != nil {
		return nil, err
	}
	f, err := s.factors.GetFactor(ctx, farmID, id)
	if err != nil {
		return nil, err
	}
	f.FactorName = in.FactorName
	f.FactorType = in.FactorType
	f.Description = in.Description
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	f.UpdatedAt = s.now().UTC()

	if err := s.factors.UpdateFactor(ctx, *f); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateFarm(farmID)
	return f, nil
}

// GetAnimalBatchFactors lists the factor values of a batch, optionally for one animal.
func (s *Service) GetAnimalBatchFactors(ctx context.Context, farmID, batchID, animalID string) ([]models.AnimalBatchFactor, error) {
	if _, err := s.batches.GetBatch(ctx, farmID, batchID); err != nil {
		return nil, err
	}
	if animalID != "" {
		id, err := models.ValidateAnimalID(animalID)
		if err != nil {
			return nil, err
		}
		animalID = id
	}
	return s.factors.ListAnimalBatchFactors(ctx, farmID, batchID, animalID)
}

// UpdateAnimalBatchFactors writes a set of factor values. Every entry is
// checked before anything is written; one bad entry rejects the whole set.
func (s *Service) UpdateAnimalBatchFactors(ctx context.Context, farmID, batchID string, updates []models.FactorUpdate) ([]models.AnimalBatchFactor, error) {
	if len(updates) == 0 {
		return nil, models.Errorf(models.ErrValidation, "at least one factor update is required")
	}
	if _, err := s.batches.GetBatch(ctx, farmID, batchID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	checkedFactors := make(map[string]struct{})
	checkedAnimals := make(map[string]struct{})
	values := make([]models.AnimalBatchFactor, 0, len(updates))
	for i, u := range updates {
		if strings.TrimSpace(u.AnimalID) == "" || strings.TrimSpace(u.FactorID) == "" || strings.TrimSpace(u.FactorValue) == "" {
			return nil, models.Errorf(models.ErrValidation, "update %d: animal_id, factor_id and factor_value are required", i)
		}
		animalID, err := models.ValidateAnimalID(u.AnimalID)
		if err != nil {
			return nil, models.Errorf(models.ErrInvalidAnimalID, "update %d: %v", i, err)
		}
		value, err := ParseValue(u.FactorValue)
		if err != nil {
			return nil, models.Errorf(models.ErrValidation, "update %d: %v", i, err)
		}

		factorID := strings.TrimSpace(u.FactorID)
		if _, ok := checkedFactors[factorID]; !ok {
			if _, err := s.factors.GetFactor(ctx, farmID, factorID); err != nil {
				return nil, err
			}
			checkedFactors[factorID] = struct{}{}
		}
		if _, ok := checkedAnimals[animalID]; !ok {
			if _, err := s.animals.Animal(ctx, farmID, animalID); err != nil {
				return nil, err
			}
			checkedAnimals[animalID] = struct{}{}
		}

		values = append(values, models.AnimalBatchFactor{
			FarmID:      farmID,
			BatchID:     batchID,
			AnimalID:    animalID,
			FactorID:    factorID,
			FactorValue: value.String(),
			UpdatedAt:   now,
		})
	}

	if err := s.factors.UpsertAnimalBatchFactors(ctx, farmID, batchID, values); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateBatch(farmID, batchID)
	s.logger.Info("animal batch factors updated",
		zap.String("farm_id", farmID),
		zap.String("batch_id", batchID),
		zap.Int("count", len(values)))
	return values, nil
}

// EffectiveMultiplier returns the product of the animal's active factor values
// in the batch, Neutral when it has none.
func (s *Service) EffectiveMultiplier(ctx context.Context, farmID, batchID, animalID string) (decimal.Decimal, error) {
	active, err := s.activeFactorIDs(ctx, farmID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	values, err := s.factors.ListAnimalBatchFactors(ctx, farmID, batchID, animalID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return s.combine(values, active)[animalID].orNeutral(), nil
}

// EffectiveRationKg is the batch's base ration scaled by the animal's multiplier.
func (s *Service) EffectiveRationKg(ctx context.Context, batch models.ConsumptionBatch, animalID string) (decimal.Decimal, error) {
	m, err := s.EffectiveMultiplier(ctx, batch.FarmID, batch.ID, animalID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(batch.DefaultQuantityKg).Mul(m), nil
}

// Multipliers returns the effective multiplier of every animal that has at
// least one active override in the batch. Animals missing from the map are neutral.
func (s *Service) Multipliers(ctx context.Context, farmID, batchID string) (map[string]decimal.Decimal, error) {
	active, err := s.activeFactorIDs(ctx, farmID)
	if err != nil {
		return nil, err
	}
	values, err := s.factors.ListAnimalBatchFactors(ctx, farmID, batchID, "")
	if err != nil {
		return nil, err
	}
	combined := s.combine(values, active)
	out := make(map[string]decimal.Decimal, len(combined))
	for id, p := range combined {
		out[id] = p.orNeutral()
	}
	return out, nil
}

func (s *Service) activeFactorIDs(ctx context.Context, farmID string) (map[string]struct{}, error) {
	defs, err := s.factors.ListFactors(ctx, farmID)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(defs))
	for _, f := range defs {
		if f.IsActive {
			active[f.ID] = struct{}{}
		}
	}
	return active, nil
}

type product struct {
	value decimal.Decimal
	set   bool
}

func (p product) orNeutral() decimal.Decimal {
	if !p.set {
		return Neutral
	}
	return p.value
}

func (s *Service) combine(values []models.AnimalBatchFactor, active map[string]struct{}) map[string]product {
	out := make(map[string]product)
	for _, v := range values {
		if _, ok := active[v.FactorID]; !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v.FactorValue))
		if err != nil {
			s.logger.Warn("stored factor value is not a decimal, treating as neutral",
				zap.String("batch_id", v.BatchID),
				zap.String("animal_id", v.AnimalID),
				zap.String("factor_id", v.FactorID),
				zap.String("value", v.FactorValue))
			continue
		}
		p := out[v.AnimalID]
		if p.set {
			p.value = p.value.Mul(d)
		} else {
			p = product{value: d, set: true}
		}
		out[v.AnimalID] = p
	}
	return out
}

// ParseValue accepts a strictly positive decimal multiplier.
func ParseValue(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, models.Errorf(models.ErrValidation, "factor_value %q is not a decimal", raw)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, models.Errorf(models.ErrValidation, "factor_value must be positive, got %s", d.String())
	}
	return d, nil
}

func validateFactorInput(in *models.FactorInput) error {
	in.FactorName = strings.TrimSpace(in.FactorName)
	in.FactorType = strings.ToLower(strings.TrimSpace(in.FactorType))
	in.Description = strings.TrimSpace(in.Description)
	if in.FactorName == "" {
		return models.Errorf(models.ErrValidation, "factor_name is required")
	}
	if in.FactorType == "" {
		return models.Errorf(models.ErrValidation, "factor_type is required")
	}
	return nil
}
