// Package memory provides an in-process implementation of the repository
// contracts, used by tests and local runs without MongoDB.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
)

var _ repository.Store = (*Store)(nil)

var errFailInjected = errors.New("injected upsert failure")

type linkKey struct{ farm, batch, animal string }

type factorValueKey struct{ farm, batch, animal, factor string }

// Store keeps all entities in maps guarded by a single lock.
type Store struct {
	mu           sync.RWMutex
	categories   map[string]models.AnimalCategory
	batches      map[string]models.ConsumptionBatch
	links        map[linkKey]models.BatchAnimalLink
	factors      map[string]models.ConsumptionBatchFactor
	factorValues map[factorValueKey]models.AnimalBatchFactor
	conversions  map[string]models.WeightConversion
	snapshots    []models.InsightSnapshot

	// FailUpsertAfter makes UpsertAnimalBatchFactors fail once it has staged
	// that many values. Zero disables the failure.
	FailUpsertAfter int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		categories:   make(map[string]models.AnimalCategory),
		batches:      make(map[string]models.ConsumptionBatch),
		links:        make(map[linkKey]models.BatchAnimalLink),
		factors:      make(map[string]models.ConsumptionBatchFactor),
		factorValues: make(map[factorValueKey]models.AnimalBatchFactor),
		conversions:  make(map[string]models.WeightConversion),
	}
}

func (s *Store) ListCategories(_ context.Context, farmID string) ([]models.AnimalCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnimalCategory, 0)
	for _, c := range s.categories {
		if c.FarmID == farmID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, farmID, id string) (*models.AnimalCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok || c.FarmID != farmID {
		return nil, models.ErrCategoryNotFound
	}
	return &c, nil
}

func (s *Store) FindCategoryByName(_ context.Context, farmID, nameKey string) (*models.AnimalCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.FarmID == farmID && c.NameKey == nameKey {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertCategories(_ context.Context, categories ...models.AnimalCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range categories {
		for _, existing := range s.categories {
			if existing.FarmID == c.FarmID && existing.NameKey == c.NameKey {
				return models.Errorf(models.ErrDuplicateCategory, "category %q already exists", c.Name)
			}
		}
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, category models.AnimalCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok || existing.FarmID != category.FarmID {
		return models.ErrCategoryNotFound
	}
	s.categories[category.ID] = category
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, farmID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[id]
	if !ok || existing.FarmID != farmID {
		return models.ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListBatches(_ context.Context, farmID string) ([]models.ConsumptionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConsumptionBatch, 0)
	for _, b := range s.batches {
		if b.FarmID == farmID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchName < out[j].BatchName })
	return out, nil
}

func (s *Store) ListActiveFarmIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range s.batches {
		if !b.IsActive {
			continue
		}
		if _, ok := seen[b.FarmID]; ok {
			continue
		}
		seen[b.FarmID] = struct{}{}
		out = append(out, b.FarmID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetBatch(_ context.Context, farmID, id string) (*models.ConsumptionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok || b.FarmID != farmID {
		return nil, models.ErrBatchNotFound
	}
	b.AnimalCategoryIDs = append([]string(nil), b.AnimalCategoryIDs...)
	return &b, nil
}

func (s *Store) InsertBatch(_ context.Context, batch models.ConsumptionBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[batch.ID] = batch
	return nil
}

func (s *Store) UpdateBatch(_ context.Context, batch models.ConsumptionBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.batches[batch.ID]
	if !ok || existing.FarmID != batch.FarmID {
		return models.ErrBatchNotFound
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, farmID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.batches[id]
	if !ok || existing.FarmID != farmID {
		return models.ErrBatchNotFound
	}
	delete(s.batches, id)
	for k := range s.links {
		if k.farm == farmID && k.batch == id {
			delete(s.links, k)
		}
	}
	for k := range s.factorValues {
		if k.farm == farmID && k.batch == id {
			delete(s.factorValues, k)
		}
	}
	return nil
}

func (s *Store) AddLink(_ context.Context, link models.BatchAnimalLink) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{link.FarmID, link.BatchID, link.AnimalID}
	if _, ok := s.links[key]; ok {
		return false, nil
	}
	s.links[key] = link
	return true, nil
}

func (s *Store) RemoveLink(_ context.Context, farmID, batchID, animalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{farmID, batchID, animalID}
	if _, ok := s.links[key]; !ok {
		return models.ErrAnimalNotLinked
	}
	delete(s.links, key)
	return nil
}

func (s *Store) ListLinks(_ context.Context, farmID, batchID string) ([]models.BatchAnimalLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BatchAnimalLink, 0)
	for k, l := range s.links {
		if k.farm == farmID && k.batch == batchID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].AnimalID < out[j].AnimalID
	})
	return out, nil
}

func (s *Store) ListFactors(_ context.Context, farmID string) ([]models.ConsumptionBatchFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConsumptionBatchFactor, 0)
	for _, f := range s.factors {
		if f.FarmID == farmID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactorName < out[j].FactorName })
	return out, nil
}

func (s *Store) GetFactor(_ context.Context, farmID, id string) (*models.ConsumptionBatchFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.factors[id]
	if !ok || f.FarmID != farmID {
		return nil, models.ErrFactorNotFound
	}
	return &f, nil
}

func (s *Store) InsertFactor(_ context.Context, factor models.ConsumptionBatchFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.factors[factor.ID] = factor
	return nil
}

func (s *Store) UpdateFactor(_ context.Context, factor models.ConsumptionBatchFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.factors[factor.ID]
	if !ok || existing.FarmID != factor.FarmID {
		return models.ErrFactorNotFound
	}
	s.factors[factor.ID] = factor
	return nil
}

func (s *Store) ListAnimalBatchFactors(_ context.Context, farmID, batchID, animalID string) ([]models.AnimalBatchFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnimalBatchFactor, 0)
	for k, v := range s.factorValues {
		if k.farm != farmID || k.batch != batchID {
			continue
		}
		if animalID != "" && k.animal != animalID {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AnimalID != out[j].AnimalID {
			return out[i].AnimalID < out[j].AnimalID
		}
		return out[i].FactorID < out[j].FactorID
	})
	return out, nil
}

func (s *Store) UpsertAnimalBatchFactors(_ context.Context, farmID, batchID string, values []models.AnimalBatchFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[factorValueKey]models.AnimalBatchFactor, len(values))
	for i, v := range values {
		if s.FailUpsertAfter > 0 && i >= s.FailUpsertAfter {
			return models.Dependency("factor store", errFailInjected)
		}
		staged[factorValueKey{farmID, batchID, v.AnimalID, v.FactorID}] = v
	}
	for k, v := range staged {
		s.factorValues[k] = v
	}
	return nil
}

func (s *Store) ListConversions(_ context.Context, farmID string) ([]models.WeightConversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.WeightConversion, 0)
	for _, c := range s.conversions {
		if c.FarmID == farmID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolKey < out[j].SymbolKey })
	return out, nil
}

func (s *Store) GetConversion(_ context.Context, farmID, id string) (*models.WeightConversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversions[id]
	if !ok || c.FarmID != farmID {
		return nil, models.ErrConversionNotFound
	}
	return &c, nil
}

func (s *Store) FindConversionBySymbol(_ context.Context, farmID, symbolKey string) (*models.WeightConversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conversions {
		if c.FarmID == farmID && c.SymbolKey == symbolKey {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertConversions(_ context.Context, conversions ...models.WeightConversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range conversions {
		if s.symbolTaken(c.FarmID, c.SymbolKey, c.ID) {
			return models.Errorf(models.ErrDuplicateUnit, "unit symbol %q already exists", c.UnitSymbol)
		}
	}
	for _, c := range conversions {
		s.conversions[c.ID] = c
	}
	return nil
}

func (s *Store) UpdateConversion(_ context.Context, conversion models.WeightConversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conversions[conversion.ID]
	if !ok || existing.FarmID != conversion.FarmID {
		return models.ErrConversionNotFound
	}
	if s.symbolTaken(conversion.FarmID, conversion.SymbolKey, conversion.ID) {
		return models.Errorf(models.ErrDuplicateUnit, "unit symbol %q already exists", conversion.UnitSymbol)
	}
	s.conversions[conversion.ID] = conversion
	return nil
}

func (s *Store) DeleteConversion(_ context.Context, farmID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conversions[id]
	if !ok || existing.FarmID != farmID {
		return models.ErrConversionNotFound
	}
	delete(s.conversions, id)
	return nil
}

func (s *Store) SaveInsightSnapshot(_ context.Context, snapshot models.InsightSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

// Snapshots returns a copy of the recorded insight snapshots.
func (s *Store) Snapshots() []models.InsightSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.InsightSnapshot(nil), s.snapshots...)
}

func (s *Store) symbolTaken(farmID, symbolKey, exceptID string) bool {
	for _, c := range s.conversions {
		if c.FarmID == farmID && c.ID != exceptID && strings.EqualFold(c.SymbolKey, symbolKey) {
			return true
		}
	}
	return false
}
