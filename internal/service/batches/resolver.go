package batches

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/service/categories"
)

// ResolveTargets returns the animals the batch currently targets. Category
// members are recomputed from the live herd on every call (unless cached);
// specific members come from the persisted links. An animal present in both
// sources is reported once, with category provenance.
func (s *Service) ResolveTargets(ctx context.Context, batch models.ConsumptionBatch) ([]models.TargetedAnimal, error) {
	var gen cache.Generation
	if s.cache != nil {
		if targets, ok := s.cache.Targets(batch.FarmID, batch.ID); ok {
			return targets, nil
		}
		gen = s.cache.Generation(batch.FarmID, batch.ID)
	}

	start := time.Now()
	targets, err := s.resolve(ctx, batch)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveResolve(string(batch.TargetMode), time.Since(start))

	if s.cache != nil {
		s.cache.SetTargets(batch.FarmID, batch.ID, gen, targets)
	}
	return targets, nil
}

func (s *Service) resolve(ctx context.Context, batch models.ConsumptionBatch) ([]models.TargetedAnimal, error) {
	if !batch.TargetMode.Valid() {
		return nil, models.Errorf(models.ErrInvalidTargetMode, "unknown target mode %q", batch.TargetMode)
	}

	animals, err := s.animals.ActiveAnimals(ctx, batch.FarmID)
	if err != nil {
		return nil, err
	}

	targets := make([]models.TargetedAnimal, 0)
	seen := make(map[string]struct{})

	if batch.TargetMode.UsesCategories() {
		rules, err := s.batchCategories(ctx, batch)
		if err != nil {
			return nil, err
		}
		today := s.animals.Today()
		for i := range animals {
			if !matchesAny(rules, animals[i], today) {
				continue
			}
			a := animals[i]
			seen[a.ID] = struct{}{}
			targets = append(targets, models.TargetedAnimal{
				AnimalID: a.ID,
				Source:   models.SourceCategory,
				Animal:   &a,
			})
		}
	}

	if batch.TargetMode.UsesLinks() {
		links, err := s.links.ListLinks(ctx, batch.FarmID, batch.ID)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]models.AnimalSnapshot, len(animals))
		for _, a := range animals {
			byID[a.ID] = a
		}
		for _, l := range links {
			if _, dup := seen[l.AnimalID]; dup {
				continue
			}
			seen[l.AnimalID] = struct{}{}
			t := models.TargetedAnimal{AnimalID: l.AnimalID, Source: models.SourceSpecific}
			if a, ok := byID[l.AnimalID]; ok {
				t.Animal = &a
			}
			targets = append(targets, t)
		}
	}

	return targets, nil
}

// batchCategories loads the batch's categories. Ids that no longer resolve
// within the farm contribute no members.
func (s *Service) batchCategories(ctx context.Context, batch models.ConsumptionBatch) ([]models.AnimalCategory, error) {
	if len(batch.AnimalCategoryIDs) == 0 {
		return nil, nil
	}
	all, err := s.categories.ListCategories(ctx, batch.FarmID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.AnimalCategory, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	out := make([]models.AnimalCategory, 0, len(batch.AnimalCategoryIDs))
	for _, id := range batch.AnimalCategoryIDs {
		c, ok := byID[id]
		if !ok {
			s.logger.Debug("batch references missing category",
				zap.String("batch_id", batch.ID), zap.String("category_id", id))
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesAny(rules []models.AnimalCategory, a models.AnimalSnapshot, today time.Time) bool {
	for _, c := range rules {
		if categories.Matches(c, a, today) {
			return true
		}
	}
	return false
}
