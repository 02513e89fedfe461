package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
)

const (
	// DefaultMatchLimit applies when the caller passes a non-positive limit.
	DefaultMatchLimit = 100
	// MaxMatchLimit caps the page size of matching animals.
	MaxMatchLimit = 1000
)

// AnimalSource supplies the farm's active animal snapshots.
type AnimalSource interface {
	ActiveAnimals(ctx context.Context, farmID string) ([]models.AnimalSnapshot, error)
	Today() time.Time
}

// Service manages categories and evaluates them against the herd.
type Service struct {
	repo        repository.CategoryStore
	animals     AnimalSource
	invalidator cache.Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires a category service. A nil invalidator disables cache invalidation.
func NewService(repo repository.CategoryStore, animals AnimalSource, invalidator cache.Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if invalidator == nil {
		invalidator = cache.Nop{}
	}
	return &Service{
		repo:        repo,
		animals:     animals,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// GetCategories lists the farm's categories, seeding the defaults on first use.
func (s *Service) GetCategories(ctx context.Context, farmID string) ([]models.AnimalCategory, error) {
	list, err := s.repo.ListCategories(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}

	err = s.repo.InsertCategories(ctx, s.defaultCategories(farmID)...)
	if err != nil && !errors.Is(err, models.ErrDuplicateCategory) {
		return nil, err
	}
	if err == nil {
		s.logger.Info("default categories seeded", zap.String("farm_id", farmID))
	}
	return s.repo.ListCategories(ctx, farmID)
}

// GetCategory returns one category of the farm.
func (s *Service) GetCategory(ctx context.Context, farmID, id string) (*models.AnimalCategory, error) {
	return s.repo.GetCategory(ctx, farmID, id)
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, farmID string, in models.CategoryInput) (*models.AnimalCategory, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	// Seed first so a farm's first custom category does not suppress the defaults.
	if _, err := s.GetCategories(ctx, farmID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, farmID, in.Name, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := models.AnimalCategory{
		ID:        uuid.NewString(),
		FarmID:    farmID,
		CreatedAt: now,
	}
	apply(&c, in, now)

	if err := s.repo.InsertCategories(ctx, c); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateFarm(farmID)
	s.logger.Info("category created", zap.String("farm_id", farmID), zap.String("category_id", c.ID))
	return &c, nil
}

// UpdateCategory replaces the writable fields of a category. Defaults stay defaults.
func (s *Service) UpdateCategory(ctx context.Context, farmID, id string, in models.CategoryInput) (*models.AnimalCategory, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, farmID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, farmID, in.Name, id); err != nil {
		return nil, err
	}

	apply(c, in, s.now().UTC())
	if err := s.repo.UpdateCategory(ctx, *c); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateFarm(farmID)
	return c, nil
}

// DeleteCategory removes a category; default categories fail closed.
func (s *Service) DeleteCategory(ctx context.Context, farmID, id string) error {
	c, err := s.repo.GetCategory(ctx, farmID, id)
	if err != nil {
		return err
	}
	if c.IsDefault {
		return models.Errorf(models.ErrProtectedDefault, "default category %q cannot be deleted", c.Name)
	}
	if err := s.repo.DeleteCategory(ctx, farmID, id); err != nil {
		return err
	}
	s.invalidator.InvalidateFarm(farmID)
	return nil
}

// GetMatchingAnimals loads the category and returns a page of matches plus the total.
func (s *Service) GetMatchingAnimals(ctx context.Context, farmID, categoryID string, limit int) ([]models.AnimalSnapshot, int, error) {
	c, err := s.repo.GetCategory(ctx, farmID, categoryID)
	if err != nil {
		return nil, 0, err
	}
	return s.MatchingAnimals(ctx, farmID, *c, limit)
}

// MatchingAnimals applies the category to the farm's active animals. The total
// counts every match, independent of the page limit.
func (s *Service) MatchingAnimals(ctx context.Context, farmID string, c models.AnimalCategory, limit int) ([]models.AnimalSnapshot, int, error) {
	animals, err := s.animals.ActiveAnimals(ctx, farmID)
	if err != nil {
		return nil, 0, err
	}

	matches := Filter(c, animals, s.animals.Today())
	total := len(matches)

	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	if limit > MaxMatchLimit {
		limit = MaxMatchLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, farmID, name, selfID string) error {
	existing, err := s.repo.FindCategoryByName(ctx, farmID, nameKey(name))
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return models.Errorf(models.ErrDuplicateCategory, "category %q already exists", name)
	}
	return nil
}

func (s *Service) defaultCategories(farmID string) []models.AnimalCategory {
	now := s.now().UTC()
	female, male := models.GenderFemale, models.GenderMale
	yes := true

	seeds := []models.CategoryInput{
		{Name: "Calves", Description: "Young stock up to six months", MaxAgeDays: intPtr(180),
			Characteristics: models.Characteristics{GrowthPhase: &yes}, SortOrder: 1},
		{Name: "Heifers", Description: "Females between six months and two years", Gender: &female,
			MinAgeDays: intPtr(181), MaxAgeDays: intPtr(730), SortOrder: 2},
		{Name: "Lactating Cows", Description: "Females currently in milk", Gender: &female,
			Characteristics: models.Characteristics{Lactating: &yes}, SortOrder: 3},
		{Name: "Pregnant Cows", Description: "Confirmed pregnant females", Gender: &female,
			Characteristics: models.Characteristics{Pregnant: &yes}, SortOrder: 4},
		{Name: "Breeding Bulls", Description: "Males kept for breeding", Gender: &male,
			Characteristics: models.Characteristics{BreedingMale: &yes}, SortOrder: 5},
	}

	out := make([]models.AnimalCategory, 0, len(seeds))
	for _, in := range seeds {
		c := models.AnimalCategory{
			ID:        uuid.NewString(),
			FarmID:    farmID,
			IsDefault: true,
			CreatedAt: now,
		}
		apply(&c, in, now)
		out = append(out, c)
	}
	return out
}

func apply(c *models.AnimalCategory, in models.CategoryInput, now time.Time) {
	c.Name = in.Name
	c.NameKey = nameKey(in.Name)
	c.Description = in.Description
	c.MinAgeDays = in.MinAgeDays
	c.MaxAgeDays = in.MaxAgeDays
	c.Gender = in.Gender
	c.ProductionStatus = in.ProductionStatus
	c.Characteristics = in.Characteristics
	c.SortOrder = in.SortOrder
	c.UpdatedAt = now
}

func normalizeInput(in models.CategoryInput) (models.CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, models.Errorf(models.ErrValidation, "name is required")
	}

	if in.MinAgeDays != nil && *in.MinAgeDays < 0 {
		return in, models.Errorf(models.ErrValidation, "min_age_days must not be negative")
	}
	if in.MaxAgeDays != nil && *in.MaxAgeDays < 0 {
		return in, models.Errorf(models.ErrValidation, "max_age_days must not be negative")
	}
	if in.MinAgeDays != nil && in.MaxAgeDays != nil && *in.MinAgeDays > *in.MaxAgeDays {
		return in, models.Errorf(models.ErrValidation, "min_age_days (%d) must not exceed max_age_days (%d)", *in.MinAgeDays, *in.MaxAgeDays)
	}

	in.Gender = normalizeOptional(in.Gender)
	if in.Gender != nil && *in.Gender != models.GenderMale && *in.Gender != models.GenderFemale {
		return in, models.Errorf(models.ErrValidation, "gender must be %q or %q", models.GenderMale, models.GenderFemale)
	}
	in.ProductionStatus = normalizeOptional(in.ProductionStatus)

	return in, nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	if s == "" {
		return nil
	}
	return &s
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func intPtr(v int) *int { return &v }
