package conversions

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
)

type defaultUnit struct {
	name   string
	symbol string
	toKg   float64
}

var defaultUnits = []defaultUnit{
	{name: "Kilogram", symbol: "kg", toKg: 1},
	{name: "Gram", symbol: "g", toKg: 0.001},
	{name: "Pound", symbol: "lb", toKg: 0.45359237},
	{name: "Tonne", symbol: "t", toKg: 1000},
}

// Service owns the farm-scoped weight conversion table.
type Service struct {
	repo   repository.ConversionStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a conversion service.
func NewService(repo repository.ConversionStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SymbolKey normalizes a unit symbol for case-insensitive comparison.
func SymbolKey(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// GetConversions lists the farm's conversions, seeding the defaults on first use.
func (s *Service) GetConversions(ctx context.Context, farmID string) ([]models.WeightConversion, error) {
	list, err := s.repo.ListConversions(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}

	if err := s.seedDefaults(ctx, farmID); err != nil {
		return nil, err
	}
	return s.repo.ListConversions(ctx, farmID)
}

func (s *Service) seedDefaults(ctx context.Context, farmID string) error {
	now := s.now().UTC()
	rows := make([]models.WeightConversion, 0, len(defaultUnits))
	for _, u := range defaultUnits {
		rows = append(rows, models.WeightConversion{
			ID:             uuid.NewString(),
			FarmID:         farmID,
			UnitName:       u.name,
			UnitSymbol:     u.symbol,
			SymbolKey:      SymbolKey(u.symbol),
			ConversionToKg: u.toKg,
			IsDefault:      true,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	err := s.repo.InsertConversions(ctx, rows...)
	// A concurrent request seeded the farm first.
	if errors.Is(err, models.ErrDuplicateUnit) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("default weight conversions seeded", zap.String("farm_id", farmID))
	return nil
}

// CreateConversion adds a user-defined unit.
func (s *Service) CreateConversion(ctx context.Context, farmID string, in models.ConversionInput) (*models.WeightConversion, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	// Make sure defaults exist so a user unit cannot squat a default symbol.
	if _, err := s.GetConversions(ctx, farmID); err != nil {
		return nil, err
	}

	key := SymbolKey(in.UnitSymbol)
	existing, err := s.repo.FindConversionBySymbol(ctx, farmID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.Errorf(models.ErrDuplicateUnit, "unit symbol %q already exists as %q", in.UnitSymbol, existing.UnitSymbol)
	}

	now := s.now().UTC()
	conv := models.WeightConversion{
		ID:             uuid.NewString(),
		FarmID:         farmID,
		UnitName:       strings.TrimSpace(in.UnitName),
		UnitSymbol:     strings.TrimSpace(in.UnitSymbol),
		SymbolKey:      key,
		ConversionToKg: in.ConversionToKg,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertConversions(ctx, conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversion edits a unit. Defaults may be edited but keep their flag.
func (s *Service) UpdateConversion(ctx context.Context, farmID, id string, in models.ConversionInput) (*models.WeightConversion, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	conv, err := s.repo.GetConversion(ctx, farmID, id)
	if err != nil {
		return nil, err
	}

	key := SymbolKey(in.UnitSymbol)
	if key != conv.SymbolKey {
		existing, err := s.repo.FindConversionBySymbol(ctx, farmID, key)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != conv.ID {
			return nil, models.Errorf(models.ErrDuplicateUnit, "unit symbol %q already exists as %q", in.UnitSymbol, existing.UnitSymbol)
		}
	}

	conv.UnitName = strings.TrimSpace(in.UnitName)
	conv.UnitSymbol = strings.TrimSpace(in.UnitSymbol)
	conv.SymbolKey = key
	conv.ConversionToKg = in.ConversionToKg
	conv.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateConversion(ctx, *conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversion removes a user-defined unit; defaults fail with ErrProtectedDefault.
func (s *Service) DeleteConversion(ctx context.Context, farmID, id string) error {
	conv, err := s.repo.GetConversion(ctx, farmID, id)
	if err != nil {
		return err
	}
	if conv.IsDefault {
		return models.Errorf(models.ErrProtectedDefault, "default unit %q cannot be deleted", conv.UnitSymbol)
	}
	return s.repo.DeleteConversion(ctx, farmID, id)
}

// Convert expresses quantity (in unitSymbol) in kilograms.
func (s *Service) Convert(ctx context.Context, farmID string, quantity float64, unitSymbol string) (float64, error) {
	conv, err := s.lookup(ctx, farmID, quantity, unitSymbol)
	if err != nil {
		return 0, err
	}
	return quantity * conv.ConversionToKg, nil
}

// ConvertFromKg expresses a kilogram quantity in unitSymbol.
func (s *Service) ConvertFromKg(ctx context.Context, farmID string, quantityKg float64, unitSymbol string) (float64, error) {
	conv, err := s.lookup(ctx, farmID, quantityKg, unitSymbol)
	if err != nil {
		return 0, err
	}
	return quantityKg / conv.ConversionToKg, nil
}

func (s *Service) lookup(ctx context.Context, farmID string, quantity float64, unitSymbol string) (*models.WeightConversion, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return nil, models.Errorf(models.ErrValidation, "quantity must be a non-negative number")
	}
	key := SymbolKey(unitSymbol)
	if key == "" {
		return nil, models.Errorf(models.ErrValidation, "unit symbol is required")
	}

	conv, err := s.repo.FindConversionBySymbol(ctx, farmID, key)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		// The farm may not have been seeded yet.
		if _, err := s.GetConversions(ctx, farmID); err != nil {
			return nil, err
		}
		if conv, err = s.repo.FindConversionBySymbol(ctx, farmID, key); err != nil {
			return nil, err
		}
	}
	if conv == nil {
		return nil, models.Errorf(models.ErrUnknownUnit, "unknown unit %q", unitSymbol)
	}
	return conv, nil
}

func validateInput(in models.ConversionInput) error {
	if strings.TrimSpace(in.UnitName) == "" {
		return models.Errorf(models.ErrValidation, "unit_name is required")
	}
	if strings.TrimSpace(in.UnitSymbol) == "" {
		return models.Errorf(models.ErrValidation, "unit_symbol is required")
	}
	if math.IsNaN(in.ConversionToKg) || math.IsInf(in.ConversionToKg, 0) || in.ConversionToKg <= 0 {
		return models.Errorf(models.ErrInvalidConversionValue, "conversion_to_kg must be greater than zero, got %v", in.ConversionToKg)
	}
	return nil
}
