// Package snapshot adapts Animal Registry records into the normalized
// snapshots the category matcher works on.
package snapshot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/metrics"
	"github.com/mamadbah2/feedengine/pkg/clients/registry"
)

// Production statuses the derived flags are computed from.
const (
	StatusLactating = "lactating"
	StatusPregnant  = "pregnant"
	StatusBreeding  = "breeding"
	StatusGrowing   = "growing"
)

// GrowthPhaseMaxDays is the age below which an animal counts as growing.
const GrowthPhaseMaxDays = 365

const dateLayout = "2006-01-02"

// Reader produces normalized animal snapshots for one farm.
type Reader struct {
	registry registry.Client
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewReader wires a snapshot reader over the registry client.
func NewReader(client registry.Client, m *metrics.Metrics, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{registry: client, metrics: m, logger: logger, now: time.Now}
}

// WithClock overrides the reader's clock.
func (r *Reader) WithClock(now func() time.Time) *Reader {
	r.now = now
	return r
}

// Today returns the reader's current date at UTC midnight.
func (r *Reader) Today() time.Time {
	return DateOf(r.now())
}

// ActiveAnimals returns the farm's active animals ordered by tag.
func (r *Reader) ActiveAnimals(ctx context.Context, farmID string) ([]models.AnimalSnapshot, error) {
	records, err := r.registry.ListAnimals(ctx, farmID)
	if err != nil {
		r.metrics.DependencyFailed("registry")
		return nil, models.Dependency("animal registry", err)
	}

	today := r.Today()
	out := make([]models.AnimalSnapshot, 0, len(records))
	for _, rec := range records {
		if !rec.IsActive {
			continue
		}
		out = append(out, r.normalize(rec, today))
	}
	SortByTag(out)
	return out, nil
}

// Animal returns one snapshot; ErrAnimalNotFound when the registry does not know it.
func (r *Reader) Animal(ctx context.Context, farmID, animalID string) (*models.AnimalSnapshot, error) {
	rec, err := r.registry.GetAnimal(ctx, farmID, animalID)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, models.Errorf(models.ErrAnimalNotFound, "animal %s not found", animalID)
	}
	if err != nil {
		r.metrics.DependencyFailed("registry")
		return nil, models.Dependency("animal registry", err)
	}
	snap := r.normalize(*rec, r.Today())
	return &snap, nil
}

func (r *Reader) normalize(rec registry.AnimalRecord, today time.Time) models.AnimalSnapshot {
	snap, err := Normalize(rec, today)
	if err != nil {
		r.logger.Debug("registry birth date ignored", zap.String("animal_id", rec.ID), zap.String("value", rec.BirthDate), zap.Error(err))
	}
	return snap
}

// Normalize converts a registry record into a snapshot. An unparseable birth
// date is dropped and reported through err; the snapshot is still usable.
func Normalize(rec registry.AnimalRecord, today time.Time) (models.AnimalSnapshot, error) {
	snap := models.AnimalSnapshot{
		ID:               models.CanonicalAnimalID(rec.ID),
		Tag:              strings.TrimSpace(rec.Tag),
		Gender:           strings.ToLower(strings.TrimSpace(rec.Gender)),
		ProductionStatus: strings.ToLower(strings.TrimSpace(rec.ProductionStatus)),
		IsActive:         rec.IsActive,
	}
	if rec.WeightKg != nil {
		snap.WeightKg = *rec.WeightKg
	}

	var parseErr error
	if rec.BirthDate != "" {
		birth, err := parseDate(rec.BirthDate)
		if err != nil {
			parseErr = err
		} else {
			age := AgeDays(birth, today)
			snap.BirthDate = &birth
			snap.AgeDays = &age
		}
	}

	snap.Lactating = snap.ProductionStatus == StatusLactating
	snap.Pregnant = snap.ProductionStatus == StatusPregnant || isTrue(rec.Pregnant)
	snap.BreedingMale = snap.Gender == models.GenderMale &&
		(snap.ProductionStatus == StatusBreeding || isTrue(rec.BreedingMale))
	snap.GrowthPhase = snap.ProductionStatus == StatusGrowing ||
		(snap.AgeDays != nil && *snap.AgeDays >= 0 && *snap.AgeDays < GrowthPhaseMaxDays)

	return snap, parseErr
}

// AgeDays returns the number of whole days between the two calendar dates.
func AgeDays(birth, today time.Time) int {
	return int(DateOf(today).Sub(DateOf(birth)).Hours() / 24)
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SortByTag orders snapshots by tag, then id.
func SortByTag(animals []models.AnimalSnapshot) {
	sort.SliceStable(animals, func(i, j int) bool {
		if animals[i].Tag != animals[j].Tag {
			return animals[i].Tag < animals[j].Tag
		}
		return animals[i].ID < animals[j].ID
	})
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOf(t), nil
	}
	if len(value) > 10 {
		value = value[:10]
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
