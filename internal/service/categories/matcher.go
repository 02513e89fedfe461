package categories

import (
	"time"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/service/snapshot"
)

// Matches reports whether the animal satisfies every criterion of the
// category on the given day. Criteria are checked in order (gender, age,
// production status, characteristics) and evaluation stops at the first
// failure. The result depends only on its arguments.
func Matches(c models.AnimalCategory, a models.AnimalSnapshot, today time.Time) bool {
	if c.Gender != nil && a.Gender != *c.Gender {
		return false
	}

	if c.MinAgeDays != nil || c.MaxAgeDays != nil {
		if a.BirthDate == nil {
			return false
		}
		age := snapshot.AgeDays(*a.BirthDate, today)
		if c.MinAgeDays != nil && age < *c.MinAgeDays {
			return false
		}
		if c.MaxAgeDays != nil && age > *c.MaxAgeDays {
			return false
		}
	}

	if c.ProductionStatus != nil && a.ProductionStatus != *c.ProductionStatus {
		return false
	}

	// A category can only require a flag; false and nil both mean "don't care".
	ch := c.Characteristics
	if required(ch.Lactating) && !a.Lactating {
		return false
	}
	if required(ch.Pregnant) && !a.Pregnant {
		return false
	}
	if required(ch.BreedingMale) && !a.BreedingMale {
		return false
	}
	if required(ch.GrowthPhase) && !a.GrowthPhase {
		return false
	}

	return true
}

// Filter returns the animals matching the category, preserving order.
func Filter(c models.AnimalCategory, animals []models.AnimalSnapshot, today time.Time) []models.AnimalSnapshot {
	out := make([]models.AnimalSnapshot, 0)
	for _, a := range animals {
		if Matches(c, a, today) {
			out = append(out, a)
		}
	}
	return out
}

func required(flag *bool) bool {
	return flag != nil && *flag
}
