package models

import "time"

// AnimalSnapshot is the normalized view of a registry animal used for matching.
type AnimalSnapshot struct {
	ID               string     `json:"id"`
	Tag              string     `json:"tag"`
	Gender           string     `json:"gender"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	AgeDays          *int       `json:"age_days,omitempty"`
	ProductionStatus string     `json:"production_status"`
	WeightKg         float64    `json:"weight_kg"`
	IsActive         bool       `json:"is_active"`

	Lactating    bool `json:"lactating"`
	Pregnant     bool `json:"pregnant"`
	BreedingMale bool `json:"breeding_male"`
	GrowthPhase  bool `json:"growth_phase"`
}
