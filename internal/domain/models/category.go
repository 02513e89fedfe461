package models

import "time"

// Gender values recognized by the registry snapshot and category rules.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Characteristics holds the optional derived-attribute constraints of a category.
// A nil or false entry leaves the attribute unconstrained.
type Characteristics struct {
	Lactating    *bool `json:"lactating,omitempty" bson:"lactating,omitempty"`
	Pregnant     *bool `json:"pregnant,omitempty" bson:"pregnant,omitempty"`
	BreedingMale *bool `json:"breeding_male,omitempty" bson:"breeding_male,omitempty"`
	GrowthPhase  *bool `json:"growth_phase,omitempty" bson:"growth_phase,omitempty"`
}

// AnimalCategory is a named, non-exclusive classification rule.
type AnimalCategory struct {
	ID               string          `json:"id" bson:"_id"`
	FarmID           string          `json:"farm_id" bson:"farm_id"`
	Name             string          `json:"name" bson:"name"`
	NameKey          string          `json:"-" bson:"name_key"`
	Description      string          `json:"description" bson:"description"`
	MinAgeDays       *int            `json:"min_age_days,omitempty" bson:"min_age_days,omitempty"`
	MaxAgeDays       *int            `json:"max_age_days,omitempty" bson:"max_age_days,omitempty"`
	Gender           *string         `json:"gender,omitempty" bson:"gender,omitempty"`
	ProductionStatus *string         `json:"production_status,omitempty" bson:"production_status,omitempty"`
	Characteristics  Characteristics `json:"characteristics" bson:"characteristics"`
	IsDefault        bool            `json:"is_default" bson:"is_default"`
	SortOrder        int             `json:"sort_order" bson:"sort_order"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name             string          `json:"name" validate:"required,max=100"`
	Description      string          `json:"description" validate:"max=500"`
	MinAgeDays       *int            `json:"min_age_days" validate:"omitempty,min=0"`
	MaxAgeDays       *int            `json:"max_age_days" validate:"omitempty,min=0"`
	Gender           *string         `json:"gender" validate:"omitempty,oneof=male female"`
	ProductionStatus *string         `json:"production_status" validate:"omitempty,max=50"`
	Characteristics  Characteristics `json:"characteristics"`
	SortOrder        int             `json:"sort_order"`
}
