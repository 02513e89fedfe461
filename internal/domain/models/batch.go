package models

import "time"

// TargetMode selects which membership sources are authoritative for a batch.
type TargetMode string

const (
	TargetCategory TargetMode = "category"
	TargetSpecific TargetMode = "specific"
	TargetMixed    TargetMode = "mixed"
)

// Valid reports whether m is one of the supported modes.
func (m TargetMode) Valid() bool {
	switch m {
	case TargetCategory, TargetSpecific, TargetMixed:
		return true
	}
	return false
}

// UsesCategories reports whether category rules contribute members.
func (m TargetMode) UsesCategories() bool {
	return m == TargetCategory || m == TargetMixed
}

// UsesLinks reports whether explicit animal links contribute members.
func (m TargetMode) UsesLinks() bool {
	return m == TargetSpecific || m == TargetMixed
}

const (
	MinFeedingFrequency = 1
	MaxFeedingFrequency = 6
)

// ConsumptionBatch is a feeding group with a targeting mode and a base ration.
type ConsumptionBatch struct {
	ID                     string     `json:"id" bson:"_id"`
	FarmID                 string     `json:"farm_id" bson:"farm_id"`
	BatchName              string     `json:"batch_name" bson:"batch_name"`
	Description            string     `json:"description" bson:"description"`
	TargetMode             TargetMode `json:"target_mode" bson:"target_mode"`
	AnimalCategoryIDs      []string   `json:"animal_category_ids" bson:"animal_category_ids"`
	DefaultQuantityKg      float64    `json:"default_quantity_kg" bson:"default_quantity_kg"`
	FeedingFrequencyPerDay int        `json:"feeding_frequency_per_day" bson:"feeding_frequency_per_day"`
	FeedingTimes           []string   `json:"feeding_times" bson:"feeding_times"`
	FeedTypeID             string     `json:"feed_type_id,omitempty" bson:"feed_type_id,omitempty"`
	IsActive               bool       `json:"is_active" bson:"is_active"`
	IsPreset               bool       `json:"is_preset" bson:"is_preset"`
	CreatedAt              time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" bson:"updated_at"`
}

// BatchInput carries the writable fields of a batch. When QuantityUnit is set,
// DefaultQuantity is expressed in that unit and converted to kilograms.
type BatchInput struct {
	BatchName              string     `json:"batch_name" validate:"required,max=100"`
	Description            string     `json:"description" validate:"max=500"`
	TargetMode             TargetMode `json:"target_mode" validate:"required,oneof=category specific mixed"`
	AnimalCategoryIDs      []string   `json:"animal_category_ids" validate:"dive,required"`
	DefaultQuantity        float64    `json:"default_quantity" validate:"min=0"`
	QuantityUnit           string     `json:"quantity_unit" validate:"max=20"`
	FeedingFrequencyPerDay int        `json:"feeding_frequency_per_day" validate:"min=1,max=6"`
	FeedingTimes           []string   `json:"feeding_times"`
	FeedTypeID             string     `json:"feed_type_id"`
	IsActive               *bool      `json:"is_active"`
}

// BatchAnimalLink records explicit (specific-mode) membership.
type BatchAnimalLink struct {
	FarmID    string    `json:"farm_id" bson:"farm_id"`
	BatchID   string    `json:"batch_id" bson:"batch_id"`
	AnimalID  string    `json:"animal_id" bson:"animal_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// MembershipSource tells where a targeted animal's membership comes from.
type MembershipSource string

const (
	SourceCategory MembershipSource = "category"
	SourceSpecific MembershipSource = "specific"
)

// TargetedAnimal is one resolved member of a batch.
type TargetedAnimal struct {
	AnimalID string           `json:"animal_id"`
	Source   MembershipSource `json:"source"`
	Animal   *AnimalSnapshot  `json:"animal,omitempty"`
}

// BatchTargets is the response of a target listing.
type BatchTargets struct {
	Targeted  []TargetedAnimal `json:"targeted"`
	Available []AnimalSnapshot `json:"available,omitempty"`
}
