package models

import "time"

// ConsumptionBatchFactor defines a named multiplier kind for a farm.
type ConsumptionBatchFactor struct {
	ID          string    `json:"id" bson:"_id"`
	FarmID      string    `json:"farm_id" bson:"farm_id"`
	FactorName  string    `json:"factor_name" bson:"factor_name"`
	FactorType  string    `json:"factor_type" bson:"factor_type"`
	Description string    `json:"description" bson:"description"`
	IsActive    bool      `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// FactorInput carries the writable fields of a factor definition.
type FactorInput struct {
	FactorName  string `json:"factor_name" validate:"required,max=100"`
	FactorType  string `json:"factor_type" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

// AnimalBatchFactor is the per-animal override of one factor within a batch.
type AnimalBatchFactor struct {
	FarmID      string    `json:"farm_id" bson:"farm_id"`
	BatchID     string    `json:"batch_id" bson:"batch_id"`
	AnimalID    string    `json:"animal_id" bson:"animal_id"`
	FactorID    string    `json:"factor_id" bson:"factor_id"`
	FactorValue string    `json:"factor_value" bson:"factor_value"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// FactorUpdate is one entry of an atomic factor update request.
type FactorUpdate struct {
	AnimalID    string `json:"animal_id"`
	FactorID    string `json:"factor_id"`
	FactorValue string `json:"factor_value"`
}
