package models

import "time"

// WeightConversion maps a unit symbol to its kilogram multiplier for a farm.
type WeightConversion struct {
	ID             string    `json:"id" bson:"_id"`
	FarmID         string    `json:"farm_id" bson:"farm_id"`
	UnitName       string    `json:"unit_name" bson:"unit_name"`
	UnitSymbol     string    `json:"unit_symbol" bson:"unit_symbol"`
	SymbolKey      string    `json:"-" bson:"symbol_key"`
	ConversionToKg float64   `json:"conversion_to_kg" bson:"conversion_to_kg"`
	IsDefault      bool      `json:"is_default" bson:"is_default"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// ConversionInput carries the writable fields of a conversion.
type ConversionInput struct {
	UnitName       string  `json:"unit_name" validate:"required,max=50"`
	UnitSymbol     string  `json:"unit_symbol" validate:"required,max=20"`
	ConversionToKg float64 `json:"conversion_to_kg"`
}
