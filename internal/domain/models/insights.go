package models

import "time"

// BatchInsights is the aggregated consumption and cost summary of a batch.
// DailyCost is nil when cost data is unknown, which is distinct from zero.
type BatchInsights struct {
	FarmID             string    `json:"farm_id" bson:"farm_id"`
	BatchID            string    `json:"batch_id" bson:"batch_id"`
	TargetedCount      int       `json:"targeted_count" bson:"targeted_count"`
	DailyConsumptionKg float64   `json:"daily_consumption_kg" bson:"daily_consumption_kg"`
	CostPerKg          *float64  `json:"cost_per_kg" bson:"cost_per_kg,omitempty"`
	DailyCost          *float64  `json:"daily_cost" bson:"daily_cost,omitempty"`
	ComputedAt         time.Time `json:"computed_at" bson:"computed_at"`
}

// InsightSnapshot is the daily persisted copy of a batch's insights.
type InsightSnapshot struct {
	Date      time.Time     `json:"date" bson:"date"`
	BatchName string        `json:"batch_name" bson:"batch_name"`
	Insights  BatchInsights `json:"insights" bson:"insights"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}
