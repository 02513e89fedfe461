package mongodb

import (
	"context"
	"fmt"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

// SaveInsightSnapshot saves a daily insight snapshot to the database.
func (r *MongoDBRepository) SaveInsightSnapshot(ctx context.Context, snapshot models.InsightSnapshot) error {
	collection := r.coll(snapshotsColl)
	_, err := collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert insight snapshot: %w", err)
	}
	return nil
}
