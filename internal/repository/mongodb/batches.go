package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func (r *MongoDBRepository) ListBatches(ctx context.Context, farmID string) ([]models.ConsumptionBatch, error) {
	return findAll[models.ConsumptionBatch](ctx, r.coll(batchesColl),
		bson.M{"farm_id": farmID},
		bson.D{{Key: "batch_name", Value: 1}})
}

func (r *MongoDBRepository) ListActiveFarmIDs(ctx context.Context) ([]string, error) {
	values, err := r.coll(batchesColl).Distinct(ctx, "farm_id", bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("distinct farm ids: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *MongoDBRepository) GetBatch(ctx context.Context, farmID, id string) (*models.ConsumptionBatch, error) {
	return findOne[models.ConsumptionBatch](ctx, r.coll(batchesColl), scoped(farmID, id), models.ErrBatchNotFound)
}

func (r *MongoDBRepository) InsertBatch(ctx context.Context, batch models.ConsumptionBatch) error {
	if _, err := r.coll(batchesColl).InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) UpdateBatch(ctx context.Context, batch models.ConsumptionBatch) error {
	return replaceScoped(ctx, r.coll(batchesColl), batch.FarmID, batch.ID, batch, models.ErrBatchNotFound)
}

func (r *MongoDBRepository) DeleteBatch(ctx context.Context, farmID, id string) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := deleteScoped(sc, r.coll(batchesColl), farmID, id, models.ErrBatchNotFound); err != nil {
			return err
		}
		members := bson.M{"farm_id": farmID, "batch_id": id}
		if _, err := r.coll(linksColl).DeleteMany(sc, members); err != nil {
			return fmt.Errorf("delete batch links: %w", err)
		}
		if _, err := r.coll(factorValuesColl).DeleteMany(sc, members); err != nil {
			return fmt.Errorf("delete batch factor values: %w", err)
		}
		return nil
	})
}
