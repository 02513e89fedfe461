package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func (r *MongoDBRepository) ListFactors(ctx context.Context, farmID string) ([]models.ConsumptionBatchFactor, error) {
	return findAll[models.ConsumptionBatchFactor](ctx, r.coll(factorsColl),
		bson.M{"farm_id": farmID},
		bson.D{{Key: "factor_name", Value: 1}})
}

func (r *MongoDBRepository) GetFactor(ctx context.Context, farmID, id string) (*models.ConsumptionBatchFactor, error) {
	return findOne[models.ConsumptionBatchFactor](ctx, r.coll(factorsColl), scoped(farmID, id), models.ErrFactorNotFound)
}

func (r *MongoDBRepository) InsertFactor(ctx context.Context, factor models.ConsumptionBatchFactor) error {
	if _, err := r.coll(factorsColl).InsertOne(ctx, factor); err != nil {
		return fmt.Errorf("insert factor: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) UpdateFactor(ctx context.Context, factor models.ConsumptionBatchFactor) error {
	return replaceScoped(ctx, r.coll(factorsColl), factor.FarmID, factor.ID, factor, models.ErrFactorNotFound)
}

func (r *MongoDBRepository) ListAnimalBatchFactors(ctx context.Context, farmID, batchID, animalID string) ([]models.AnimalBatchFactor, error) {
	filter := bson.M{"farm_id": farmID, "batch_id": batchID}
	if animalID != "" {
		filter["animal_id"] = animalID
	}
	return findAll[models.AnimalBatchFactor](ctx, r.coll(factorValuesColl), filter,
		bson.D{{Key: "animal_id", Value: 1}, {Key: "factor_id", Value: 1}})
}

func (r *MongoDBRepository) UpsertAnimalBatchFactors(ctx context.Context, farmID, batchID string, values []models.AnimalBatchFactor) error {
	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, v := range values {
			filter := bson.M{
				"farm_id":   farmID,
				"batch_id":  batchID,
				"animal_id": v.AnimalID,
				"factor_id": v.FactorID,
			}
			update := bson.M{"$set": bson.M{
				"factor_value": v.FactorValue,
				"updated_at":   v.UpdatedAt,
			}}
			if _, err := r.coll(factorValuesColl).UpdateOne(sc, filter, update, options.Update().SetUpsert(true)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert animal batch factors: %w", err)
	}
	r.logger.Debug("animal batch factors committed", zap.String("batch_id", batchID), zap.Int("count", len(values)))
	return nil
}
