package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func linkFilter(farmID, batchID, animalID string) bson.M {
	return bson.M{"farm_id": farmID, "batch_id": batchID, "animal_id": animalID}
}

func (r *MongoDBRepository) AddLink(ctx context.Context, link models.BatchAnimalLink) (bool, error) {
	res, err := r.coll(linksColl).UpdateOne(ctx,
		linkFilter(link.FarmID, link.BatchID, link.AnimalID),
		bson.M{"$setOnInsert": bson.M{"created_at": link.CreatedAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("upsert batch link: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoDBRepository) RemoveLink(ctx context.Context, farmID, batchID, animalID string) error {
	res, err := r.coll(linksColl).DeleteOne(ctx, linkFilter(farmID, batchID, animalID))
	if err != nil {
		return fmt.Errorf("delete batch link: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrAnimalNotLinked
	}
	return nil
}

func (r *MongoDBRepository) ListLinks(ctx context.Context, farmID, batchID string) ([]models.BatchAnimalLink, error) {
	return findAll[models.BatchAnimalLink](ctx, r.coll(linksColl),
		bson.M{"farm_id": farmID, "batch_id": batchID},
		bson.D{{Key: "created_at", Value: 1}, {Key: "animal_id", Value: 1}})
}
