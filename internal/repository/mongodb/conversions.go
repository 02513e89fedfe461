package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func (r *MongoDBRepository) ListConversions(ctx context.Context, farmID string) ([]models.WeightConversion, error) {
	return findAll[models.WeightConversion](ctx, r.coll(conversionsColl),
		bson.M{"farm_id": farmID},
		bson.D{{Key: "symbol_key", Value: 1}})
}

func (r *MongoDBRepository) GetConversion(ctx context.Context, farmID, id string) (*models.WeightConversion, error) {
	return findOne[models.WeightConversion](ctx, r.coll(conversionsColl), scoped(farmID, id), models.ErrConversionNotFound)
}

func (r *MongoDBRepository) FindConversionBySymbol(ctx context.Context, farmID, symbolKey string) (*models.WeightConversion, error) {
	c, err := findOne[models.WeightConversion](ctx, r.coll(conversionsColl),
		bson.M{"farm_id": farmID, "symbol_key": symbolKey}, models.ErrUnknownUnit)
	if errors.Is(err, models.ErrUnknownUnit) {
		return nil, nil
	}
	return c, err
}

func (r *MongoDBRepository) InsertConversions(ctx context.Context, conversions ...models.WeightConversion) error {
	if len(conversions) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(conversions))
	for _, c := range conversions {
		docs = append(docs, c)
	}

	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := r.coll(conversionsColl).InsertMany(sc, docs)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.Errorf(models.ErrDuplicateUnit, "unit symbol already exists")
	}
	if err != nil {
		return fmt.Errorf("insert conversions: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) UpdateConversion(ctx context.Context, conversion models.WeightConversion) error {
	err := replaceScoped(ctx, r.coll(conversionsColl), conversion.FarmID, conversion.ID, conversion, models.ErrConversionNotFound)
	if mongo.IsDuplicateKeyError(err) {
		return models.Errorf(models.ErrDuplicateUnit, "unit symbol %q already exists", conversion.UnitSymbol)
	}
	return err
}

func (r *MongoDBRepository) DeleteConversion(ctx context.Context, farmID, id string) error {
	return deleteScoped(ctx, r.coll(conversionsColl), farmID, id, models.ErrConversionNotFound)
}
