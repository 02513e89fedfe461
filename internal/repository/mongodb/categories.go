package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func (r *MongoDBRepository) ListCategories(ctx context.Context, farmID string) ([]models.AnimalCategory, error) {
	return findAll[models.AnimalCategory](ctx, r.coll(categoriesColl),
		bson.M{"farm_id": farmID},
		bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}})
}

func (r *MongoDBRepository) GetCategory(ctx context.Context, farmID, id string) (*models.AnimalCategory, error) {
	return findOne[models.AnimalCategory](ctx, r.coll(categoriesColl), scoped(farmID, id), models.ErrCategoryNotFound)
}

func (r *MongoDBRepository) FindCategoryByName(ctx context.Context, farmID, nameKey string) (*models.AnimalCategory, error) {
	c, err := findOne[models.AnimalCategory](ctx, r.coll(categoriesColl),
		bson.M{"farm_id": farmID, "name_key": nameKey}, models.ErrCategoryNotFound)
	if errors.Is(err, models.ErrCategoryNotFound) {
		return nil, nil
	}
	return c, err
}

func (r *MongoDBRepository) InsertCategories(ctx context.Context, categories ...models.AnimalCategory) error {
	if len(categories) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(categories))
	for _, c := range categories {
		docs = append(docs, c)
	}

	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := r.coll(categoriesColl).InsertMany(sc, docs)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.Errorf(models.ErrDuplicateCategory, "category name already exists")
	}
	if err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) UpdateCategory(ctx context.Context, category models.AnimalCategory) error {
	err := replaceScoped(ctx, r.coll(categoriesColl), category.FarmID, category.ID, category, models.ErrCategoryNotFound)
	if mongo.IsDuplicateKeyError(err) {
		return models.Errorf(models.ErrDuplicateCategory, "category %q already exists", category.Name)
	}
	return err
}

func (r *MongoDBRepository) DeleteCategory(ctx context.Context, farmID, id string) error {
	return deleteScoped(ctx, r.coll(categoriesColl), farmID, id, models.ErrCategoryNotFound)
}
