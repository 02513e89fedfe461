package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/repository"
)

const (
	categoriesColl   = "animal_categories"
	batchesColl      = "consumption_batches"
	linksColl        = "batch_animal_links"
	factorsColl      = "consumption_batch_factors"
	factorValuesColl = "animal_batch_factors"
	conversionsColl  = "weight_conversions"
	snapshotsColl    = "insight_snapshots"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements the repository contracts on MongoDB. Factor
// updates and batch deletion run in multi-document transactions, so the
// deployment must be a replica set.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and ensures the indexes the engine relies on.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		categoriesColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "name_key", Value: 1}}, Options: unique},
		},
		batchesColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "batch_name", Value: 1}}},
		},
		linksColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "batch_id", Value: 1}, {Key: "animal_id", Value: 1}}, Options: unique},
		},
		factorsColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "factor_name", Value: 1}}},
		},
		factorValuesColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "batch_id", Value: 1}, {Key: "animal_id", Value: 1}, {Key: "factor_id", Value: 1}}, Options: unique},
		},
		conversionsColl: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "symbol_key", Value: 1}}, Options: unique},
		},
		snapshotsColl: {
			{Keys: bson.D{{Key: "insights.farm_id", Value: 1}, {Key: "date", Value: -1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}

func (r *MongoDBRepository) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// scoped builds the filter every farm-owned lookup goes through.
func scoped(farmID, id string) bson.M {
	return bson.M{"_id": id, "farm_id": farmID}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, notFound error) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll.Name(), err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func replaceScoped(ctx context.Context, coll *mongo.Collection, farmID, id string, doc any, notFound error) error {
	res, err := coll.ReplaceOne(ctx, scoped(farmID, id), doc)
	if err != nil {
		return fmt.Errorf("replace in %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}

func deleteScoped(ctx context.Context, coll *mongo.Collection, farmID, id string, notFound error) error {
	res, err := coll.DeleteOne(ctx, scoped(farmID, id))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}
