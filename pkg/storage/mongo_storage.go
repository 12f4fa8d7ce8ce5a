package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Collection names
const (
	ResolutionsCollection = "resolutions"
	SightingsCollection   = "sightings"
)

// Ensure MongoStorage implements Storage
var _ Storage = (*MongoStorage)(nil)

// MongoStorage implements Storage on a MongoDB database.
type MongoStorage struct {
	db          *mongo.Database
	resolutions *mongo.Collection
	sightings   *mongo.Collection
}

// NewMongoStorage constructs a MongoStorage on the provided database.
// Snapshots live in the "resolutions" collection, keyed by normalized name;
// sightings live in the "sightings" collection, keyed by outpoint.
//
// Parameters:
//   - db: A connected MongoDB database instance
//
// Returns:
//   - *MongoStorage: A new MongoStorage instance
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		db:          db,
		resolutions: db.Collection(ResolutionsCollection),
		sightings:   db.Collection(SightingsCollection),
	}
}

// Connect opens a client for uri, verifies it with a ping and returns the
// named database. The caller disconnects the client.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the indexes both collections rely on.
// This method should be called once during application initialization.
//
// Returns:
//   - error: An error if index creation fails, nil otherwise
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	outpointIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "outpoint", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	queryIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "name", Value: 1},
			{Key: "key", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}
	if _, err := s.sightings.Indexes().CreateMany(ctx, []mongo.IndexModel{outpointIndex, queryIndex}); err != nil {
		return fmt.Errorf("failed to create indexes for sightings: %w", err)
	}

	ownerIndex := mongo.IndexModel{Keys: bson.D{{Key: "record.owner", Value: 1}}}
	if _, err := s.resolutions.Indexes().CreateOne(ctx, ownerIndex); err != nil {
		return fmt.Errorf("failed to create indexes for resolutions: %w", err)
	}
	return nil
}

// SaveResolution upserts the snapshot of a resolution.
//
// Parameters:
//   - ctx: Context for the database operation
//   - resolution: The resolution to store; its NormalizedName is the document id
//
// Returns:
//   - error: An error if the storage operation fails, nil otherwise
func (s *MongoStorage) SaveResolution(ctx context.Context, resolution *types.Resolution) error {
	filter := bson.M{"_id": resolution.NormalizedName}
	_, err := s.resolutions.ReplaceOne(ctx, filter, resolution, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store resolution of %q: %w", resolution.NormalizedName, err)
	}
	return nil
}

// LoadResolution returns the stored snapshot of a normalized name.
//
// Returns:
//   - *types.Resolution: The snapshot
//   - error: ErrNotFound when no snapshot exists, or the database error
func (s *MongoStorage) LoadResolution(ctx context.Context, normalizedName string) (*types.Resolution, error) {
	var resolution types.Resolution
	err := s.resolutions.FindOne(ctx, bson.M{"_id": normalizedName}).Decode(&resolution)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load resolution of %q: %w", normalizedName, err)
	}
	return &resolution, nil
}

// StoreSighting stores a record seen in an admitted output. Storing the
// same outpoint twice keeps the first sighting.
//
// Parameters:
//   - ctx: Context for the database operation
//   - outpoint: The admitted output carrying the record
//   - record: The parsed record
//
// Returns:
//   - error: An error if the storage operation fails, nil otherwise
func (s *MongoStorage) StoreSighting(ctx context.Context, outpoint *transaction.Outpoint, record *types.Record) error {
	sighting := newSighting(outpoint, record, time.Now())
	_, err := s.sightings.UpdateOne(ctx,
		bson.M{"outpoint": sighting.Outpoint},
		bson.M{"$setOnInsert": sighting},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store sighting %s: %w", sighting.Outpoint, err)
	}
	return nil
}

// DeleteSighting deletes the sighting of an outpoint.
func (s *MongoStorage) DeleteSighting(ctx context.Context, outpoint *transaction.Outpoint) error {
	if _, err := s.sightings.DeleteOne(ctx, bson.M{"outpoint": outpoint.String()}); err != nil {
		return fmt.Errorf("failed to delete sighting %s: %w", outpoint.String(), err)
	}
	return nil
}

// FindSightings finds sightings matching the query, with pagination and
// sorting on creation time.
//
// Parameters:
//   - ctx: Context for the database operation
//   - query: Filter and pagination options
//
// Returns:
//   - []types.Sighting: Matching sightings
//   - error: An error if the query operation fails, nil otherwise
func (s *MongoStorage) FindSightings(ctx context.Context, query *types.SightingQuery) ([]types.Sighting, error) {
	cursor, err := s.sightings.Find(ctx, sightingFilter(query), sightingFindOptions(query))
	if err != nil {
		return nil, fmt.Errorf("failed to find sightings: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var results []types.Sighting
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode sightings: %w", err)
	}
	return results, nil
}

func newSighting(outpoint *transaction.Outpoint, record *types.Record, now time.Time) types.Sighting {
	return types.Sighting{
		Outpoint:  outpoint.String(),
		Name:      record.Name,
		Key:       record.Key,
		Value:     record.Value,
		CreatedAt: now,
	}
}

// sightingFilter builds the Mongo filter of a query. Names are matched in
// normalized form.
func sightingFilter(query *types.SightingQuery) bson.M {
	filter := bson.M{}
	if query == nil {
		return filter
	}
	if query.Name != nil && *query.Name != "" {
		filter["name"] = names.Normalize(*query.Name)
	}
	if query.Key != nil && *query.Key != "" {
		filter["key"] = *query.Key
	}
	return filter
}

// sightingFindOptions builds pagination and sorting options of a query.
func sightingFindOptions(query *types.SightingQuery) *options.FindOptions {
	sortDirection := 1
	opts := options.Find()
	if query != nil {
		if query.SortOrder != nil && *query.SortOrder == types.SortOrderDesc {
			sortDirection = -1
		}
		if query.Skip != nil && *query.Skip > 0 {
			opts.SetSkip(int64(*query.Skip))
		}
		if query.Limit != nil && *query.Limit > 0 {
			opts.SetLimit(int64(*query.Limit))
		}
	}
	opts.SetSort(bson.D{{Key: "createdAt", Value: sortDirection}})
	opts.SetProjection(bson.M{"_id": 0})
	return opts
}
