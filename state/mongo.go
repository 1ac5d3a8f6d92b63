package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage stores one document per state key.
type MongoStorage struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	Key       string    `bson:"_id"`
	ETag      string    `bson:"etag"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStorage wraps an existing collection.
func NewMongoStorage(coll *mongo.Collection) *MongoStorage {
	return &MongoStorage{coll: coll}
}

// ConnectMongo connects to uri and returns a storage on database.collection.
// Close releases the client.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStorage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStorage{client: client, coll: client.Database(database).Collection(collection)}, nil
}

var _ Storage = (*MongoStorage)(nil)

// Read implements Storage.
func (m *MongoStorage) Read(ctx context.Context, key string) (*Item, error) {
	var doc mongoDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find state %q: %w", key, err)
	}
	return &Item{Data: doc.Data, ETag: doc.ETag}, nil
}

// Write implements Storage. A conditional write whose e-tag no longer
// matches turns the upsert into a duplicate _id insert, reported as a conflict.
func (m *MongoStorage) Write(ctx context.Context, key string, item *Item) (string, error) {
	etag := newETag()
	doc := mongoDocument{Key: key, ETag: etag, Data: item.Data, UpdatedAt: time.Now().UTC()}

	filter := bson.M{"_id": key}
	if item.ETag != "" && item.ETag != AnyETag {
		filter["etag"] = item.ETag
	}

	_, err := m.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("%w: key %q", ErrETagConflict, key)
	}
	if err != nil {
		return "", fmt.Errorf("write state %q: %w", key, err)
	}
	return etag, nil
}

// Delete implements Storage.
func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// Close disconnects the client when the storage owns it.
func (m *MongoStorage) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Ping checks the server backing the collection.
func (m *MongoStorage) Ping(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, nil)
}
