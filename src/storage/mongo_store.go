package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// MongoStore owns the process-wide MongoDB connection. It is constructed
// once at startup and handed to every repository by reference.
type MongoStore struct {
	uri      string
	database string
	client   *mongo.Client
	db       *mongo.Database
	logger   *zap.SugaredLogger
}

// NewMongoStore creates a store for the given connection string and
// database name. No connection is made until Connect is called.
func NewMongoStore(uri, database string, logger *zap.SugaredLogger) *MongoStore {
	return &MongoStore{
		uri:      uri,
		database: database,
		logger:   logger,
	}
}

// Connect dials the server and verifies the connection with a ping.
func (s *MongoStore) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	// DefaultDocumentM keeps nested documents as plain maps when decoding
	// into interface{} values, which is what the JSON layer expects.
	opts := options.Client().
		ApplyURI(s.uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("error connecting to mongodb at %s: %w", s.uri, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("error pinging mongodb at %s: %w", s.uri, err)
	}

	s.client = client
	s.db = client.Database(s.database)
	s.logger.Infow("Connected to mongodb", "database", s.database)
	return nil
}

// Disconnect closes the connection. Safe to call when never connected.
func (s *MongoStore) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from mongodb: %w", err)
	}
	s.logger.Info("Disconnected from mongodb")
	return nil
}

// Ping verifies the connection is still alive. Used by the health endpoint.
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("store is not connected")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Collection returns a handle for the named collection.
func (s *MongoStore) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ListCollectionNames lists the collections of the configured database.
func (s *MongoStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("error listing collections: %w", err)
	}
	return names, nil
}

// EnsureCollection creates the collection if it does not exist yet.
// Creating a collection that already exists is treated as success.
func (s *MongoStore) EnsureCollection(ctx context.Context, name string) error {
	err := s.db.CreateCollection(ctx, name)
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return nil
	}
	return fmt.Errorf("error creating collection %s: %w", name, err)
}
