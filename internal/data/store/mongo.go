package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	apperrors "mongoprov/internal/errors"
	"mongoprov/internal/schema"
)

// Server error codes the adapter classifies.
const (
	codeNamespaceNotFound     = 26
	codeNamespaceExists       = 48
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// Options configures a MongoStore connection.
type Options struct {
	URI              string
	Database         string
	AppName          string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// MongoStore implements Store on the official MongoDB driver.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	opTimeout time.Duration
}

// Connect opens a client and pings the primary. The returned store owns the
// client; Close releases it.
func Connect(ctx context.Context, opts Options) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
		clientOpts.SetServerSelectionTimeout(opts.ConnectTimeout)
	}
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigGeneric, "invalid MongoDB connection options", err).
			WithModule(module).
			WithOperation("store.Connect")
	}

	s := &MongoStore{
		client:    client,
		db:        client.Database(opts.Database),
		opTimeout: opts.OperationTimeout,
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Database returns the bound database name.
func (s *MongoStore) Database() string {
	return s.db.Name()
}

// Ping checks that the primary answers.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("store.Ping", err)
	}
	return nil
}

// CollectionNames lists the collections of the bound database.
func (s *MongoStore) CollectionNames(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, classify("store.CollectionNames", err, func(err error) *apperrors.AppError {
			return storeFailure("store.CollectionNames", "failed to list collections", err)
		})
	}
	return names, nil
}

// CreateCollection issues createCollection.
func (s *MongoStore) CreateCollection(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const op = "store.CreateCollection"
	if err := s.db.CreateCollection(ctx, name); err != nil {
		if hasServerCode(err, codeNamespaceExists) {
			return namespaceExists(op, name, err)
		}
		return classify(op, err, func(err error) *apperrors.AppError {
			return storeFailure(op, "failed to create collection", err).WithField("collection", name)
		})
	}
	return nil
}

type rawIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// Indexes lists the indexes of collection.
func (s *MongoStore) Indexes(ctx context.Context, collection string) ([]IndexInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const op = "store.Indexes"
	fail := func(err error) *apperrors.AppError {
		return storeFailure(op, "failed to list indexes", err).WithField("collection", collection)
	}

	cur, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		if hasServerCode(err, codeNamespaceNotFound) {
			return nil, nil
		}
		return nil, classify(op, err, fail)
	}

	var raw []rawIndex
	if err := cur.All(ctx, &raw); err != nil {
		return nil, classify(op, err, fail)
	}

	out := make([]IndexInfo, 0, len(raw))
	for _, idx := range raw {
		out = append(out, IndexInfo{
			Name:   idx.Name,
			Keys:   keyFields(idx.Key),
			Unique: idx.Unique,
		})
	}
	return out, nil
}

// CreateIndex issues createIndexes for one index. Creating an index that
// already exists with identical options is a no-op on the server.
func (s *MongoStore) CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const op = "store.CreateIndex"

	keys := make(bson.D, 0, len(spec.Keys))
	for _, key := range spec.Keys {
		keys = append(keys, bson.E{Key: key.Field, Value: int32(key.Order)})
	}

	indexOpts := options.Index().SetName(spec.IndexName())
	if spec.Unique {
		indexOpts.SetUnique(true)
	}

	name, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: indexOpts,
	})
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return "", duplicateValues(op, collection, spec, err)
		case hasServerCode(err, codeIndexOptionsConflict), hasServerCode(err, codeIndexKeySpecsConflict):
			return "", indexConflict(op, collection, spec, err)
		}
		return "", classify(op, err, func(err error) *apperrors.AppError {
			return storeFailure(op, "failed to create index", err).
				WithFields(apperrors.Metadata{"collection": collection, "index": spec.IndexName()})
		})
	}
	return name, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return storeFailure("store.Close", "failed to disconnect", err)
	}
	return nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// classify maps transport-level failures to CodeStoreUnavailable and
// everything else through fallback.
func classify(operation string, err error, fallback func(error) *apperrors.AppError) *apperrors.AppError {
	var selErr topology.ServerSelectionError
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.SystemError(apperrors.CodeSystemGeneric, "operation cancelled", err).
			WithModule(module).
			WithOperation(operation)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.As(err, &selErr):
		return unavailable(operation, err)
	default:
		return fallback(err)
	}
}

func hasServerCode(err error, code int) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorCode(code)
}

// keyFields converts a key document. Special index types ("text",
// "2dsphere", "hashed") have no direction and come back with order 0.
func keyFields(doc bson.D) []schema.KeyField {
	out := make([]schema.KeyField, 0, len(doc))
	for _, elem := range doc {
		var order schema.Direction
		switch v := elem.Value.(type) {
		case int32:
			order = direction(float64(v))
		case int64:
			order = direction(float64(v))
		case float64:
			order = direction(v)
		}
		out = append(out, schema.KeyField{Field: elem.Key, Order: order})
	}
	return out
}

func direction(v float64) schema.Direction {
	switch {
	case v > 0:
		return schema.Ascending
	case v < 0:
		return schema.Descending
	default:
		return 0
	}
}

var _ Store = (*MongoStore)(nil)
