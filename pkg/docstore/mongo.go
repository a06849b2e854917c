package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/qualitysquare/fieldops-backend/pkg/config"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

// Mongo is the production Store backed by a MongoDB database.
type Mongo struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logg    *logger.Logger
}

// NewMongo connects to the configured deployment and verifies it with a ping.
func NewMongo(ctx context.Context, cfg config.StoreConfig, logg *logger.Logger) (*Mongo, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("%s is required", config.EnvMongoURI)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("%s is required", config.EnvMongoDatabase)
	}

	opts := options.Client().ApplyURI(cfg.MongoURI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	store := &Mongo{
		client:  client,
		db:      client.Database(cfg.Database),
		timeout: cfg.OperationTimeout,
		logg:    logg,
	}
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "mongo connected")
	}
	return store, nil
}

func (m *Mongo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, idFilter(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (m *Mongo) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := m.db.Collection(collection).Find(ctx, toBSONFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	out := make([]Document, 0, len(raw))
	for _, item := range raw {
		out = append(out, fromBSON(item))
	}
	return out, nil
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	payload := bson.M{}
	for k, v := range doc {
		payload[k] = v
	}
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	}
	payload[IDField] = id

	if _, err := m.db.Collection(collection).InsertOne(ctx, payload); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

// Update applies $set/$unset guarded by the precondition filter. A zero match
// count is disambiguated with a follow-up count so callers can tell a missing
// document from a lost precondition.
func (m *Mongo) Update(ctx context.Context, collection, id string, update Update) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if update.IsEmpty() {
		return nil
	}

	filter := idFilter(id)
	for path, value := range update.Precondition {
		filter[path] = value
	}

	ops := bson.M{}
	if len(update.Set) > 0 {
		set := bson.M{}
		for k, v := range update.Set {
			set[k] = v
		}
		ops["$set"] = set
	}
	if len(update.Unset) > 0 {
		unset := bson.M{}
		for _, path := range update.Unset {
			unset[path] = ""
		}
		ops["$unset"] = unset
	}

	coll := m.db.Collection(collection)
	res, err := coll.UpdateOne(ctx, filter, ops)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := coll.CountDocuments(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// idFilter matches both string ids and legacy ObjectID ids.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{IDField: bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{IDField: id}
}

func toBSONFilter(filter Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		doc[k] = normalize(v)
	}
	return doc
}

// normalize converts driver-specific types into plain Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, elem := range t {
			out[elem.Key] = normalize(elem.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Null:
		return nil
	default:
		return v
	}
}
