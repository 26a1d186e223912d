package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/colonyforge/core/internal/honeycomb"
)

const (
	defaultCollection = "honeycomb_episodes"
	defaultTimeout    = 5 * time.Second
)

// Options configures the Mongo-backed episode store.
type Options struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store persists honeycomb.Episodes and lists them by colony.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewStore builds a Store using the provided client, creating a unique
// index on episode_id and a lookup index on colony_id.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("honeycomb/mongo: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("honeycomb/mongo: database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	coll := opts.Client.Database(opts.Database).Collection(collection)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "episode_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "colony_id", Value: 1}},
	}); err != nil {
		return nil, err
	}

	return &Store{coll: coll, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Save upserts an Episode by episode_id. Satisfies honeycomb.Store.
func (s *Store) Save(ctx context.Context, ep honeycomb.Episode) error {
	if ep.EpisodeID == "" {
		return errors.New("honeycomb/mongo: episode id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "episode_id", Value: ep.EpisodeID}},
		ep,
		options.Replace().SetUpsert(true),
	)
	return err
}

// ListByColony returns every Episode recorded for colonyID, in no
// particular order; callers that need recency should sort on the result.
func (s *Store) ListByColony(ctx context.Context, colonyID string) ([]honeycomb.Episode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.D{{Key: "colony_id", Value: colonyID}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var episodes []honeycomb.Episode
	if err := cur.All(ctx, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// ListAll returns every Episode in the store.
func (s *Store) ListAll(ctx context.Context) ([]honeycomb.Episode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var episodes []honeycomb.Episode
	if err := cur.All(ctx, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}
