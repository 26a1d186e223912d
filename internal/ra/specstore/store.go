package specstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/colonyforge/core/internal/ra"
)

const (
	defaultCollection = "ra_spec_drafts"
	defaultTimeout    = 5 * time.Second
)

// Options configures the Mongo-backed spec draft store.
type Options struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store persists RA SpecDrafts by run id.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewStore builds a Store using the provided client, creating a unique
// index on run_id if one does not already exist.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("specstore: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("specstore: database name is required")
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
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, err
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Save upserts the draft produced for runID along with the gate outcome
// that accompanied it.
func (s *Store) Save(ctx context.Context, runID string, draft ra.SpecDraft, outcome string) error {
	if runID == "" {
		return errors.New("specstore: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record := fromDraft(runID, draft, outcome)
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "run_id", Value: runID}},
		record,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Load retrieves the draft recorded for runID.
func (s *Store) Load(ctx context.Context, runID string) (ra.SpecDraft, string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var record Record
	err := s.coll.FindOne(ctx, bson.D{{Key: "run_id", Value: runID}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ra.SpecDraft{}, "", errNotFound(runID)
	}
	if err != nil {
		return ra.SpecDraft{}, "", err
	}
	return record.toDraft(), record.Outcome, nil
}

// ErrNotFound is returned by Load when no draft has been saved for a run.
type ErrNotFound struct {
	RunID string
}

func (e *ErrNotFound) Error() string { return "specstore: no spec draft for run " + e.RunID }

func errNotFound(runID string) error { return &ErrNotFound{RunID: runID} }
