package specstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/colonyforge/core/internal/ra"
	"github.com/colonyforge/core/internal/ra/specstore"
)

var (
	testClient    *mongo.Client
	testContainer testcontainers.Container
	skipTests     bool
)

func setup(t *testing.T) *specstore.Store {
	t.Helper()
	if testClient == nil && !skipTests {
		setupContainer()
	}
	if skipTests {
		t.Skip("Docker not available, skipping MongoDB test")
	}

	store, err := specstore.NewStore(specstore.Options{
		Client:     testClient,
		Database:   "ra_test",
		Collection: t.Name(),
	})
	require.NoError(t, err)
	return store
}

func setupContainer() {
	ctx := context.Background()

	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
			Tmpfs:        map[string]string{"/data/db": "rw"},
		}
		testContainer, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()
	if containerErr != nil {
		skipTests = true
		return
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		skipTests = true
		return
	}
	port, err := testContainer.MappedPort(ctx, "27017")
	if err != nil {
		skipTests = true
		return
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	testClient, err = mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		skipTests = true
		return
	}
	if err := testClient.Ping(ctx, nil); err != nil {
		skipTests = true
		return
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := setup(t)

	draft := ra.SpecDraft{
		Goal:        "write hello.txt",
		Assumptions: []ra.Assumption{{ID: "a1", Text: "utf8 encoding", Confidence: 0.9, Status: "confirmed"}},
		Answers:     map[string]string{"q1": "no"},
	}

	require.NoError(t, store.Save(context.Background(), "run-1", draft, "EXECUTION_READY"))

	loaded, outcome, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "EXECUTION_READY", outcome)
	assert.Equal(t, draft.Goal, loaded.Goal)
	assert.Equal(t, draft.Answers, loaded.Answers)
}

func TestSaveUpsertsOnRepeatedRunID(t *testing.T) {
	store := setup(t)

	require.NoError(t, store.Save(context.Background(), "run-2", ra.SpecDraft{Goal: "v1"}, "EXECUTION_READY"))
	require.NoError(t, store.Save(context.Background(), "run-2", ra.SpecDraft{Goal: "v2"}, "EXECUTION_READY_WITH_RISKS"))

	loaded, outcome, err := store.Load(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Goal)
	assert.Equal(t, "EXECUTION_READY_WITH_RISKS", outcome)
}

func TestLoadMissingRunReturnsNotFound(t *testing.T) {
	store := setup(t)

	_, _, err := store.Load(context.Background(), "does-not-exist")
	require.Error(t, err)
	var notFound *specstore.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestNewStoreRequiresClient(t *testing.T) {
	_, err := specstore.NewStore(specstore.Options{Database: "x"})
	assert.Error(t, err)
}

func TestNewStoreRequiresDatabase(t *testing.T) {
	if testClient == nil && !skipTests {
		setupContainer()
	}
	if skipTests {
		t.Skip("Docker not available, skipping MongoDB test")
	}
	_, err := specstore.NewStore(specstore.Options{Client: testClient})
	assert.Error(t, err)
}
