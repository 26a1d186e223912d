package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/events"
)

func TestNewComputesVerifiableHash(t *testing.T) {
	e := events.New(events.TaskCreated, "queen", "run-1", map[string]any{"title": "do the thing"})
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.Hash)
	assert.True(t, e.Verify())
}

func TestHashIsOrderIndependent(t *testing.T) {
	payload := map[string]any{"b": 2, "a": 1, "c": map[string]any{"y": 2, "x": 1}}
	e1 := events.New(events.TaskCreated, "queen", "run-1", payload)

	// Re-marshal/unmarshal to scramble map iteration order, then recompute.
	b, err := e1.MarshalJSONL()
	require.NoError(t, err)
	e2, err := events.Parse(b)
	require.NoError(t, err)

	assert.Equal(t, e1.Hash, e2.Hash)
	assert.True(t, e2.Verify())
}

func TestWithPrevHashRecomputesHash(t *testing.T) {
	e := events.New(events.TaskCreated, "queen", "run-1", nil)
	original := e.Hash

	chained := e.WithPrevHash("deadbeef")
	assert.NotEqual(t, original, chained.Hash)
	assert.Equal(t, "deadbeef", chained.PrevHash)
	assert.True(t, chained.Verify())
}

func TestParseRoundTrip(t *testing.T) {
	e := events.New(events.RunStarted, "queen", "run-42", map[string]any{"goal": "ship it"})
	b, err := e.MarshalJSONL()
	require.NoError(t, err)

	got, err := events.Parse(b)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.RunID, got.RunID)
	assert.True(t, got.Verify())
}

func TestParseUnknownTypeRoundTrips(t *testing.T) {
	e := events.New(events.Type("future.never_seen"), "queen", "run-1", map[string]any{"x": 1})
	b, err := e.MarshalJSONL()
	require.NoError(t, err)

	got, err := events.Parse(b)
	require.NoError(t, err)
	assert.Equal(t, events.Type("future.never_seen"), got.Type)
	assert.False(t, events.IsKnownType(got.Type))
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := events.Parse([]byte(`{"type":"task.created"}`))
	assert.Error(t, err)
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "task", events.TaskCreated.Namespace())
	assert.Equal(t, "ra", events.RAIntakeReceived.Namespace())
}
