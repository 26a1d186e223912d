package intervention_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/intervention"
)

func TestAddAndGetIntervention(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	rec := intervention.InterventionRecord{EventID: "i1", ColonyID: "c1", Instruction: "stop and revert"}
	require.NoError(t, store.AddIntervention(context.Background(), rec))

	got, ok := store.GetIntervention("i1")
	require.True(t, ok)
	assert.Equal(t, "stop and revert", got.Instruction)
}

func TestAddEscalationDefaultsToPending(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	rec := intervention.EscalationRecord{EventID: "e1", ColonyID: "c1", EscalationType: intervention.EscalationTechnicalBlocker, Summary: "stuck"}
	require.NoError(t, store.AddEscalation(context.Background(), rec))

	got, ok := store.GetEscalation("e1")
	require.True(t, ok)
	assert.Equal(t, intervention.EscalationPending, got.Status)
}

func TestResolveEscalationFlipsStatus(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.AddEscalation(context.Background(), intervention.EscalationRecord{EventID: "e2", ColonyID: "c1", Summary: "x"}))
	resolved, err := store.ResolveEscalation(context.Background(), "e2")
	require.NoError(t, err)
	assert.True(t, resolved)

	got, ok := store.GetEscalation("e2")
	require.True(t, ok)
	assert.Equal(t, intervention.EscalationResolved, got.Status)
}

func TestResolveEscalationUnknownIDReturnsFalse(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	resolved, err := store.ResolveEscalation(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, resolved)
}

func TestListEscalationsFiltersByColonyAndStatus(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.AddEscalation(context.Background(), intervention.EscalationRecord{EventID: "e3", ColonyID: "a"}))
	require.NoError(t, store.AddEscalation(context.Background(), intervention.EscalationRecord{EventID: "e4", ColonyID: "b"}))
	_, err = store.ResolveEscalation(context.Background(), "e3")
	require.NoError(t, err)

	all := store.ListEscalations("", "")
	assert.Len(t, all, 2)

	pending := store.ListEscalations("", intervention.EscalationPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "e4", pending[0].EventID)

	forA := store.ListEscalations("a", "")
	require.Len(t, forA, 1)
	assert.Equal(t, "e3", forA[0].EventID)
}

func TestGetTargetFindsEscalationOrIntervention(t *testing.T) {
	store, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.AddEscalation(context.Background(), intervention.EscalationRecord{EventID: "e5", ColonyID: "a"}))
	require.NoError(t, store.AddIntervention(context.Background(), intervention.InterventionRecord{EventID: "i5", ColonyID: "a"}))

	target := store.GetTarget("e5")
	require.NotNil(t, target.Escalation)
	assert.Nil(t, target.Intervention)

	target = store.GetTarget("i5")
	require.NotNil(t, target.Intervention)
	assert.Nil(t, target.Escalation)
}

func TestStoreReplaysFromDiskAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	store1, err := intervention.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store1.AddFeedback(context.Background(), intervention.FeedbackRecord{EventID: "f1", EscalationID: "e1", Resolution: "reverted bad commit"}))

	store2, err := intervention.NewStore(dir)
	require.NoError(t, err)
	got, ok := store2.GetFeedback("f1")
	require.True(t, ok)
	assert.Equal(t, "reverted bad commit", got.Resolution)
}
