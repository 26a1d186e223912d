package honeycomb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/honeycomb"
)

type fakeReplayer struct {
	byRun map[string][]events.Event
}

func (f *fakeReplayer) Replay(ctx context.Context, streamID string, since time.Time) ([]events.Event, error) {
	return f.byRun[streamID], nil
}

func (f *fakeReplayer) ListStreams() ([]string, error) {
	ids := make([]string, 0, len(f.byRun))
	for id := range f.byRun {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeStore struct {
	saved []honeycomb.Episode
}

func (f *fakeStore) Save(ctx context.Context, ep honeycomb.Episode) error {
	f.saved = append(f.saved, ep)
	return nil
}

func evt(typ events.Type, payload map[string]any, ts time.Time) events.Event {
	e := events.New(typ, "test", "run-1", payload)
	e.Timestamp = ts
	e.ColonyID = "colony-1"
	return e
}

func TestRecordRunEpisodeSuccess(t *testing.T) {
	base := time.Now().UTC()
	replayer := &fakeReplayer{byRun: map[string][]events.Event{
		"run-1": {
			evt(events.RunStarted, nil, base),
			evt(events.WorkerCompleted, map[string]any{"token_count": 120}, base.Add(10*time.Second)),
			evt(events.RunCompleted, nil, base.Add(30*time.Second)),
		},
	}}
	store := &fakeStore{}
	rec := honeycomb.NewRecorder(replayer, store)

	ep, err := rec.RecordRunEpisode(context.Background(), "run-1", "colony-1", "write hello.txt", "balanced", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, honeycomb.OutcomeSuccess, ep.Outcome)
	assert.Equal(t, 120, ep.TokenCount)
	assert.InDelta(t, 30.0, ep.DurationSeconds, 0.001)
	assert.Nil(t, ep.FailureClass)
	require.NotNil(t, ep.KPIScores.Correctness)
	assert.Equal(t, 1.0, *ep.KPIScores.Correctness)
	require.Len(t, store.saved, 1)
}

func TestRecordRunEpisodeFailureClassification(t *testing.T) {
	base := time.Now().UTC()
	replayer := &fakeReplayer{byRun: map[string][]events.Event{
		"run-2": {
			evt(events.RunStarted, nil, base),
			evt(events.TaskFailed, map[string]any{"reason": "connection timeout to test runner"}, base.Add(5*time.Second)),
			evt(events.RunFailed, map[string]any{"reason": "connection timeout to test runner"}, base.Add(6*time.Second)),
		},
	}}
	store := &fakeStore{}
	rec := honeycomb.NewRecorder(replayer, store)

	ep, err := rec.RecordRunEpisode(context.Background(), "run-2", "colony-1", "goal", "balanced", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, honeycomb.OutcomeFailure, ep.Outcome)
	require.NotNil(t, ep.FailureClass)
	assert.Equal(t, honeycomb.FailureTimeout, *ep.FailureClass)
	require.NotNil(t, ep.KPIScores.IncidentRate)
	assert.Equal(t, 1.0, *ep.KPIScores.IncidentRate)
}

func TestRecordRunEpisodePartialOnMixedTaskOutcomes(t *testing.T) {
	base := time.Now().UTC()
	replayer := &fakeReplayer{byRun: map[string][]events.Event{
		"run-3": {
			evt(events.TaskCompleted, nil, base),
			evt(events.TaskFailed, map[string]any{"reason": "implementation bug"}, base.Add(1*time.Second)),
			evt(events.RunFailed, nil, base.Add(2*time.Second)),
		},
	}}
	store := &fakeStore{}
	rec := honeycomb.NewRecorder(replayer, store)

	ep, err := rec.RecordRunEpisode(context.Background(), "run-3", "colony-1", "goal", "balanced", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, honeycomb.OutcomePartial, ep.Outcome)
}

func TestRecordRunEpisodeCountsSentinelInterventionsNotReports(t *testing.T) {
	base := time.Now().UTC()
	replayer := &fakeReplayer{byRun: map[string][]events.Event{
		"run-4": {
			evt(events.SentinelReport, nil, base),
			evt(events.SentinelAlertRaised, nil, base.Add(1*time.Second)),
			evt(events.SentinelQuarantine, nil, base.Add(2*time.Second)),
			evt(events.RunCompleted, nil, base.Add(3*time.Second)),
		},
	}}
	store := &fakeStore{}
	rec := honeycomb.NewRecorder(replayer, store)

	ep, err := rec.RecordRunEpisode(context.Background(), "run-4", "colony-1", "goal", "balanced", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ep.SentinelInterventionCount)
}

func TestCountEventsRequiresScope(t *testing.T) {
	replayer := &fakeReplayer{byRun: map[string][]events.Event{}}
	_, err := honeycomb.CountEvents(context.Background(), replayer, replayer, honeycomb.CounterScope{})
	assert.ErrorIs(t, err, honeycomb.ErrScopeRequired)
}

func TestCountEventsTalliesGuardAndSentinelEvents(t *testing.T) {
	base := time.Now().UTC()
	replayer := &fakeReplayer{byRun: map[string][]events.Event{
		"run-5": {
			evt(events.GuardPassed, nil, base),
			evt(events.GuardFailed, nil, base.Add(1*time.Second)),
			evt(events.SentinelAlertRaised, map[string]any{"false_alarm": true}, base.Add(2*time.Second)),
		},
	}}

	counters, err := honeycomb.CountEvents(context.Background(), replayer, replayer, honeycomb.CounterScope{RunID: "run-5"})
	require.NoError(t, err)
	assert.Equal(t, 1, counters.GuardPassCount)
	assert.Equal(t, 1, counters.GuardFailCount)
	assert.Equal(t, 2, counters.GuardTotalCount)
	assert.Equal(t, 1, counters.SentinelAlertCount)
	assert.Equal(t, 1, counters.SentinelFalseAlarmCount)
}

func TestAggregatorComputesRecurrenceRate(t *testing.T) {
	timeoutClass := honeycomb.FailureTimeout
	designClass := honeycomb.FailureDesign
	episodes := []honeycomb.Episode{
		{ColonyID: "c1", FailureClass: &timeoutClass},
		{ColonyID: "c1", FailureClass: &timeoutClass},
		{ColonyID: "c1", FailureClass: &designClass},
	}

	agg := honeycomb.NewAggregator()
	scores := agg.Aggregate(episodes, "c1")
	require.NotNil(t, scores.RecurrenceRate)
	assert.InDelta(t, 1.0/3.0, *scores.RecurrenceRate, 0.001)
}

func TestAggregatorFiltersByColony(t *testing.T) {
	c1 := 1.0
	c2 := 0.0
	episodes := []honeycomb.Episode{
		{ColonyID: "c1", KPIScores: honeycomb.KPIScores{Correctness: &c1}},
		{ColonyID: "c2", KPIScores: honeycomb.KPIScores{Correctness: &c2}},
	}

	agg := honeycomb.NewAggregator()
	scores := agg.Aggregate(episodes, "c1")
	require.NotNil(t, scores.Correctness)
	assert.Equal(t, 1.0, *scores.Correctness)
}
