package statemachine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
	"github.com/colonyforge/core/internal/statemachine"
)

func TestRunMachineHappyPath(t *testing.T) {
	m := statemachine.NewRun()
	assert.Equal(t, projection.RunRunning, m.Current())

	state, err := m.Transition(events.New(events.RunCompleted, "queen", "run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.RunCompleted, state)

	_, err = m.Transition(events.New(events.RunFailed, "queen", "run-1", nil))
	assert.Error(t, err, "terminal state rejects further transitions")
}

func TestRunMachineEmergencyStopAborts(t *testing.T) {
	m := statemachine.NewRun()
	state, err := m.Transition(events.New(events.EmergencyStop, "beekeeper", "run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.RunAborted, state)
}

func TestTaskRetryGuard(t *testing.T) {
	task := statemachine.NewTask(2)

	_, err := task.Transition(events.New(events.TaskAssigned, "queen", "run-1", nil))
	require.NoError(t, err)
	_, err = task.Transition(events.New(events.TaskFailed, "worker", "run-1", nil))
	require.NoError(t, err)

	// Retry 1: allowed.
	state, err := task.Transition(events.New(events.TaskCreated, "queen", "run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.TaskPending, state)
	assert.Equal(t, 1, task.RetryCount())

	_, err = task.Transition(events.New(events.TaskAssigned, "queen", "run-1", nil))
	require.NoError(t, err)
	_, err = task.Transition(events.New(events.TaskFailed, "worker", "run-1", nil))
	require.NoError(t, err)

	// Retry 2: allowed (count now 2, at max).
	_, err = task.Transition(events.New(events.TaskCreated, "queen", "run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, 2, task.RetryCount())

	_, err = task.Transition(events.New(events.TaskAssigned, "queen", "run-1", nil))
	require.NoError(t, err)
	_, err = task.Transition(events.New(events.TaskFailed, "worker", "run-1", nil))
	require.NoError(t, err)

	// Retry 3: guard rejects, max_retries exhausted.
	_, err = task.Transition(events.New(events.TaskCreated, "queen", "run-1", nil))
	assert.Error(t, err)
	assert.False(t, task.CanRetry())
}

func TestRequirementMachine(t *testing.T) {
	m := statemachine.NewRequirement()
	state, err := m.Transition(events.New(events.RequirementApproved, "beekeeper", "run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.RequirementApproved, state)
}

func TestHiveMachineActiveIdleCycle(t *testing.T) {
	m := statemachine.NewHive()
	assert.Equal(t, projection.HiveActive, m.Current())

	state, err := m.Transition(events.New(events.ColonyCompleted, "queen", "", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.HiveIdle, state)

	state, err = m.Transition(events.New(events.ColonyCreated, "beekeeper", "", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.HiveActive, state)
}

func TestColonyMachineSuspendResume(t *testing.T) {
	m := statemachine.NewColony()
	_, err := m.Transition(events.New(events.ColonyStarted, "queen", "", nil))
	require.NoError(t, err)

	state, err := m.Transition(events.New(events.ColonySuspended, "sentinel", "", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.ColonySuspended, state)

	state, err = m.Transition(events.New(events.ColonyStarted, "queen", "", nil))
	require.NoError(t, err)
	assert.Equal(t, projection.ColonyInProgress, state)
}

func TestRAMachineMainPath(t *testing.T) {
	ra := statemachine.NewRA()

	steps := []events.Type{
		events.RATriageCompleted,
		events.RAContextEnriched,
		events.RAWebSkipped,
		events.RAHypothesisBuilt,
		events.RAClarifyGenerated,
		events.RASpecSynthesized,
		events.RAChallengeReviewed,
		events.RAGateDecided,
	}
	for _, evtType := range steps {
		_, err := ra.Transition(events.New(evtType, "ra", "run-1", nil))
		require.NoError(t, err, evtType)
	}
	assert.Equal(t, projection.RAGuardGate, ra.Current())
}

func TestRAMachineGuardGateOutcomeRouting(t *testing.T) {
	ra := statemachine.NewRA()
	for _, evtType := range []events.Type{
		events.RATriageCompleted, events.RAContextEnriched, events.RAWebSkipped,
		events.RAHypothesisBuilt, events.RAClarifyGenerated, events.RASpecSynthesized,
		events.RAChallengeReviewed, events.RAGateDecided,
	} {
		_, err := ra.Transition(events.New(evtType, "ra", "run-1", nil))
		require.NoError(t, err)
	}

	state, err := ra.Transition(events.New(events.RACompleted, "ra", "run-1", map[string]any{"outcome": "EXECUTION_READY_WITH_RISKS"}))
	require.NoError(t, err)
	assert.Equal(t, projection.RAExecutionReadyWithRisks, state)
}

func TestRAMachineGuardGateUnknownOutcomeErrors(t *testing.T) {
	ra := statemachine.NewRA()
	for _, evtType := range []events.Type{
		events.RATriageCompleted, events.RAContextEnriched, events.RAWebSkipped,
		events.RAHypothesisBuilt, events.RAClarifyGenerated, events.RASpecSynthesized,
		events.RAChallengeReviewed, events.RAGateDecided,
	} {
		_, err := ra.Transition(events.New(evtType, "ra", "run-1", nil))
		require.NoError(t, err)
	}

	_, err := ra.Transition(events.New(events.RACompleted, "ra", "run-1", map[string]any{"outcome": "bogus"}))
	assert.Error(t, err)
}

func TestOscillationDetectorFlagsAlternatingPattern(t *testing.T) {
	d := statemachine.NewOscillationDetector(3)
	pattern := []string{"a", "b", "a", "b", "a", "b"}
	var err error
	for _, s := range pattern {
		d.RecordString(s)
		err = d.Check()
	}
	assert.Error(t, err)
}

func TestOscillationDetectorIgnoresProgress(t *testing.T) {
	d := statemachine.NewOscillationDetector(3)
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		d.RecordString(s)
		require.NoError(t, d.Check())
	}
}

func TestOscillationDetectorNeedsFullWindow(t *testing.T) {
	d := statemachine.NewOscillationDetector(3)
	for _, s := range []string{"a", "b", "a", "b"} {
		d.RecordString(s)
		require.NoError(t, d.Check(), "window not yet full")
	}
}
