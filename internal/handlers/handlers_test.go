package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/conference"
	"github.com/colonyforge/core/internal/guard"
	"github.com/colonyforge/core/internal/intervention"
	"github.com/colonyforge/core/internal/projection"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	confStore, err := conference.NewStore(t.TempDir())
	require.NoError(t, err)
	intStore, err := intervention.NewStore(t.TempDir())
	require.NoError(t, err)
	h, err := New(t.TempDir(), confStore, intStore)
	require.NoError(t, err)
	return h
}

// TestHappyPathScenario drives spec §8's S1 literally end to end.
func TestHappyPathScenario(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	const runID, taskID = "run-s1", "task-s1"

	require.NoError(t, must(h.StartRun(ctx, runID, "Write hello.txt with body 'hi'", "queen")))
	require.NoError(t, must(h.CreateTask(ctx, runID, taskID, "create file", nil, "queen")))
	require.NoError(t, must(h.AssignTask(ctx, runID, taskID, "worker-1", "queen")))
	require.NoError(t, must(h.ReportProgress(ctx, runID, taskID, 50, "", "worker-1")))
	require.NoError(t, must(h.CompleteTask(ctx, runID, taskID, map[string]any{"path": "hello.txt"}, "worker-1")))
	require.NoError(t, must(h.CompleteRun(ctx, runID, "queen", false)))

	run, err := h.GetRun(ctx, runID, "Write hello.txt with body 'hi'")
	require.NoError(t, err)
	assert.Equal(t, projection.RunCompleted, run.State)
	assert.Len(t, run.CompletedTasks(), 1)
	assert.Equal(t, 6, run.EventCount)

	ok, reason, err := h.VerifyRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, ok, reason)
}

func TestStartRunAndCreateTask(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	_, err := h.StartRun(ctx, "run-1", "ship the feature", "queen")
	require.NoError(t, err)

	evt, err := h.CreateTask(ctx, "run-1", "task-1", "write code", nil, "queen")
	require.NoError(t, err)
	assert.Equal(t, "task-1", evt.TaskID)
	assert.NotEmpty(t, evt.Parents, "auto-parents should link to run.started when caller supplies none")
}

func TestCompleteRunRejectsIncompleteTasks(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-2", "goal", "queen")))
	require.NoError(t, must(h.CreateTask(ctx, "run-2", "task-1", "a", nil, "queen")))

	_, err := h.CompleteRun(ctx, "run-2", "queen", false)
	require.Error(t, err)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CodeConflict, herr.Code)
	assert.Equal(t, []string{"task-1"}, herr.IncompleteTaskIDs)
}

func TestCompleteRunSucceedsOnceTasksSettle(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-3", "goal", "queen")))
	require.NoError(t, must(h.CreateTask(ctx, "run-3", "task-1", "a", nil, "queen")))
	require.NoError(t, must(h.CompleteTask(ctx, "run-3", "task-1", map[string]any{"ok": true}, "worker-1")))

	_, err := h.CompleteRun(ctx, "run-3", "queen", false)
	assert.NoError(t, err)
}

func TestFailTaskDoesNotBlockCompleteRun(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-4", "goal", "queen")))
	require.NoError(t, must(h.CreateTask(ctx, "run-4", "task-1", "a", nil, "queen")))
	require.NoError(t, must(h.FailTask(ctx, "run-4", "task-1", "boom", false, "worker-1")))

	_, err := h.CompleteRun(ctx, "run-4", "queen", false)
	assert.NoError(t, err)
}

func TestCompletedRunRejectsFurtherTaskCreation(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-in8", "goal", "queen")))
	require.NoError(t, must(h.CompleteRun(ctx, "run-in8", "queen", false)))

	_, err := h.CreateTask(ctx, "run-in8", "task-late", "too late", nil, "queen")
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CodeConflict, herr.Code)

	_, err = h.CreateRequirement(ctx, "run-in8", "req-late", "too late", "queen")
	require.Error(t, err)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CodeConflict, herr.Code)
}

func TestResolveRequirementTwiceRejected(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-rt2", "goal", "queen")))
	require.NoError(t, must(h.CreateRequirement(ctx, "run-rt2", "req-1", "need approval", "queen")))
	require.NoError(t, must(h.ResolveRequirement(ctx, "run-rt2", "req-1", true, "option_a", "ok", "beekeeper")))

	_, err := h.ResolveRequirement(ctx, "run-rt2", "req-1", true, "option_a", "ok again", "beekeeper")
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CodeConflict, herr.Code)
}

func TestCompleteRunTwiceIsNoOp(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-rt3", "goal", "queen")))
	first, err := h.CompleteRun(ctx, "run-rt3", "queen", false)
	require.NoError(t, err)

	second, err := h.CompleteRun(ctx, "run-rt3", "queen", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	evts, err := h.replayRun(ctx, "run-rt3")
	require.NoError(t, err)
	assert.Len(t, evts, 2, "second CompleteRun must not append another run.completed")
}

func TestCompleteRunForceCompletesIncompleteTasks(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-s2", "goal", "queen")))
	require.NoError(t, must(h.CreateTask(ctx, "run-s2", "task-1", "a", nil, "queen")))

	_, err := h.CompleteRun(ctx, "run-s2", "queen", false)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, []string{"task-1"}, herr.IncompleteTaskIDs)

	_, err = h.CompleteRun(ctx, "run-s2", "queen", true)
	require.NoError(t, err)

	run, err := h.GetRun(ctx, "run-s2", "goal")
	require.NoError(t, err)
	assert.Equal(t, projection.RunCompleted, run.State)
	assert.Equal(t, projection.TaskFailed, run.Tasks["task-1"].State)
	assert.Equal(t, "run force-completed", run.Tasks["task-1"].ErrorMessage)
}

func TestResolveRequirement(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-5", "goal", "queen")))
	require.NoError(t, must(h.CreateRequirement(ctx, "run-5", "req-1", "need approval", "queen")))

	evt, err := h.ResolveRequirement(ctx, "run-5", "req-1", true, "option_a", "looks good", "beekeeper")
	require.NoError(t, err)
	assert.Equal(t, "requirement.approved", string(evt.Type))
}

func TestEmergencyStopAbortsRun(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, must(h.StartRun(ctx, "run-6", "goal", "queen")))
	_, err := h.EmergencyStop(ctx, "run-6", "operator abort", "operator")
	require.NoError(t, err)
}

func TestVerifyColonyAndGetGuardReport(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	require.NoError(t, must(h.StartRun(ctx, "run-7", "goal", "queen")))

	report, evt, err := h.VerifyColony(ctx, "run-7", "colony-a", []guard.Evidence{
		{EvidenceType: "diff", Source: "pr-42", Content: map[string]any{"lines": 10}},
	}, "guard")
	require.NoError(t, err)
	assert.Equal(t, guard.VerdictPass, report.Verdict)
	assert.Equal(t, "colony-a", evt.ColonyID)

	got, ok, err := h.GetGuardReport(ctx, "run-7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, evt.Type, got.Type)
}

func TestRecordDecision(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	require.NoError(t, must(h.StartRun(ctx, "run-8", "goal", "queen")))

	evt, err := h.RecordDecision(ctx, "run-8", "dec-1", "chose plan B", map[string]any{"why": "cheaper"}, "queen")
	require.NoError(t, err)
	assert.Equal(t, "decision.recorded", string(evt.Type))
}

func TestGetLineageWalksParents(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	started, err := h.StartRun(ctx, "run-9", "goal", "queen")
	require.NoError(t, err)
	created, err := h.CreateTask(ctx, "run-9", "task-1", "a", nil, "queen")
	require.NoError(t, err)

	lineage, err := h.GetLineage(ctx, created.ID, 5)
	require.NoError(t, err)
	assert.False(t, lineage.Truncated)
	ids := make([]string, 0, len(lineage.Events))
	for _, e := range lineage.Events {
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, started.ID)
}

func TestGetLineageUnknownEventNotFound(t *testing.T) {
	h := newTestHandlers(t)
	_, err := h.GetLineage(context.Background(), "does-not-exist", 5)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CodeNotFound, herr.Code)
}

func TestConferenceLifecycle(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	_, err := h.StartConference(ctx, "hive-1", "conf-1", "merge strategy", []string{"colony-a", "colony-b"}, "queen")
	require.NoError(t, err)

	c, ok := h.conferences.Get("conf-1")
	require.True(t, ok)
	assert.Equal(t, conference.StateActive, c.State)

	_, err = h.EndConference(ctx, "hive-1", "conf-1", []string{"use rebase"}, "agreed on rebase", 120, "queen")
	require.NoError(t, err)

	c, ok = h.conferences.Get("conf-1")
	require.True(t, ok)
	assert.Equal(t, conference.StateEnded, c.State)
}

func TestInterventionEscalationFeedbackLifecycle(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	intv, err := h.UserIntervene(ctx, "colony-a", "pause and redo step 3", "spec changed", true)
	require.NoError(t, err)
	assert.NotEmpty(t, intv.EventID)

	listed := h.ListInterventions("colony-a")
	assert.Len(t, listed, 1)

	esc, err := h.QueenEscalate(ctx, "colony-a", intervention.EscalationTechnicalBlocker, "stuck on migration", "details", []string{"rollback"}, "")
	require.NoError(t, err)

	pending := h.ListEscalations("colony-a", intervention.EscalationPending)
	assert.Len(t, pending, 1)

	_, err = h.BeekeeperFeedback(ctx, esc.EventID, "rolled back and retried", "add a pre-flight check next time", nil)
	require.NoError(t, err)

	resolved := h.ListEscalations("colony-a", intervention.EscalationResolved)
	assert.Len(t, resolved, 1)
}

func must[T any](v T, err error) error { return err }
