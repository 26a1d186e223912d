package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

func TestBuildRunHappyPath(t *testing.T) {
	evts := []events.Event{
		events.New(events.RunStarted, "queen", "run-1", map[string]any{"goal": "ship feature"}),
		withTaskID(events.New(events.TaskCreated, "queen", "run-1", map[string]any{"title": "write code"}), "t1"),
		withTaskID(events.New(events.TaskAssigned, "queen", "run-1", map[string]any{"assignee": "worker-1"}), "t1"),
		withTaskID(events.New(events.TaskProgressed, "worker-1", "run-1", map[string]any{"progress": 50}), "t1"),
		withTaskID(events.New(events.TaskCompleted, "worker-1", "run-1", map[string]any{"result": "done", "worker_id": "worker-1"}), "t1"),
		events.New(events.RunCompleted, "queen", "run-1", nil),
	}

	run := projection.BuildRun(evts, "run-1", "")
	assert.Equal(t, projection.RunCompleted, run.State)
	assert.Equal(t, "ship feature", run.Goal)
	assert.Equal(t, 6, run.EventCount)

	task := run.Tasks["t1"]
	assert.NotNil(t, task)
	assert.Equal(t, projection.TaskCompleted, task.State)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, "done", task.Metadata["result"])
}

func TestBuildRunTaskFailureKeepsRunRunning(t *testing.T) {
	evts := []events.Event{
		events.New(events.RunStarted, "queen", "run-1", map[string]any{"goal": "x"}),
		withTaskID(events.New(events.TaskCreated, "queen", "run-1", nil), "t1"),
		withTaskID(events.New(events.TaskFailed, "worker-1", "run-1", map[string]any{"error": "boom"}), "t1"),
	}
	run := projection.BuildRun(evts, "run-1", "")
	assert.Equal(t, projection.RunRunning, run.State)
	assert.Equal(t, projection.TaskFailed, run.Tasks["t1"].State)
	assert.Equal(t, "boom", run.Tasks["t1"].ErrorMessage)
}

func TestBuildRunRequirementLifecycle(t *testing.T) {
	evts := []events.Event{
		events.New(events.RunStarted, "queen", "run-1", nil),
		events.New(events.RequirementCreated, "queen", "run-1", map[string]any{"requirement_id": "r1", "description": "pick a db"}),
		events.New(events.RequirementApproved, "beekeeper", "run-1", map[string]any{"requirement_id": "r1", "selected_option": "postgres"}),
	}
	run := projection.BuildRun(evts, "run-1", "")
	req := run.Requirements["r1"]
	assert.NotNil(t, req)
	assert.Equal(t, projection.RequirementApproved, req.State)
	assert.Equal(t, "postgres", req.SelectedOption)
	assert.Equal(t, "beekeeper", req.DecidedBy)
	assert.Len(t, run.ResolvedRequirements(), 1)
	assert.Empty(t, run.PendingRequirements())
}

func TestEmergencyStopAbortsRun(t *testing.T) {
	evts := []events.Event{
		events.New(events.RunStarted, "queen", "run-1", nil),
		events.New(events.EmergencyStop, "beekeeper", "run-1", nil),
	}
	run := projection.BuildRun(evts, "run-1", "")
	assert.Equal(t, projection.RunAborted, run.State)
}

func TestDeterministicFold(t *testing.T) {
	evts := []events.Event{
		events.New(events.RunStarted, "queen", "run-1", map[string]any{"goal": "x"}),
		withTaskID(events.New(events.TaskCreated, "queen", "run-1", nil), "t1"),
		withTaskID(events.New(events.TaskAssigned, "queen", "run-1", map[string]any{"assignee": "w1"}), "t1"),
	}
	run1 := projection.BuildRun(evts, "run-1", "")
	run2 := projection.BuildRun(evts, "run-1", "")
	assert.Equal(t, run1.State, run2.State)
	assert.Equal(t, run1.Tasks["t1"].State, run2.Tasks["t1"].State)
}

func TestBuildHiveTracksActivity(t *testing.T) {
	evts := []events.Event{
		events.New(events.HiveCreated, "beekeeper", "", nil),
		withColonyID(events.New(events.ColonyCreated, "beekeeper", "", nil), "c1"),
		withColonyID(events.New(events.ColonyStarted, "queen", "", nil), "c1"),
	}
	hive := projection.BuildHive(evts, "hive-1")
	assert.Equal(t, projection.HiveActive, hive.State)

	evts = append(evts, withColonyID(events.New(events.ColonyCompleted, "queen", "", nil), "c1"))
	hive = projection.BuildHive(evts, "hive-1")
	assert.Equal(t, projection.HiveIdle, hive.State)
	assert.Equal(t, projection.ColonyCompleted, hive.Colonies["c1"].State)
}

func TestBuildWorkerLifecycle(t *testing.T) {
	evts := []events.Event{
		withWorkerID(events.New(events.WorkerAssigned, "queen", "run-1", nil), "w1"),
		withWorkerID(events.New(events.WorkerStarted, "w1", "run-1", nil), "w1"),
		withWorkerID(events.New(events.WorkerFailed, "w1", "run-1", map[string]any{"error": "tool crashed"}), "w1"),
	}
	worker := projection.BuildWorker(evts, "w1")
	assert.Equal(t, projection.WorkerError, worker.State)
	assert.Equal(t, "tool crashed", worker.LastError)
}

func withTaskID(e events.Event, taskID string) events.Event {
	e.TaskID = taskID
	return e
}

func withColonyID(e events.Event, colonyID string) events.Event {
	e.ColonyID = colonyID
	return e
}

func withWorkerID(e events.Event, workerID string) events.Event {
	e.WorkerID = workerID
	return e
}
