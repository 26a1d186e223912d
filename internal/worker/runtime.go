package worker

import (
	"context"
	"errors"

	"github.com/colonyforge/core/internal/events"
)

// Appender records worker.* events to the AR.
type Appender interface {
	Append(ctx context.Context, event events.Event, streamID string) (events.Event, error)
}

// ErrNotWorking is returned when an operation that requires the WORKING
// state (report_progress, complete_task, fail_task) is called from IDLE
// or ERROR.
var ErrNotWorking = errors.New("worker: not currently working a task")

// Worker holds one worker's lifecycle state plus the current task/run ids
// and progress, per spec §4.10.
type Worker struct {
	deps Deps

	WorkerID string
	state    State

	RunID      string
	TaskID     string
	Progress   int
	LastResult any
}

// New constructs a Worker in the IDLE state.
func New(workerID string, deps Deps) *Worker {
	return &Worker{deps: deps.resolve(), WorkerID: workerID, state: StateIdle}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State { return w.state }

func (w *Worker) record(ctx context.Context, typ events.Type, payload map[string]any) error {
	if w.deps.Appender == nil {
		return nil
	}
	evt := events.New(typ, w.WorkerID, w.RunID, payload)
	_, err := w.deps.Appender.Append(ctx, evt, w.RunID)
	return err
}

// ReceiveTask flips IDLE -> WORKING and emits worker.started.
func (w *Worker) ReceiveTask(ctx context.Context, runID, taskID, goal string) error {
	w.RunID = runID
	w.TaskID = taskID
	w.Progress = 0
	w.state = StateWorking
	return w.record(ctx, events.WorkerStarted, map[string]any{
		"task_id": taskID, "goal": goal,
	})
}

// ReportProgress emits worker.progress. n must be in [0, 100].
func (w *Worker) ReportProgress(ctx context.Context, n int, msg string) error {
	if w.state != StateWorking {
		return ErrNotWorking
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	w.Progress = n
	return w.record(ctx, events.WorkerProgress, map[string]any{
		"task_id": w.TaskID, "progress": n, "message": msg,
	})
}

// CompleteTask emits worker.completed and returns to IDLE.
func (w *Worker) CompleteTask(ctx context.Context, result any, deliverables []Deliverable) error {
	if w.state != StateWorking {
		return ErrNotWorking
	}
	taskID := w.TaskID
	w.LastResult = result
	w.state = StateIdle
	w.TaskID = ""
	return w.record(ctx, events.WorkerCompleted, map[string]any{
		"task_id": taskID, "result": result, "deliverables": deliverables,
	})
}

// FailTask emits worker.failed and returns to IDLE (recoverable) or ERROR.
func (w *Worker) FailTask(ctx context.Context, reason string, recoverable bool) error {
	if w.state != StateWorking {
		return ErrNotWorking
	}
	taskID := w.TaskID
	if recoverable {
		w.state = StateIdle
	} else {
		w.state = StateError
	}
	w.TaskID = ""
	return w.record(ctx, events.WorkerFailed, map[string]any{
		"task_id": taskID, "reason": reason, "recoverable": recoverable,
	})
}

// ExecuteTaskWithLLM glues receive -> LLM loop -> complete/fail, the
// teacher's execute_task_with_llm one-shot entry point.
func (w *Worker) ExecuteTaskWithLLM(ctx context.Context, runID, taskID, goal string, context map[string]any) error {
	if err := w.ReceiveTask(ctx, runID, taskID, goal); err != nil {
		return err
	}

	result, err := w.runReAct(ctx, goal)
	if err != nil {
		return w.FailTask(ctx, err.Error(), true)
	}
	if !result.Success {
		return w.FailTask(ctx, result.Error, true)
	}
	return w.CompleteTask(ctx, result.Output, nil)
}
