// Package queen wires Planner, Pipeline, Orchestrator and Worker behind a
// single entry point, the shape spec.md's design note calls for in place of
// the original's Beekeeper/Queen mixin split: a flat struct with explicit
// collaborator fields rather than inherited behavior.
package queen

import (
	"context"
	"fmt"

	"github.com/colonyforge/core/internal/orchestrator"
	"github.com/colonyforge/core/internal/pipeline"
	"github.com/colonyforge/core/internal/planner"
	"github.com/colonyforge/core/internal/worker"
)

// WorkerFactory constructs a fresh Worker for one task execution. Queen
// calls it once per dispatched task so concurrent tasks within a layer never
// share worker state.
type WorkerFactory func(taskID string) *worker.Worker

// Queen holds the collaborators a colony needs to turn a goal into a
// completed (or paused-for-approval) run: a Planner to decompose the goal, a
// Pipeline to gate and execute the resulting plan, and a WorkerFactory to
// produce the Worker that actually runs each task.
type Queen struct {
	Planner   *planner.Planner
	Pipeline  *pipeline.Pipeline
	NewWorker WorkerFactory
}

// New constructs a Queen over the given collaborators.
func New(p *planner.Planner, pl *pipeline.Pipeline, newWorker WorkerFactory) *Queen {
	return &Queen{Planner: p, Pipeline: pl, NewWorker: newWorker}
}

// ExecuteGoal decomposes goal into a plan and drives it through the Pipeline
// end to end: Guard validation, approval gating, orchestrated execution, and
// result aggregation (spec §8 scenarios S1-S4). An *pipeline.ErrApprovalRequired
// is returned unwrapped so callers can branch on it directly, matching
// execute_goal's documented `{status: "approval_required", ...}` response.
func (q *Queen) ExecuteGoal(ctx context.Context, colonyID, runID, goal string) (pipeline.ColonyResult, error) {
	planResult, err := q.Planner.Plan(ctx, goal, nil)
	if err != nil {
		return pipeline.ColonyResult{}, fmt.Errorf("queen: plan goal: %w", err)
	}

	execFn := q.taskExecFn(runID)
	return q.Pipeline.Run(ctx, planResult.Plan, execFn, colonyID, runID, goal, nil, planResult.IsFallback)
}

// ResumeWithApproval re-enters a previously paused execute_goal call with a
// human's approve/reject decision (spec §8 S3).
func (q *Queen) ResumeWithApproval(ctx context.Context, requestID string, approved bool, reason string) (pipeline.ColonyResult, error) {
	return q.Pipeline.ResumeWithApproval(ctx, requestID, approved, reason)
}

// taskExecFn adapts a fresh per-task Worker into an orchestrator.ExecuteFunc:
// it runs the task through the Worker's ReAct loop and translates the
// Worker's post-call lifecycle state into a TaskResult.
func (q *Queen) taskExecFn(runID string) orchestrator.ExecuteFunc {
	return func(ctx context.Context, taskID, goal string, contextData map[string]any) (orchestrator.TaskResult, error) {
		w := q.NewWorker(taskID)

		if err := w.ExecuteTaskWithLLM(ctx, runID, taskID, goal, contextData); err != nil {
			return orchestrator.TaskResult{Status: orchestrator.TaskStatusFailed, Error: err.Error()}, nil
		}

		if w.State() == worker.StateError {
			return orchestrator.TaskResult{Status: orchestrator.TaskStatusFailed, Error: "worker entered ERROR state"}, nil
		}

		return orchestrator.TaskResult{Status: orchestrator.TaskStatusCompleted, Result: w.LastResult}, nil
	}
}
