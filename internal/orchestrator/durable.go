package orchestrator

import (
	"fmt"

	"github.com/colonyforge/core/internal/engine"
)

// TaskActivityInput is the payload handed to a task activity registered
// for ExecutePlanDurable: the task id/goal plus the merged outputs of its
// direct dependencies.
type TaskActivityInput struct {
	RunID       string
	TaskID      string
	Goal        string
	ContextData map[string]any
}

// ExecutePlanDurable runs the same Kahn-layer algorithm as ExecutePlan, but
// dispatches each task through wfCtx.ExecuteActivityAsync under activityName
// instead of a bare goroutine, so an engine.Engine backend (internal/engine/
// temporal in particular) can durably resume a plan mid-execution after a
// process restart. The activity registered under activityName must accept a
// TaskActivityInput and return a TaskResult, typically by looking up the
// real ExecuteFunc for its run id (see pipeline.NewWithEngine). Layers still
// execute strictly happens-before one another; tasks within a layer are
// dispatched async and only joined at the end of the layer.
func (o *Orchestrator) ExecutePlanDurable(wfCtx engine.WorkflowContext, plan TaskPlan, activityName, originalGoal, runID string) (*TaskContext, error) {
	layered, err := layers(plan)
	if err != nil {
		return nil, err
	}

	tc := &TaskContext{
		OriginalGoal: originalGoal,
		RunID:        runID,
		Results:      make(map[string]*TaskResult, len(plan.Tasks)),
	}
	failed := map[string]bool{}

	for _, layer := range layered {
		type pending struct {
			taskID string
			future engine.Future
		}
		var inFlight []pending

		for _, t := range layer {
			skipped := false
			for _, dep := range t.DependsOn {
				if failed[dep] {
					skipped = true
					break
				}
			}
			if skipped {
				tc.Results[t.TaskID] = &TaskResult{Status: TaskStatusSkipped}
				failed[t.TaskID] = true
				continue
			}

			fut, err := wfCtx.ExecuteActivityAsync(wfCtx.Context(), engine.ActivityRequest{
				Name: activityName,
				Input: TaskActivityInput{
					RunID:       runID,
					TaskID:      t.TaskID,
					Goal:        t.Goal,
					ContextData: mergeDependencyOutputs(t, tc),
				},
			})
			if err != nil {
				return nil, fmt.Errorf("orchestrator: schedule activity for task %q: %w", t.TaskID, err)
			}
			inFlight = append(inFlight, pending{taskID: t.TaskID, future: fut})
		}

		for _, p := range inFlight {
			var result TaskResult
			err := p.future.Get(wfCtx.Context(), &result)
			if err != nil {
				tc.Results[p.taskID] = &TaskResult{Status: TaskStatusFailed, Error: err.Error()}
				failed[p.taskID] = true
				continue
			}
			if result.Status == "" {
				result.Status = TaskStatusCompleted
			}
			r := result
			tc.Results[p.taskID] = &r
			if result.Status == TaskStatusFailed {
				failed[p.taskID] = true
			}
		}
	}

	return tc, nil
}
