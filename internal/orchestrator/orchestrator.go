package orchestrator

import (
	"context"
	"sync"
)

type (
	// TaskStatus is the terminal disposition of one task within a TaskContext.
	TaskStatus string

	// TaskResult is one task's entry in a TaskContext.
	TaskResult struct {
		Status  TaskStatus
		Result  any
		Error   string
		Outputs map[string]any
	}

	// TaskContext is the orchestrator's output: every task's disposition,
	// keyed by task id.
	TaskContext struct {
		OriginalGoal string
		RunID        string
		Results      map[string]*TaskResult
	}

	// ExecuteFunc runs one task to completion. contextData is the merged
	// Outputs of the task's direct dependencies.
	ExecuteFunc func(ctx context.Context, taskID, goal string, contextData map[string]any) (TaskResult, error)
)

const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// Orchestrator executes a TaskPlan's DAG layer by layer.
type Orchestrator struct{}

// New constructs an Orchestrator. It is stateless; a value receiver would do
// as well, but the pointer keeps call sites consistent with other core
// collaborators.
func New() *Orchestrator { return &Orchestrator{} }

// ExecutePlan validates plan's DAG, then dispatches every layer's ready
// tasks concurrently through execFn, merging each completed task's Outputs
// into its direct dependents' contextData. A task whose transitive
// dependencies include a failed task is marked Skipped without invoking
// execFn. Layers execute strictly happens-before one another; tasks within
// a layer have no ordering guarantee.
func (o *Orchestrator) ExecutePlan(ctx context.Context, plan TaskPlan, execFn ExecuteFunc, originalGoal, runID string) (*TaskContext, error) {
	layered, err := layers(plan)
	if err != nil {
		return nil, err
	}

	tc := &TaskContext{
		OriginalGoal: originalGoal,
		RunID:        runID,
		Results:      make(map[string]*TaskResult, len(plan.Tasks)),
	}

	byID := make(map[string]PlannedTask, len(plan.Tasks))
	for _, t := range plan.Tasks {
		byID[t.TaskID] = t
	}
	failed := map[string]bool{}

	for _, layer := range layered {
		var wg sync.WaitGroup
		var mu sync.Mutex

		for _, t := range layer {
			t := t
			skipped := false
			for _, dep := range t.DependsOn {
				if failed[dep] {
					skipped = true
					break
				}
			}
			if skipped {
				mu.Lock()
				tc.Results[t.TaskID] = &TaskResult{Status: TaskStatusSkipped}
				failed[t.TaskID] = true
				mu.Unlock()
				continue
			}

			contextData := mergeDependencyOutputs(t, tc)

			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := execFn(ctx, t.TaskID, t.Goal, contextData)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					tc.Results[t.TaskID] = &TaskResult{Status: TaskStatusFailed, Error: err.Error()}
					failed[t.TaskID] = true
					return
				}
				if result.Status == "" {
					result.Status = TaskStatusCompleted
				}
				tc.Results[t.TaskID] = &result
				if result.Status == TaskStatusFailed {
					failed[t.TaskID] = true
				}
			}()
		}
		wg.Wait()
	}

	return tc, nil
}

func mergeDependencyOutputs(t PlannedTask, tc *TaskContext) map[string]any {
	if len(t.DependsOn) == 0 {
		return nil
	}
	merged := map[string]any{}
	for _, dep := range t.DependsOn {
		if r, ok := tc.Results[dep]; ok {
			for k, v := range r.Outputs {
				merged[k] = v
			}
		}
	}
	return merged
}

// Summary tallies completed/failed/skipped counts across tc.
type Summary struct {
	TotalTasks     int
	CompletedCount int
	FailedCount    int
	SkippedCount   int
}

// Summarize counts tc's task dispositions.
func Summarize(tc *TaskContext) Summary {
	s := Summary{TotalTasks: len(tc.Results)}
	for _, r := range tc.Results {
		switch r.Status {
		case TaskStatusCompleted:
			s.CompletedCount++
		case TaskStatusFailed:
			s.FailedCount++
		case TaskStatusSkipped:
			s.SkippedCount++
		}
	}
	return s
}
