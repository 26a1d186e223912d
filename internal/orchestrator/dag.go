// Package orchestrator executes a TaskPlan's DAG in Kahn layers, dispatching
// every ready task within a layer in parallel and propagating a failed
// task's effect to its transitive dependents as a skip rather than aborting
// the run.
package orchestrator

import (
	"fmt"
	"sort"
)

type (
	// PlannedTask is one node of a TaskPlan: a goal plus the task ids it
	// depends on.
	PlannedTask struct {
		TaskID     string
		Goal       string
		DependsOn  []string
	}

	// TaskPlan is the Planner's output and the Orchestrator's input.
	TaskPlan struct {
		Tasks     []PlannedTask
		Reasoning string
	}
)

// ErrCycle reports that a plan's dependency graph is not a DAG.
type ErrCycle struct {
	Remaining []string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("orchestrator: plan contains a dependency cycle among tasks %v", e.Remaining)
}

// ErrUnresolvedDependency reports a depends_on referencing an unknown task id.
type ErrUnresolvedDependency struct {
	TaskID   string
	DependOn string
}

func (e *ErrUnresolvedDependency) Error() string {
	return fmt.Sprintf("orchestrator: task %q depends on unknown task %q", e.TaskID, e.DependOn)
}

// layers computes the Kahn topological layering of plan: layer 0 is every
// task with no dependencies, layer N+1 is every task whose dependencies are
// all satisfied by layers 0..N. Returns ErrUnresolvedDependency for a
// dangling depends_on and ErrCycle if any tasks remain unlayered once no
// further progress can be made.
func layers(plan TaskPlan) ([][]PlannedTask, error) {
	byID := make(map[string]PlannedTask, len(plan.Tasks))
	for _, t := range plan.Tasks {
		byID[t.TaskID] = t
	}
	for _, t := range plan.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, &ErrUnresolvedDependency{TaskID: t.TaskID, DependOn: dep}
			}
		}
	}

	remaining := make(map[string]PlannedTask, len(plan.Tasks))
	for _, t := range plan.Tasks {
		remaining[t.TaskID] = t
	}
	satisfied := map[string]bool{}

	var result [][]PlannedTask
	for len(remaining) > 0 {
		var ready []PlannedTask
		for _, t := range remaining {
			ok := true
			for _, dep := range t.DependsOn {
				if !satisfied[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, t)
			}
		}
		if len(ready) == 0 {
			ids := make([]string, 0, len(remaining))
			for id := range remaining {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return nil, &ErrCycle{Remaining: ids}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i].TaskID < ready[j].TaskID })
		result = append(result, ready)
		for _, t := range ready {
			satisfied[t.TaskID] = true
			delete(remaining, t.TaskID)
		}
	}
	return result, nil
}

