package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/colonyforge/core/internal/orchestrator"
)

// genDependencyMask generates, for each task index i in [0, n), a bitmask of
// which earlier indices it depends on. Restricting depends_on to lower
// indices guarantees the generated plan is acyclic by construction, so this
// exercises IN-6 (happens-before) rather than IN-5's cycle rejection path
// (covered separately by TestExecutePlanRejectsCycle).
func genDependencyMask(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.IntRange(0, 1<<20))
}

// TestExecutePlanHonorsHappensBeforeProperty covers spec §8 IN-6: a task's
// execution begins only after all of its direct dependencies have
// completed, across randomly generated acyclic dependency graphs.
func TestExecutePlanHonorsHappensBeforeProperty(t *testing.T) {
	const n = 6

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every task starts after its dependencies finish", prop.ForAll(
		func(masks []int) bool {
			plan := orchestrator.TaskPlan{}
			for i := 0; i < n; i++ {
				var deps []string
				for j := 0; j < i; j++ {
					if masks[i]&(1<<uint(j)) != 0 {
						deps = append(deps, fmt.Sprintf("t%d", j))
					}
				}
				plan.Tasks = append(plan.Tasks, orchestrator.PlannedTask{
					TaskID: fmt.Sprintf("t%d", i), Goal: "step", DependsOn: deps,
				})
			}

			var mu sync.Mutex
			finished := map[string]bool{}
			ok := true

			o := orchestrator.New()
			_, err := o.ExecutePlan(context.Background(), plan, func(ctx context.Context, taskID, goal string, contextData map[string]any) (orchestrator.TaskResult, error) {
				var deps []string
				for _, t := range plan.Tasks {
					if t.TaskID == taskID {
						deps = t.DependsOn
						break
					}
				}
				mu.Lock()
				for _, dep := range deps {
					if !finished[dep] {
						ok = false
					}
				}
				mu.Unlock()

				result := orchestrator.TaskResult{Status: orchestrator.TaskStatusCompleted}

				mu.Lock()
				finished[taskID] = true
				mu.Unlock()
				return result, nil
			}, "goal", "run-1")
			if err != nil {
				return false
			}
			return ok
		},
		genDependencyMask(n),
	))

	properties.TestingRun(t)
}
