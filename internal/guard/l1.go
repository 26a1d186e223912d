package guard

import "fmt"

// StructuralRules returns the fixed L1 rule set from spec §4.7: the plan is
// non-empty, task ids are unique, every depends_on resolves, the dependency
// graph has no cycle, and every task carries a non-empty goal.
func StructuralRules() []Rule {
	return []Rule{
		RuleFunc(planNonEmpty),
		RuleFunc(uniqueTaskIDs),
		RuleFunc(dependenciesResolve),
		RuleFunc(noDependencyCycle),
		RuleFunc(everyTaskHasGoal),
	}
}

func planNonEmpty(input Input) RuleResult {
	if len(input.TaskIDs) == 0 {
		return RuleResult{RuleName: "plan_non_empty", Level: L1, Passed: false, Message: "plan has no tasks"}
	}
	return RuleResult{RuleName: "plan_non_empty", Level: L1, Passed: true}
}

func uniqueTaskIDs(input Input) RuleResult {
	seen := map[string]bool{}
	for _, id := range input.TaskIDs {
		if seen[id] {
			return RuleResult{
				RuleName: "unique_task_ids", Level: L1, Passed: false,
				Message: fmt.Sprintf("duplicate task id %q", id),
				Details: map[string]any{"task_id": id},
			}
		}
		seen[id] = true
	}
	return RuleResult{RuleName: "unique_task_ids", Level: L1, Passed: true}
}

func dependenciesResolve(input Input) RuleResult {
	known := map[string]bool{}
	for _, id := range input.TaskIDs {
		known[id] = true
	}
	for taskID, deps := range input.DependsOn {
		for _, dep := range deps {
			if !known[dep] {
				return RuleResult{
					RuleName: "dependencies_resolve", Level: L1, Passed: false,
					Message: fmt.Sprintf("task %q depends on unknown task %q", taskID, dep),
					Details: map[string]any{"task_id": taskID, "depends_on": dep},
				}
			}
		}
	}
	return RuleResult{RuleName: "dependencies_resolve", Level: L1, Passed: true}
}

func noDependencyCycle(input Input) RuleResult {
	visiting := map[string]bool{}
	visited := map[string]bool{}

	var hasCycle func(id string) bool
	hasCycle = func(id string) bool {
		if visited[id] {
			return false
		}
		if visiting[id] {
			return true
		}
		visiting[id] = true
		for _, dep := range input.DependsOn[id] {
			if hasCycle(dep) {
				return true
			}
		}
		visiting[id] = false
		visited[id] = true
		return false
	}

	for _, id := range input.TaskIDs {
		if hasCycle(id) {
			return RuleResult{
				RuleName: "no_dependency_cycle", Level: L1, Passed: false,
				Message: fmt.Sprintf("dependency cycle reachable from task %q", id),
			}
		}
	}
	return RuleResult{RuleName: "no_dependency_cycle", Level: L1, Passed: true}
}

func everyTaskHasGoal(input Input) RuleResult {
	for i, goal := range input.TaskGoals {
		if goal == "" {
			taskID := ""
			if i < len(input.TaskIDs) {
				taskID = input.TaskIDs[i]
			}
			return RuleResult{
				RuleName: "every_task_has_goal", Level: L1, Passed: false,
				Message: fmt.Sprintf("task %q has an empty goal", taskID),
			}
		}
	}
	return RuleResult{RuleName: "every_task_has_goal", Level: L1, Passed: true}
}
