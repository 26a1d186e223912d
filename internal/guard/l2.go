package guard

import (
	"fmt"
	"strings"
)

// GoalCoverageThreshold is the minimum fraction of the original goal's
// significant tokens that must be covered by the union of task goals for
// the goal_coverage L2 rule to pass.
const GoalCoverageThreshold = 0.5

// stopWords are excluded from token-overlap scoring as too common to carry
// coverage signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true, "is": true,
	"it": true, "that": true, "this": true, "be": true, "by": true, "at": true,
}

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, raw := range strings.Fields(strings.ToLower(s)) {
		tok := strings.Trim(raw, ".,;:!?()[]{}\"'")
		if tok == "" || stopWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// SemanticRules returns the L2 rule set from spec §4.7: a token-overlap
// heuristic checking that the union of task goals covers the original goal.
func SemanticRules() []Rule {
	return []Rule{RuleFunc(goalCoverage)}
}

func goalCoverage(input Input) RuleResult {
	goalTokens := tokenize(input.OriginalGoal)
	if len(goalTokens) == 0 {
		return RuleResult{RuleName: "goal_coverage", Level: L2, Passed: true, Message: "original goal has no scoreable tokens"}
	}

	covered := map[string]bool{}
	for _, g := range input.TaskGoals {
		for tok := range tokenize(g) {
			covered[tok] = true
		}
	}

	hits := 0
	for tok := range goalTokens {
		if covered[tok] {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(goalTokens))

	passed := ratio >= GoalCoverageThreshold
	return RuleResult{
		RuleName: "goal_coverage", Level: L2, Passed: passed,
		Message: fmt.Sprintf("task goals cover %.0f%% of original goal tokens (threshold %.0f%%)", ratio*100, GoalCoverageThreshold*100),
		Details: map[string]any{"coverage_ratio": ratio, "covered_tokens": hits, "total_tokens": len(goalTokens)},
	}
}
