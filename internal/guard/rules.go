// Package guard implements the two-layer plan/evidence verifier: L1
// structural rules that must all pass, and L2 semantic rules whose failure
// downgrades a verdict rather than failing it outright.
package guard

import "strings"

// Level discriminates a Rule's layer.
type Level string

const (
	L1 Level = "L1"
	L2 Level = "L2"
)

// Verdict is the final disposition of a Report.
type Verdict string

const (
	VerdictPass            Verdict = "PASS"
	VerdictConditionalPass Verdict = "CONDITIONAL_PASS"
	VerdictFail            Verdict = "FAIL"
)

// RuleResult is one rule's evaluation outcome.
type RuleResult struct {
	RuleName     string
	Level        Level
	Passed       bool
	Message      string
	EvidenceType string
	Details      map[string]any
}

// Report is the full output of a Verifier run: every rule's result plus the
// combined Verdict. L1Passed/L2Passed/RemandReason/ImprovementInstructions
// mirror spec §3's Guard Report data model: RemandReason summarizes why a
// FAIL verdict was reached (the failed L1 rules' messages), and
// ImprovementInstructions collects every failing rule's message, L1 or L2,
// for a caller that wants to surface actionable feedback regardless of
// verdict.
type Report struct {
	Verdict                 Verdict
	Results                 []RuleResult
	L1Passed                bool
	L2Passed                bool
	RemandReason            string
	ImprovementInstructions []string
}

// Rule evaluates one aspect of a plan or evidence bundle against Input and
// returns its RuleResult.
type Rule interface {
	Evaluate(input Input) RuleResult
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(input Input) RuleResult

func (f RuleFunc) Evaluate(input Input) RuleResult { return f(input) }

// Evidence is one submitted proof artifact (diff, test_result,
// test_coverage, lint_result, type_check, review_comment — spec §4.7 /
// the verify_colony operation's evidence vocabulary).
type Evidence struct {
	EvidenceType string
	Source       string
	Content      map[string]any
}

// Input bundles everything a Rule needs: the plan under validation (if any)
// and/or the evidence bundle submitted for a colony/task's verify_colony
// call.
type Input struct {
	OriginalGoal string
	TaskGoals    []string
	TaskIDs      []string
	DependsOn    map[string][]string
	Evidence     []Evidence
}

// buildReport applies spec §4.7's verdict rule (FAIL if any L1 result
// failed; CONDITIONAL_PASS if all L1 passed but at least one L2 failed;
// PASS otherwise) and fills in the remand reason / improvement instructions
// spec §3's Guard Report carries alongside the verdict.
func buildReport(results []RuleResult) Report {
	l1Passed := true
	l2Passed := true
	var failedL1Messages []string
	var improvementInstructions []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Level == L1 {
			l1Passed = false
			failedL1Messages = append(failedL1Messages, r.Message)
		} else {
			l2Passed = false
		}
		improvementInstructions = append(improvementInstructions, r.Message)
	}

	var verdict Verdict
	switch {
	case !l1Passed:
		verdict = VerdictFail
	case !l2Passed:
		verdict = VerdictConditionalPass
	default:
		verdict = VerdictPass
	}

	remandReason := ""
	if !l1Passed {
		remandReason = strings.Join(failedL1Messages, "; ")
	}

	return Report{
		Verdict:                 verdict,
		Results:                 results,
		L1Passed:                l1Passed,
		L2Passed:                l2Passed,
		RemandReason:            remandReason,
		ImprovementInstructions: improvementInstructions,
	}
}
