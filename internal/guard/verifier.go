package guard

import (
	"context"

	"github.com/colonyforge/core/internal/events"
)

// Verifier evaluates a configurable list of rules against an Input and
// emits the corresponding guard.* event for the combined verdict.
type Verifier struct {
	rules []Rule
}

// NewVerifier constructs a Verifier over rules. NewPlanVerifier and
// NewEvidenceVerifier cover the two standard configurations from spec §4.7;
// construct a Verifier directly to run a custom rule set.
func NewVerifier(rules ...Rule) *Verifier {
	return &Verifier{rules: rules}
}

// NewPlanVerifier builds the verifier the Pipeline uses at its Validate
// stage: structural L1 rules plus the L2 goal-coverage rule.
func NewPlanVerifier() *Verifier {
	var rules []Rule
	rules = append(rules, StructuralRules()...)
	rules = append(rules, SemanticRules()...)
	return NewVerifier(rules...)
}

// NewEvidenceVerifier builds the verifier the verify_colony operation uses:
// evidence shape validation only. Embedders that also want goal-coverage
// scoring against submitted evidence can construct a Verifier directly.
func NewEvidenceVerifier() *Verifier {
	return NewVerifier(EvidenceShapeRule())
}

// Verify runs every configured rule against input and returns the combined
// Report.
func (v *Verifier) Verify(input Input) Report {
	results := make([]RuleResult, 0, len(v.rules))
	for _, rule := range v.rules {
		results = append(results, rule.Evaluate(input))
	}
	return buildReport(results)
}

// EventForVerdict returns the guard.* event type matching report's verdict
// (spec §4.7: guard.passed / guard.conditional_passed / guard.failed).
func EventForVerdict(verdict Verdict) events.Type {
	switch verdict {
	case VerdictPass:
		return events.GuardPassed
	case VerdictConditionalPass:
		return events.GuardConditionalPassed
	default:
		return events.GuardFailed
	}
}

// ReportPayload flattens report into an event payload, including the
// remand_reason and improvement_instructions spec §3's Guard Report data
// model carries alongside the per-rule results. Callers that append a
// guard-derived event with an additional field (e.g. the Pipeline's
// original_goal on plan.validation_failed) should merge into this map
// rather than hand-rolling their own subset.
func ReportPayload(report Report) map[string]any {
	results := make([]map[string]any, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, map[string]any{
			"rule_name":     r.RuleName,
			"level":         string(r.Level),
			"passed":        r.Passed,
			"message":       r.Message,
			"evidence_type": r.EvidenceType,
			"details":       r.Details,
		})
	}
	return map[string]any{
		"verdict":                  string(report.Verdict),
		"results":                  results,
		"l1_passed":                report.L1Passed,
		"l2_passed":                report.L2Passed,
		"remand_reason":            report.RemandReason,
		"improvement_instructions": report.ImprovementInstructions,
	}
}

// VerifyAndEmit runs Verify and appends the matching guard.* event to ar
// under streamID, returning the report.
func (v *Verifier) VerifyAndEmit(ctx context.Context, input Input, appender EventAppender, actor, streamID string) (Report, error) {
	report := v.Verify(input)
	evt := events.New(EventForVerdict(report.Verdict), actor, streamID, ReportPayload(report))
	if _, err := appender.Append(ctx, evt, streamID); err != nil {
		return report, err
	}
	return report, nil
}

// EventAppender is the subset of ar.Vault's API the guard verifier needs,
// kept narrow so tests can supply a fake.
type EventAppender interface {
	Append(ctx context.Context, event events.Event, streamID string) (events.Event, error)
}
