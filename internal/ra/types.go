// Package ra implements the Requirement Analysis pipeline (spec §4.9): a
// pre-dispatch gate that scores ambiguity, mines intent, maps assumptions,
// challenges risk, generates clarifying questions, synthesizes a spec, and
// renders a completeness verdict before any task is dispatched.
package ra

// AnalysisPath classifies how much of the pipeline a goal needs to run
// through before it is dispatchable.
type AnalysisPath string

const (
	InstantPass    AnalysisPath = "INSTANT_PASS"
	AssumptionPass AnalysisPath = "ASSUMPTION_PASS"
	FullAnalysis   AnalysisPath = "FULL_ANALYSIS"
)

// AmbiguityScore is the scorer's verdict on a raw intake goal.
type AmbiguityScore struct {
	Ambiguity          float64
	ContextSufficiency float64
	ExecutionRisk      float64
	Path               AnalysisPath
}

// Assumption records one inferred premise with a confidence and a
// disposition.
type Assumption struct {
	ID         string
	Text       string
	Confidence float64
	Status     string // "open", "confirmed", "refuted"
}

// FailureHypothesis is one way the RiskChallenger believes the goal, as
// currently understood, could go wrong.
type FailureHypothesis struct {
	ID       string
	Text     string
	Severity string // "low", "medium", "high"
}

// ClarificationQuestion surfaces to the user through the ask callback
// (spec §6 user confirmation API).
type ClarificationQuestion struct {
	QuestionID string
	Text       string
	Options    []string
}

// ClarificationRound is one batch of questions produced by ClarifyGenerator.
type ClarificationRound struct {
	Questions []ClarificationQuestion
}

// SpecDraft is the synthesized specification produced once enough of the
// ambiguity has been resolved.
type SpecDraft struct {
	Goal        string
	Assumptions []Assumption
	Risks       []FailureHypothesis
	Answers     map[string]string
}

// GateResult is RAGuardGate's completeness verdict.
type GateResult struct {
	Passed          bool
	Outcome         string // "EXECUTION_READY", "EXECUTION_READY_WITH_RISKS", "ABANDONED"
	RequiredActions []string
}

// IntentGraph is IntentMiner's extracted goals/unknowns, consulted to
// decide whether web research is warranted.
type IntentGraph struct {
	Goals        []string
	OpenUnknowns []string
}

func (g IntentGraph) hasOpenUnknowns() bool { return len(g.OpenUnknowns) > 0 }
