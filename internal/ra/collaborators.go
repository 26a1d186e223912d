package ra

import "context"

// Scorer produces the intake triage score. Injectable; a nil Scorer falls
// back to stubScorer, a text-length heuristic.
type Scorer interface {
	Score(ctx context.Context, rawText string) (AmbiguityScore, error)
}

// ContextForager gathers internal evidence — past decisions, related
// runs — before intent mining runs.
type ContextForager interface {
	Gather(ctx context.Context, rawText string) (map[string]any, error)
}

// WebResearcher looks up external context when the intent graph still has
// open unknowns after internal context gathering.
type WebResearcher interface {
	Research(ctx context.Context, unknowns []string) (map[string]any, error)
}

// IntentMiner extracts goals and open unknowns from raw text plus
// gathered context.
type IntentMiner interface {
	Mine(ctx context.Context, rawText string, context map[string]any) (IntentGraph, error)
}

// AssumptionMapper produces Assumption records from an intent graph.
type AssumptionMapper interface {
	Map(ctx context.Context, intent IntentGraph) ([]Assumption, error)
}

// RiskChallenger produces FailureHypothesis records from assumptions.
type RiskChallenger interface {
	Challenge(ctx context.Context, assumptions []Assumption) ([]FailureHypothesis, error)
}

// ClarifyGenerator emits a round of clarifying questions, or none when the
// gate is satisfied without user input.
type ClarifyGenerator interface {
	Generate(ctx context.Context, intent IntentGraph, assumptions []Assumption, risks []FailureHypothesis) (ClarificationRound, error)
}

// SpecSynthesizer builds a SpecDraft from everything gathered so far.
type SpecSynthesizer interface {
	Synthesize(ctx context.Context, rawText string, intent IntentGraph, assumptions []Assumption, risks []FailureHypothesis, answers map[string]string) (SpecDraft, error)
}

// RefereeComparer picks the stronger of two drafts when SpecSynthesizer has
// produced more than one across clarify-loop iterations.
type RefereeComparer interface {
	Compare(ctx context.Context, drafts []SpecDraft) (SpecDraft, error)
}

// GuardGate renders the completeness verdict that ends the pipeline.
type GuardGate interface {
	Evaluate(ctx context.Context, draft SpecDraft, risks []FailureHypothesis) (GateResult, error)
}

// AskUser presents a clarification question to the end user and returns
// their answer. Modeled on spec §6's `ask(question, options?, timeout?)`.
type AskUser func(ctx context.Context, question string, options []string) (string, error)

// Stub implementations. When a collaborator is not supplied, the pipeline
// uses these so it stays drivable without any real LLM dependency — the
// original's "未設定時はスタブ動作" contract from beekeeper/ra_integration.py.

type stubScorer struct{}

func (stubScorer) Score(_ context.Context, rawText string) (AmbiguityScore, error) {
	path := FullAnalysis
	if len(rawText) < 20 {
		path = InstantPass
	}
	return AmbiguityScore{Ambiguity: 0.5, ContextSufficiency: 0.5, ExecutionRisk: 0.2, Path: path}, nil
}

type stubContextForager struct{}

func (stubContextForager) Gather(_ context.Context, _ string) (map[string]any, error) {
	return map[string]any{}, nil
}

type stubWebResearcher struct{}

func (stubWebResearcher) Research(_ context.Context, _ []string) (map[string]any, error) {
	return map[string]any{}, nil
}

type stubIntentMiner struct{}

func (stubIntentMiner) Mine(_ context.Context, rawText string, _ map[string]any) (IntentGraph, error) {
	return IntentGraph{Goals: []string{rawText}}, nil
}

type stubAssumptionMapper struct{}

func (stubAssumptionMapper) Map(_ context.Context, _ IntentGraph) ([]Assumption, error) {
	return nil, nil
}

type stubRiskChallenger struct{}

func (stubRiskChallenger) Challenge(_ context.Context, _ []Assumption) ([]FailureHypothesis, error) {
	return nil, nil
}

type stubClarifyGenerator struct{}

func (stubClarifyGenerator) Generate(_ context.Context, _ IntentGraph, _ []Assumption, _ []FailureHypothesis) (ClarificationRound, error) {
	return ClarificationRound{}, nil
}

type stubSpecSynthesizer struct{}

func (stubSpecSynthesizer) Synthesize(_ context.Context, rawText string, _ IntentGraph, assumptions []Assumption, risks []FailureHypothesis, answers map[string]string) (SpecDraft, error) {
	return SpecDraft{Goal: rawText, Assumptions: assumptions, Risks: risks, Answers: answers}, nil
}

type stubRefereeComparer struct{}

func (stubRefereeComparer) Compare(_ context.Context, drafts []SpecDraft) (SpecDraft, error) {
	if len(drafts) == 0 {
		return SpecDraft{}, nil
	}
	return drafts[len(drafts)-1], nil
}

type stubGuardGate struct{}

func (stubGuardGate) Evaluate(_ context.Context, _ SpecDraft, risks []FailureHypothesis) (GateResult, error) {
	for _, r := range risks {
		if r.Severity == "high" {
			return GateResult{Passed: true, Outcome: "EXECUTION_READY_WITH_RISKS"}, nil
		}
	}
	return GateResult{Passed: true, Outcome: "EXECUTION_READY"}, nil
}
