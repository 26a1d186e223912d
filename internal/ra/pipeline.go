package ra

import (
	"context"

	"github.com/google/uuid"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
	"github.com/colonyforge/core/internal/statemachine"
)

// Appender records one ra.* event per state transition to the AR.
type Appender interface {
	Append(ctx context.Context, event events.Event, streamID string) (events.Event, error)
}

// Components bundles every injectable collaborator. A zero-value field
// falls back to the corresponding stub, keeping the pipeline drivable
// without any real LLM dependency.
type Components struct {
	Scorer           Scorer
	ContextForager   ContextForager
	WebResearcher    WebResearcher
	IntentMiner      IntentMiner
	AssumptionMapper AssumptionMapper
	RiskChallenger   RiskChallenger
	ClarifyGenerator ClarifyGenerator
	SpecSynthesizer  SpecSynthesizer
	RefereeComparer  RefereeComparer
	GuardGate        GuardGate
	AskUser          AskUser
}

func (c Components) resolve() Components {
	if c.Scorer == nil {
		c.Scorer = stubScorer{}
	}
	if c.ContextForager == nil {
		c.ContextForager = stubContextForager{}
	}
	if c.WebResearcher == nil {
		c.WebResearcher = stubWebResearcher{}
	}
	if c.IntentMiner == nil {
		c.IntentMiner = stubIntentMiner{}
	}
	if c.AssumptionMapper == nil {
		c.AssumptionMapper = stubAssumptionMapper{}
	}
	if c.RiskChallenger == nil {
		c.RiskChallenger = stubRiskChallenger{}
	}
	if c.ClarifyGenerator == nil {
		c.ClarifyGenerator = stubClarifyGenerator{}
	}
	if c.SpecSynthesizer == nil {
		c.SpecSynthesizer = stubSpecSynthesizer{}
	}
	if c.RefereeComparer == nil {
		c.RefereeComparer = stubRefereeComparer{}
	}
	if c.GuardGate == nil {
		c.GuardGate = stubGuardGate{}
	}
	return c
}

// Orchestrator drives a single goal through intake and repeated Step calls
// until a terminal state is reached (spec §4.9).
type Orchestrator struct {
	sm         *statemachine.RA
	components Components
	ar         Appender
	runID      string

	rawText         string
	score           AmbiguityScore
	context         map[string]any
	intent          IntentGraph
	assumptions     []Assumption
	risks           []FailureHypothesis
	rounds          []ClarificationRound
	drafts          []SpecDraft
	answers         map[string]string
	gateResult      *GateResult
	webResearchSeen bool
}

// NewOrchestrator constructs an Orchestrator. Unset Components fields use
// stub collaborators.
func NewOrchestrator(ar Appender, runID string, components Components) *Orchestrator {
	return &Orchestrator{
		sm:         statemachine.NewRA(),
		components: components.resolve(),
		ar:         ar,
		runID:      runID,
		context:    map[string]any{},
		answers:    map[string]string{},
	}
}

// Current reports the RA process's current state.
func (o *Orchestrator) Current() projection.RAState { return o.sm.Current() }

// IsTerminal reports whether the pipeline has reached EXECUTION_READY,
// EXECUTION_READY_WITH_RISKS, or ABANDONED.
func (o *Orchestrator) IsTerminal() bool {
	switch o.sm.Current() {
	case projection.RAExecutionReady, projection.RAExecutionReadyWithRisks, projection.RAAbandoned:
		return true
	default:
		return false
	}
}

// IsComplete reports whether the pipeline reached a terminal state other
// than ABANDONED.
func (o *Orchestrator) IsComplete() bool {
	return o.IsTerminal() && o.sm.Current() != projection.RAAbandoned
}

// AnalysisPath returns the path chosen at intake.
func (o *Orchestrator) AnalysisPath() AnalysisPath { return o.score.Path }

// SpecDraft returns the last synthesized draft, if any.
func (o *Orchestrator) SpecDraft() (SpecDraft, bool) {
	if len(o.drafts) == 0 {
		return SpecDraft{}, false
	}
	return o.drafts[len(o.drafts)-1], true
}

// GateResult returns the guard gate's verdict, if rendered yet.
func (o *Orchestrator) GateResult() (GateResult, bool) {
	if o.gateResult == nil {
		return GateResult{}, false
	}
	return *o.gateResult, true
}

func newID() string { return uuid.Must(uuid.NewV7()).String() }

func (o *Orchestrator) record(ctx context.Context, typ events.Type, payload map[string]any) (events.Event, error) {
	evt := events.New(typ, "ra", o.runID, payload)
	if o.ar != nil {
		return o.ar.Append(ctx, evt, o.runID)
	}
	return evt, nil
}

func (o *Orchestrator) transition(ctx context.Context, typ events.Type, payload map[string]any) error {
	evt, err := o.record(ctx, typ, payload)
	if err != nil {
		return err
	}
	_, err = o.sm.Transition(evt)
	return err
}

// Intake records the raw goal text, scores it, and advances to TRIAGE.
func (o *Orchestrator) Intake(ctx context.Context, rawText string) error {
	o.rawText = rawText
	if _, err := o.record(ctx, events.RAIntakeReceived, map[string]any{"text": rawText}); err != nil {
		return err
	}
	score, err := o.components.Scorer.Score(ctx, rawText)
	if err != nil {
		return err
	}
	o.score = score
	return o.transition(ctx, events.RATriageCompleted, map[string]any{
		"ambiguity":           score.Ambiguity,
		"context_sufficiency": score.ContextSufficiency,
		"execution_risk":      score.ExecutionRisk,
		"analysis_path":       string(score.Path),
	})
}

// Step dispatches one unit of work for the current state and advances the
// machine. Callers loop `for !o.IsTerminal() { o.Step(ctx) }`.
func (o *Orchestrator) Step(ctx context.Context) error {
	switch o.sm.Current() {
	case projection.RATriage:
		return o.stepContextEnrich(ctx)
	case projection.RAContextEnrich:
		return o.stepIntentAndWebDecision(ctx)
	case projection.RAWebResearch:
		return o.stepBuildHypothesis(ctx)
	case projection.RAHypothesisBuild:
		return o.stepClarifyGenerate(ctx)
	case projection.RAClarifyGen:
		return o.stepPresentOrSynthesize(ctx)
	case projection.RAUserFeedback:
		return o.stepSynthesizeFromAnswers(ctx)
	case projection.RASpecSynthesis:
		return o.stepChallengeReview(ctx)
	case projection.RAChallengeReview:
		return o.stepRefereeOrGate(ctx)
	case projection.RARefereeCompare:
		return o.stepGate(ctx)
	case projection.RAGuardGate:
		return o.stepCompleteOrLoop(ctx)
	default:
		return nil
	}
}

func (o *Orchestrator) stepContextEnrich(ctx context.Context) error {
	evidence, err := o.components.ContextForager.Gather(ctx, o.rawText)
	if err != nil {
		return err
	}
	for k, v := range evidence {
		o.context[k] = v
	}
	return o.transition(ctx, events.RAContextEnriched, map[string]any{"context": o.context})
}

func (o *Orchestrator) stepIntentAndWebDecision(ctx context.Context) error {
	intent, err := o.components.IntentMiner.Mine(ctx, o.rawText, o.context)
	if err != nil {
		return err
	}
	o.intent = intent

	if !intent.hasOpenUnknowns() {
		return o.buildHypothesis(ctx, events.RAHypothesisBuilt)
	}
	if _, isStub := o.components.WebResearcher.(stubWebResearcher); isStub {
		return o.transition(ctx, events.RAWebSkipped, map[string]any{"unknowns": intent.OpenUnknowns})
	}

	result, err := o.components.WebResearcher.Research(ctx, intent.OpenUnknowns)
	if err != nil {
		return err
	}
	for k, v := range result {
		o.context[k] = v
	}
	o.webResearchSeen = true
	return o.transition(ctx, events.RAWebResearched, map[string]any{"unknowns": intent.OpenUnknowns, "result": result})
}

func (o *Orchestrator) stepBuildHypothesis(ctx context.Context) error {
	return o.buildHypothesis(ctx, events.RAHypothesisBuilt)
}

func (o *Orchestrator) buildHypothesis(ctx context.Context, evtType events.Type) error {
	assumptions, err := o.components.AssumptionMapper.Map(ctx, o.intent)
	if err != nil {
		return err
	}
	for i := range assumptions {
		if assumptions[i].ID == "" {
			assumptions[i].ID = newID()
		}
	}
	o.assumptions = assumptions

	risks, err := o.components.RiskChallenger.Challenge(ctx, assumptions)
	if err != nil {
		return err
	}
	for i := range risks {
		if risks[i].ID == "" {
			risks[i].ID = newID()
		}
	}
	o.risks = risks

	return o.transition(ctx, evtType, map[string]any{
		"assumption_count": len(assumptions),
		"risk_count":       len(risks),
	})
}

func (o *Orchestrator) stepClarifyGenerate(ctx context.Context) error {
	round, err := o.components.ClarifyGenerator.Generate(ctx, o.intent, o.assumptions, o.risks)
	if err != nil {
		return err
	}
	for i := range round.Questions {
		if round.Questions[i].QuestionID == "" {
			round.Questions[i].QuestionID = newID()
		}
	}
	o.rounds = append(o.rounds, round)

	questions := make([]string, len(round.Questions))
	for i, q := range round.Questions {
		questions[i] = q.Text
	}
	return o.transition(ctx, events.RAClarifyGenerated, map[string]any{"questions": questions})
}

func (o *Orchestrator) stepPresentOrSynthesize(ctx context.Context) error {
	round := o.rounds[len(o.rounds)-1]
	if len(round.Questions) == 0 || o.components.AskUser == nil {
		return o.synthesize(ctx)
	}

	for _, q := range round.Questions {
		answer, err := o.components.AskUser(ctx, q.Text, q.Options)
		if err != nil {
			return err
		}
		o.answers[q.QuestionID] = answer
	}
	return o.transition(ctx, events.RAUserResponded, map[string]any{"answers": o.answers})
}

func (o *Orchestrator) stepSynthesizeFromAnswers(ctx context.Context) error {
	return o.synthesize(ctx)
}

func (o *Orchestrator) synthesize(ctx context.Context) error {
	draft, err := o.components.SpecSynthesizer.Synthesize(ctx, o.rawText, o.intent, o.assumptions, o.risks, o.answers)
	if err != nil {
		return err
	}
	o.drafts = append(o.drafts, draft)
	return o.transition(ctx, events.RASpecSynthesized, map[string]any{"goal": draft.Goal})
}

func (o *Orchestrator) stepChallengeReview(ctx context.Context) error {
	risks, err := o.components.RiskChallenger.Challenge(ctx, o.assumptions)
	if err != nil {
		return err
	}
	o.risks = risks
	return o.transition(ctx, events.RAChallengeReviewed, map[string]any{"risk_count": len(risks)})
}

func (o *Orchestrator) stepRefereeOrGate(ctx context.Context) error {
	if len(o.drafts) > 1 {
		final, err := o.components.RefereeComparer.Compare(ctx, o.drafts)
		if err != nil {
			return err
		}
		o.drafts = append(o.drafts, final)
		return o.transition(ctx, events.RARefereeCompared, map[string]any{"goal": final.Goal})
	}
	return o.evaluateGate(ctx)
}

func (o *Orchestrator) stepGate(ctx context.Context) error {
	return o.evaluateGate(ctx)
}

func (o *Orchestrator) evaluateGate(ctx context.Context) error {
	draft, _ := o.SpecDraft()
	result, err := o.components.GuardGate.Evaluate(ctx, draft, o.risks)
	if err != nil {
		return err
	}
	o.gateResult = &result
	return o.transition(ctx, events.RAGateDecided, map[string]any{
		"passed":  result.Passed,
		"outcome": result.Outcome,
	})
}

func (o *Orchestrator) stepCompleteOrLoop(ctx context.Context) error {
	if o.gateResult == nil || !o.gateResult.Passed {
		return o.stepClarifyGenerate(ctx)
	}
	return o.transition(ctx, events.RACompleted, map[string]any{"outcome": o.gateResult.Outcome})
}

// Answers returns the user's recorded clarification answers.
func (o *Orchestrator) Answers() map[string]string { return o.answers }

// ClarificationRounds returns every clarification round produced so far.
func (o *Orchestrator) ClarificationRounds() []ClarificationRound { return o.rounds }
