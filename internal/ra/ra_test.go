package ra_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
	"github.com/colonyforge/core/internal/ra"
)

type fakeAppender struct {
	events []events.Event
}

func (f *fakeAppender) Append(ctx context.Context, event events.Event, streamID string) (events.Event, error) {
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeAppender) types() []events.Type {
	types := make([]events.Type, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

func runToTerminal(t *testing.T, o *ra.Orchestrator) {
	t.Helper()
	for i := 0; !o.IsTerminal(); i++ {
		require.NoError(t, o.Step(context.Background()))
		require.Less(t, i, 50, "pipeline did not reach a terminal state")
	}
}

func TestStubPipelineReachesExecutionReady(t *testing.T) {
	ar := &fakeAppender{}
	o := ra.NewOrchestrator(ar, "run-1", ra.Components{})

	require.NoError(t, o.Intake(context.Background(), "write hello.txt"))
	runToTerminal(t, o)

	assert.Equal(t, projection.RAExecutionReady, o.Current())
	assert.True(t, o.IsComplete())
}

func TestPipelineRecordsEventsInOrderForNoUnknownsPath(t *testing.T) {
	ar := &fakeAppender{}
	o := ra.NewOrchestrator(ar, "run-1", ra.Components{})

	require.NoError(t, o.Intake(context.Background(), "write hello.txt"))
	runToTerminal(t, o)

	types := ar.types()
	require.Contains(t, types, events.RAIntakeReceived)
	require.Contains(t, types, events.RATriageCompleted)
	require.Contains(t, types, events.RAContextEnriched)
	require.Contains(t, types, events.RAHypothesisBuilt)
	require.Contains(t, types, events.RAClarifyGenerated)
	require.Contains(t, types, events.RASpecSynthesized)
	require.Contains(t, types, events.RAChallengeReviewed)
	require.Contains(t, types, events.RAGateDecided)
	require.Contains(t, types, events.RACompleted)

	assert.Less(t, indexOf(types, events.RAIntakeReceived), indexOf(types, events.RATriageCompleted))
	assert.Less(t, indexOf(types, events.RAContextEnriched), indexOf(types, events.RAHypothesisBuilt))
	assert.Less(t, indexOf(types, events.RAGateDecided), indexOf(types, events.RACompleted))
}

func indexOf(types []events.Type, t events.Type) int {
	for i, v := range types {
		if v == t {
			return i
		}
	}
	return -1
}

// TestClarifyLoopWithUserAnswer reproduces spec §8 scenario S6: a
// ClarifyGenerator that asks one question and an AskUser that answers it.
func TestClarifyLoopWithUserAnswer(t *testing.T) {
	ar := &fakeAppender{}

	miner := intentWithUnknowns{unknowns: []string{"auth method"}}
	clarify := oneQuestionClarifier{question: "OAuth2を使用しますか？"}

	var askedQuestion string
	askUser := func(ctx context.Context, question string, options []string) (string, error) {
		askedQuestion = question
		return "いいえ", nil
	}

	o := ra.NewOrchestrator(ar, "run-1", ra.Components{
		IntentMiner:      miner,
		ClarifyGenerator: clarify,
		AskUser:          askUser,
	})

	require.NoError(t, o.Intake(context.Background(), "ログイン機能を作って"))
	runToTerminal(t, o)

	assert.Equal(t, "OAuth2を使用しますか？", askedQuestion)
	require.Len(t, o.Answers(), 1)
	for _, answer := range o.Answers() {
		assert.Equal(t, "いいえ", answer)
	}
	assert.Equal(t, projection.RAExecutionReady, o.Current())

	types := ar.types()
	require.Contains(t, types, events.RAWebSkipped)
	require.Contains(t, types, events.RAUserResponded)
	assert.Less(t, indexOf(types, events.RAClarifyGenerated), indexOf(types, events.RAUserResponded))
	assert.Less(t, indexOf(types, events.RAUserResponded), indexOf(types, events.RASpecSynthesized))
}

type intentWithUnknowns struct {
	unknowns []string
}

func (i intentWithUnknowns) Mine(ctx context.Context, rawText string, context map[string]any) (ra.IntentGraph, error) {
	return ra.IntentGraph{Goals: []string{rawText}, OpenUnknowns: i.unknowns}, nil
}

type oneQuestionClarifier struct {
	question string
}

func (c oneQuestionClarifier) Generate(ctx context.Context, intent ra.IntentGraph, assumptions []ra.Assumption, risks []ra.FailureHypothesis) (ra.ClarificationRound, error) {
	return ra.ClarificationRound{Questions: []ra.ClarificationQuestion{{Text: c.question}}}, nil
}

func TestGuardGateFailureLoopsBackToClarify(t *testing.T) {
	ar := &fakeAppender{}
	gate := &toggleGate{failFirst: true}
	o := ra.NewOrchestrator(ar, "run-1", ra.Components{GuardGate: gate})

	require.NoError(t, o.Intake(context.Background(), "build something"))
	runToTerminal(t, o)

	assert.GreaterOrEqual(t, gate.calls, 2)
	assert.Equal(t, projection.RAExecutionReady, o.Current())
}

type toggleGate struct {
	failFirst bool
	calls     int
}

func (g *toggleGate) Evaluate(ctx context.Context, draft ra.SpecDraft, risks []ra.FailureHypothesis) (ra.GateResult, error) {
	g.calls++
	if g.failFirst && g.calls == 1 {
		return ra.GateResult{Passed: false, Outcome: "FAIL", RequiredActions: []string{"clarify scope"}}, nil
	}
	return ra.GateResult{Passed: true, Outcome: "EXECUTION_READY"}, nil
}

func TestAbandonOutcomeReachesTerminalAbandonedState(t *testing.T) {
	ar := &fakeAppender{}
	o := ra.NewOrchestrator(ar, "run-1", ra.Components{GuardGate: abandonGate{}})

	require.NoError(t, o.Intake(context.Background(), "do something vague"))
	runToTerminal(t, o)

	assert.Equal(t, projection.RAAbandoned, o.Current())
	assert.False(t, o.IsComplete())
}

type abandonGate struct{}

func (abandonGate) Evaluate(ctx context.Context, draft ra.SpecDraft, risks []ra.FailureHypothesis) (ra.GateResult, error) {
	return ra.GateResult{Passed: true, Outcome: "ABANDONED"}, nil
}

func TestExecutionReadyWithRisksOnHighSeverityRisk(t *testing.T) {
	ar := &fakeAppender{}
	o := ra.NewOrchestrator(ar, "run-1", ra.Components{
		RiskChallenger: fixedRiskChallenger{risks: []ra.FailureHypothesis{{Text: "data loss", Severity: "high"}}},
	})

	require.NoError(t, o.Intake(context.Background(), "migrate the database"))
	runToTerminal(t, o)

	assert.Equal(t, projection.RAExecutionReadyWithRisks, o.Current())
}

type fixedRiskChallenger struct {
	risks []ra.FailureHypothesis
}

func (c fixedRiskChallenger) Challenge(ctx context.Context, assumptions []ra.Assumption) ([]ra.FailureHypothesis, error) {
	return c.risks, nil
}

func TestLLMContextForagerFallsBackToStubWithoutRunner(t *testing.T) {
	forager := ra.NewLLMContextForager(nil)
	evidence, err := forager.Gather(context.Background(), "goal")
	require.NoError(t, err)
	assert.Empty(t, evidence)
}

type fakeRunner struct{ output string }

func (r fakeRunner) Run(ctx context.Context, prompt string) (string, error) { return r.output, nil }

func TestLLMContextForagerUsesRunnerOutput(t *testing.T) {
	forager := ra.NewLLMContextForager(fakeRunner{output: "past run X succeeded"})
	evidence, err := forager.Gather(context.Background(), "goal")
	require.NoError(t, err)
	assert.Equal(t, "past run X succeeded", evidence["evidence"])
}
