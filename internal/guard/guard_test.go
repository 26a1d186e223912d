package guard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/guard"
)

func TestPlanVerifierPassesWellFormedPlan(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "add a login page with email validation",
		TaskIDs:      []string{"t1", "t2"},
		TaskGoals:    []string{"add login page UI", "add email validation logic"},
		DependsOn:    map[string][]string{"t2": {"t1"}},
	})
	assert.Equal(t, guard.VerdictPass, report.Verdict)
}

func TestPlanVerifierFailsOnEmptyPlan(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{OriginalGoal: "do something"})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestPlanVerifierFailsOnDuplicateTaskIDs(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "do x",
		TaskIDs:      []string{"t1", "t1"},
		TaskGoals:    []string{"do x", "do x again"},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestPlanVerifierFailsOnUnresolvedDependency(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "do x",
		TaskIDs:      []string{"t1"},
		TaskGoals:    []string{"do x"},
		DependsOn:    map[string][]string{"t1": {"ghost"}},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestPlanVerifierFailsOnCycle(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "do x",
		TaskIDs:      []string{"t1", "t2"},
		TaskGoals:    []string{"do x", "do y"},
		DependsOn:    map[string][]string{"t1": {"t2"}, "t2": {"t1"}},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestPlanVerifierFailsOnEmptyGoal(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "do x",
		TaskIDs:      []string{"t1"},
		TaskGoals:    []string{""},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestPlanVerifierConditionalPassOnLowGoalCoverage(t *testing.T) {
	v := guard.NewPlanVerifier()
	report := v.Verify(guard.Input{
		OriginalGoal: "migrate the billing database to postgres with zero downtime",
		TaskIDs:      []string{"t1"},
		TaskGoals:    []string{"write unrelated documentation"},
	})
	assert.Equal(t, guard.VerdictConditionalPass, report.Verdict)
}

func TestEvidenceVerifierPassesValidEvidence(t *testing.T) {
	v := guard.NewEvidenceVerifier()
	report := v.Verify(guard.Input{
		Evidence: []guard.Evidence{
			{EvidenceType: "test_result", Source: "ci", Content: map[string]any{"passed": true}},
		},
	})
	assert.Equal(t, guard.VerdictPass, report.Verdict)
}

func TestEvidenceVerifierFailsOnMissingSource(t *testing.T) {
	v := guard.NewEvidenceVerifier()
	report := v.Verify(guard.Input{
		Evidence: []guard.Evidence{
			{EvidenceType: "test_result", Content: map[string]any{}},
		},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

func TestEvidenceVerifierFailsOnUnknownEvidenceType(t *testing.T) {
	v := guard.NewEvidenceVerifier()
	report := v.Verify(guard.Input{
		Evidence: []guard.Evidence{
			{EvidenceType: "bogus", Source: "ci", Content: map[string]any{}},
		},
	})
	assert.Equal(t, guard.VerdictFail, report.Verdict)
}

type fakeAppender struct {
	events []events.Event
}

func (f *fakeAppender) Append(ctx context.Context, event events.Event, streamID string) (events.Event, error) {
	f.events = append(f.events, event)
	return event, nil
}

func TestVerifyAndEmitAppendsMatchingEvent(t *testing.T) {
	v := guard.NewPlanVerifier()
	appender := &fakeAppender{}

	report, err := v.VerifyAndEmit(context.Background(), guard.Input{
		OriginalGoal: "add login",
		TaskIDs:      []string{"t1"},
		TaskGoals:    []string{"add login page"},
	}, appender, "guard", "run-1")

	require.NoError(t, err)
	assert.Equal(t, guard.VerdictPass, report.Verdict)
	require.Len(t, appender.events, 1)
	assert.Equal(t, events.GuardPassed, appender.events[0].Type)
}

func TestEventForVerdictMapsAllThree(t *testing.T) {
	assert.Equal(t, events.GuardPassed, guard.EventForVerdict(guard.VerdictPass))
	assert.Equal(t, events.GuardConditionalPassed, guard.EventForVerdict(guard.VerdictConditionalPass))
	assert.Equal(t, events.GuardFailed, guard.EventForVerdict(guard.VerdictFail))
}
