package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/actionclass"
	"github.com/colonyforge/core/internal/engine/inmem"
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/orchestrator"
	"github.com/colonyforge/core/internal/pipeline"
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

func simplePlan() orchestrator.TaskPlan {
	return orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{
			{TaskID: "t1", Goal: "read the config file"},
		},
		Reasoning: "test plan",
	}
}

func noopExec(ctx context.Context, taskID, goal string, contextData map[string]any) (orchestrator.TaskResult, error) {
	return orchestrator.TaskResult{Status: orchestrator.TaskStatusCompleted}, nil
}

func TestPipelineRunHappyPath(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ReportOnly)

	result, err := p.Run(context.Background(), simplePlan(), noopExec, "colony-1", "run-1", "read the config file", nil, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedCount)
	assert.Contains(t, ar.types(), events.PipelineStarted)
	assert.Contains(t, ar.types(), events.PipelineCompleted)
}

func TestPipelineRunWithEngineMatchesInProcessResult(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.NewWithEngine(ar, actionclass.ReportOnly, inmem.New())

	result, err := p.Run(context.Background(), simplePlan(), noopExec, "colony-1", "run-1", "read the config file", nil, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedCount)
	assert.Contains(t, ar.types(), events.PipelineCompleted)
}

func TestPipelineRunEmitsFallbackEvent(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ReportOnly)

	_, err := p.Run(context.Background(), simplePlan(), noopExec, "colony-1", "run-1", "read the config file", nil, true)

	require.NoError(t, err)
	assert.Contains(t, ar.types(), events.PlanFallbackActivated)
}

func TestPipelineRunFailsValidationOnEmptyPlan(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ReportOnly)

	emptyPlan := orchestrator.TaskPlan{}
	_, err := p.Run(context.Background(), emptyPlan, noopExec, "colony-1", "run-1", "goal", nil, false)

	var validationErr *pipeline.ErrPlanValidationFailed
	assert.ErrorAs(t, err, &validationErr)
	assert.Contains(t, ar.types(), events.PlanValidationFailed)
}

func TestPipelineRunRequiresApprovalForIrreversiblePlanUnderProposeConfirm(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ProposeConfirm)

	dangerousPlan := orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{{TaskID: "t1", Goal: "delete the production database"}},
	}

	_, err := p.Run(context.Background(), dangerousPlan, noopExec, "colony-1", "run-1", "delete the production database", nil, false)

	var approvalErr *pipeline.ErrApprovalRequired
	require.ErrorAs(t, err, &approvalErr)
	assert.NotEmpty(t, approvalErr.Request.RequestID)
	assert.Contains(t, ar.types(), events.PlanApprovalRequired)
}

func TestPipelineResumeWithApprovalExecutesPendingPlan(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ProposeConfirm)

	dangerousPlan := orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{{TaskID: "t1", Goal: "delete the production database"}},
	}

	_, err := p.Run(context.Background(), dangerousPlan, noopExec, "colony-1", "run-1", "delete the production database", nil, false)
	var approvalErr *pipeline.ErrApprovalRequired
	require.ErrorAs(t, err, &approvalErr)

	result, err := p.ResumeWithApproval(context.Background(), approvalErr.Request.RequestID, true, "operator approved")
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedCount)
}

func TestPipelineResumeWithRejectionReturnsRejectedError(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ProposeConfirm)

	dangerousPlan := orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{{TaskID: "t1", Goal: "delete the production database"}},
	}
	_, err := p.Run(context.Background(), dangerousPlan, noopExec, "colony-1", "run-1", "delete the production database", nil, false)
	var approvalErr *pipeline.ErrApprovalRequired
	require.ErrorAs(t, err, &approvalErr)

	_, err = p.ResumeWithApproval(context.Background(), approvalErr.Request.RequestID, false, "too risky")
	var rejectedErr *pipeline.ErrPlanRejected
	assert.ErrorAs(t, err, &rejectedErr)
}

func TestPipelineDelegatedTrustLevelNeverRequiresApproval(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.Delegated)

	dangerousPlan := orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{{TaskID: "t1", Goal: "delete the production database"}},
	}

	result, err := p.Run(context.Background(), dangerousPlan, noopExec, "colony-1", "run-1", "delete the production database", nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedCount)
}

func TestPipelinePropagatesOrchestratorError(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ReportOnly)

	plan := orchestrator.TaskPlan{
		Tasks: []orchestrator.PlannedTask{
			{TaskID: "t1", Goal: "a", DependsOn: []string{"t2"}},
			{TaskID: "t2", Goal: "b", DependsOn: []string{"t1"}},
		},
	}
	_, err := p.Run(context.Background(), plan, noopExec, "colony-1", "run-1", "a and b", nil, false)
	assert.Error(t, err)
}

func TestPipelineRunCountsFailuresInResult(t *testing.T) {
	ar := &fakeAppender{}
	p := pipeline.New(ar, actionclass.ReportOnly)

	plan := orchestrator.TaskPlan{Tasks: []orchestrator.PlannedTask{{TaskID: "t1", Goal: "read the readme"}}}
	result, err := p.Run(context.Background(), plan, func(ctx context.Context, taskID, goal string, contextData map[string]any) (orchestrator.TaskResult, error) {
		return orchestrator.TaskResult{}, errors.New("tool failure")
	}, "colony-1", "run-1", "read the readme", nil, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedCount)
}
