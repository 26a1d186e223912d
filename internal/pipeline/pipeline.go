package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/colonyforge/core/internal/actionclass"
	"github.com/colonyforge/core/internal/engine"
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/guard"
	"github.com/colonyforge/core/internal/orchestrator"
)

// durableWorkflowName and durableActivityName identify the workflow/activity
// a Pipeline with an Engine registers to run a colony's plan durably.
const (
	durableWorkflowName = "colonyforge.pipeline.execute_plan"
	durableActivityName = "colonyforge.pipeline.execute_task"
)

// durableInput is the input to the colonyforge.pipeline.execute_plan workflow.
type durableInput struct {
	Plan         orchestrator.TaskPlan
	OriginalGoal string
	RunID        string
}

// ErrPlanValidationFailed reports a Guard FAIL verdict on the plan.
type ErrPlanValidationFailed struct {
	Report guard.Report
}

func (e *ErrPlanValidationFailed) Error() string {
	return fmt.Sprintf("pipeline: plan validation failed: %s", e.Report.Verdict)
}

// ErrApprovalRequired reports that the plan's action class requires
// confirmation before execution can proceed.
type ErrApprovalRequired struct {
	Request ApprovalRequest
}

func (e *ErrApprovalRequired) Error() string {
	return fmt.Sprintf("pipeline: approval required for %s plan (trust_level=%s)", e.Request.ActionClass, e.Request.TrustLevel)
}

// ErrPlanRejected reports that a pending approval was explicitly rejected.
type ErrPlanRejected struct {
	Reason string
}

func (e *ErrPlanRejected) Error() string {
	return fmt.Sprintf("pipeline: plan rejected: %s", e.Reason)
}

// Appender is the subset of ar.Vault the Pipeline needs.
type Appender interface {
	Append(ctx context.Context, event events.Event, streamID string) (events.Event, error)
}

// Pipeline drives a TaskPlan through Validate -> Approve -> Execute ->
// Aggregate, recording every stage to the AR (spec §4.6).
type Pipeline struct {
	ar           Appender
	trustLevel   actionclass.TrustLevel
	verifier     *guard.Verifier
	orchestrator *orchestrator.Orchestrator

	pending map[string]pendingRun

	// eng, when non-nil, makes Run execute the orchestrator's DAG as a
	// durable engine.Engine workflow (internal/engine) instead of running
	// it directly in-process. Unset by default: the in-process path
	// (orchestrator.ExecutePlan) needs no engine at all.
	eng          engine.Engine
	registerOnce sync.Once
	registerErr  error

	execFnMu sync.Mutex
	execFns  map[string]orchestrator.ExecuteFunc
}

type pendingRun struct {
	runID        string
	colonyID     string
	originalGoal string
	plan         orchestrator.TaskPlan
	isFallback   bool
	execFn       orchestrator.ExecuteFunc
}

// New constructs a Pipeline backed by ar, gating IRREVERSIBLE plans
// according to trustLevel. Plans run in-process through the Orchestrator
// directly; use NewWithEngine for durable execution.
func New(ar Appender, trustLevel actionclass.TrustLevel) *Pipeline {
	return &Pipeline{
		ar:           ar,
		trustLevel:   trustLevel,
		verifier:     guard.NewPlanVerifier(),
		orchestrator: orchestrator.New(),
		pending:      map[string]pendingRun{},
	}
}

// NewWithEngine constructs a Pipeline that runs each plan's DAG as a
// workflow on eng (internal/engine) instead of driving the Orchestrator
// directly, so a colony's run can durably resume mid-plan after a process
// restart when eng is backed by internal/engine/temporal. The in-process
// internal/engine/inmem adapter is also accepted, for parity testing
// against the default New path.
func NewWithEngine(ar Appender, trustLevel actionclass.TrustLevel, eng engine.Engine) *Pipeline {
	p := New(ar, trustLevel)
	p.eng = eng
	p.execFns = map[string]orchestrator.ExecuteFunc{}
	return p
}

// ensureRegistered registers the durable workflow/activity with p.eng the
// first time a durable Run executes. Safe to call repeatedly.
func (p *Pipeline) ensureRegistered(ctx context.Context) error {
	p.registerOnce.Do(func() {
		p.registerErr = p.eng.RegisterActivity(ctx, engine.ActivityDefinition{
			Name:    durableActivityName,
			Handler: p.runTaskActivity,
		})
		if p.registerErr != nil {
			return
		}
		p.registerErr = p.eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
			Name:    durableWorkflowName,
			Handler: p.runPlanWorkflow,
		})
	})
	return p.registerErr
}

// runPlanWorkflow is the engine.WorkflowFunc registered under
// durableWorkflowName: it drives the same Kahn-layer algorithm as
// orchestrator.ExecutePlan, but dispatches each task as a durable activity.
func (p *Pipeline) runPlanWorkflow(wfCtx engine.WorkflowContext, input any) (any, error) {
	in := input.(durableInput)
	return p.orchestrator.ExecutePlanDurable(wfCtx, in.Plan, durableActivityName, in.OriginalGoal, in.RunID)
}

// runTaskActivity is the engine.ActivityFunc registered under
// durableActivityName: it looks up the real ExecuteFunc for the task's run
// (stashed by runDurable before starting the workflow) and invokes it.
func (p *Pipeline) runTaskActivity(ctx context.Context, input any) (any, error) {
	in := input.(orchestrator.TaskActivityInput)
	p.execFnMu.Lock()
	execFn, ok := p.execFns[in.RunID]
	p.execFnMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("pipeline: no execute function registered for run %q", in.RunID)
	}
	return execFn(ctx, in.TaskID, in.Goal, in.ContextData)
}

// Run executes plan for colonyID/runID under originalGoal, through the full
// gate pipeline. approvalDecision, if non-nil, is consulted instead of
// pausing on an approval-required plan.
func (p *Pipeline) Run(
	ctx context.Context,
	plan orchestrator.TaskPlan,
	execFn orchestrator.ExecuteFunc,
	colonyID, runID, originalGoal string,
	approvalDecision *ApprovalDecision,
	isFallback bool,
) (ColonyResult, error) {
	actor := fmt.Sprintf("pipeline-%s", colonyID)

	if err := p.record(ctx, runID, events.PipelineStarted, actor, map[string]any{
		"original_goal": originalGoal,
		"task_count":    len(plan.Tasks),
		"is_fallback":   isFallback,
	}); err != nil {
		return ColonyResult{}, fmt.Errorf("pipeline: record pipeline.started: %w", err)
	}

	if isFallback {
		if err := p.record(ctx, runID, events.PlanFallbackActivated, actor, map[string]any{
			"original_goal": originalGoal,
			"reasoning":     plan.Reasoning,
			"task_count":    len(plan.Tasks),
		}); err != nil {
			return ColonyResult{}, fmt.Errorf("pipeline: record plan.fallback_activated: %w", err)
		}
	}

	report := p.verifier.Verify(guard.Input{
		OriginalGoal: originalGoal,
		TaskIDs:      taskIDs(plan),
		TaskGoals:    taskGoals(plan),
		DependsOn:    dependsOn(plan),
	})
	if report.Verdict == guard.VerdictFail {
		payload := guard.ReportPayload(report)
		payload["original_goal"] = originalGoal
		if err := p.record(ctx, runID, events.PlanValidationFailed, actor, payload); err != nil {
			return ColonyResult{}, fmt.Errorf("pipeline: record plan.validation_failed: %w", err)
		}
		return ColonyResult{}, &ErrPlanValidationFailed{Report: report}
	}

	approvalReq := checkApproval(plan, p.trustLevel, originalGoal)
	if approvalReq.requiresApproval() && (approvalDecision == nil || !approvalDecision.Approved) {
		p.pending[approvalReq.RequestID] = pendingRun{
			runID: runID, colonyID: colonyID, originalGoal: originalGoal,
			plan: plan, isFallback: isFallback, execFn: execFn,
		}
		if err := p.record(ctx, runID, events.PlanApprovalRequired, actor, approvalReq.EventPayload()); err != nil {
			return ColonyResult{}, fmt.Errorf("pipeline: record plan.approval_required: %w", err)
		}
		return ColonyResult{}, &ErrApprovalRequired{Request: approvalReq}
	}

	tc, err := p.executePlan(ctx, plan, execFn, originalGoal, runID)
	if err != nil {
		return ColonyResult{}, err
	}

	result := BuildColonyResult(tc, colonyID)
	if err := p.record(ctx, runID, events.PipelineCompleted, actor, result.EventData()); err != nil {
		return ColonyResult{}, fmt.Errorf("pipeline: record pipeline.completed: %w", err)
	}
	return result, nil
}

// ResumeWithApproval re-enters the pipeline for a previously paused
// requestID with the given decision. A rejection returns ErrPlanRejected
// without touching the orchestrator.
func (p *Pipeline) ResumeWithApproval(ctx context.Context, requestID string, approved bool, reason string) (ColonyResult, error) {
	pending, ok := p.pending[requestID]
	if !ok {
		return ColonyResult{}, fmt.Errorf("pipeline: unknown approval request %q", requestID)
	}
	delete(p.pending, requestID)

	if !approved {
		return ColonyResult{}, &ErrPlanRejected{Reason: reason}
	}

	decision := &ApprovalDecision{Approved: true, Reason: reason}
	return p.Run(ctx, pending.plan, pending.execFn, pending.colonyID, pending.runID, pending.originalGoal, decision, pending.isFallback)
}

// executePlan runs plan's DAG either directly in-process (the default) or,
// when p.eng is set, as a durable workflow on that engine.
func (p *Pipeline) executePlan(
	ctx context.Context,
	plan orchestrator.TaskPlan,
	execFn orchestrator.ExecuteFunc,
	originalGoal, runID string,
) (*orchestrator.TaskContext, error) {
	if p.eng == nil {
		return p.orchestrator.ExecutePlan(ctx, plan, execFn, originalGoal, runID)
	}

	if err := p.ensureRegistered(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: register durable workflow: %w", err)
	}

	p.execFnMu.Lock()
	p.execFns[runID] = execFn
	p.execFnMu.Unlock()
	defer func() {
		p.execFnMu.Lock()
		delete(p.execFns, runID)
		p.execFnMu.Unlock()
	}()

	handle, err := p.eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       runID,
		Workflow: durableWorkflowName,
		Input:    durableInput{Plan: plan, OriginalGoal: originalGoal, RunID: runID},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: start durable workflow: %w", err)
	}

	var tc *orchestrator.TaskContext
	if err := handle.Wait(ctx, &tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// record appends an audit event to the AR and surfaces any storage error to
// the caller (spec §7: storage errors are surfaced, never swallowed).
func (p *Pipeline) record(ctx context.Context, runID string, typ events.Type, actor string, payload map[string]any) error {
	evt := events.New(typ, actor, runID, payload)
	_, err := p.ar.Append(ctx, evt, runID)
	return err
}

func taskIDs(plan orchestrator.TaskPlan) []string {
	ids := make([]string, len(plan.Tasks))
	for i, t := range plan.Tasks {
		ids[i] = t.TaskID
	}
	return ids
}

func taskGoals(plan orchestrator.TaskPlan) []string {
	goals := make([]string, len(plan.Tasks))
	for i, t := range plan.Tasks {
		goals[i] = t.Goal
	}
	return goals
}

func dependsOn(plan orchestrator.TaskPlan) map[string][]string {
	deps := make(map[string][]string, len(plan.Tasks))
	for _, t := range plan.Tasks {
		deps[t.TaskID] = t.DependsOn
	}
	return deps
}
