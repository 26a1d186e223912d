// Package pipeline drives a TaskPlan from validation through approval,
// execution, and result aggregation, recording every stage as an AR event.
package pipeline

import (
	"fmt"

	"github.com/colonyforge/core/internal/actionclass"
	"github.com/colonyforge/core/internal/orchestrator"
)

// ApprovalDecision is a pre-supplied or resumed approval/rejection.
type ApprovalDecision struct {
	Approved bool
	Reason   string
}

// ApprovalRequest describes a plan awaiting confirmation. RequestID is
// assigned by the Pipeline when it persists the pending request.
type ApprovalRequest struct {
	RequestID    string
	ActionClass  actionclass.Class
	TrustLevel   actionclass.TrustLevel
	TaskCount    int
	OriginalGoal string
}

// EventPayload flattens the request for the plan.approval_required event.
func (r ApprovalRequest) EventPayload() map[string]any {
	return map[string]any{
		"request_id":    r.RequestID,
		"action_class":  string(r.ActionClass),
		"trust_level":   string(r.TrustLevel),
		"task_count":    r.TaskCount,
		"original_goal": r.OriginalGoal,
	}
}

// classifyPlan derives a plan's action class as the most severe class among
// its tasks' inferred tool use; absent any tool hints, a plan defaults to
// Reversible (spec §4.6 classifies the *plan's* action class, not
// individual tool calls, so this is a conservative aggregate).
func classifyPlan(plan orchestrator.TaskPlan) actionclass.Class {
	worst := actionclass.ReadOnly
	for _, t := range plan.Tasks {
		c := actionclass.Classify(t.Goal, nil)
		if severity(c) > severity(worst) {
			worst = c
		}
	}
	return worst
}

func severity(c actionclass.Class) int {
	switch c {
	case actionclass.Irreversible:
		return 2
	case actionclass.Reversible:
		return 1
	default:
		return 0
	}
}

// checkApproval decides whether plan requires confirmation under
// trustLevel: only PROPOSE_CONFIRM gates IRREVERSIBLE actions (spec §4.6).
func checkApproval(plan orchestrator.TaskPlan, trustLevel actionclass.TrustLevel, originalGoal string) ApprovalRequest {
	class := classifyPlan(plan)
	requires := trustLevel == actionclass.ProposeConfirm && class == actionclass.Irreversible
	req := ApprovalRequest{
		ActionClass:  class,
		TrustLevel:   trustLevel,
		TaskCount:    len(plan.Tasks),
		OriginalGoal: originalGoal,
	}
	if requires {
		req.RequestID = fmt.Sprintf("approval-%s", newID())
	}
	return req
}

func (r ApprovalRequest) requiresApproval() bool { return r.RequestID != "" }
