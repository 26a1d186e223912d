// Package planner turns a goal and context into a TaskPlan via an LLM
// abstraction, falling back to a single-task plan when the model's output
// can't be parsed.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/colonyforge/core/internal/orchestrator"
)

// LLM is the narrow model abstraction the Planner depends on: a single
// turn that returns raw text, parsed by the planner itself.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// plannedTaskWire is the wire shape the planner expects an LLM response to
// parse into.
type plannedTaskWire struct {
	TaskID    string   `json:"task_id"`
	Goal      string   `json:"goal"`
	DependsOn []string `json:"depends_on"`
}

// Planner decomposes a goal into an orchestrator.TaskPlan.
type Planner struct {
	llm LLM
}

// New constructs a Planner over llm.
func New(llm LLM) *Planner {
	return &Planner{llm: llm}
}

// Result carries the plan plus whether it is a fallback single-task plan
// (spec §4.6: malformed LLM output falls back and emits
// plan.fallback_activated).
type Result struct {
	Plan       orchestrator.TaskPlan
	IsFallback bool
}

// Plan asks the LLM to decompose goal into a TaskPlan, given the current
// AnalysisContext. On malformed or empty output it returns a single-task
// fallback plan covering the whole goal verbatim.
func (p *Planner) Plan(ctx context.Context, goal string, contextData map[string]any) (Result, error) {
	prompt := buildPlanPrompt(goal, contextData)

	raw, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return fallback(goal), nil
	}

	tasks, err := parsePlanResponse(raw)
	if err != nil || len(tasks) == 0 {
		return fallback(goal), nil
	}

	planned := make([]orchestrator.PlannedTask, 0, len(tasks))
	for _, t := range tasks {
		taskID := t.TaskID
		if taskID == "" {
			taskID = newTaskID()
		}
		planned = append(planned, orchestrator.PlannedTask{
			TaskID:    taskID,
			Goal:      t.Goal,
			DependsOn: t.DependsOn,
		})
	}

	return Result{
		Plan: orchestrator.TaskPlan{
			Tasks:     planned,
			Reasoning: fmt.Sprintf("Goal: %s", goal),
		},
	}, nil
}

func fallback(goal string) Result {
	return Result{
		Plan: orchestrator.TaskPlan{
			Tasks:     []orchestrator.PlannedTask{{TaskID: newTaskID(), Goal: goal}},
			Reasoning: fmt.Sprintf("fallback: single task for goal %q", goal),
		},
		IsFallback: true,
	}
}

func newTaskID() string { return uuid.Must(uuid.NewV7()).String() }

func buildPlanPrompt(goal string, contextData map[string]any) string {
	ctxJSON, _ := json.Marshal(contextData)
	return fmt.Sprintf(
		"Decompose the following goal into a JSON array of tasks, each with "+
			"task_id, goal, and depends_on (an array of task_id this task "+
			"requires). Goal: %s\nContext: %s",
		goal, string(ctxJSON),
	)
}

func parsePlanResponse(raw string) ([]plannedTaskWire, error) {
	var tasks []plannedTaskWire
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.Goal == "" {
			return nil, fmt.Errorf("planner: task %q has empty goal", t.TaskID)
		}
	}
	return tasks, nil
}
