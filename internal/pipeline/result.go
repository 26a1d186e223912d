package pipeline

import (
	"github.com/google/uuid"

	"github.com/colonyforge/core/internal/orchestrator"
)

func newID() string { return uuid.Must(uuid.NewV7()).String() }

// ColonyResult aggregates a completed TaskContext into the shape the
// pipeline.completed event and the caller's response both use.
type ColonyResult struct {
	ColonyID       string
	TotalTasks     int
	CompletedCount int
	FailedCount    int
	SkippedCount   int
	TaskResults    map[string]*orchestrator.TaskResult
}

// BuildColonyResult summarizes tc for colonyID.
func BuildColonyResult(tc *orchestrator.TaskContext, colonyID string) ColonyResult {
	summary := orchestrator.Summarize(tc)
	return ColonyResult{
		ColonyID:       colonyID,
		TotalTasks:     summary.TotalTasks,
		CompletedCount: summary.CompletedCount,
		FailedCount:    summary.FailedCount,
		SkippedCount:   summary.SkippedCount,
		TaskResults:    tc.Results,
	}
}

// EventData flattens the result for the pipeline.completed event payload.
func (r ColonyResult) EventData() map[string]any {
	return map[string]any{
		"colony_id":       r.ColonyID,
		"tasks_total":     r.TotalTasks,
		"tasks_completed": r.CompletedCount,
		"tasks_failed":    r.FailedCount,
		"tasks_skipped":   r.SkippedCount,
	}
}
