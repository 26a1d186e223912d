// Package projection folds Akashic Record event streams into deterministic
// state views. Every projector here is a pure left fold: replaying the same
// events in the same order always yields the same projection (invariant
// IN-4), which is what lets the handler layer rebuild state purely from the
// vault after a crash.
package projection

import (
	"time"

	"github.com/colonyforge/core/internal/events"
)

type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in_progress"
	TaskBlocked    TaskState = "blocked"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
)

type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunAborted   RunState = "aborted"
)

type RequirementState string

const (
	RequirementPending  RequirementState = "pending"
	RequirementApproved RequirementState = "approved"
	RequirementRejected RequirementState = "rejected"
)

// Task is the current state view of a single task, folded from
// task.* events.
type Task struct {
	ID           string
	Title        string
	State        TaskState
	Assignee     string
	Progress     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	Metadata     map[string]any
}

// Requirement is the current state view of a single requirement, folded
// from requirement.* events.
type Requirement struct {
	ID             string
	Description    string
	State          RequirementState
	CreatedAt      time.Time
	DecidedAt      time.Time
	DecidedBy      string
	SelectedOption string
	Comment        string
	Metadata       map[string]any
}

// Run is the current state view of an entire run: its own lifecycle plus
// every task and requirement folded from the run's event stream.
type Run struct {
	ID            string
	Goal          string
	State         RunState
	Tasks         map[string]*Task
	Requirements  map[string]*Requirement
	StartedAt     time.Time
	CompletedAt   time.Time
	LastHeartbeat time.Time
	EventCount    int
	Metadata      map[string]any
}

func newRun(runID, goal string) *Run {
	return &Run{
		ID:           runID,
		Goal:         goal,
		State:        RunRunning,
		Tasks:        map[string]*Task{},
		Requirements: map[string]*Requirement{},
		Metadata:     map[string]any{},
	}
}

func (r *Run) PendingTasks() []*Task     { return r.tasksByState(TaskPending) }
func (r *Run) InProgressTasks() []*Task  { return r.tasksByState(TaskInProgress) }
func (r *Run) CompletedTasks() []*Task   { return r.tasksByState(TaskCompleted) }
func (r *Run) BlockedTasks() []*Task     { return r.tasksByState(TaskBlocked) }

func (r *Run) tasksByState(state TaskState) []*Task {
	var out []*Task
	for _, t := range r.Tasks {
		if t.State == state {
			out = append(out, t)
		}
	}
	return out
}

// PendingRequirements returns every requirement not yet decided.
func (r *Run) PendingRequirements() []*Requirement {
	var out []*Requirement
	for _, req := range r.Requirements {
		if req.State == RequirementPending {
			out = append(out, req)
		}
	}
	return out
}

// ResolvedRequirements returns every requirement that has been decided.
func (r *Run) ResolvedRequirements() []*Requirement {
	var out []*Requirement
	for _, req := range r.Requirements {
		if req.State != RequirementPending {
			out = append(out, req)
		}
	}
	return out
}

// RunProjector incrementally folds events into a Run projection. Apply is a
// pure function of (current projection, next event): re-running the same
// sequence from scratch always reaches the same state.
type RunProjector struct {
	run *Run
}

// NewRunProjector starts a fresh projector for runID.
func NewRunProjector(runID, goal string) *RunProjector {
	return &RunProjector{run: newRun(runID, goal)}
}

// Apply folds a single event into the projection and returns the updated
// Run. Event types this projector does not recognize are counted (so
// EventCount still reflects the full stream) but otherwise ignored.
func (p *RunProjector) Apply(e events.Event) *Run {
	p.run.EventCount++
	switch e.Type {
	case events.RunStarted:
		p.run.State = RunRunning
		p.run.StartedAt = e.Timestamp
		if goal, ok := e.Payload["goal"].(string); ok && goal != "" {
			p.run.Goal = goal
		}
	case events.RunCompleted:
		p.run.State = RunCompleted
		p.run.CompletedAt = e.Timestamp
	case events.RunFailed:
		p.run.State = RunFailed
		p.run.CompletedAt = e.Timestamp
	case events.RunAborted:
		p.run.State = RunAborted
		p.run.CompletedAt = e.Timestamp
	case events.TaskCreated:
		p.applyTaskCreated(e)
	case events.TaskAssigned:
		p.applyTaskAssigned(e)
	case events.TaskProgressed:
		p.applyTaskProgressed(e)
	case events.TaskCompleted:
		p.applyTaskCompleted(e)
	case events.TaskFailed:
		p.applyTaskFailed(e)
	case events.TaskBlocked:
		p.applyTaskBlocked(e)
	case events.TaskUnblocked:
		p.applyTaskUnblocked(e)
	case events.RequirementCreated:
		p.applyRequirementCreated(e)
	case events.RequirementApproved:
		p.applyRequirementDecided(e, RequirementApproved)
	case events.RequirementRejected:
		p.applyRequirementDecided(e, RequirementRejected)
	case events.Heartbeat:
		p.run.LastHeartbeat = e.Timestamp
	case events.EmergencyStop:
		p.run.State = RunAborted
		p.run.CompletedAt = e.Timestamp
	}
	return p.run
}

func (p *RunProjector) applyTaskCreated(e events.Event) {
	if e.TaskID == "" {
		return
	}
	title, _ := e.Payload["title"].(string)
	meta, _ := e.Payload["metadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	p.run.Tasks[e.TaskID] = &Task{
		ID:        e.TaskID,
		Title:     title,
		State:     TaskPending,
		CreatedAt: e.Timestamp,
		UpdatedAt: e.Timestamp,
		Metadata:  meta,
	}
}

func (p *RunProjector) applyTaskAssigned(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	task.State = TaskInProgress
	if assignee, ok := e.Payload["assignee"].(string); ok {
		task.Assignee = assignee
	}
	task.UpdatedAt = e.Timestamp
}

func (p *RunProjector) applyTaskProgressed(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	if progress, ok := asInt(e.Payload["progress"]); ok {
		task.Progress = progress
	}
	task.UpdatedAt = e.Timestamp
}

func (p *RunProjector) applyTaskCompleted(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	task.State = TaskCompleted
	task.Progress = 100
	task.CompletedAt = e.Timestamp
	task.UpdatedAt = e.Timestamp
	if result, ok := e.Payload["result"]; ok && result != nil {
		task.Metadata["result"] = result
	}
	if workerID, ok := e.Payload["worker_id"].(string); ok && workerID != "" {
		task.Metadata["worker_id"] = workerID
	}
}

func (p *RunProjector) applyTaskFailed(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	task.State = TaskFailed
	if errMsg, ok := e.Payload["error"].(string); ok {
		task.ErrorMessage = errMsg
	}
	task.UpdatedAt = e.Timestamp
	if workerID, ok := e.Payload["worker_id"].(string); ok && workerID != "" {
		task.Metadata["worker_id"] = workerID
	}
}

func (p *RunProjector) applyTaskBlocked(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	task.State = TaskBlocked
	task.UpdatedAt = e.Timestamp
}

func (p *RunProjector) applyTaskUnblocked(e events.Event) {
	task, ok := p.run.Tasks[e.TaskID]
	if !ok {
		return
	}
	task.State = TaskInProgress
	task.UpdatedAt = e.Timestamp
}

func (p *RunProjector) applyRequirementCreated(e events.Event) {
	reqID, _ := e.Payload["requirement_id"].(string)
	if reqID == "" {
		return
	}
	description, _ := e.Payload["description"].(string)
	p.run.Requirements[reqID] = &Requirement{
		ID:          reqID,
		Description: description,
		State:       RequirementPending,
		CreatedAt:   e.Timestamp,
		Metadata:    map[string]any{"options": e.Payload["options"]},
	}
}

func (p *RunProjector) applyRequirementDecided(e events.Event, state RequirementState) {
	reqID, _ := e.Payload["requirement_id"].(string)
	req, ok := p.run.Requirements[reqID]
	if !ok {
		return
	}
	req.State = state
	req.DecidedAt = e.Timestamp
	req.DecidedBy = e.Actor
	if opt, ok := e.Payload["selected_option"].(string); ok {
		req.SelectedOption = opt
	}
	if comment, ok := e.Payload["comment"].(string); ok {
		req.Comment = comment
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// BuildRun folds evts into a Run projection from scratch.
func BuildRun(evts []events.Event, runID, goal string) *Run {
	projector := NewRunProjector(runID, goal)
	for _, e := range evts {
		projector.Apply(e)
	}
	return projector.run
}
