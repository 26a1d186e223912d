package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// Task wraps the generic Machine with the retry-count bookkeeping a plain
// transition table can't express: FAILED -> PENDING is gated by a guard
// closure over mutable state (the count itself), and a successful retry
// transition increments that count as a side effect.
type Task struct {
	machine    *Machine[projection.TaskState]
	retryCount int
	maxRetries int
}

// NewTask builds the Task transition table. maxRetries bounds FAILED ->
// PENDING retries (spec.md §4.3, config.Governance.MaxRetries).
func NewTask(maxRetries int) *Task {
	t := &Task{maxRetries: maxRetries}
	t.machine = New(projection.TaskPending, []Transition[projection.TaskState]{
		{From: projection.TaskPending, To: projection.TaskInProgress, Event: events.TaskAssigned},
		{From: projection.TaskInProgress, To: projection.TaskBlocked, Event: events.TaskBlocked},
		{From: projection.TaskInProgress, To: projection.TaskCompleted, Event: events.TaskCompleted},
		{From: projection.TaskInProgress, To: projection.TaskFailed, Event: events.TaskFailed},
		{From: projection.TaskBlocked, To: projection.TaskInProgress, Event: events.TaskUnblocked},
		// Retry re-uses task.created as its discriminator, mirroring the
		// original implementation: a retried task is re-dispatched exactly
		// like a freshly created one.
		{From: projection.TaskFailed, To: projection.TaskPending, Event: events.TaskCreated, Guard: t.retryGuard},
	})
	return t
}

func (t *Task) retryGuard(events.Event) bool { return t.retryCount < t.maxRetries }

// Current returns the task's current state.
func (t *Task) Current() projection.TaskState { return t.machine.Current() }

// CanRetry reports whether another FAILED -> PENDING transition is allowed.
func (t *Task) CanRetry() bool { return t.retryCount < t.maxRetries }

// RetryCount returns the number of retries consumed so far.
func (t *Task) RetryCount() int { return t.retryCount }

// Transition applies e, incrementing the retry count whenever the
// transition moves FAILED -> PENDING.
func (t *Task) Transition(e events.Event) (projection.TaskState, error) {
	before := t.machine.Current()
	after, err := t.machine.Transition(e)
	if err != nil {
		return before, err
	}
	if before == projection.TaskFailed && after == projection.TaskPending {
		t.retryCount++
	}
	return after, nil
}
