package projection

import (
	"time"

	"github.com/colonyforge/core/internal/events"
)

type WorkerState string

const (
	WorkerIdle    WorkerState = "idle"
	WorkerWorking WorkerState = "working"
	WorkerError   WorkerState = "error"
)

// Worker is the current state view of a single Worker Bee, folded from
// worker.* events. It mirrors the runtime lifecycle the worker package
// itself enforces (internal/worker), but as a pure projection so the
// handler layer can answer status queries without holding a live handle.
type Worker struct {
	ID         string
	State      WorkerState
	TaskID     string
	Progress   int
	LastError  string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

func newWorker(workerID string) *Worker {
	return &Worker{ID: workerID, State: WorkerIdle}
}

// WorkerProjector folds worker.* events into a Worker projection.
type WorkerProjector struct {
	worker *Worker
}

// NewWorkerProjector starts a fresh projector for workerID.
func NewWorkerProjector(workerID string) *WorkerProjector {
	return &WorkerProjector{worker: newWorker(workerID)}
}

// Apply folds a single event into the worker projection.
func (p *WorkerProjector) Apply(e events.Event) *Worker {
	switch e.Type {
	case events.WorkerAssigned:
		p.worker.State = WorkerIdle
		if e.TaskID != "" {
			p.worker.TaskID = e.TaskID
		}
		p.worker.UpdatedAt = e.Timestamp
	case events.WorkerStarted:
		p.worker.State = WorkerWorking
		p.worker.StartedAt = e.Timestamp
		p.worker.UpdatedAt = e.Timestamp
	case events.WorkerProgress:
		if progress, ok := asInt(e.Payload["progress"]); ok {
			p.worker.Progress = progress
		}
		p.worker.UpdatedAt = e.Timestamp
	case events.WorkerCompleted:
		p.worker.State = WorkerIdle
		p.worker.Progress = 100
		p.worker.TaskID = ""
		p.worker.UpdatedAt = e.Timestamp
	case events.WorkerFailed:
		p.worker.State = WorkerError
		if msg, ok := e.Payload["error"].(string); ok {
			p.worker.LastError = msg
		}
		p.worker.UpdatedAt = e.Timestamp
	}
	return p.worker
}

// BuildWorker folds evts into a Worker projection from scratch.
func BuildWorker(evts []events.Event, workerID string) *Worker {
	projector := NewWorkerProjector(workerID)
	for _, e := range evts {
		projector.Apply(e)
	}
	return projector.worker
}
