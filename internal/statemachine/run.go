package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// NewRun builds the Run transition table: RUNNING -> {COMPLETED, FAILED,
// ABORTED}, the last reachable either by an explicit abort or an emergency
// stop.
func NewRun() *Machine[projection.RunState] {
	return New(projection.RunRunning, []Transition[projection.RunState]{
		{From: projection.RunRunning, To: projection.RunCompleted, Event: events.RunCompleted},
		{From: projection.RunRunning, To: projection.RunFailed, Event: events.RunFailed},
		{From: projection.RunRunning, To: projection.RunAborted, Event: events.RunAborted},
		{From: projection.RunRunning, To: projection.RunAborted, Event: events.EmergencyStop},
	})
}
