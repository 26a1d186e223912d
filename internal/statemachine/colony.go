package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// NewColony builds the Colony transition table: PENDING -> IN_PROGRESS ->
// {COMPLETED, FAILED, SUSPENDED}; SUSPENDED can resume to IN_PROGRESS or
// terminate FAILED.
func NewColony() *Machine[projection.ColonyState] {
	return New(projection.ColonyPending, []Transition[projection.ColonyState]{
		{From: projection.ColonyPending, To: projection.ColonyInProgress, Event: events.ColonyStarted},
		{From: projection.ColonyInProgress, To: projection.ColonyCompleted, Event: events.ColonyCompleted},
		{From: projection.ColonyInProgress, To: projection.ColonyFailed, Event: events.ColonyFailed},
		{From: projection.ColonyInProgress, To: projection.ColonySuspended, Event: events.ColonySuspended},
		{From: projection.ColonySuspended, To: projection.ColonyInProgress, Event: events.ColonyStarted},
		{From: projection.ColonySuspended, To: projection.ColonyFailed, Event: events.ColonyFailed},
	})
}
