package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// NewHive builds the Hive transition table: ACTIVE <-> IDLE via last/first
// colony completion, both reaching CLOSED on hive.closed.
func NewHive() *Machine[projection.HiveState] {
	return New(projection.HiveActive, []Transition[projection.HiveState]{
		{From: projection.HiveActive, To: projection.HiveIdle, Event: events.ColonyCompleted},
		{From: projection.HiveActive, To: projection.HiveClosed, Event: events.HiveClosed},
		{From: projection.HiveIdle, To: projection.HiveActive, Event: events.ColonyCreated},
		{From: projection.HiveIdle, To: projection.HiveClosed, Event: events.HiveClosed},
	})
}
