package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// NewRequirement builds the Requirement transition table: PENDING ->
// {APPROVED, REJECTED}.
func NewRequirement() *Machine[projection.RequirementState] {
	return New(projection.RequirementPending, []Transition[projection.RequirementState]{
		{From: projection.RequirementPending, To: projection.RequirementApproved, Event: events.RequirementApproved},
		{From: projection.RequirementPending, To: projection.RequirementRejected, Event: events.RequirementRejected},
	})
}
