package statemachine

import (
	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/projection"
)

// RA wraps the generic Machine to add the one transition the plain table
// can't express: from GUARD_GATE, ra.completed fans out to one of three
// terminal states depending on payload["outcome"], rather than a fixed
// (state, event) -> state edge.
type RA struct {
	machine *Machine[projection.RAState]
}

var raGuardGateOutcomes = map[string]projection.RAState{
	"EXECUTION_READY":             projection.RAExecutionReady,
	"EXECUTION_READY_WITH_RISKS":  projection.RAExecutionReadyWithRisks,
	"ABANDONED":                   projection.RAAbandoned,
}

// NewRA builds the RA transition table per spec.md's ambiguity-resolution
// pipeline: INTAKE -> TRIAGE -> CONTEXT_ENRICH -> (WEB_RESEARCH?) ->
// HYPOTHESIS_BUILD -> CLARIFY_GEN -> (USER_FEEDBACK?) -> SPEC_SYNTHESIS ->
// CHALLENGE_REVIEW -> (REFEREE_COMPARE?) -> GUARD_GATE -> terminal.
func NewRA() *RA {
	m := New(projection.RAIntake, []Transition[projection.RAState]{
		{From: projection.RAIntake, To: projection.RATriage, Event: events.RATriageCompleted},
		{From: projection.RATriage, To: projection.RAContextEnrich, Event: events.RAContextEnriched},

		{From: projection.RAContextEnrich, To: projection.RAHypothesisBuild, Event: events.RAHypothesisBuilt},
		{From: projection.RAContextEnrich, To: projection.RAWebResearch, Event: events.RAWebResearched},
		{From: projection.RAContextEnrich, To: projection.RAWebResearch, Event: events.RAWebSkipped},
		{From: projection.RAWebResearch, To: projection.RAHypothesisBuild, Event: events.RAHypothesisBuilt},

		{From: projection.RAHypothesisBuild, To: projection.RAClarifyGen, Event: events.RAClarifyGenerated},

		{From: projection.RAClarifyGen, To: projection.RAUserFeedback, Event: events.RAUserResponded},
		{From: projection.RAClarifyGen, To: projection.RASpecSynthesis, Event: events.RASpecSynthesized},

		{From: projection.RAUserFeedback, To: projection.RAHypothesisBuild, Event: events.RAHypothesisBuilt},
		{From: projection.RAUserFeedback, To: projection.RASpecSynthesis, Event: events.RASpecSynthesized},
		{From: projection.RAUserFeedback, To: projection.RAAbandoned, Event: events.RACompleted},

		{From: projection.RASpecSynthesis, To: projection.RAChallengeReview, Event: events.RAChallengeReviewed},

		{From: projection.RAChallengeReview, To: projection.RAGuardGate, Event: events.RAGateDecided},
		{From: projection.RAChallengeReview, To: projection.RASpecSynthesis, Event: events.RASpecSynthesized},
		{From: projection.RAChallengeReview, To: projection.RARefereeCompare, Event: events.RARefereeCompared},

		{From: projection.RARefereeCompare, To: projection.RAGuardGate, Event: events.RAGateDecided},

		{From: projection.RAGuardGate, To: projection.RAClarifyGen, Event: events.RAClarifyGenerated},
	})
	return &RA{machine: m}
}

// Current returns the RA process's current state.
func (r *RA) Current() projection.RAState { return r.machine.Current() }

// CanTransition reports whether evtType is valid from the current state,
// including the payload-routed GUARD_GATE + ra.completed case.
func (r *RA) CanTransition(evtType events.Type) bool {
	if r.machine.Current() == projection.RAGuardGate && evtType == events.RACompleted {
		return true
	}
	return r.machine.CanTransition(evtType)
}

// ValidEvents lists transitions available from the current state.
func (r *RA) ValidEvents() []events.Type {
	valid := r.machine.ValidEvents()
	if r.machine.Current() == projection.RAGuardGate {
		for _, e := range valid {
			if e == events.RACompleted {
				return valid
			}
		}
		valid = append(valid, events.RACompleted)
	}
	return valid
}

// Transition applies e. From GUARD_GATE, ra.completed routes to
// EXECUTION_READY / EXECUTION_READY_WITH_RISKS / ABANDONED based on
// payload["outcome"]; every other (state, event) pair follows the plain
// table.
func (r *RA) Transition(e events.Event) (projection.RAState, error) {
	if r.machine.Current() == projection.RAGuardGate && e.Type == events.RACompleted {
		outcome, _ := e.Payload["outcome"].(string)
		target, ok := raGuardGateOutcomes[outcome]
		if !ok {
			return r.machine.Current(), &TransitionError{
				State: stringerState[projection.RAState]{projection.RAGuardGate},
				Event: e.Type,
			}
		}
		r.machine.SetCurrent(target)
		return target, nil
	}
	return r.machine.Transition(e)
}

// ValidOutcomes lists the payload["outcome"] values ra.completed accepts
// from GUARD_GATE, for error messages and validation.
func ValidOutcomes() []string {
	return []string{"EXECUTION_READY", "EXECUTION_READY_WITH_RISKS", "ABANDONED"}
}
