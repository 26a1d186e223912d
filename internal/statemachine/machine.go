// Package statemachine implements the generic (from_state, event_type) ->
// {to_state, guard} transition tables that gate every state-bearing
// projection — Run, Task, Requirement, Hive, Colony, and RA — plus the
// oscillation detector shared across them.
package statemachine

import (
	"fmt"

	"github.com/colonyforge/core/internal/events"
)

// Guard vets whether a transition is allowed to fire for a given event,
// beyond the bare (state, event type) match.
type Guard func(e events.Event) bool

// Transition is one edge of a machine's table.
type Transition[S comparable] struct {
	From  S
	To    S
	Event events.Type
	Guard Guard
}

// TransitionError reports an event that has no matching edge from the
// machine's current state, or whose guard rejected it.
type TransitionError struct {
	State       fmt.Stringer
	Event       events.Type
	ValidEvents []events.Type
	GuardFailed bool
}

func (e *TransitionError) Error() string {
	if e.GuardFailed {
		return fmt.Sprintf("statemachine: guard rejected transition %s + %s", e.State, e.Event)
	}
	return fmt.Sprintf("statemachine: invalid transition %s + %s (valid events: %v)", e.State, e.Event, e.ValidEvents)
}

// stringerState adapts any comparable state type into a fmt.Stringer for
// error messages without requiring every state enum to implement String().
type stringerState[S comparable] struct{ s S }

func (s stringerState[S]) String() string { return fmt.Sprintf("%v", s.s) }

type key[S comparable] struct {
	from S
	evt  events.Type
}

// Machine is a generic transition-table state machine. It is intentionally
// unopinionated about the state type so Run/Task/Requirement/Hive/Colony/RA
// can each supply their own string-backed enum.
type Machine[S comparable] struct {
	current     S
	transitions map[key[S]]Transition[S]
}

// New builds a Machine starting at initial with the given transition table.
// Later entries for the same (from, event) pair overwrite earlier ones.
func New[S comparable](initial S, transitions []Transition[S]) *Machine[S] {
	m := &Machine[S]{current: initial, transitions: make(map[key[S]]Transition[S], len(transitions))}
	for _, t := range transitions {
		m.transitions[key[S]{from: t.From, evt: t.Event}] = t
	}
	return m
}

// Current returns the machine's current state.
func (m *Machine[S]) Current() S { return m.current }

// CanTransition reports whether evtType has a registered edge from the
// current state, without evaluating any guard.
func (m *Machine[S]) CanTransition(evtType events.Type) bool {
	_, ok := m.transitions[key[S]{from: m.current, evt: evtType}]
	return ok
}

// ValidEvents lists every event type with a registered edge from the
// current state.
func (m *Machine[S]) ValidEvents() []events.Type {
	var out []events.Type
	for k := range m.transitions {
		if k.from == m.current {
			out = append(out, k.evt)
		}
	}
	return out
}

// Transition applies e, moving to the matching edge's target state. It
// returns a *TransitionError if no edge matches or the edge's guard
// rejects e; the machine's state is unchanged in that case.
func (m *Machine[S]) Transition(e events.Event) (S, error) {
	t, ok := m.transitions[key[S]{from: m.current, evt: e.Type}]
	if !ok {
		return m.current, &TransitionError{State: stringerState[S]{m.current}, Event: e.Type, ValidEvents: m.ValidEvents()}
	}
	if t.Guard != nil && !t.Guard(e) {
		return m.current, &TransitionError{State: stringerState[S]{m.current}, Event: e.Type, GuardFailed: true}
	}
	m.current = t.To
	return m.current, nil
}

// SetCurrent forcibly sets the machine's state, used by machines (like RA)
// that route a single event type to different targets based on payload
// content rather than a pure (state, event) lookup.
func (m *Machine[S]) SetCurrent(s S) { m.current = s }
