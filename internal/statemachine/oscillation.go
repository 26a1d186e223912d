package statemachine

import "fmt"

// ErrOscillation is returned by OscillationDetector.Check when the recorded
// history shows a 2N-alternating-state cycle, a governance violation
// (spec.md's "oscillation detection", config.Governance.MaxOscillations).
type ErrOscillation struct {
	Recent    []string
	Threshold int
}

func (e *ErrOscillation) Error() string {
	return fmt.Sprintf("statemachine: oscillation detected: %v (threshold: %d)", e.Recent, e.Threshold)
}

// OscillationDetector watches a state history for an A-B-A-B... pattern of
// length 2*maxOscillations, the signature of two projections flapping
// between each other without making progress.
type OscillationDetector struct {
	maxOscillations int
	history         []string
}

// NewOscillationDetector builds a detector with the given threshold N: a
// cycle is flagged once the most recent 2N states alternate between
// exactly two values.
func NewOscillationDetector(maxOscillations int) *OscillationDetector {
	return &OscillationDetector{maxOscillations: maxOscillations}
}

// Record appends state to the tracked history. state is stringified so the
// detector works uniformly across Run/Task/Hive/Colony/RA state types.
func (d *OscillationDetector) Record(state fmt.Stringer) {
	d.history = append(d.history, state.String())
}

// RecordString appends a raw state label, for callers whose state type is
// already a plain string (e.g. the projection package's *State types).
func (d *OscillationDetector) RecordString(state string) {
	d.history = append(d.history, state)
}

// Check inspects the most recent 2*maxOscillations entries. It returns nil
// if there is not yet enough history or no alternation; it returns
// *ErrOscillation if the window shows a pure two-state alternating cycle.
func (d *OscillationDetector) Check() error {
	window := d.maxOscillations * 2
	if len(d.history) < window {
		return nil
	}

	recent := d.history[len(d.history)-window:]
	distinct := map[string]bool{}
	for _, s := range recent {
		distinct[s] = true
	}
	if len(distinct) != 2 {
		return nil
	}

	even := map[string]bool{}
	odd := map[string]bool{}
	for i, s := range recent {
		if i%2 == 0 {
			even[s] = true
		} else {
			odd[s] = true
		}
	}
	if len(even) == 1 && len(odd) == 1 {
		return &ErrOscillation{Recent: append([]string(nil), recent...), Threshold: d.maxOscillations}
	}
	return nil
}
