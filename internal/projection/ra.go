package projection

import (
	"time"

	"github.com/colonyforge/core/internal/events"
)

// RAState is the Requirement Analysis colony's process lifecycle. It is a
// distinct layer from RequirementState: RAState tracks the ambiguity
// resolution pipeline as a whole, RequirementState tracks one requirement's
// approval status (spec.md §4, original design note on RA vs Requirement
// layering).
type RAState string

const (
	RAIntake                    RAState = "intake"
	RATriage                    RAState = "triage"
	RAContextEnrich              RAState = "context_enrich"
	RAWebResearch                RAState = "web_research"
	RAHypothesisBuild            RAState = "hypothesis_build"
	RAClarifyGen                 RAState = "clarify_gen"
	RAUserFeedback                RAState = "user_feedback"
	RASpecSynthesis               RAState = "spec_synthesis"
	RASpecPersist                 RAState = "spec_persist"
	RAUserEdit                    RAState = "user_edit"
	RAChallengeReview             RAState = "challenge_review"
	RARefereeCompare              RAState = "referee_compare"
	RAGuardGate                   RAState = "guard_gate"
	RAExecutionReady              RAState = "execution_ready"
	RAExecutionReadyWithRisks     RAState = "execution_ready_with_risks"
	RAAbandoned                   RAState = "abandoned"
)

// RA is the current state view of one requirement-analysis run.
type RA struct {
	ID        string
	State     RAState
	StartedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any
}

func newRA(raID string) *RA {
	return &RA{ID: raID, State: RAIntake, Metadata: map[string]any{}}
}

// RAProjector folds ra.* events into an RA projection.
type RAProjector struct {
	ra *RA
}

// NewRAProjector starts a fresh projector for raID.
func NewRAProjector(raID string) *RAProjector {
	return &RAProjector{ra: newRA(raID)}
}

// Apply folds a single event into the RA projection.
func (p *RAProjector) Apply(e events.Event) *RA {
	p.ra.UpdatedAt = e.Timestamp
	switch e.Type {
	case events.RAIntakeReceived:
		p.ra.State = RAIntake
		p.ra.StartedAt = e.Timestamp
	case events.RATriageCompleted:
		p.ra.State = RATriage
	case events.RAContextEnriched:
		p.ra.State = RAContextEnrich
	case events.RAWebResearched, events.RAWebSkipped:
		p.ra.State = RAWebResearch
	case events.RAHypothesisBuilt:
		p.ra.State = RAHypothesisBuild
	case events.RAClarifyGenerated:
		p.ra.State = RAClarifyGen
	case events.RAUserResponded:
		p.ra.State = RAUserFeedback
	case events.RASpecSynthesized:
		p.ra.State = RASpecSynthesis
	case events.RAChallengeReviewed:
		p.ra.State = RAChallengeReview
	case events.RARefereeCompared:
		p.ra.State = RARefereeCompare
	case events.RAGateDecided:
		p.applyGateDecided(e)
	case events.RACompleted:
		if p.ra.State != RAAbandoned {
			p.ra.State = RAExecutionReady
		}
	}
	return p.ra
}

func (p *RAProjector) applyGateDecided(e events.Event) {
	p.ra.State = RAGuardGate
	verdict, _ := e.Payload["verdict"].(string)
	switch verdict {
	case "pass":
		p.ra.State = RAExecutionReady
	case "conditional_pass":
		p.ra.State = RAExecutionReadyWithRisks
	case "fail":
		p.ra.State = RAAbandoned
	}
}

// BuildRA folds evts into an RA projection from scratch.
func BuildRA(evts []events.Event, raID string) *RA {
	projector := NewRAProjector(raID)
	for _, e := range evts {
		projector.Apply(e)
	}
	return projector.ra
}
