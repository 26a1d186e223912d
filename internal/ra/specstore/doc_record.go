package specstore

import "github.com/colonyforge/core/internal/ra"

// Record is the persisted form of one RA SpecDraft, keyed by the run it
// belongs to.
type Record struct {
	RunID       string             `bson:"run_id"`
	Goal        string             `bson:"goal"`
	Assumptions []ra.Assumption    `bson:"assumptions"`
	Risks       []ra.FailureHypothesis `bson:"risks"`
	Answers     map[string]string  `bson:"answers"`
	Outcome     string             `bson:"outcome"`
}

func fromDraft(runID string, draft ra.SpecDraft, outcome string) Record {
	return Record{
		RunID:       runID,
		Goal:        draft.Goal,
		Assumptions: draft.Assumptions,
		Risks:       draft.Risks,
		Answers:     draft.Answers,
		Outcome:     outcome,
	}
}

func (r Record) toDraft() ra.SpecDraft {
	return ra.SpecDraft{
		Goal:        r.Goal,
		Assumptions: r.Assumptions,
		Risks:       r.Risks,
		Answers:     r.Answers,
	}
}
