package referee

// Referee evaluates and selects among candidate solutions for one task.
type Referee struct {
	tournament *Tournament
}

// New constructs a Referee using the spec-mandated default weights and
// the given top-K selection cutoff.
func New(topK int) *Referee {
	return &Referee{tournament: NewTournament(NewScorer(DefaultWeights()), topK)}
}

// NewWithWeights constructs a Referee with custom scoring weights.
func NewWithWeights(weights ScoreWeights, topK int) *Referee {
	return &Referee{tournament: NewTournament(NewScorer(weights), topK)}
}

// Evaluate scores, diffs, and selects among candidates.
func (r *Referee) Evaluate(candidates []Candidate) Report {
	return r.tournament.Run(candidates)
}
