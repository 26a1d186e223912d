package referee

// Scorer combines a candidate's per-dimension metrics into one weighted
// score.
type Scorer struct {
	weights ScoreWeights
}

// NewScorer constructs a Scorer. A nil/empty weights map falls back to
// DefaultWeights.
func NewScorer(weights ScoreWeights) *Scorer {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score computes the weighted sum of a candidate's dimension scores.
// Dimensions absent from the candidate are treated as 0.0; weights that
// don't sum to 1.0 are used as-is (the caller's responsibility).
func (s *Scorer) Score(candidate Candidate) CandidateScore {
	weighted := 0.0
	for dim, weight := range s.weights {
		weighted += candidate.Scores[dim] * weight
	}
	return CandidateScore{
		CandidateID: candidate.ID,
		Scores:      candidate.Scores,
		Weighted:    weighted,
	}
}

// ScoreAll scores every candidate independently.
func (s *Scorer) ScoreAll(candidates []Candidate) []CandidateScore {
	scores := make([]CandidateScore, len(candidates))
	for i, c := range candidates {
		scores[i] = s.Score(c)
	}
	return scores
}
