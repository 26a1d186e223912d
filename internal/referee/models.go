// Package referee scores and ranks candidate solutions for a task (spec
// §4.11). Built fresh from the spec's weighting rules; type names are
// grounded on hiveforge.referee_bee.models (CandidateScore, DiffResult,
// RefereeReport, RefereeVerdict, ScoreWeights, ScoringDimension,
// SelectionResult), the only surviving reference to the original
// implementation.
package referee

// ScoringDimension is one axis a candidate is scored on.
type ScoringDimension string

const (
	DimensionCorrectness ScoringDimension = "correctness"
	DimensionRobustness  ScoringDimension = "robustness"
	DimensionConsistency ScoringDimension = "consistency"
	DimensionSecurity    ScoringDimension = "security"
	DimensionLatency     ScoringDimension = "latency"
)

// ScoreWeights assigns the relative importance of each dimension; the
// default weights are fixed by spec §4.11.
type ScoreWeights map[ScoringDimension]float64

// DefaultWeights returns the spec-mandated weighting: correctness 0.40,
// robustness 0.20, consistency 0.20, security 0.10, latency 0.10.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		DimensionCorrectness: 0.40,
		DimensionRobustness:  0.20,
		DimensionConsistency: 0.20,
		DimensionSecurity:    0.10,
		DimensionLatency:     0.10,
	}
}

// Candidate is one solution under evaluation, scored per-dimension in
// [0.0, 1.0] by an external evaluator (tests, lint, static analysis).
type Candidate struct {
	ID     string
	Scores map[ScoringDimension]float64
	Output string // used for pairwise differential comparison
}

// CandidateScore is a Candidate's combined weighted score.
type CandidateScore struct {
	CandidateID string
	Scores      map[ScoringDimension]float64
	Weighted    float64
}

// DiffResult is the pairwise differential comparison between two
// candidates, feeding the consistency dimension.
type DiffResult struct {
	CandidateAID string
	CandidateBID string
	Similarity   float64 // 1.0 = identical outputs
	Agree        bool
}

// Verdict summarizes the tournament's outcome.
type Verdict string

const (
	VerdictNoCandidate Verdict = "NO_CANDIDATE"
	VerdictSinglePass  Verdict = "SINGLE_PASS"
	VerdictRanked      Verdict = "RANKED"
)

// SelectionResult is the tournament's chosen candidates, in rank order.
type SelectionResult struct {
	Verdict        Verdict
	SelectedIDs    []string
	RejectedIDs    []string
}

// Report is Referee's full output for one evaluation round.
type Report struct {
	Scores    []CandidateScore
	Diffs     []DiffResult
	Selection SelectionResult
}
