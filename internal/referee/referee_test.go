package referee_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/referee"
)

func TestEvaluateEmptyCandidatesYieldsNoCandidate(t *testing.T) {
	r := referee.New(2)
	report := r.Evaluate(nil)
	assert.Equal(t, referee.VerdictNoCandidate, report.Selection.Verdict)
	assert.Empty(t, report.Selection.SelectedIDs)
}

func TestEvaluateSingleCandidateYieldsSinglePass(t *testing.T) {
	r := referee.New(2)
	report := r.Evaluate([]referee.Candidate{
		{ID: "c1", Scores: map[referee.ScoringDimension]float64{referee.DimensionCorrectness: 0.9}},
	})
	assert.Equal(t, referee.VerdictSinglePass, report.Selection.Verdict)
	assert.Equal(t, []string{"c1"}, report.Selection.SelectedIDs)
}

func TestEvaluateRanksByWeightedScore(t *testing.T) {
	r := referee.New(1)
	candidates := []referee.Candidate{
		{ID: "strong", Scores: map[referee.ScoringDimension]float64{
			referee.DimensionCorrectness: 1.0, referee.DimensionRobustness: 1.0,
			referee.DimensionSecurity: 1.0, referee.DimensionLatency: 1.0,
		}, Output: "func Foo() {}\nreturn nil"},
		{ID: "weak", Scores: map[referee.ScoringDimension]float64{
			referee.DimensionCorrectness: 0.2, referee.DimensionRobustness: 0.2,
			referee.DimensionSecurity: 0.2, referee.DimensionLatency: 0.2,
		}, Output: "func Bar() {}\npanic(1)"},
	}
	report := r.Evaluate(candidates)
	require.Equal(t, referee.VerdictRanked, report.Selection.Verdict)
	require.Len(t, report.Selection.SelectedIDs, 1)
	assert.Equal(t, "strong", report.Selection.SelectedIDs[0])
	assert.Contains(t, report.Selection.RejectedIDs, "weak")
}

func TestEvaluateTopKSelectsMultiple(t *testing.T) {
	r := referee.New(2)
	candidates := []referee.Candidate{
		{ID: "a", Scores: map[referee.ScoringDimension]float64{referee.DimensionCorrectness: 0.9}, Output: "same"},
		{ID: "b", Scores: map[referee.ScoringDimension]float64{referee.DimensionCorrectness: 0.8}, Output: "same"},
		{ID: "c", Scores: map[referee.ScoringDimension]float64{referee.DimensionCorrectness: 0.1}, Output: "different"},
	}
	report := r.Evaluate(candidates)
	require.Len(t, report.Selection.SelectedIDs, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, report.Selection.SelectedIDs)
}

func TestScorerAppliesDefaultWeights(t *testing.T) {
	s := referee.NewScorer(nil)
	score := s.Score(referee.Candidate{
		ID: "c1",
		Scores: map[referee.ScoringDimension]float64{
			referee.DimensionCorrectness: 1.0,
			referee.DimensionRobustness:  1.0,
			referee.DimensionConsistency: 1.0,
			referee.DimensionSecurity:    1.0,
			referee.DimensionLatency:     1.0,
		},
	})
	assert.InDelta(t, 1.0, score.Weighted, 0.0001)
}

func TestScorerMissingDimensionsTreatedAsZero(t *testing.T) {
	s := referee.NewScorer(referee.DefaultWeights())
	score := s.Score(referee.Candidate{ID: "c1", Scores: map[referee.ScoringDimension]float64{
		referee.DimensionCorrectness: 1.0,
	}})
	assert.InDelta(t, 0.40, score.Weighted, 0.0001)
}

func TestTournamentIdenticalOutputsScoreHighConsistency(t *testing.T) {
	tourney := referee.NewTournament(referee.NewScorer(referee.DefaultWeights()), 1)
	report := tourney.Run([]referee.Candidate{
		{ID: "a", Output: "identical text\nline two"},
		{ID: "b", Output: "identical text\nline two"},
	})
	require.Len(t, report.Diffs, 1)
	assert.InDelta(t, 1.0, report.Diffs[0].Similarity, 0.0001)
	assert.True(t, report.Diffs[0].Agree)
}
