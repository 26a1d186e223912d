package referee

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Tournament ranks scored candidates and selects the top-K survivors, per
// spec §4.11: a single candidate yields SINGLE_PASS, empty input yields
// NO_CANDIDATE, and multiple candidates are pairwise-diffed for
// consistency before ranking.
type Tournament struct {
	scorer *Scorer
	topK   int
}

// NewTournament constructs a Tournament with the given Scorer and top-K
// cutoff.
func NewTournament(scorer *Scorer, topK int) *Tournament {
	if topK <= 0 {
		topK = 1
	}
	return &Tournament{scorer: scorer, topK: topK}
}

// Run scores every candidate, performs pairwise differential comparison
// across all candidate pairs, folds the mean pairwise similarity into
// each candidate's consistency score, re-scores, and selects the top-K.
func (t *Tournament) Run(candidates []Candidate) Report {
	if len(candidates) == 0 {
		return Report{Selection: SelectionResult{Verdict: VerdictNoCandidate}}
	}

	if len(candidates) == 1 {
		score := t.scorer.Score(candidates[0])
		return Report{
			Scores: []CandidateScore{score},
			Selection: SelectionResult{
				Verdict:     VerdictSinglePass,
				SelectedIDs: []string{candidates[0].ID},
			},
		}
	}

	diffs := pairwiseDiff(candidates)
	consistency := meanSimilarityByCandidate(candidates, diffs)

	enriched := make([]Candidate, len(candidates))
	for i, c := range candidates {
		scores := map[ScoringDimension]float64{}
		for k, v := range c.Scores {
			scores[k] = v
		}
		scores[DimensionConsistency] = consistency[c.ID]
		enriched[i] = Candidate{ID: c.ID, Scores: scores, Output: c.Output}
	}

	scores := t.scorer.ScoreAll(enriched)
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Weighted > scores[j].Weighted
	})

	k := t.topK
	if k > len(scores) {
		k = len(scores)
	}
	selected := make([]string, k)
	for i := 0; i < k; i++ {
		selected[i] = scores[i].CandidateID
	}
	rejected := make([]string, 0, len(scores)-k)
	for i := k; i < len(scores); i++ {
		rejected = append(rejected, scores[i].CandidateID)
	}

	return Report{
		Scores: scores,
		Diffs:  diffs,
		Selection: SelectionResult{
			Verdict:     VerdictRanked,
			SelectedIDs: selected,
			RejectedIDs: rejected,
		},
	}
}

// pairwiseDiff compares every candidate pair's Output with
// difflib.SequenceMatcher and records a similarity ratio in [0.0, 1.0].
func pairwiseDiff(candidates []Candidate) []DiffResult {
	var diffs []DiffResult
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			matcher := difflib.NewMatcher(splitLines(a.Output), splitLines(b.Output))
			ratio := matcher.Ratio()
			diffs = append(diffs, DiffResult{
				CandidateAID: a.ID,
				CandidateBID: b.ID,
				Similarity:   ratio,
				Agree:        ratio >= 0.8,
			})
		}
	}
	return diffs
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// meanSimilarityByCandidate averages each candidate's similarity across
// every pair it appears in, used as the consistency dimension's score.
func meanSimilarityByCandidate(candidates []Candidate, diffs []DiffResult) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, d := range diffs {
		sums[d.CandidateAID] += d.Similarity
		counts[d.CandidateAID]++
		sums[d.CandidateBID] += d.Similarity
		counts[d.CandidateBID]++
	}

	result := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		if counts[c.ID] == 0 {
			result[c.ID] = 1.0
			continue
		}
		result[c.ID] = sums[c.ID] / float64(counts[c.ID])
	}
	return result
}
