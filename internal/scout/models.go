// Package scout recommends a Colony template from historical Episodes by
// similarity on task features (spec §4.11). Grounded on
// scout_bee/{models,analyzer,matcher,scout}.py.
package scout

import "github.com/colonyforge/core/internal/honeycomb"

// Verdict is Scout's recommendation confidence.
type Verdict string

const (
	VerdictRecommended      Verdict = "recommended"
	VerdictColdStart        Verdict = "cold_start"
	VerdictInsufficientData Verdict = "insufficient_data"
)

// defaultTemplate is the safe-side fallback returned when Honeycomb has too
// little data to make a data-driven recommendation.
const defaultTemplate = "balanced"

// TemplateStats summarizes one template's outcomes across a set of
// episodes.
type TemplateStats struct {
	TemplateName      string
	TotalCount        int
	SuccessCount      int
	SuccessRate       float64
	AvgDurationSeconds float64
}

// OptimizationProposal is the template Scout recommends to the Beekeeper.
type OptimizationProposal struct {
	TemplateName        string
	SuccessRate         float64
	AvgDurationSeconds  float64
	Reason              string
	SimilarEpisodeCount int
}

// Report is Scout's full recommendation output.
type Report struct {
	Verdict             Verdict
	RecommendedTemplate string
	SimilarCount        int
	Proposal            *OptimizationProposal
	TemplateStats       map[string]TemplateStats
}

// SimilarEpisode pairs an Episode with its similarity to the target
// features, in [0.0, 1.0].
type SimilarEpisode struct {
	Episode    honeycomb.Episode
	Similarity float64
}
