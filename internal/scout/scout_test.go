package scout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/honeycomb"
	"github.com/colonyforge/core/internal/scout"
)

func episode(template string, outcome honeycomb.Outcome, duration float64, features map[string]float64) honeycomb.Episode {
	return honeycomb.Episode{
		TemplateUsed:    template,
		Outcome:         outcome,
		DurationSeconds: duration,
		TaskFeatures:    features,
	}
}

func TestRecommendColdStartBelowMinEpisodes(t *testing.T) {
	s := scout.NewScout(5, 10, 0.3)
	report := s.Recommend(map[string]float64{"complexity": 3}, []honeycomb.Episode{
		episode("balanced", honeycomb.OutcomeSuccess, 10, nil),
	})
	assert.Equal(t, scout.VerdictColdStart, report.Verdict)
	assert.Equal(t, "balanced", report.RecommendedTemplate)
}

func TestRecommendInsufficientDataWhenNoSimilarMatches(t *testing.T) {
	s := scout.NewScout(1, 10, 0.99)
	episodes := []honeycomb.Episode{
		episode("balanced", honeycomb.OutcomeSuccess, 10, map[string]float64{"complexity": 1, "risk": 1, "urgency": 1}),
		episode("aggressive", honeycomb.OutcomeSuccess, 10, map[string]float64{"complexity": 5, "risk": 5, "urgency": 5}),
	}
	report := s.Recommend(map[string]float64{"complexity": 3, "risk": 3, "urgency": 3}, episodes)
	assert.Equal(t, scout.VerdictInsufficientData, report.Verdict)
}

func TestRecommendPicksHighestSuccessRateTemplate(t *testing.T) {
	s := scout.NewScout(1, 10, 0.0)
	features := map[string]float64{"complexity": 3, "risk": 2, "urgency": 2}
	episodes := []honeycomb.Episode{
		episode("conservative", honeycomb.OutcomeSuccess, 5, features),
		episode("conservative", honeycomb.OutcomeSuccess, 5, features),
		episode("aggressive", honeycomb.OutcomeFailure, 50, features),
		episode("aggressive", honeycomb.OutcomeSuccess, 50, features),
	}
	report := s.Recommend(features, episodes)
	require.Equal(t, scout.VerdictRecommended, report.Verdict)
	assert.Equal(t, "conservative", report.RecommendedTemplate)
	require.NotNil(t, report.Proposal)
	assert.Equal(t, 1.0, report.Proposal.SuccessRate)
}

func TestFindSimilarSortsDescendingAndRespectsTopK(t *testing.T) {
	m := scout.NewEpisodeMatcher()
	target := map[string]float64{"complexity": 3, "risk": 3, "urgency": 3}
	episodes := []honeycomb.Episode{
		episode("a", honeycomb.OutcomeSuccess, 1, map[string]float64{"complexity": 3, "risk": 3, "urgency": 3}),
		episode("b", honeycomb.OutcomeSuccess, 1, map[string]float64{"complexity": 1, "risk": 1, "urgency": 1}),
	}
	result := m.FindSimilar(target, episodes, 1, 0.0)
	require.Len(t, result, 1)
	assert.Equal(t, "a", result[0].Episode.TemplateUsed)
	assert.InDelta(t, 1.0, result[0].Similarity, 0.001)
}

func TestFindSimilarUsesFeatureDefaultForMissingKeys(t *testing.T) {
	m := scout.NewEpisodeMatcher()
	target := map[string]float64{"complexity": 3, "risk": 3, "urgency": 3}
	episodes := []honeycomb.Episode{episode("a", honeycomb.OutcomeSuccess, 1, map[string]float64{})}
	result := m.FindSimilar(target, episodes, 10, 0.0)
	require.Len(t, result, 1)
	assert.InDelta(t, 1.0, result[0].Similarity, 0.001)
}

type fakeRunner struct {
	output string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, prompt string) (string, error) {
	return f.output, f.err
}

func TestRecommendWithLLMEnhancesReason(t *testing.T) {
	features := map[string]float64{"complexity": 3, "risk": 2, "urgency": 2}
	episodes := []honeycomb.Episode{
		episode("balanced", honeycomb.OutcomeSuccess, 5, features),
	}
	s := scout.NewScout(1, 10, 0.0, scout.WithAgentRunner(&fakeRunner{output: "Use balanced: strong historical success."}))
	report := s.RecommendWithLLM(context.Background(), features, episodes, "write hello.txt")
	require.NotNil(t, report.Proposal)
	assert.Equal(t, "Use balanced: strong historical success.", report.Proposal.Reason)
}

func TestRecommendWithLLMFallsBackOnRunnerError(t *testing.T) {
	features := map[string]float64{"complexity": 3, "risk": 2, "urgency": 2}
	episodes := []honeycomb.Episode{episode("balanced", honeycomb.OutcomeSuccess, 5, features)}
	s := scout.NewScout(1, 10, 0.0, scout.WithAgentRunner(&fakeRunner{err: errors.New("llm unavailable")}))
	report := s.RecommendWithLLM(context.Background(), features, episodes, "goal")
	require.NotNil(t, report.Proposal)
	assert.NotEmpty(t, report.Proposal.Reason)
}

func TestRecommendWithLLMSkippedWhenNotRecommended(t *testing.T) {
	s := scout.NewScout(5, 10, 0.3, scout.WithAgentRunner(&fakeRunner{output: "should not be used"}))
	report := s.RecommendWithLLM(context.Background(), map[string]float64{}, nil, "goal")
	assert.Equal(t, scout.VerdictColdStart, report.Verdict)
}

func TestTemplateAnalyzerBestTemplateBreaksTiesOnDuration(t *testing.T) {
	a := scout.NewTemplateAnalyzer()
	episodes := []honeycomb.Episode{
		episode("slow", honeycomb.OutcomeSuccess, 100, nil),
		episode("fast", honeycomb.OutcomeSuccess, 10, nil),
	}
	assert.Equal(t, "fast", a.BestTemplate(episodes))
}

func TestTemplateAnalyzerEmptyEpisodes(t *testing.T) {
	a := scout.NewTemplateAnalyzer()
	assert.Equal(t, "", a.BestTemplate(nil))
	assert.Empty(t, a.Analyze(nil))
}
