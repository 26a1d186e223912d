package scout

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyforge/core/internal/honeycomb"
)

// AgentRunner enhances a rule-based recommendation's reason in natural
// language. Mirrors ra.AgentRunner / llm/runner.py's AgentRunner.run.
type AgentRunner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Scout recommends a Colony template from historical episodes.
type Scout struct {
	minEpisodes   int
	topK          int
	minSimilarity float64
	matcher       *EpisodeMatcher
	analyzer      *TemplateAnalyzer
	runner        AgentRunner
}

// Option configures a Scout.
type Option func(*Scout)

// WithAgentRunner enables LLM-enhanced recommendation reasons.
func WithAgentRunner(runner AgentRunner) Option {
	return func(s *Scout) { s.runner = runner }
}

// NewScout constructs a Scout with the given thresholds.
func NewScout(minEpisodes, topK int, minSimilarity float64, opts ...Option) *Scout {
	s := &Scout{
		minEpisodes:   minEpisodes,
		topK:          topK,
		minSimilarity: minSimilarity,
		matcher:       NewEpisodeMatcher(),
		analyzer:      NewTemplateAnalyzer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns a rule-based template recommendation. Below
// minEpisodes it is a cold-start verdict; with no matches above
// minSimilarity it is an insufficient-data verdict; otherwise it analyzes
// the matched episodes' templates and recommends the best one.
func (s *Scout) Recommend(targetFeatures map[string]float64, episodes []honeycomb.Episode) Report {
	if len(episodes) < s.minEpisodes {
		return Report{
			Verdict:              VerdictColdStart,
			RecommendedTemplate:  defaultTemplate,
			SimilarCount:         len(episodes),
		}
	}

	similar := s.matcher.FindSimilar(targetFeatures, episodes, s.topK, s.minSimilarity)
	if len(similar) == 0 {
		return Report{
			Verdict:              VerdictInsufficientData,
			RecommendedTemplate:  defaultTemplate,
			SimilarCount:         0,
		}
	}

	similarEpisodes := make([]honeycomb.Episode, len(similar))
	for i, se := range similar {
		similarEpisodes[i] = se.Episode
	}

	templateStats := s.analyzer.Analyze(similarEpisodes)
	best := s.analyzer.BestTemplate(similarEpisodes)
	recommended := best
	if recommended == "" {
		recommended = defaultTemplate
	}

	bestStats, hasStats := templateStats[recommended]
	proposal := &OptimizationProposal{
		TemplateName:        recommended,
		SuccessRate:         bestStats.SuccessRate,
		AvgDurationSeconds:  bestStats.AvgDurationSeconds,
		Reason:              buildReason(recommended, len(similar), bestStats, hasStats),
		SimilarEpisodeCount: len(similar),
	}

	return Report{
		Verdict:              VerdictRecommended,
		RecommendedTemplate:  recommended,
		SimilarCount:         len(similar),
		Proposal:             proposal,
		TemplateStats:        templateStats,
	}
}

// RecommendWithLLM runs Recommend, then, if an AgentRunner is configured
// and the verdict is RECOMMENDED, asks it to enhance the proposal's
// reason in natural language. Falls back silently to the rule-based
// reason on any LLM error.
func (s *Scout) RecommendWithLLM(ctx context.Context, targetFeatures map[string]float64, episodes []honeycomb.Episode, taskDescription string) Report {
	report := s.Recommend(targetFeatures, episodes)
	if s.runner == nil || report.Verdict != VerdictRecommended || report.Proposal == nil {
		return report
	}

	prompt := buildLLMPrompt(report, targetFeatures, taskDescription)
	enhanced, err := s.runner.Run(ctx, prompt)
	if err != nil || strings.TrimSpace(enhanced) == "" {
		return report
	}

	enhancedProposal := *report.Proposal
	enhancedProposal.Reason = strings.TrimSpace(enhanced)
	report.Proposal = &enhancedProposal
	return report
}

func buildReason(template string, similarCount int, stats TemplateStats, hasStats bool) string {
	if !hasStats {
		return fmt.Sprintf("based on %d similar episodes", similarCount)
	}
	ratePct := int(stats.SuccessRate * 100)
	return fmt.Sprintf("%d%% success rate for %q across %d similar tasks", ratePct, template, similarCount)
}

func buildLLMPrompt(report Report, targetFeatures map[string]float64, taskDescription string) string {
	var featuresText []string
	for k, v := range targetFeatures {
		featuresText = append(featuresText, fmt.Sprintf("%s=%.3f", k, v))
	}

	var statsText strings.Builder
	for name, stat := range report.TemplateStats {
		ratePct := int(stat.SuccessRate * 100)
		fmt.Fprintf(&statsText, "  - %s: %d%% success rate, %d episodes, %.0fs avg\n",
			name, ratePct, stat.TotalCount, stat.AvgDurationSeconds)
	}

	originalReason := ""
	if report.Proposal != nil {
		originalReason = report.Proposal.Reason
	}
	if taskDescription == "" {
		taskDescription = "No description provided"
	}

	return fmt.Sprintf(
		"Analyze the following colony template recommendation and provide a concise, actionable reason.\n\n"+
			"## Task\n%s\n\n"+
			"## Task Features\n%s\n\n"+
			"## Template Statistics (from %d similar episodes)\n%s\n"+
			"## Rule-based Recommendation\n"+
			"Template: %s\n"+
			"Original reason: %s\n\n"+
			"Provide a brief, data-backed recommendation reason (2-3 sentences).",
		taskDescription, strings.Join(featuresText, ", "), report.SimilarCount, statsText.String(),
		report.RecommendedTemplate, originalReason,
	)
}
