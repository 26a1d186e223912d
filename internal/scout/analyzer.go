package scout

import "github.com/colonyforge/core/internal/honeycomb"

// TemplateAnalyzer groups episodes by the template they used and computes
// per-template success rate and mean duration.
type TemplateAnalyzer struct{}

// NewTemplateAnalyzer constructs a TemplateAnalyzer.
func NewTemplateAnalyzer() *TemplateAnalyzer { return &TemplateAnalyzer{} }

// Analyze returns TemplateStats keyed by template name.
func (a *TemplateAnalyzer) Analyze(episodes []honeycomb.Episode) map[string]TemplateStats {
	if len(episodes) == 0 {
		return map[string]TemplateStats{}
	}

	groups := map[string][]honeycomb.Episode{}
	for _, ep := range episodes {
		groups[ep.TemplateUsed] = append(groups[ep.TemplateUsed], ep)
	}

	stats := make(map[string]TemplateStats, len(groups))
	for name, group := range groups {
		total := len(group)
		success := 0
		var durationSum float64
		durationN := 0
		for _, ep := range group {
			if ep.Outcome == honeycomb.OutcomeSuccess {
				success++
			}
			if ep.DurationSeconds > 0 {
				durationSum += ep.DurationSeconds
				durationN++
			}
		}
		avgDuration := 0.0
		if durationN > 0 {
			avgDuration = durationSum / float64(durationN)
		}
		stats[name] = TemplateStats{
			TemplateName:       name,
			TotalCount:         total,
			SuccessCount:       success,
			SuccessRate:        float64(success) / float64(total),
			AvgDurationSeconds: avgDuration,
		}
	}
	return stats
}

// BestTemplate returns the template with the highest success rate,
// breaking ties in favor of the shorter average duration. Returns ""
// when episodes is empty.
func (a *TemplateAnalyzer) BestTemplate(episodes []honeycomb.Episode) string {
	stats := a.Analyze(episodes)
	if len(stats) == 0 {
		return ""
	}

	var best TemplateStats
	found := false
	for _, s := range stats {
		if !found ||
			s.SuccessRate > best.SuccessRate ||
			(s.SuccessRate == best.SuccessRate && s.AvgDurationSeconds < best.AvgDurationSeconds) {
			best = s
			found = true
		}
	}
	return best.TemplateName
}
