package honeycomb

import "math"

// Aggregator computes the KPI scores that need more than one Episode:
// repeatability (variance of the success rate within a colony) and
// recurrence_rate (how often the same failure class repeats). Single-
// episode KPIs (correctness, lead_time_seconds, incident_rate) are set per
// episode by Recorder; Aggregate averages each over the episodes that
// carry it.
type Aggregator struct{}

// NewAggregator constructs an Aggregator.
func NewAggregator() *Aggregator { return &Aggregator{} }

// Aggregate filters episodes to colonyID (all episodes when colonyID is
// empty) and folds their single-episode KPI scores into one KPIScores,
// filling repeatability and recurrence_rate from the whole set.
func (a *Aggregator) Aggregate(episodes []Episode, colonyID string) KPIScores {
	var scoped []Episode
	for _, ep := range episodes {
		if colonyID == "" || ep.ColonyID == colonyID {
			scoped = append(scoped, ep)
		}
	}
	if len(scoped) == 0 {
		return KPIScores{}
	}

	var correctnessSum, leadSum, incidentSum float64
	var correctnessN, leadN, incidentN int
	for _, ep := range scoped {
		if ep.KPIScores.Correctness != nil {
			correctnessSum += *ep.KPIScores.Correctness
			correctnessN++
		}
		if ep.KPIScores.LeadTimeSeconds != nil {
			leadSum += *ep.KPIScores.LeadTimeSeconds
			leadN++
		}
		if ep.KPIScores.IncidentRate != nil {
			incidentSum += *ep.KPIScores.IncidentRate
			incidentN++
		}
	}

	scores := KPIScores{}
	if correctnessN > 0 {
		scores.Correctness = ptr(correctnessSum / float64(correctnessN))
	}
	if leadN > 0 {
		scores.LeadTimeSeconds = ptr(leadSum / float64(leadN))
	}
	if incidentN > 0 {
		scores.IncidentRate = ptr(incidentSum / float64(incidentN))
	}
	scores.Repeatability = ptr(repeatability(scoped))
	scores.RecurrenceRate = ptr(recurrenceRate(scoped))
	return scores
}

// repeatability is 1 minus four times the variance of per-episode
// correctness (0.25 is the largest variance of values in [0,1]), floored
// at 0, so a
// colony that succeeds or fails consistently scores near 1.0 and one that
// flips between outcomes scores near 0.0.
func repeatability(episodes []Episode) float64 {
	var values []float64
	for _, ep := range episodes {
		if ep.KPIScores.Correctness != nil {
			values = append(values, *ep.KPIScores.Correctness)
		}
	}
	if len(values) < 2 {
		return 1.0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Max(0.0, 1.0-variance*4.0)
}

// recurrenceRate is the fraction of failed episodes whose failure class
// matches the failure class of an earlier episode in the same set.
func recurrenceRate(episodes []Episode) float64 {
	seen := map[FailureClass]bool{}
	var failures, recurring int
	for _, ep := range episodes {
		if ep.FailureClass == nil {
			continue
		}
		failures++
		if seen[*ep.FailureClass] {
			recurring++
		}
		seen[*ep.FailureClass] = true
	}
	if failures == 0 {
		return 0.0
	}
	return float64(recurring) / float64(failures)
}
