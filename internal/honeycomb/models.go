// Package honeycomb records one Episode per finished Run by replaying its
// event stream and aggregates per-colony KPI scores over the recorded
// episodes (spec §4.12). Grounded on core/honeycomb/{models,recorder,
// event_counters}.py.
package honeycomb

// Outcome is the terminal result of a finished Run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// FailureClass buckets the reason a Run failed, derived by keyword mapping
// on the last failure event's reason.
type FailureClass string

const (
	FailureSpecification FailureClass = "specification_error"
	FailureDesign        FailureClass = "design_error"
	FailureImplementation FailureClass = "implementation_error"
	FailureIntegration   FailureClass = "integration_error"
	FailureEnvironment   FailureClass = "environment_error"
	FailureTimeout       FailureClass = "timeout"
)

// KPIScores holds the single-episode-computable KPI values. Repeatability
// and recurrence_rate require cross-episode aggregation and are filled in
// by Aggregator.
type KPIScores struct {
	Correctness     *float64 `json:"correctness,omitempty" bson:"correctness,omitempty"`
	Repeatability   *float64 `json:"repeatability,omitempty" bson:"repeatability,omitempty"`
	LeadTimeSeconds *float64 `json:"lead_time_seconds,omitempty" bson:"lead_time_seconds,omitempty"`
	IncidentRate    *float64 `json:"incident_rate,omitempty" bson:"incident_rate,omitempty"`
	RecurrenceRate  *float64 `json:"recurrence_rate,omitempty" bson:"recurrence_rate,omitempty"`
}

// Episode is the finalized record of a Run, the basic unit of learning and
// KPI measurement (spec glossary: Episode).
type Episode struct {
	EpisodeID    string  `json:"episode_id" bson:"episode_id"`
	RunID        string  `json:"run_id" bson:"run_id"`
	ColonyID     string  `json:"colony_id" bson:"colony_id"`
	TemplateUsed string  `json:"template_used" bson:"template_used"`

	TaskFeatures map[string]float64 `json:"task_features" bson:"task_features"`

	Outcome         Outcome       `json:"outcome" bson:"outcome"`
	DurationSeconds float64       `json:"duration_seconds" bson:"duration_seconds"`
	TokenCount      int           `json:"token_count" bson:"token_count"`
	FailureClass    *FailureClass `json:"failure_class,omitempty" bson:"failure_class,omitempty"`

	SentinelInterventionCount int `json:"sentinel_intervention_count" bson:"sentinel_intervention_count"`

	KPIScores KPIScores `json:"kpi_scores" bson:"kpi_scores"`

	ParentEpisodeIDs []string `json:"parent_episode_ids,omitempty" bson:"parent_episode_ids,omitempty"`

	Goal     string         `json:"goal,omitempty" bson:"goal,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

func ptr(f float64) *float64 { return &f }
