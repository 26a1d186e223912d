package honeycomb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colonyforge/core/internal/events"
)

// Replayer returns the full event stream for a run, in append order.
type Replayer interface {
	Replay(ctx context.Context, streamID string, since time.Time) ([]events.Event, error)
}

// Store persists recorded Episodes.
type Store interface {
	Save(ctx context.Context, ep Episode) error
}

// Recorder builds Episodes from a Run's AR stream and persists them.
type Recorder struct {
	replayer Replayer
	store    Store
}

// NewRecorder constructs a Recorder over the given replay source and store.
func NewRecorder(replayer Replayer, store Store) *Recorder {
	return &Recorder{replayer: replayer, store: store}
}

// RecordRunEpisode replays runID's stream, derives outcome/duration/failure
// class/KPI scores/intervention count from it, and persists the Episode.
func (r *Recorder) RecordRunEpisode(
	ctx context.Context,
	runID, colonyID, goal, templateUsed string,
	taskFeatures map[string]float64,
	parentEpisodeIDs []string,
	metadata map[string]any,
) (Episode, error) {
	evts, err := r.replayer.Replay(ctx, runID, time.Time{})
	if err != nil {
		return Episode{}, err
	}

	outcome := determineOutcome(evts)
	duration := calculateDuration(evts)

	var failureClass *FailureClass
	if outcome != OutcomeSuccess {
		failureClass = classifyFailure(evts)
	}

	ep := Episode{
		EpisodeID:                 uuid.Must(uuid.NewV7()).String(),
		RunID:                     runID,
		ColonyID:                  colonyID,
		TemplateUsed:              templateUsed,
		TaskFeatures:              taskFeatures,
		Outcome:                   outcome,
		DurationSeconds:           duration,
		TokenCount:                countTokens(evts),
		FailureClass:              failureClass,
		SentinelInterventionCount: countSentinelInterventions(evts),
		KPIScores:                 calculateKPIScores(outcome, duration),
		ParentEpisodeIDs:          parentEpisodeIDs,
		Goal:                      goal,
		Metadata:                  metadata,
	}

	if err := r.store.Save(ctx, ep); err != nil {
		return Episode{}, err
	}
	return ep, nil
}

func determineOutcome(evts []events.Event) Outcome {
	var completed, failed, aborted bool
	var taskCompleted, taskFailed int
	for _, e := range evts {
		switch e.Type {
		case events.RunCompleted:
			completed = true
		case events.RunFailed:
			failed = true
		case events.RunAborted:
			aborted = true
		case events.TaskCompleted:
			taskCompleted++
		case events.TaskFailed:
			taskFailed++
		}
	}

	switch {
	case completed:
		return OutcomeSuccess
	case failed:
		if taskCompleted > 0 && taskFailed > 0 {
			return OutcomePartial
		}
		return OutcomeFailure
	case aborted:
		return OutcomeFailure
	default:
		return OutcomePartial
	}
}

func calculateDuration(evts []events.Event) float64 {
	if len(evts) < 2 {
		return 0
	}
	first := evts[0].Timestamp
	last := evts[len(evts)-1].Timestamp
	d := last.Sub(first).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

func classifyFailure(evts []events.Event) *FailureClass {
	for i := len(evts) - 1; i >= 0; i-- {
		e := evts[i]
		if e.Type != events.TaskFailed && e.Type != events.RunFailed {
			continue
		}
		reason, _ := e.Payload["reason"].(string)
		reason = strings.ToLower(reason)

		var fc FailureClass
		switch {
		case strings.Contains(reason, "timeout") || strings.Contains(reason, "time"):
			fc = FailureTimeout
		case strings.Contains(reason, "connect") || strings.Contains(reason, "network") || strings.Contains(reason, "environment"):
			fc = FailureEnvironment
		case strings.Contains(reason, "integration") || strings.Contains(reason, "merge"):
			fc = FailureIntegration
		case strings.Contains(reason, "compile") || strings.Contains(reason, "syntax") || strings.Contains(reason, "import"):
			fc = FailureImplementation
		case strings.Contains(reason, "design") || strings.Contains(reason, "architecture"):
			fc = FailureDesign
		case strings.Contains(reason, "spec") || strings.Contains(reason, "requirement") || strings.Contains(reason, "ambiguous"):
			fc = FailureSpecification
		default:
			fc = FailureImplementation
		}
		return &fc
	}
	return nil
}

func countTokens(evts []events.Event) int {
	total := 0
	for _, e := range evts {
		switch e.Type {
		case events.WorkerCompleted:
			total += intFromPayload(e.Payload, "token_count")
		case events.WorkerProgress:
			total += intFromPayload(e.Payload, "tokens_used")
		}
	}
	return total
}

func intFromPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

var sentinelInterventionTypes = map[events.Type]bool{
	events.SentinelAlertRaised:    true,
	events.SentinelRollback:       true,
	events.SentinelQuarantine:     true,
	events.SentinelKPIDegradation: true,
	events.EmergencyStop:          true,
}

// countSentinelInterventions counts alert/rollback/quarantine/kpi-degradation/
// emergency-stop events. Routine sentinel.report events are not interventions
// and are excluded.
func countSentinelInterventions(evts []events.Event) int {
	n := 0
	for _, e := range evts {
		if sentinelInterventionTypes[e.Type] {
			n++
		}
	}
	return n
}

func calculateKPIScores(outcome Outcome, duration float64) KPIScores {
	var correctness float64
	switch outcome {
	case OutcomeSuccess:
		correctness = 1.0
	case OutcomePartial:
		correctness = 0.5
	case OutcomeFailure:
		correctness = 0.0
	}

	incidentRate := 0.0
	if outcome != OutcomeSuccess {
		incidentRate = 1.0
	}

	scores := KPIScores{
		Correctness:  ptr(correctness),
		IncidentRate: ptr(incidentRate),
	}
	if duration > 0 {
		scores.LeadTimeSeconds = ptr(duration)
	}
	return scores
}
