package honeycomb

import (
	"context"
	"errors"
	"time"

	"github.com/colonyforge/core/internal/events"
)

// ErrScopeRequired is returned when CountEvents is called without a run or
// colony scope, to prevent an unbounded full-vault scan.
var ErrScopeRequired = errors.New("honeycomb: scope required: specify RunID or ColonyID")

// StreamLister enumerates every stream id the replay source knows about,
// for a colony-wide scan.
type StreamLister interface {
	ListStreams() ([]string, error)
}

// CounterScope bounds a CountEvents call to a run, a colony (optionally
// time-windowed), or errors if neither is set.
type CounterScope struct {
	RunID    string
	ColonyID string
	From     time.Time
	To       time.Time
}

// Counters are the dashboard-visible tallies derived from guard/sentinel/
// decision/escalation events over a scope.
type Counters struct {
	GuardPassCount           int
	GuardConditionalCount    int
	GuardFailCount           int
	GuardTotalCount          int
	GuardRejectCount         int
	SentinelAlertCount       int
	SentinelFalseAlarmCount int
	TotalMonitoringPeriods   int
	EscalationCount          int
	DecisionCount            int
	RefereeSelectedCount     int
	RefereeCandidateCount    int
}

// CountEvents replays every stream in scope and tallies guard/sentinel/
// decision/referee events, deduplicating by event id. Mirrors
// event_counters.py's count_events.
func CountEvents(ctx context.Context, replayer Replayer, lister StreamLister, scope CounterScope) (Counters, error) {
	if scope.RunID == "" && scope.ColonyID == "" {
		return Counters{}, ErrScopeRequired
	}

	var runIDs []string
	if scope.RunID != "" {
		runIDs = []string{scope.RunID}
	} else {
		ids, err := lister.ListStreams()
		if err != nil {
			return Counters{}, err
		}
		runIDs = ids
	}

	var counters Counters
	seen := map[string]bool{}

	for _, rid := range runIDs {
		evts, err := replayer.Replay(ctx, rid, time.Time{})
		if err != nil {
			return Counters{}, err
		}
		for _, e := range evts {
			if !scope.From.IsZero() && e.Timestamp.Before(scope.From) {
				continue
			}
			if !scope.To.IsZero() && !e.Timestamp.Before(scope.To) {
				continue
			}
			if scope.ColonyID != "" && e.ColonyID != scope.ColonyID {
				continue
			}
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			countEvent(&counters, e)
		}
	}

	return counters, nil
}

func countEvent(c *Counters, e events.Event) {
	switch e.Type {
	case events.GuardPassed:
		c.GuardPassCount++
		c.GuardTotalCount++
	case events.GuardConditionalPassed:
		c.GuardConditionalCount++
		c.GuardTotalCount++
	case events.GuardFailed:
		c.GuardFailCount++
		c.GuardTotalCount++
		c.GuardRejectCount++
	case events.SentinelAlertRaised:
		c.SentinelAlertCount++
		if falseAlarm, ok := e.Payload["false_alarm"].(bool); ok && falseAlarm {
			c.SentinelFalseAlarmCount++
		}
	case events.SentinelReport:
		c.TotalMonitoringPeriods++
	case events.QueenEscalation:
		c.EscalationCount++
	case events.DecisionRecorded:
		c.DecisionCount++
	case events.ProposalCreated:
		c.RefereeCandidateCount++
	case events.DecisionApplied:
		c.RefereeSelectedCount++
	}
}
