package sentinel

import (
	"context"

	"github.com/colonyforge/core/internal/events"
)

// Appender records events to the per-colony Akashic Record stream.
type Appender interface {
	Append(ctx context.Context, event events.Event, streamID string) (events.Event, error)
}

// Sentinel wraps a Detector with the append-record-then-suspend (ARBS)
// ordering guarantee from spec §4.8: every alert is appended to the AR
// before any colony.suspended event derived from it, so the cause is always
// visible ahead of the effect in the stream.
type Sentinel struct {
	ar       Appender
	detector *Detector
	limiter  *CallLimiter
}

// NewSentinel constructs a Sentinel over ar and detector and, optionally, a
// CallLimiter to back off when it raises critical cost, security or runaway
// alerts.
func NewSentinel(ar Appender, detector *Detector, limiter *CallLimiter) *Sentinel {
	return &Sentinel{ar: ar, detector: detector, limiter: limiter}
}

// ScanAndSuspend runs every event-based detector over evts, appends a
// sentinel.alert_raised event per finding, then — only after every alert is
// recorded — appends a single colony.suspended event if any finding was
// critical. It returns the alerts it raised.
func (s *Sentinel) ScanAndSuspend(ctx context.Context, evts []events.Event, colonyID, runID string) ([]Alert, error) {
	alerts := s.detector.CheckEvents(evts, colonyID)
	return alerts, s.recordAndSuspend(ctx, alerts, colonyID, runID)
}

// ScanKPIAndSuspend runs KPI-drift detection and applies the same ARBS
// ordering.
func (s *Sentinel) ScanKPIAndSuspend(ctx context.Context, colonyID, runID string, previous, current map[string]float64) ([]Alert, error) {
	alerts := s.detector.CheckKPIDegradation(colonyID, previous, current)
	return alerts, s.recordAndSuspend(ctx, alerts, colonyID, runID)
}

func (s *Sentinel) recordAndSuspend(ctx context.Context, alerts []Alert, colonyID, runID string) error {
	anyCritical := false
	for _, a := range alerts {
		evt := events.New(alertEventType(a), "sentinel", runID, alertPayload(a))
		if _, err := s.ar.Append(ctx, evt, runID); err != nil {
			return err
		}
		if a.IsCritical() {
			anyCritical = true
			s.backoffFor(a, colonyID)
		}
	}
	if !anyCritical {
		return nil
	}
	suspend := events.New(events.ColonySuspended, "sentinel", runID, map[string]any{
		"colony_id": colonyID,
		"reason":    "sentinel raised a critical alert",
	})
	_, err := s.ar.Append(ctx, suspend, runID)
	return err
}

func (s *Sentinel) backoffFor(a Alert, colonyID string) {
	if s.limiter == nil {
		return
	}
	switch a.AlertType {
	case AlertCostExceeded, AlertSecurityViolation, AlertRunawayDetected:
		s.limiter.Backoff(colonyID)
	}
}

func alertEventType(a Alert) events.Type {
	if a.AlertType == AlertKPIDegradation {
		return events.SentinelKPIDegradation
	}
	return events.SentinelAlertRaised
}

func alertPayload(a Alert) map[string]any {
	payload := map[string]any{
		"alert_type": string(a.AlertType),
		"colony_id":  a.ColonyID,
		"severity":   string(a.Severity),
		"message":    a.Message,
	}
	for k, v := range a.Details {
		payload[k] = v
	}
	return payload
}
