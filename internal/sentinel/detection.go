package sentinel

import (
	"time"

	"github.com/colonyforge/core/internal/actionclass"
	"github.com/colonyforge/core/internal/config"
	"github.com/colonyforge/core/internal/events"
)

// Thresholds bounds the detectors. Embedders typically populate this from
// config.Governance; see ThresholdsFromGovernance.
type Thresholds struct {
	MaxEventRate      int
	RateWindowSeconds int
	MaxLoopCount      int
	MaxCost           float64
	KPIDropThreshold  float64
}

// ThresholdsFromGovernance narrows a config.Governance down to the fields
// the Detector uses (MaxRetries and MaxOscillations govern the state
// machines directly, not Sentinel's scanners).
func ThresholdsFromGovernance(g config.Governance) Thresholds {
	return Thresholds{
		MaxEventRate:      g.MaxEventRate,
		RateWindowSeconds: g.RateWindowSeconds,
		MaxLoopCount:      g.MaxLoopCount,
		MaxCost:           g.MaxCost,
		KPIDropThreshold:  g.KPIDropThreshold,
	}
}

// Detector runs the spec §4.8 scanners over a slice of recent events from
// one colony's stream. It holds no state of its own between calls.
type Detector struct {
	thresholds Thresholds
}

// New constructs a Detector over thresholds.
func New(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// CheckEvents runs every event-based scanner (loop, runaway, cost,
// security) and returns the union of raised alerts.
func (d *Detector) CheckEvents(evts []events.Event, colonyID string) []Alert {
	var alerts []Alert
	alerts = append(alerts, d.checkLoops(evts, colonyID)...)
	alerts = append(alerts, d.checkRunaway(evts, colonyID)...)
	alerts = append(alerts, d.checkCost(evts, colonyID)...)
	alerts = append(alerts, d.checkSecurity(evts, colonyID)...)
	return alerts
}

func (d *Detector) checkLoops(evts []events.Event, colonyID string) []Alert {
	var alerts []Alert

	taskFailCounts := map[string]int{}
	for _, e := range evts {
		taskID, _ := e.Payload["task_id"].(string)
		if taskID == "" {
			continue
		}
		if e.Type == events.TaskFailed || e.Type == events.ColonyFailed {
			taskFailCounts[taskID]++
		}
	}
	for taskID, count := range taskFailCounts {
		if count >= d.thresholds.MaxLoopCount {
			alerts = append(alerts, Alert{
				AlertType: AlertLoopDetected,
				ColonyID:  colonyID,
				Severity:  SeverityCritical,
				Message:   "task failed repeatedly",
				Details:   map[string]any{"task_id": taskID, "fail_count": count},
			})
		}
	}

	if len(evts) >= d.thresholds.MaxLoopCount*2 {
		alerts = append(alerts, d.detectTypeCycle(evts, colonyID)...)
	}
	return alerts
}

// detectTypeCycle flags a trailing window of exactly two alternating event
// types (A→B→A→B...), mirroring the original detector's even/odd-index
// partition check.
func (d *Detector) detectTypeCycle(evts []events.Event, colonyID string) []Alert {
	window := d.thresholds.MaxLoopCount * 2
	if len(evts) < window {
		return nil
	}
	recent := evts[len(evts)-window:]

	unique := map[events.Type]bool{}
	for _, e := range recent {
		unique[e.Type] = true
	}
	if len(unique) != 2 {
		return nil
	}

	even := map[events.Type]bool{}
	odd := map[events.Type]bool{}
	for i, e := range recent {
		if i%2 == 0 {
			even[e.Type] = true
		} else {
			odd[e.Type] = true
		}
	}
	if len(even) != 1 || len(odd) != 1 {
		return nil
	}

	pattern := make([]string, 0, 2)
	for t := range unique {
		pattern = append(pattern, string(t))
	}
	return []Alert{{
		AlertType: AlertLoopDetected,
		ColonyID:  colonyID,
		Severity:  SeverityCritical,
		Message:   "cyclic event pattern detected",
		Details: map[string]any{
			"pattern":      pattern,
			"cycle_length": 2,
			"repetitions":  d.thresholds.MaxLoopCount,
		},
	}}
}

func (d *Detector) checkRunaway(evts []events.Event, colonyID string) []Alert {
	windowStart := time.Now().UTC().Add(-time.Duration(d.thresholds.RateWindowSeconds) * time.Second)
	count := 0
	for _, e := range evts {
		if !e.Timestamp.Before(windowStart) {
			count++
		}
	}
	if count > d.thresholds.MaxEventRate {
		return []Alert{{
			AlertType: AlertRunawayDetected,
			ColonyID:  colonyID,
			Severity:  SeverityCritical,
			Message:   "event rate exceeds threshold",
			Details: map[string]any{
				"event_rate":     count,
				"threshold":      d.thresholds.MaxEventRate,
				"window_seconds": d.thresholds.RateWindowSeconds,
			},
		}}
	}
	return nil
}

func (d *Detector) checkCost(evts []events.Event, colonyID string) []Alert {
	var totalCost float64
	var totalTokens int
	for _, e := range evts {
		if e.Type != events.LLMResponse {
			continue
		}
		if cost, ok := asFloat(e.Payload["cost"]); ok {
			totalCost += cost
		}
		if tokens, ok := asFloat(e.Payload["tokens_used"]); ok {
			totalTokens += int(tokens)
		}
	}
	if totalCost > d.thresholds.MaxCost {
		return []Alert{{
			AlertType: AlertCostExceeded,
			ColonyID:  colonyID,
			Severity:  SeverityCritical,
			Message:   "total LLM cost exceeds threshold",
			Details: map[string]any{
				"total_cost":   totalCost,
				"total_tokens": totalTokens,
				"threshold":    d.thresholds.MaxCost,
			},
		}}
	}
	return nil
}

func (d *Detector) checkSecurity(evts []events.Event, colonyID string) []Alert {
	var alerts []Alert
	for _, e := range evts {
		if e.Type != events.WorkerStarted {
			continue
		}
		toolName, _ := e.Payload["tool_name"].(string)
		if toolName == "" {
			continue
		}

		var class actionclass.Class
		if s, ok := e.Payload["action_class"].(string); ok && s != "" && actionclass.Class(s).Valid() {
			class = actionclass.Class(s)
		} else {
			class = actionclass.Classify(toolName, e.Payload)
		}
		if class == actionclass.ReadOnly {
			continue
		}

		confirmed, _ := e.Payload["confirmed"].(bool)
		if class == actionclass.Irreversible && !confirmed {
			trustLevel, _ := e.Payload["trust_level"].(string)
			if trustLevel == "" {
				trustLevel = string(actionclass.ReportOnly)
			}
			alerts = append(alerts, Alert{
				AlertType: AlertSecurityViolation,
				ColonyID:  colonyID,
				Severity:  SeverityCritical,
				Message:   "unconfirmed irreversible action",
				Details: map[string]any{
					"tool_name":    toolName,
					"action_class": string(class),
					"trust_level":  trustLevel,
					"confirmed":    confirmed,
				},
			})
		}
	}
	return alerts
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
