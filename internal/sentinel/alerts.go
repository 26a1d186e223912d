// Package sentinel implements the stateless anomaly scanner: loop,
// runaway, cost, security-policy, and KPI-drift detection over a stream of
// recently-appended events.
package sentinel

// Severity discriminates whether an Alert merely warns or forces a
// colony.suspended event (spec §4.8).
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertType names the anomaly category.
type AlertType string

const (
	AlertLoopDetected      AlertType = "loop_detected"
	AlertRunawayDetected   AlertType = "runaway_detected"
	AlertCostExceeded      AlertType = "cost_exceeded"
	AlertSecurityViolation AlertType = "security_violation"
	AlertKPIDegradation    AlertType = "kpi_degradation"
)

// Alert is one detected anomaly.
type Alert struct {
	AlertType AlertType
	ColonyID  string
	Severity  Severity
	Message   string
	Details   map[string]any
}

// IsCritical reports whether a translates to a colony.suspended event.
func (a Alert) IsCritical() bool { return a.Severity == SeverityCritical }
