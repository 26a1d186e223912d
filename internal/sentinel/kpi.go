package sentinel

// dropMetrics degrade when they fall: a large (previous-current)/previous
// ratio is bad.
var dropMetrics = map[string]bool{"correctness": true, "repeatability": true}

// riseMetrics degrade when they climb: a large absolute current-previous
// delta is bad.
var riseMetrics = map[string]bool{"incident_rate": true, "recurrence_rate": true}

// CheckKPIDegradation compares previous and current KPI snapshots and
// raises kpi_degradation alerts per spec §4.8's two metric families.
func (d *Detector) CheckKPIDegradation(colonyID string, previous, current map[string]float64) []Alert {
	var alerts []Alert

	for metric := range dropMetrics {
		prev, okPrev := previous[metric]
		curr, okCurr := current[metric]
		if !okPrev || !okCurr || prev <= 0 {
			continue
		}
		dropRatio := (prev - curr) / prev
		if dropRatio > d.thresholds.KPIDropThreshold {
			severity := SeverityWarning
			if dropRatio >= 0.5 {
				severity = SeverityCritical
			}
			alerts = append(alerts, Alert{
				AlertType: AlertKPIDegradation,
				ColonyID:  colonyID,
				Severity:  severity,
				Message:   "KPI dropped below threshold",
				Details: map[string]any{
					"metric": metric, "previous": prev, "current": curr, "drop_ratio": dropRatio,
				},
			})
		}
	}

	for metric := range riseMetrics {
		prev, okPrev := previous[metric]
		curr, okCurr := current[metric]
		if !okPrev || !okCurr {
			continue
		}
		change := curr - prev
		if change > d.thresholds.KPIDropThreshold {
			severity := SeverityWarning
			if change >= 0.5 {
				severity = SeverityCritical
			}
			alerts = append(alerts, Alert{
				AlertType: AlertKPIDegradation,
				ColonyID:  colonyID,
				Severity:  severity,
				Message:   "KPI rose above threshold",
				Details: map[string]any{
					"metric": metric, "previous": prev, "current": curr, "change": change,
				},
			})
		}
	}

	return alerts
}
