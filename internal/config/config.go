// Package config defines the explicit configuration struct threaded through
// constructors across the core. There is no global settings singleton and no
// file-backed loader here: YAML/env loading is a caller concern (spec.md §1
// Non-goals), so embedders build a Config literal or bring their own loader.
package config

import "github.com/colonyforge/core/internal/actionclass"

// Governance bounds the anomaly/retry detectors shared by the state machines
// and the Sentinel monitor.
type Governance struct {
	// MaxRetries bounds Task FAILED -> PENDING retries (spec §4.3).
	MaxRetries int
	// MaxOscillations is N in the 2N-alternating-state oscillation detector.
	MaxOscillations int
	// MaxEventRate is the Sentinel runaway threshold (events per window).
	MaxEventRate int
	// RateWindowSeconds is the trailing window Sentinel measures event rate over.
	RateWindowSeconds int
	// MaxLoopCount is the per-task failure count (and type-cycle repetition
	// count) that trips Sentinel's loop detector.
	MaxLoopCount int
	// MaxCost is the cumulative LLM cost ceiling (USD) before Sentinel raises
	// cost_exceeded.
	MaxCost float64
	// KPIDropThreshold is the fractional (drop metrics) or absolute (rise
	// metrics) degradation ratio that trips kpi_degradation.
	KPIDropThreshold float64
}

// DefaultGovernance mirrors the original implementation's defaults.
func DefaultGovernance() Governance {
	return Governance{
		MaxRetries:        3,
		MaxOscillations:   3,
		MaxEventRate:      50,
		RateWindowSeconds: 60,
		MaxLoopCount:      3,
		MaxCost:           10.0,
		KPIDropThreshold:  0.2,
	}
}

// Config is the single explicit configuration struct passed to core
// constructors (AR, Pipeline, Sentinel, RA, ...) in place of a global
// settings object.
type Config struct {
	// VaultPath is the filesystem root the Akashic Record writes under.
	VaultPath string
	// APIKeyHeader is the boundary-layer header-key value checked by callers
	// of the handler surface (§6); the core never authenticates on its own.
	APIKeyHeader string
	// TrustLevel is the approval policy bound to this deployment.
	TrustLevel actionclass.TrustLevel
	// Governance holds the anomaly/retry thresholds.
	Governance Governance
}

// Default returns zero-config defaults suitable for tests and embedders that
// have not wired their own configuration source.
func Default() Config {
	return Config{
		VaultPath:  "./vault",
		TrustLevel: actionclass.ProposeConfirm,
		Governance: DefaultGovernance(),
	}
}
