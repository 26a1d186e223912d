package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEvent mirrors Event's JSON shape. Payload decodes into a plain map,
// so every payload key survives Parse; top-level fields not listed here
// are dropped.
type wireEvent struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	RunID     string         `json:"run_id"`
	TaskID    string         `json:"task_id,omitempty"`
	ColonyID  string         `json:"colony_id,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	Hash      string         `json:"hash"`
	PrevHash  string         `json:"prev_hash,omitempty"`
	Parents   []string       `json:"parents,omitempty"`
}

// Parse decodes a single JSONL line (or an already-decoded map, via
// ParseMap) into an Event. Parse never rejects an unrecognized Type: the
// open enumeration means any dotted-namespace string round-trips, and
// callers that care distinguish known from unknown via IsKnownType.
func Parse(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return Event{}, fmt.Errorf("events: parse line: %w", err)
	}
	if w.ID == "" {
		return Event{}, fmt.Errorf("events: parse line: missing id")
	}
	if w.Payload == nil {
		w.Payload = map[string]any{}
	}
	return Event{
		ID:        w.ID,
		Type:      w.Type,
		Timestamp: w.Timestamp,
		Actor:     w.Actor,
		RunID:     w.RunID,
		TaskID:    w.TaskID,
		ColonyID:  w.ColonyID,
		WorkerID:  w.WorkerID,
		Payload:   w.Payload,
		Hash:      w.Hash,
		PrevHash:  w.PrevHash,
		Parents:   w.Parents,
	}, nil
}

// ParseMap decodes an already-unmarshaled map into an Event, used when the
// caller has decoded the envelope but wants the mutated prev_hash/run_id
// applied before re-serializing, mirroring the append path's
// mutate-then-reparse pattern.
func ParseMap(m map[string]any) (Event, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return Event{}, fmt.Errorf("events: parse map: %w", err)
	}
	return Parse(b)
}

var knownTypes = map[Type]bool{
	HiveCreated: true, HiveClosed: true,
	ColonyCreated: true, ColonyStarted: true, ColonySuspended: true, ColonyCompleted: true, ColonyFailed: true,
	RunStarted: true, RunCompleted: true, RunFailed: true, RunAborted: true,
	TaskCreated: true, TaskAssigned: true, TaskProgressed: true, TaskCompleted: true, TaskFailed: true, TaskBlocked: true, TaskUnblocked: true,
	RequirementCreated: true, RequirementApproved: true, RequirementRejected: true,
	DecisionRecorded: true, ProposalCreated: true, DecisionApplied: true, DecisionSuperseded: true,
	ConferenceStarted: true, ConferenceEnded: true,
	ConflictDetected: true, ConflictResolved: true,
	OperationTimeout: true, OperationFailed: true,
	UserDirectIntervention: true, QueenEscalation: true, BeekeeperFeedback: true,
	WorkerAssigned: true, WorkerStarted: true, WorkerProgress: true, WorkerCompleted: true, WorkerFailed: true,
	LLMRequest: true, LLMResponse: true,
	SentinelAlertRaised: true, SentinelReport: true, SentinelRollback: true, SentinelQuarantine: true, SentinelKPIDegradation: true,
	GuardVerificationRequested: true, GuardPassed: true, GuardConditionalPassed: true, GuardFailed: true,
	PipelineStarted: true, PipelineCompleted: true, PlanValidationFailed: true, PlanApprovalRequired: true, PlanFallbackActivated: true,
	Heartbeat: true, SystemError: true, SilenceDetected: true, EmergencyStop: true,
	RAIntakeReceived: true, RATriageCompleted: true, RAContextEnriched: true, RAHypothesisBuilt: true, RAClarifyGenerated: true,
	RAUserResponded: true, RASpecSynthesized: true, RAChallengeReviewed: true, RAGateDecided: true, RACompleted: true, RARefereeCompared: true,
	RAWebResearched: true, RAWebSkipped: true,
}

// IsKnownType reports whether t is a discriminator this build recognizes.
// Unknown types are still valid events (forward-compat, spec.md §3): they
// just don't get variant-specific projection handling.
func IsKnownType(t Type) bool {
	return knownTypes[t]
}
