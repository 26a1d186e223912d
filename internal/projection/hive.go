package projection

import (
	"time"

	"github.com/colonyforge/core/internal/events"
)

type HiveState string

const (
	HiveActive HiveState = "active"
	HiveIdle   HiveState = "idle"
	HiveClosed HiveState = "closed"
)

type ColonyState string

const (
	ColonyPending    ColonyState = "pending"
	ColonyInProgress ColonyState = "in_progress"
	ColonySuspended  ColonyState = "suspended"
	ColonyCompleted  ColonyState = "completed"
	ColonyFailed     ColonyState = "failed"
)

// Colony is the current state view of a single colony within a hive.
type Colony struct {
	ID          string
	State       ColonyState
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
	SuspendReason string
}

// Hive is the aggregate projection over a hive-level event stream: the
// hive's own ACTIVE/IDLE/CLOSED lifecycle plus every colony it contains.
// Hive-level events live at <vault>/hives/<hive_id>/events.jsonl (spec.md
// §7), a sibling stream to the per-run logs.
type Hive struct {
	ID          string
	State       HiveState
	Colonies    map[string]*Colony
	CreatedAt   time.Time
	ClosedAt    time.Time
}

func newHive(hiveID string) *Hive {
	return &Hive{ID: hiveID, State: HiveIdle, Colonies: map[string]*Colony{}}
}

// HiveProjector folds hive.* and colony.* events into a Hive aggregate. A
// hive starts IDLE; it becomes ACTIVE the instant any colony starts, and
// reverts to IDLE only when every known colony has left IN_PROGRESS.
type HiveProjector struct {
	hive *Hive
}

// NewHiveProjector starts a fresh projector for hiveID.
func NewHiveProjector(hiveID string) *HiveProjector {
	return &HiveProjector{hive: newHive(hiveID)}
}

// Apply folds a single event into the hive aggregate.
func (p *HiveProjector) Apply(e events.Event) *Hive {
	switch e.Type {
	case events.HiveCreated:
		p.hive.State = HiveIdle
		p.hive.CreatedAt = e.Timestamp
	case events.HiveClosed:
		p.hive.State = HiveClosed
		p.hive.ClosedAt = e.Timestamp
	case events.ColonyCreated:
		if e.ColonyID == "" {
			break
		}
		p.hive.Colonies[e.ColonyID] = &Colony{
			ID:        e.ColonyID,
			State:     ColonyPending,
			CreatedAt: e.Timestamp,
			UpdatedAt: e.Timestamp,
		}
	case events.ColonyStarted:
		p.setColonyState(e, ColonyInProgress)
		p.recomputeHiveActivity()
	case events.ColonySuspended:
		p.setColonyState(e, ColonySuspended)
		if reason, ok := e.Payload["reason"].(string); ok {
			if c, ok := p.hive.Colonies[e.ColonyID]; ok {
				c.SuspendReason = reason
			}
		}
	case events.ColonyCompleted:
		p.setColonyState(e, ColonyCompleted)
		if c, ok := p.hive.Colonies[e.ColonyID]; ok {
			c.CompletedAt = e.Timestamp
		}
		p.recomputeHiveActivity()
	case events.ColonyFailed:
		p.setColonyState(e, ColonyFailed)
		if c, ok := p.hive.Colonies[e.ColonyID]; ok {
			c.CompletedAt = e.Timestamp
		}
		p.recomputeHiveActivity()
	}
	return p.hive
}

func (p *HiveProjector) setColonyState(e events.Event, state ColonyState) {
	c, ok := p.hive.Colonies[e.ColonyID]
	if !ok {
		return
	}
	c.State = state
	c.UpdatedAt = e.Timestamp
}

// recomputeHiveActivity flips the hive to ACTIVE while any colony is
// IN_PROGRESS, and back to IDLE once none are (spec.md §4: "Hive: ACTIVE <->
// IDLE via last/first colony completion").
func (p *HiveProjector) recomputeHiveActivity() {
	if p.hive.State == HiveClosed {
		return
	}
	for _, c := range p.hive.Colonies {
		if c.State == ColonyInProgress {
			p.hive.State = HiveActive
			return
		}
	}
	p.hive.State = HiveIdle
}

// BuildHive folds evts into a Hive aggregate from scratch.
func BuildHive(evts []events.Event, hiveID string) *Hive {
	projector := NewHiveProjector(hiveID)
	for _, e := range evts {
		projector.Apply(e)
	}
	return projector.hive
}
