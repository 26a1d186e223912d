// Package conference projects Conference (multi-colony council) state
// from the AR and persists a sibling JSONL snapshot, grounded on
// core/state/conference.py's ConferenceProjection/ConferenceStore.
package conference

import (
	"time"

	"github.com/colonyforge/core/internal/events"
)

// State is a Conference's lifecycle state.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Conference is the projected state of one conference, built by replaying
// conference.started/conference.ended events.
type Conference struct {
	ConferenceID    string     `json:"conference_id"`
	HiveID          string     `json:"hive_id"`
	Topic           string     `json:"topic"`
	Participants    []string   `json:"participants"`
	InitiatedBy     string     `json:"initiated_by"`
	State           State      `json:"state"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DecisionsMade   []string   `json:"decisions_made"`
	Summary         string     `json:"summary"`
	DurationSeconds int        `json:"duration_seconds"`
}

// BuildProjection replays evts and folds conference.started/ended events
// matching conferenceID into a Conference. Returns nil if no matching
// conference.started event is found.
func BuildProjection(evts []events.Event, conferenceID string) *Conference {
	var c *Conference

	for _, e := range evts {
		switch e.Type {
		case events.ConferenceStarted:
			if payloadString(e.Payload, "conference_id") != conferenceID {
				continue
			}
			ts := e.Timestamp
			c = &Conference{
				ConferenceID: conferenceID,
				HiveID:       payloadString(e.Payload, "hive_id"),
				Topic:        payloadString(e.Payload, "topic"),
				Participants: payloadStringSlice(e.Payload, "participants"),
				InitiatedBy:  defaultString(payloadString(e.Payload, "initiated_by"), "user"),
				State:        StateActive,
				StartedAt:    &ts,
			}
		case events.ConferenceEnded:
			if c == nil || payloadString(e.Payload, "conference_id") != conferenceID {
				continue
			}
			ts := e.Timestamp
			c.State = StateEnded
			c.EndedAt = &ts
			c.DecisionsMade = payloadStringSlice(e.Payload, "decisions_made")
			c.Summary = payloadString(e.Payload, "summary")
			c.DurationSeconds = payloadInt(e.Payload, "duration_seconds")
		}
	}

	return c
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadStringSlice(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		if s, ok := payload[key].([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func payloadInt(payload map[string]any, key string) int {
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
