package events

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Event is the immutable envelope shared by every event variant. Variant-
// specific data rides in Payload, and every Payload key is kept on read,
// including keys no projector recognizes. Top-level fields outside this
// struct are not kept: Parse drops them.
type Event struct {
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

// NewID mints a lexicographically sortable, time-ordered 128-bit event id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New constructs an Event with a fresh id, current timestamp, and computed
// hash. PrevHash is left empty; the vault assigns it at append time.
func New(typ Type, actor, runID string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	e := Event{
		ID:        NewID(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		RunID:     runID,
		Payload:   payload,
	}
	e.Hash = e.computeHash()
	return e
}

// WithPrevHash returns a copy of e with PrevHash set and Hash recomputed,
// since Hash covers every field except itself.
func (e Event) WithPrevHash(prevHash string) Event {
	e.PrevHash = prevHash
	e.Hash = e.computeHash()
	return e
}

// canonicalFields returns the map used for hashing: every field of the
// event except Hash itself, with deterministic (sorted) key ordering
// supplied by canonicalJSON.
func (e Event) canonicalFields() map[string]any {
	m := map[string]any{
		"id":        e.ID,
		"type":      string(e.Type),
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"actor":     e.Actor,
		"run_id":    e.RunID,
		"payload":   e.Payload,
	}
	if e.TaskID != "" {
		m["task_id"] = e.TaskID
	}
	if e.ColonyID != "" {
		m["colony_id"] = e.ColonyID
	}
	if e.WorkerID != "" {
		m["worker_id"] = e.WorkerID
	}
	if e.PrevHash != "" {
		m["prev_hash"] = e.PrevHash
	} else {
		m["prev_hash"] = nil
	}
	if len(e.Parents) > 0 {
		m["parents"] = e.Parents
	}
	return m
}

// computeHash returns the SHA-256 digest, hex-encoded, of the canonical
// JSON serialization of every field except Hash.
func (e Event) computeHash() string {
	canonical := canonicalJSON(e.canonicalFields())
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the event's hash and reports whether it matches the
// stored value, i.e. the event has not been tampered with in transit.
func (e Event) Verify() bool {
	return e.computeHash() == e.Hash
}

// canonicalJSON serializes v with object keys sorted at every level, so the
// same logical event always hashes to the same bytes regardless of map
// iteration order.
func canonicalJSON(v any) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			sb, _ := json.Marshal(s)
			buf.Write(sb)
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	}
}

// MarshalJSONL serializes the event to a single JSONL line, without a
// trailing newline.
func (e Event) MarshalJSONL() ([]byte, error) {
	return json.Marshal(e)
}
