// Package messenger implements inter-colony communication: priority FIFO
// message queues, a resource lock manager with deadlock detection, and an
// in-process hook bus for fanning out append-time notifications.
package messenger

import (
	"github.com/google/uuid"
)

// Type discriminates the kind of message carried between colonies.
type Type string

const (
	TypeRequest      Type = "request"
	TypeResponse     Type = "response"
	TypeNotification Type = "notification"
	TypeBroadcast    Type = "broadcast"
)

// Priority orders a colony's inbound queue: URGENT drains before HIGH,
// before NORMAL, before LOW.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

// Message is one envelope exchanged between colonies.
type Message struct {
	ID            string
	FromColony    string
	ToColony      string // empty for a broadcast copy
	Type          Type
	Priority      Priority
	Payload       map[string]any
	CorrelationID string
}

// NewMessageID mints a sortable message id.
func NewMessageID() string { return uuid.Must(uuid.NewV7()).String() }

// queue is a single colony's inbound mailbox: priority-ordered FIFO with a
// record of processed message ids.
type queue struct {
	colonyID  string
	pending   []Message
	processed []string
}

func newQueue(colonyID string) *queue {
	return &queue{colonyID: colonyID}
}

// enqueue inserts msg before the first lower-priority entry, or at the
// tail if none is found — a stable priority-ordered insert, so messages of
// equal priority stay FIFO among themselves.
func (q *queue) enqueue(msg Message) {
	insertAt := len(q.pending)
	for i, m := range q.pending {
		if priorityRank[msg.Priority] < priorityRank[m.Priority] {
			insertAt = i
			break
		}
	}
	q.pending = append(q.pending, Message{})
	copy(q.pending[insertAt+1:], q.pending[insertAt:])
	q.pending[insertAt] = msg
}

func (q *queue) dequeue() (Message, bool) {
	if len(q.pending) == 0 {
		return Message{}, false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.processed = append(q.processed, msg.ID)
	return msg, true
}

func (q *queue) peek() (Message, bool) {
	if len(q.pending) == 0 {
		return Message{}, false
	}
	return q.pending[0], true
}
