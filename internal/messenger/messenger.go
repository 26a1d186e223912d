package messenger

import "sync"

// Messenger manages the per-colony inbound queues and dispatches
// send/broadcast/receive/respond traffic between registered colonies. It
// is safe for concurrent use.
type Messenger struct {
	mu       sync.Mutex
	queues   map[string]*queue
	colonies map[string]bool
}

// New constructs an empty Messenger.
func New() *Messenger {
	return &Messenger{
		queues:   map[string]*queue{},
		colonies: map[string]bool{},
	}
}

// RegisterColony adds colonyID to the known set and creates its queue if
// it doesn't already have one.
func (m *Messenger) RegisterColony(colonyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colonies[colonyID] = true
	if _, ok := m.queues[colonyID]; !ok {
		m.queues[colonyID] = newQueue(colonyID)
	}
}

// UnregisterColony removes colonyID and discards its queue.
func (m *Messenger) UnregisterColony(colonyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.colonies, colonyID)
	delete(m.queues, colonyID)
}

// Send enqueues payload on toColony's queue at the position dictated by
// priority. It is a no-op (but still returns a message id) if toColony
// isn't registered.
func (m *Messenger) Send(fromColony, toColony string, typ Type, payload map[string]any, priority Priority, correlationID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := NewMessageID()
	msg := Message{
		ID:            id,
		FromColony:    fromColony,
		ToColony:      toColony,
		Type:          typ,
		Priority:      priority,
		Payload:       payload,
		CorrelationID: correlationID,
	}
	if q, ok := m.queues[toColony]; ok {
		q.enqueue(msg)
	}
	return id
}

// Broadcast enqueues one copy of payload on every registered colony's queue
// except fromColony's, returning a single message id shared by every copy.
func (m *Messenger) Broadcast(fromColony string, typ Type, payload map[string]any, priority Priority) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := NewMessageID()
	for colonyID, q := range m.queues {
		if colonyID == fromColony {
			continue
		}
		q.enqueue(Message{
			ID:         id,
			FromColony: fromColony,
			ToColony:   "",
			Type:       TypeBroadcast,
			Priority:   priority,
			Payload:    payload,
		})
	}
	return id
}

// Receive pops and returns the highest-priority message for colonyID, or
// false if its queue is empty or it isn't registered.
func (m *Messenger) Receive(colonyID string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[colonyID]
	if !ok {
		return Message{}, false
	}
	return q.dequeue()
}

// Peek returns colonyID's next message without removing it.
func (m *Messenger) Peek(colonyID string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[colonyID]
	if !ok {
		return Message{}, false
	}
	return q.peek()
}

// PendingCount returns the number of messages still queued for colonyID.
func (m *Messenger) PendingCount(colonyID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[colonyID]
	if !ok {
		return 0
	}
	return len(q.pending)
}

// Request sends payload as a TypeRequest, the expected counterpart to a
// later Respond.
func (m *Messenger) Request(fromColony, toColony string, payload map[string]any, priority Priority) string {
	return m.Send(fromColony, toColony, TypeRequest, payload, priority, "")
}

// Respond sends payload back to original's sender as a TypeResponse,
// correlated via original's message id.
func (m *Messenger) Respond(original Message, payload map[string]any) string {
	return m.Send(original.ToColony, original.FromColony, TypeResponse, payload, original.Priority, original.ID)
}
