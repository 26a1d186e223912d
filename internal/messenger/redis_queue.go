package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/redis/go-redis/v9"
)

type (
	// RedisQueueOptions configures a RedisQueue. Mirrors the layering used by
	// the Pulse stream clients: callers build a Redis connection and hand it
	// in, rather than the queue owning connection lifecycle.
	RedisQueueOptions struct {
		// Redis is the connection backing every colony's stream. Required.
		Redis *redis.Client
		// StreamMaxLen bounds entries retained per colony stream. Zero uses
		// Pulse defaults.
		StreamMaxLen int
		// OperationTimeout bounds individual Add/Ack calls. Zero means no
		// per-call timeout.
		OperationTimeout time.Duration
	}

	// RedisQueue is a cross-process Messenger backend: each colony's inbound
	// mailbox is a Pulse stream (a Redis stream plus consumer group) instead
	// of an in-memory slice, so colonies living in separate processes (or
	// separate Worker runtimes) can exchange messages through Redis.
	//
	// Entries are delivered in stream append order. Each RedisSink keeps an
	// in-memory buffer and returns its highest-priority entry, but the
	// buffer is filled one message at a time and only when empty, so
	// messages come back in append order: priority does not reorder them.
	RedisQueue struct {
		redis        *redis.Client
		maxLen       int
		timeout      time.Duration
		streams      map[string]*streaming.Stream
	}

	// RedisSink reads one colony's messages back out of Redis through a
	// Pulse consumer-group sink.
	RedisSink struct {
		colonyID string
		stream   *streaming.Stream
		sink     *streaming.Sink
		timeout  time.Duration
		buffer   []bufferedMessage
	}

	bufferedMessage struct {
		msg      Message
		streamID string
	}
)

// NewRedisQueue constructs a RedisQueue. Returns an error if opts.Redis is
// nil.
func NewRedisQueue(opts RedisQueueOptions) (*RedisQueue, error) {
	if opts.Redis == nil {
		return nil, errors.New("messenger: redis client is required")
	}
	return &RedisQueue{
		redis:   opts.Redis,
		maxLen:  opts.StreamMaxLen,
		timeout: opts.OperationTimeout,
		streams: map[string]*streaming.Stream{},
	}, nil
}

func (q *RedisQueue) streamFor(colonyID string) (*streaming.Stream, error) {
	if s, ok := q.streams[colonyID]; ok {
		return s, nil
	}
	var opts []streamopts.Stream
	if q.maxLen > 0 {
		opts = append(opts, streamopts.WithStreamMaxLen(q.maxLen))
	}
	s, err := streaming.NewStream("colony-mailbox-"+colonyID, q.redis, opts...)
	if err != nil {
		return nil, fmt.Errorf("messenger: open colony stream: %w", err)
	}
	q.streams[colonyID] = s
	return s, nil
}

func (q *RedisQueue) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, q.timeout)
}

// Send publishes msg onto toColony's Redis stream.
func (q *RedisQueue) Send(ctx context.Context, fromColony, toColony string, typ Type, payload map[string]any, priority Priority, correlationID string) (string, error) {
	stream, err := q.streamFor(toColony)
	if err != nil {
		return "", err
	}
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
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("messenger: encode message: %w", err)
	}
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()
	if _, err := stream.Add(ctx, string(typ), body); err != nil {
		return "", fmt.Errorf("messenger: publish to %s: %w", toColony, err)
	}
	return id, nil
}

// Broadcast publishes one copy of payload to every colony in toColonies.
func (q *RedisQueue) Broadcast(ctx context.Context, fromColony string, toColonies []string, typ Type, payload map[string]any, priority Priority) (string, error) {
	id := NewMessageID()
	for _, toColony := range toColonies {
		if toColony == fromColony {
			continue
		}
		stream, err := q.streamFor(toColony)
		if err != nil {
			return "", err
		}
		msg := Message{
			ID:         id,
			FromColony: fromColony,
			ToColony:   toColony,
			Type:       TypeBroadcast,
			Priority:   priority,
			Payload:    payload,
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return "", fmt.Errorf("messenger: encode broadcast: %w", err)
		}
		sendCtx, cancel := q.withTimeout(ctx)
		_, err = stream.Add(sendCtx, string(TypeBroadcast), body)
		cancel()
		if err != nil {
			return "", fmt.Errorf("messenger: broadcast to %s: %w", toColony, err)
		}
	}
	return id, nil
}

// Sink opens a consumer-group sink on colonyID's stream, creating the stream
// if needed.
func (q *RedisQueue) Sink(ctx context.Context, colonyID, consumerGroup string) (*RedisSink, error) {
	stream, err := q.streamFor(colonyID)
	if err != nil {
		return nil, err
	}
	sink, err := stream.NewSink(ctx, consumerGroup)
	if err != nil {
		return nil, fmt.Errorf("messenger: create sink for %s: %w", colonyID, err)
	}
	return &RedisSink{colonyID: colonyID, stream: stream, sink: sink, timeout: q.timeout}, nil
}

// Receive blocks on the underlying Pulse sink's subscription until a message
// arrives, acks it, and returns it. fill reads a single message per call, so
// the buffer holds at most one entry and the priority pick below does not
// reorder messages; they are returned in stream order.
func (s *RedisSink) Receive(ctx context.Context) (Message, error) {
	if len(s.buffer) == 0 {
		if err := s.fill(ctx); err != nil {
			return Message{}, err
		}
	}
	best := 0
	for i, b := range s.buffer {
		if priorityRank[b.msg.Priority] < priorityRank[s.buffer[best].msg.Priority] {
			best = i
		}
	}
	chosen := s.buffer[best]
	s.buffer = append(s.buffer[:best], s.buffer[best+1:]...)
	return chosen.msg, nil
}

func (s *RedisSink) fill(ctx context.Context) error {
	select {
	case evt, ok := <-s.sink.Subscribe():
		if !ok {
			return errors.New("messenger: sink closed")
		}
		var msg Message
		if err := json.Unmarshal(evt.Payload, &msg); err != nil {
			return fmt.Errorf("messenger: decode message: %w", err)
		}
		s.buffer = append(s.buffer, bufferedMessage{msg: msg, streamID: evt.ID})
		ackCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.timeout > 0 {
			ackCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		defer cancel()
		return s.sink.Ack(ackCtx, evt)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the sink's consumer-group resources.
func (s *RedisSink) Close(ctx context.Context) {
	s.sink.Close(ctx)
}

// Destroy deletes colonyID's stream and all its buffered messages from
// Redis. Used when a colony is permanently retired.
func (q *RedisQueue) Destroy(ctx context.Context, colonyID string) error {
	stream, err := q.streamFor(colonyID)
	if err != nil {
		return err
	}
	delete(q.streams, colonyID)
	return stream.Destroy(ctx)
}
