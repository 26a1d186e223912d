package messenger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/colonyforge/core/internal/events"
)

type (
	// HookBus publishes appended Akashic Record events to registered
	// subscribers in a synchronous fan-out, so Sentinel scans, Honeycomb
	// recording, and other reactive subsystems observe every append
	// without the vault needing to know about any of them.
	//
	// Events are delivered in the appender's goroutine, and iteration stops
	// at the first subscriber error — a subscriber that must halt the run
	// (e.g. a critical persistence failure) can do so by returning an error.
	HookBus interface {
		// Publish delivers event to every currently registered subscriber in
		// registration order, stopping at the first error.
		Publish(ctx context.Context, event events.Event) error

		// Register adds sub and returns a Subscription that unregisters it
		// on Close. Register errors if sub is nil.
		Register(sub HookSubscriber) (HookSubscription, error)
	}

	// HookSubscriber reacts to published events.
	HookSubscriber interface {
		HandleEvent(ctx context.Context, event events.Event) error
	}

	// HookSubscriberFunc adapts a plain function to HookSubscriber.
	HookSubscriberFunc func(ctx context.Context, event events.Event) error

	// HookSubscription is an active registration; Close is idempotent.
	HookSubscription interface {
		Close() error
	}

	hookBus struct {
		mu          sync.RWMutex
		subscribers map[*hookSubscription]HookSubscriber
		nextSeq     uint64
	}

	hookSubscription struct {
		bus  *hookBus
		once sync.Once
		seq  uint64
	}
)

func (f HookSubscriberFunc) HandleEvent(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

// NewHookBus constructs an in-memory, thread-safe hook bus.
func NewHookBus() HookBus {
	return &hookBus{subscribers: make(map[*hookSubscription]HookSubscriber)}
}

// Publish delivers event, in registration order, to a snapshot of the
// currently registered subscribers, taken before iteration begins so
// concurrent Register/Close calls never affect the in-flight delivery.
func (b *hookBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	regs := make([]*hookSubscription, 0, len(b.subscribers))
	for s := range b.subscribers {
		regs = append(regs, s)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].seq < regs[j].seq })
	subs := make([]HookSubscriber, 0, len(regs))
	for _, s := range regs {
		subs = append(subs, b.subscribers[s])
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Register adds sub to the bus.
func (b *hookBus) Register(sub HookSubscriber) (HookSubscription, error) {
	if sub == nil {
		return nil, errors.New("messenger: hook subscriber is required")
	}
	s := &hookSubscription{bus: b}
	b.mu.Lock()
	b.nextSeq++
	s.seq = b.nextSeq
	b.subscribers[s] = sub
	b.mu.Unlock()
	return s, nil
}

// Close unregisters the subscription. Safe to call more than once.
func (s *hookSubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s)
		s.bus.mu.Unlock()
	})
	return nil
}
