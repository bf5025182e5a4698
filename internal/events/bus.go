// Package events implements the core's synchronous event bus
// (spec.md §5, §9: "Event bus = synchronous fan-out"). Grounded on the
// teacher's StreamCallback/StreamChunk pattern in
// internal/agent/react_agent.go, generalized from a single streaming
// callback into a multi-subscriber bus with an optional buffering mode
// for non-interactive JSON output.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"investigator/pkg/types"
)

// Subscriber receives events in registration order, synchronously, as
// they are emitted.
type Subscriber func(types.Event)

// Bus fans an emitted event out to every subscriber in registration
// order. It never drops events and never reorders them within a run
// (spec.md §5 "Ordering"). A subscriber panic is recovered and logged
// so one misbehaving observer cannot break the bus for the others.
type Bus struct {
	mu          sync.Mutex
	subscribers []Subscriber

	buffering bool
	buffered  []types.Event
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber. Subscribers are invoked in the
// order they were registered.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Emit publishes an event to every current subscriber, and, while
// buffering is enabled, appends it to the in-memory buffer.
func (b *Bus) Emit(eventType types.EventType, payload map[string]interface{}) {
	evt := types.Event{Type: eventType, Payload: payload}

	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	if b.buffering {
		b.buffered = append(b.buffered, evt)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		invokeSafely(sub, evt)
	}
}

func invokeSafely(sub Subscriber, evt types.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", string(evt.Type)).Msg("event subscriber panicked")
		}
	}()
	sub(evt)
}

// SetBuffering enables or disables capture of emitted events into an
// in-memory list, used by non-interactive JSON output (spec.md §5).
// Disabling buffering does not clear what was already captured.
func (b *Bus) SetBuffering(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffering = on
}

// Drain returns the buffered events accumulated since the last Drain
// (or since the Bus was created), and clears the buffer.
func (b *Bus) Drain() []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buffered
	b.buffered = nil
	return out
}
