// Package events provides the fire-and-forget notification bus. Publishers
// never block and never wait for consumers; a slow subscriber drops events.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Type names a notification kind.
type Type string

const (
	TypeGenesisDeployed       Type = "genesis_deployed"
	TypeAllocationChanged     Type = "allocation_changed"
	TypeUpgradeStarted        Type = "upgrade_started"
	TypeUpgradeCompleted      Type = "upgrade_completed"
	TypeSiegePhaseChanged     Type = "siege_phase_changed"
	TypeSiegeResolved         Type = "siege_resolved"
	TypeDefenseActionResolved Type = "defense_action_resolved"
	TypeDefensesChanged       Type = "defenses_changed"
)

// Event is a single notification.
type Event struct {
	Type        Type           `json:"type"`
	PlanetID    string         `json:"planet_id"`
	Description string         `json:"description"`
	At          time.Time      `json:"at"`
	Data        map[string]any `json:"data,omitempty"`
}

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	dropped atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given channel buffer.
// The returned cancel function unregisters and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
// Full subscriber buffers drop the event.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if n := b.dropped.Add(1); n%100 == 1 {
				slog.Warn("event bus dropping for slow subscriber", "dropped_total", n, "type", ev.Type)
			}
		}
	}
}

// Dropped returns the total number of drops since start.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
