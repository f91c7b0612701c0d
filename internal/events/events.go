// Package events provides event emission and fan-out for the screener service.
// Events are the recompute triggers of the system: every state change that can
// alter the visible equity list is announced here so subscribers (SSE stream,
// logs) observe the same ordering the session state machine processed.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	EquitiesRefreshed EventType = "EQUITIES_REFRESHED"
	SearchChanged     EventType = "SEARCH_CHANGED"
	FilterChanged     EventType = "FILTER_CHANGED"
	ProfileChanged    EventType = "PROFILE_CHANGED"
	SelectionChanged  EventType = "SELECTION_CHANGED"
	WatchlistChanged  EventType = "WATCHLIST_CHANGED"
	BackupCompleted   EventType = "BACKUP_COMPLETED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Bus handles event emission, logging and subscriber fan-out.
type Bus struct {
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("service", "events").Logger(),
		subscribers: make(map[int]chan Event),
	}
}

// Emit emits an event to the log and all subscribers. Slow subscribers are
// skipped rather than blocking the emitter.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Module:    module,
	}

	b.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		Interface("data", data).
		Msg("Event emitted")

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// EmitError emits an error event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	b.Emit(ErrorOccurred, module, data)
}

// Subscribe registers a new subscriber channel. The returned cancel function
// must be called to release the subscription.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}
