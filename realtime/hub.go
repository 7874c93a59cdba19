// Package realtime fans change events out to SSE subscribers, locally or
// across instances through Redis pub/sub.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Event types.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// Event is a row change on a table. UserID, Scope and ScopeID describe who
// may see the row so subscribers can filter without decoding Data.
type Event struct {
	Table   string      `json:"table"`
	Type    string      `json:"type"`
	ID      uint        `json:"id"`
	UserID  uint        `json:"user_id,omitempty"`
	Scope   string      `json:"scope,omitempty"`
	ScopeID uint        `json:"scope_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber receives events for one table.
type Subscriber struct {
	ID     uuid.UUID
	Table  string
	Events chan Event
}

// Hub is the in-process broadcaster. The zero value is not usable; use NewHub.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[string]map[*Subscriber]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber for table. Call the returned func to unsubscribe.
func (h *Hub) Subscribe(table string) (*Subscriber, func()) {
	s := &Subscriber{ID: uuid.New(), Table: table, Events: make(chan Event, h.buffer)}
	h.mu.Lock()
	set, ok := h.subs[table]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[table] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s, func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[table]; ok {
				delete(set, s)
				if len(set) == 0 {
					delete(h.subs, table)
				}
			}
			h.mu.Unlock()
			close(s.Events)
		})
	}
}

// Broadcast delivers ev to local subscribers of its table. Slow subscribers drop events.
func (h *Hub) Broadcast(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs[ev.Table] {
		select {
		case s.Events <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Publish implements Publisher for a single instance.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Broadcast(ev)
	return nil
}

// Count returns the number of subscribers on table.
func (h *Hub) Count(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
