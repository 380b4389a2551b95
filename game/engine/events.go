package engine

import "sync"

// EventType identifies a one-shot notification raised during a tick
type EventType string

const (
	EventTerrainEntered    EventType = "terrain_entered"
	EventTerrainBlocked    EventType = "terrain_blocked"
	EventLowFuel           EventType = "low_fuel"
	EventLowStamina        EventType = "low_stamina"
	EventOutOfFuel         EventType = "out_of_fuel"
	EventPropulsionChanged EventType = "propulsion_changed"
	EventOutOfBounds       EventType = "out_of_bounds"
)

// Event is delivered to the EventSink synchronously from inside a tick
type Event struct {
	Type     EventType       `json:"type"`
	Tick     uint64          `json:"tick"`
	Position Position        `json:"position"`
	Terrain  TerrainCategory `json:"terrain,omitempty"`
	From     Propulsion      `json:"from,omitempty"`
	To       Propulsion      `json:"to,omitempty"`
	Edge     int             `json:"edge,omitempty"`
	Level    float64         `json:"level,omitempty"`
}

// EventSink receives simulation events. Emit must not call back into the vehicle.
type EventSink interface {
	Emit(Event)
}

// EventFunc adapts a function to EventSink
type EventFunc func(Event)

// Emit implements EventSink
func (f EventFunc) Emit(e Event) {
	f(e)
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

// EventRecorder buffers events until drained
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements EventSink
func (r *EventRecorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Drain returns the buffered events and clears the buffer
func (r *EventRecorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Count returns how many buffered events have type t
func (r *EventRecorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
