package events

import "sync"

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. the gateway,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Queue buffers events emitted during a single operation. The host drains the
// queue after a successful commit and resets it when an operation aborts, so
// no event from an aborted path ever reaches a subscriber.
type Queue struct {
	mu      sync.Mutex
	pending []Event
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Emit appends an event to the pending buffer.
func (q *Queue) Emit(ev Event) {
	if q == nil || ev == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// Drain returns all pending events and clears the buffer.
func (q *Queue) Drain() []Event {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

// Reset discards all pending events.
func (q *Queue) Reset() {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

// Len reports the number of buffered events.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
