package events

import (
	"context"
	"sync"
)

// EventQueue buffers published events for a consumer that pulls instead of
// being pushed to (front-end bridges, tests).
type EventQueue struct {
	events chan *Event
	mu     sync.RWMutex
	closed bool
}

func NewEventQueue(bufferSize int) *EventQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventQueue{
		events: make(chan *Event, bufferSize),
	}
}

func (eq *EventQueue) ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{}) {
	eq.Enqueue(event)
}

// Enqueue adds an event to the queue, dropping it if the queue is full
func (eq *EventQueue) Enqueue(event *Event) {
	eq.mu.RLock()
	defer eq.mu.RUnlock()

	if eq.closed {
		return
	}

	select {
	case eq.events <- event:
	default:
		// Queue is full, drop the event
	}
}

// NextEvent blocks until the next event is available or context is cancelled
func (eq *EventQueue) NextEvent(ctx context.Context) (*Event, error) {
	select {
	case event, ok := <-eq.events:
		if !ok {
			return nil, context.Canceled
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetAndClearPendingEvents returns all pending events without blocking
func (eq *EventQueue) GetAndClearPendingEvents() []*Event {
	events := []*Event{}
	for {
		select {
		case event, ok := <-eq.events:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func (eq *EventQueue) Close() {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if !eq.closed {
		eq.closed = true
		close(eq.events)
	}
}
