package events

import (
	"context"
	"slices"
	"sync"

	"github.com/nusenusewhen-bot/lights-mm/logger"
)

// Event is a structured notification for a user-visible milestone. The
// engine never renders text; front-ends subscribe and render Properties
// however they like.
type Event struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

type EventSubscriber interface {
	ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{})
}

type EventPublisher interface {
	RegisterSubscriber(subscriber EventSubscriber)
	RemoveSubscriber(subscriber EventSubscriber)
	Publish(event *Event)
	PublishSync(event *Event)
	SetGlobalProperty(key string, value interface{})
}

type eventPublisher struct {
	listeners        []EventSubscriber
	subscriberMtx    sync.Mutex
	globalProperties map[string]interface{}
}

func NewEventPublisher() *eventPublisher {
	eventPublisher := &eventPublisher{
		listeners:        []EventSubscriber{},
		globalProperties: map[string]interface{}{},
	}
	return eventPublisher
}

func (ep *eventPublisher) RegisterSubscriber(listener EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.listeners = append(ep.listeners, listener)
}

func (ep *eventPublisher) RemoveSubscriber(listenerToRemove EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()

	for i, listener := range ep.listeners {
		if listener == listenerToRemove {
			ep.listeners = slices.Delete(ep.listeners, i, i+1)
			break
		}
	}
}

func (ep *eventPublisher) SetGlobalProperty(key string, value interface{}) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.globalProperties[key] = value
}

// Publish fans the event out to every subscriber on its own goroutine.
func (ep *eventPublisher) Publish(event *Event) {
	ep.publish(event, false)
}

// PublishSync waits for every subscriber to finish consuming the event.
// Used where the caller needs ordering guarantees (e.g. tests).
func (ep *eventPublisher) PublishSync(event *Event) {
	ep.publish(event, true)
}

func (ep *eventPublisher) publish(event *Event, wait bool) {
	ep.subscriberMtx.Lock()
	listeners := slices.Clone(ep.listeners)
	globalProperties := ep.globalProperties
	ep.subscriberMtx.Unlock()

	logger.Logger.Debug().Str("event", event.Event).Msg("Publishing event")

	var wg sync.WaitGroup
	for _, listener := range listeners {
		wg.Add(1)
		go func(listener EventSubscriber) {
			defer wg.Done()
			listener.ConsumeEvent(context.Background(), event, globalProperties)
		}(listener)
	}
	if wait {
		wg.Wait()
	}
}
