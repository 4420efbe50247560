package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusenusewhen-bot/lights-mm/logger"
)

type recordingSubscriber struct {
	mu               sync.Mutex
	events           []*Event
	globalProperties map[string]interface{}
}

func (s *recordingSubscriber) ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.globalProperties = globalProperties
}

func (s *recordingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestPublishSync_FansOutToAllSubscribers(t *testing.T) {
	logger.Init("")
	publisher := NewEventPublisher()

	first := &recordingSubscriber{}
	second := &recordingSubscriber{}
	publisher.RegisterSubscriber(first)
	publisher.RegisterSubscriber(second)

	publisher.SetGlobalProperty("network", "mainnet")
	publisher.PublishSync(&Event{Event: "mm_role_assigned"})

	require.Equal(t, 1, first.count())
	require.Equal(t, 1, second.count())
	assert.Equal(t, "mm_role_assigned", first.events[0].Event)
	assert.Equal(t, "mainnet", first.globalProperties["network"])
}

func TestRemoveSubscriber(t *testing.T) {
	logger.Init("")
	publisher := NewEventPublisher()

	kept := &recordingSubscriber{}
	removed := &recordingSubscriber{}
	publisher.RegisterSubscriber(kept)
	publisher.RegisterSubscriber(removed)
	publisher.RemoveSubscriber(removed)

	publisher.PublishSync(&Event{Event: "mm_ticket_cancelled"})

	assert.Equal(t, 1, kept.count())
	assert.Equal(t, 0, removed.count())
}

func TestEventQueue_DeliversInOrder(t *testing.T) {
	logger.Init("")
	publisher := NewEventPublisher()
	queue := NewEventQueue(10)
	publisher.RegisterSubscriber(queue)

	publisher.PublishSync(&Event{Event: "first"})
	publisher.PublishSync(&Event{Event: "second"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	event, err := queue.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", event.Event)

	event, err = queue.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", event.Event)
}

func TestEventQueue_DropsWhenFull(t *testing.T) {
	queue := NewEventQueue(2)

	queue.Enqueue(&Event{Event: "first"})
	queue.Enqueue(&Event{Event: "second"})
	queue.Enqueue(&Event{Event: "dropped"})

	pending := queue.GetAndClearPendingEvents()
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Event)
	assert.Equal(t, "second", pending[1].Event)
}

func TestEventQueue_CloseStopsDelivery(t *testing.T) {
	queue := NewEventQueue(2)
	queue.Close()

	// enqueue after close must not panic or deliver
	queue.Enqueue(&Event{Event: "late"})
	assert.Empty(t, queue.GetAndClearPendingEvents())
}

func TestNextEvent_HonorsContext(t *testing.T) {
	queue := NewEventQueue(2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.NextEvent(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
