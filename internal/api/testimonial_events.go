package api

import (
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

const (
	TestimonialEventCreated = "testimonial_created"
	TestimonialEventUpdated = "testimonial_updated"
	TestimonialEventDeleted = "testimonial_deleted"
	testimonialEventBuffer  = 8
)

// TestimonialEvent is a change to a testimonial pushed to dashboard streams.
type TestimonialEvent struct {
	Type          string    `json:"type"`
	SpaceID       string    `json:"spaceId"`
	TestimonialID string    `json:"testimonialId"`
	Status        string    `json:"status"`
	Featured      bool      `json:"featured"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func newTestimonialEvent(eventType string, testimonial model.Testimonial) TestimonialEvent {
	return TestimonialEvent{
		Type:          eventType,
		SpaceID:       testimonial.SpaceID,
		TestimonialID: testimonial.ID,
		Status:        string(testimonial.Status),
		Featured:      testimonial.Featured,
		OccurredAt:    time.Now().UTC(),
	}
}

// TestimonialEventBroadcaster fans testimonial events out to subscribers.
// Slow subscribers miss events rather than block publishers.
type TestimonialEventBroadcaster struct {
	mutex        sync.Mutex
	nextID       int64
	subscribers  map[int64]chan TestimonialEvent
	closed       bool
	bufferLength int
}

// NewTestimonialEventBroadcaster constructs a broadcaster.
func NewTestimonialEventBroadcaster() *TestimonialEventBroadcaster {
	return &TestimonialEventBroadcaster{
		subscribers:  make(map[int64]chan TestimonialEvent),
		bufferLength: testimonialEventBuffer,
	}
}

// Subscribe registers a subscriber. It returns nil once the broadcaster is closed.
func (broadcaster *TestimonialEventBroadcaster) Subscribe() *TestimonialEventSubscription {
	if broadcaster == nil {
		return nil
	}
	broadcaster.mutex.Lock()
	defer broadcaster.mutex.Unlock()
	if broadcaster.closed {
		return nil
	}
	subscriptionID := broadcaster.nextID
	broadcaster.nextID++
	eventChannel := make(chan TestimonialEvent, broadcaster.bufferLength)
	broadcaster.subscribers[subscriptionID] = eventChannel
	return &TestimonialEventSubscription{
		broadcaster: broadcaster,
		identifier:  subscriptionID,
		events:      eventChannel,
	}
}

// Broadcast delivers the event to every subscriber with room in its buffer.
func (broadcaster *TestimonialEventBroadcaster) Broadcast(event TestimonialEvent) {
	if broadcaster == nil {
		return
	}
	broadcaster.mutex.Lock()
	defer broadcaster.mutex.Unlock()
	if broadcaster.closed {
		return
	}
	for _, channel := range broadcaster.subscribers {
		select {
		case channel <- event:
		default:
		}
	}
}

// Close stops the broadcaster and closes all subscriber channels.
func (broadcaster *TestimonialEventBroadcaster) Close() {
	if broadcaster == nil {
		return
	}
	broadcaster.mutex.Lock()
	defer broadcaster.mutex.Unlock()
	if broadcaster.closed {
		return
	}
	broadcaster.closed = true
	for identifier, channel := range broadcaster.subscribers {
		close(channel)
		delete(broadcaster.subscribers, identifier)
	}
}

func (broadcaster *TestimonialEventBroadcaster) remove(identifier int64) {
	broadcaster.mutex.Lock()
	defer broadcaster.mutex.Unlock()
	if channel, exists := broadcaster.subscribers[identifier]; exists {
		delete(broadcaster.subscribers, identifier)
		close(channel)
	}
}

// TestimonialEventSubscription is a single subscriber.
type TestimonialEventSubscription struct {
	broadcaster *TestimonialEventBroadcaster
	identifier  int64
	events      chan TestimonialEvent
	once        sync.Once
}

// Events exposes the receive-only event channel.
func (subscription *TestimonialEventSubscription) Events() <-chan TestimonialEvent {
	if subscription == nil {
		return nil
	}
	return subscription.events
}

// Close unregisters the subscription.
func (subscription *TestimonialEventSubscription) Close() {
	if subscription == nil {
		return
	}
	subscription.once.Do(func() {
		subscription.broadcaster.remove(subscription.identifier)
	})
}
