package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	bus.Subscribe(a)
	bus.Subscribe(b)

	bus.Publish(NewEvent(EventReconciled, "home", nil))

	assert.Equal(t, "home", (<-a).Source)
	assert.Equal(t, EventReconciled, (<-b).Type)
}

func TestEventBusSlowSubscriberIsSkipped(t *testing.T) {
	bus := NewEventBus()
	slow := make(chan Event)
	bus.Subscribe(slow)

	done := make(chan struct{})
	go func() {
		bus.Publish(NewEvent(EventPollFailed, "home", nil))
		close(done)
	}()
	<-done
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)
	bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventReconciled, "home", nil))
	assert.Len(t, ch, 0)
}

func TestNewEventStampsIDs(t *testing.T) {
	a := NewEvent(EventReconciled, "home", nil)
	b := NewEvent(EventReconciled, "home", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Time.IsZero())
}
