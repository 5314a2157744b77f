package events

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventReleaseMutated)

	bus.Publish(EventReleaseMutated, Payload{"release_ids": []string{"rel-1"}})

	select {
	case payload := <-sub:
		ids, ok := payload["release_ids"].([]string)
		if !ok || len(ids) != 1 || ids[0] != "rel-1" {
			t.Fatalf("unexpected payload %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected delivery")
	}
}

func TestPublishDoesNotCrossEventTypes(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTrackMutated)

	bus.Publish(EventReleaseMutated, Payload{})

	select {
	case <-sub:
		t.Fatalf("track subscriber must not receive release events")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventUsageSearch)

	// Overfill the buffer; the surplus drops instead of stalling.
	for i := 0; i < cap(sub)+10; i++ {
		bus.Publish(EventUsageSearch, Payload{"i": i})
	}

	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer, got %d", len(sub))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventAuditSearch)
	bus.Unsubscribe(EventAuditSearch, sub)

	if _, ok := <-sub; ok {
		t.Fatalf("expected closed channel")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventAuditSearch, Payload{})
}
