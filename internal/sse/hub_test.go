package sse

import (
	"encoding/json"
	"testing"
)

func newTestClient(id string, buffer int) *Client {
	return &Client{
		ID:     id,
		UserID: "user-" + id,
		Topics: make(map[string]bool),
		Events: make(chan Event, buffer),
	}
}

func TestPublishReachesAllClients(t *testing.T) {
	hub := NewHub()
	c1 := newTestClient("c1", 4)
	c2 := newTestClient("c2", 4)
	hub.Register(c1)
	hub.Register(c2)

	hub.Publish(NewEvent(EventOrderCreated, map[string]string{"id": "o1"}))

	for _, c := range []*Client{c1, c2} {
		select {
		case ev := <-c.Events:
			if ev.EventType != EventOrderCreated {
				t.Errorf("client %s: got event %q", c.ID, ev.EventType)
			}
		default:
			t.Errorf("client %s: no event received", c.ID)
		}
	}
}

func TestPublishTopicOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub()
	sub := newTestClient("sub", 4)
	other := newTestClient("other", 4)
	hub.Register(sub)
	hub.Register(other)
	hub.Subscribe(sub.ID, LocationTopic("loc-1"))

	hub.PublishTopic(LocationTopic("loc-1"), NewEvent(EventInventoryUpdate, map[string]int{"quantity": 5}))

	select {
	case ev := <-sub.Events:
		if ev.EventType != EventInventoryUpdate {
			t.Errorf("got event %q", ev.EventType)
		}
	default:
		t.Error("subscriber got no event")
	}

	select {
	case ev := <-other.Events:
		t.Errorf("non-subscriber got event %q", ev.EventType)
	default:
	}
}

func TestFullBufferDropsEventWithoutBlocking(t *testing.T) {
	hub := NewHub()
	c := newTestClient("c", 1)
	hub.Register(c)

	hub.Publish(NewEvent("first", nil))
	// Buffer is full now; this must not block.
	hub.Publish(NewEvent("second", nil))

	ev := <-c.Events
	if ev.EventType != "first" {
		t.Errorf("got %q, want first", ev.EventType)
	}
	select {
	case ev := <-c.Events:
		t.Errorf("unexpected second event %q", ev.EventType)
	default:
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	c := newTestClient("c", 1)
	hub.Register(c)
	hub.Unregister(c.ID)

	if _, ok := <-c.Events; ok {
		t.Error("channel should be closed after unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// Publishing after unregister must not panic.
	hub.Publish(NewEvent(EventOrderUpdated, nil))
}

func TestNewEventMarshalsPayload(t *testing.T) {
	ev := NewEvent(EventLowStockAlert, map[string]interface{}{"product_id": "p1", "quantity": 3})
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		t.Fatalf("event data is not valid JSON: %v", err)
	}
	if payload["product_id"] != "p1" {
		t.Errorf("payload = %v", payload)
	}
}

func TestLocationTopic(t *testing.T) {
	if got := LocationTopic("abc"); got != "warehouse-abc" {
		t.Errorf("LocationTopic = %q", got)
	}
}
