package rules

import "testing"

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	moved := 0
	coins := 0

	handle := bus.SubscribeTyped(EventStudentMoved, func(e Event) {
		moved++
	})
	bus.SubscribeTyped(EventCoinGranted, func(e Event) {
		coins += e.Amount
	})

	bus.Publish(NewEvent(EventStudentMoved, 0, "RED"))
	if moved != 1 || coins != 0 {
		t.Fatalf("expected moved=1 coins=0, got moved=%d coins=%d", moved, coins)
	}

	bus.Publish(NewEventWithAmount(EventCoinGranted, 1, "RED", 1))
	if coins != 1 {
		t.Fatalf("expected one coin event, got %d", coins)
	}

	bus.Unsubscribe(handle)
	bus.Publish(NewEvent(EventStudentMoved, 0, "BLUE"))
	if moved != 1 {
		t.Fatalf("expected moved to stay 1 after unsubscribe, got %d", moved)
	}
}

func TestEventBusPublishBatchKeepsOrder(t *testing.T) {
	bus := NewEventBus()

	var seen []EventType
	bus.Subscribe(func(e Event) {
		seen = append(seen, e.Type)
	})

	bus.PublishBatch([]Event{
		NewEvent(EventMotherNatureMoved, 0, "4"),
		NewEvent(EventIslandConquered, 0, "4"),
		NewEvent(EventIslandsMerged, 0, "4"),
	})

	want := []EventType{EventMotherNatureMoved, EventIslandConquered, EventIslandsMerged}
	if len(seen) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestEventBusIgnoresNilListeners(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Fatalf("expected -1 handle for nil listener, got %d", h)
	}
	if h := bus.SubscribeTyped(EventMatchEnded, nil); h != -1 {
		t.Fatalf("expected -1 handle for nil typed listener, got %d", h)
	}
}
