package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Turn events
	EventAssistantPlayed EventType = "ASSISTANT_PLAYED"
	EventPhaseChanged    EventType = "PHASE_CHANGED"
	EventTurnChanged     EventType = "TURN_CHANGED"
	EventRoundStarted    EventType = "ROUND_STARTED"
	EventLastRound       EventType = "LAST_ROUND"

	// Board events
	EventStudentMoved      EventType = "STUDENT_MOVED"
	EventProfessorChanged  EventType = "PROFESSOR_CHANGED"
	EventCoinGranted       EventType = "COIN_GRANTED"
	EventMotherNatureMoved EventType = "MOTHER_NATURE_MOVED"
	EventIslandConquered   EventType = "ISLAND_CONQUERED"
	EventIslandsMerged     EventType = "ISLANDS_MERGED"
	EventNoEntryConsumed   EventType = "NO_ENTRY_CONSUMED"
	EventCloudsRefilled    EventType = "CLOUDS_REFILLED"
	EventCloudTaken        EventType = "CLOUD_TAKEN"

	// Character events
	EventCharacterSelected  EventType = "CHARACTER_SELECTED"
	EventCharacterActivated EventType = "CHARACTER_ACTIVATED"

	// Match lifecycle events
	EventMatchStarted       EventType = "MATCH_STARTED"
	EventMatchEnded         EventType = "MATCH_ENDED"
	EventPlayerDisconnected EventType = "PLAYER_DISCONNECTED"
	EventMatchResumed       EventType = "MATCH_RESUMED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType
	MatchID   string
	Seat      int    // acting seat, -1 when none
	Target    string // island id, cloud id, colour or team depending on Type
	Amount    int
	Payload   any // typed payload for lifecycle events
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Listeners must not block.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, seat int, target string) Event {
	return Event{
		Type:      eventType,
		Seat:      seat,
		Target:    target,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, seat int, target string, amount int) Event {
	evt := NewEvent(eventType, seat, target)
	evt.Amount = amount
	return evt
}
