package simloop

// Loop lifecycle event types, dispatched via [Loop.Events].
const (
	// EventTurn fires after each turn that performed work. Detail is the
	// *Loop.
	EventTurn = `turn`
	// EventIdle fires when RunUntilIdle reaches the idle fixpoint. Detail
	// is the *Loop.
	EventIdle = `idle`
	// EventStarvation fires when a microtask drain is abandoned at the
	// iteration bound. Detail is the *Loop.
	EventStarvation = `starvation`
	// EventUnhandledRejection fires once per reported unhandled rejection.
	// Detail is the rejected *Promise.
	EventUnhandledRejection = `unhandledrejection`
)

// EventListenerFunc is a callback for [EventTarget.AddEventListener].
type EventListenerFunc func(event *Event)

// ListenerID identifies a registered listener for removal. Go functions
// cannot be compared for equality, so each registration gets a unique ID.
type ListenerID uint64

type listenerEntry struct {
	listener EventListenerFunc
	id       ListenerID
	once     bool
}

// Event is a loop lifecycle notification. Listeners run synchronously,
// inline with the loop step that triggered them; they must not drive the
// loop (see [ErrReentrantTurn]).
type Event struct {
	// Detail carries the event payload; see the Event* constants for what
	// each type provides.
	Detail any
	// Target is the EventTarget the event was dispatched on.
	Target *EventTarget
	// Type is one of the Event* constants.
	Type string

	stopped bool
}

// StopImmediatePropagation prevents any remaining listeners from seeing
// this event.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
}

// EventTarget dispatches loop lifecycle events to registered listeners, in
// registration order. Like the loop that owns it, an EventTarget is not
// safe for concurrent use.
type EventTarget struct {
	loop      *Loop
	listeners map[string][]listenerEntry
	nextID    ListenerID
}

func newEventTarget(l *Loop) *EventTarget {
	return &EventTarget{
		loop:      l,
		listeners: make(map[string][]listenerEntry),
		nextID:    1,
	}
}

// AddEventListener registers a listener for the given event type and
// returns an ID usable with [EventTarget.RemoveEventListener].
func (et *EventTarget) AddEventListener(eventType string, listener EventListenerFunc) ListenerID {
	return et.add(eventType, listener, false)
}

// AddEventListenerOnce registers a listener removed after its first
// dispatch.
func (et *EventTarget) AddEventListenerOnce(eventType string, listener EventListenerFunc) ListenerID {
	return et.add(eventType, listener, true)
}

func (et *EventTarget) add(eventType string, listener EventListenerFunc, once bool) ListenerID {
	if listener == nil {
		return 0
	}
	id := et.nextID
	et.nextID++
	et.listeners[eventType] = append(et.listeners[eventType], listenerEntry{
		listener: listener,
		id:       id,
		once:     once,
	})
	return id
}

// RemoveEventListener removes a listener by type and ID. Removing an
// unknown ID is a no-op.
func (et *EventTarget) RemoveEventListener(eventType string, id ListenerID) bool {
	entries := et.listeners[eventType]
	for i, e := range entries {
		if e.id == id {
			et.listeners[eventType] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners registered for eventType.
func (et *EventTarget) ListenerCount(eventType string) int {
	return len(et.listeners[eventType])
}

// dispatch invokes listeners registered for eventType against a snapshot of
// the listener list, so listeners adding or removing listeners never affect
// the in-flight dispatch. Listener panics are isolated like any other
// callback.
func (et *EventTarget) dispatch(eventType string, detail any) {
	entries := et.listeners[eventType]
	if len(entries) == 0 {
		return
	}

	snapshot := make([]listenerEntry, len(entries))
	copy(snapshot, entries)

	ev := &Event{
		Detail: detail,
		Target: et,
		Type:   eventType,
	}
	for _, entry := range snapshot {
		if ev.stopped {
			break
		}
		if entry.once {
			et.RemoveEventListener(eventType, entry.id)
		}
		listener := entry.listener
		et.loop.safeExecute(`listener`, eventType, func() {
			listener(ev)
		})
	}
}
