// Package conversation provides the states, events and transition records of the
// quote dialogue. Transitions themselves are executed by the state machine.
package conversation

import "time"

// State is the position of a user in the quote dialogue.
type State string

// Conversation states.
const (
	StateIdle                State = "idle"
	StateAwaitingDestination State = "awaiting_destination"
	StateAwaitingQuantity    State = "awaiting_quantity"
	StateComputing           State = "computing"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)

// IsValid returns true if the state is recognized.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateAwaitingDestination, StateAwaitingQuantity,
		StateComputing, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed. Both leave only through Reset.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AllStates returns every state.
func AllStates() []State {
	return []State{
		StateIdle,
		StateAwaitingDestination,
		StateAwaitingQuantity,
		StateComputing,
		StateCompleted,
		StateFailed,
	}
}

// Event drives a transition.
type Event string

// Conversation events.
const (
	EventStartQuery          Event = "START_QUERY"
	EventDestinationProvided Event = "DESTINATION_PROVIDED"
	EventQuantityProvided    Event = "QUANTITY_PROVIDED"
	EventComputeSucceeded    Event = "COMPUTE_SUCCEEDED"
	EventComputeFailed       Event = "COMPUTE_FAILED"
	EventReset               Event = "RESET"
	EventFault               Event = "FAULT"
)

// IsValid returns true if the event is recognized.
func (e Event) IsValid() bool {
	switch e {
	case EventStartQuery, EventDestinationProvided, EventQuantityProvided,
		EventComputeSucceeded, EventComputeFailed, EventReset, EventFault:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event.
func (e Event) String() string {
	return string(e)
}

// AllEvents returns every event.
func AllEvents() []Event {
	return []Event{
		EventStartQuery,
		EventDestinationProvided,
		EventQuantityProvided,
		EventComputeSucceeded,
		EventComputeFailed,
		EventReset,
		EventFault,
	}
}

// Input is an event with its payload.
type Input struct {
	Event       Event
	Destination string
	Quantity    int
}

// TransitionRecord is emitted for every accepted transition.
type TransitionRecord struct {
	From     State
	To       State
	Event    Event
	TenantID string
	UserID   string
	At       time.Time
}
