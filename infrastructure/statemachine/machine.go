// Package statemachine provides the statekit integration for the quote conversation.
package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/session"
)

// Context carries the session record through the state machine.
type Context struct {
	Record      session.Record
	UnitWeight  float64
	MaxQuantity int
}

// State IDs as StateID type for statekit.
const (
	stateIdle                statekit.StateID = statekit.StateID(conversation.StateIdle)
	stateAwaitingDestination statekit.StateID = statekit.StateID(conversation.StateAwaitingDestination)
	stateAwaitingQuantity    statekit.StateID = statekit.StateID(conversation.StateAwaitingQuantity)
	stateComputing           statekit.StateID = statekit.StateID(conversation.StateComputing)
	stateCompleted           statekit.StateID = statekit.StateID(conversation.StateCompleted)
	stateFailed              statekit.StateID = statekit.StateID(conversation.StateFailed)
)

const machineID = "conversation"

// DefaultUnitWeight is the weight in kg of one unit when none is configured.
const DefaultUnitWeight = 0.3

func ev(e conversation.Event) statekit.EventType {
	return statekit.EventType(e)
}

// NewConversationMachine creates the conversation statechart.
// Completed and failed are not final: both accept RESET.
func NewConversationMachine() (*statekit.MachineConfig[*Context], error) {
	reset := ev(conversation.EventReset)
	fault := ev(conversation.EventFault)

	return statekit.NewMachine[*Context](machineID).
		WithInitial(stateIdle).
		WithContext(&Context{}).
		// Register actions
		WithAction("beginQuery", beginQuery).
		WithAction("storeDestination", storeDestination).
		WithAction("storeQuantity", storeQuantity).
		WithAction("recordTransition", recordTransition).
		WithAction("clearSession", clearSession).
		// Register guards
		WithGuard("validDestination", guardValidDestination).
		WithGuard("validQuantity", guardValidQuantity).
		// Define states
		State(stateIdle).
			On(ev(conversation.EventStartQuery)).Target(stateAwaitingDestination).Do("beginQuery").
			Done().
		State(stateAwaitingDestination).
			On(ev(conversation.EventDestinationProvided)).Target(stateAwaitingQuantity).Guard("validDestination").Do("storeDestination").
			On(fault).Target(stateFailed).Do("recordTransition").
			On(reset).Target(stateIdle).Do("clearSession").
			Done().
		State(stateAwaitingQuantity).
			On(ev(conversation.EventQuantityProvided)).Target(stateComputing).Guard("validQuantity").Do("storeQuantity").
			On(fault).Target(stateFailed).Do("recordTransition").
			On(reset).Target(stateIdle).Do("clearSession").
			Done().
		State(stateComputing).
			On(ev(conversation.EventComputeSucceeded)).Target(stateCompleted).Do("recordTransition").
			On(ev(conversation.EventComputeFailed)).Target(stateFailed).Do("recordTransition").
			On(reset).Target(stateIdle).Do("clearSession").
			Done().
		State(stateCompleted).
			On(reset).Target(stateIdle).Do("clearSession").
			Done().
		State(stateFailed).
			On(reset).Target(stateIdle).Do("clearSession").
			Done().
		Build()
}

// transitions mirrors the statechart so that lookups need no interpreter.
var transitions = map[conversation.State]map[conversation.Event]conversation.State{
	conversation.StateIdle: {
		conversation.EventStartQuery: conversation.StateAwaitingDestination,
	},
	conversation.StateAwaitingDestination: {
		conversation.EventDestinationProvided: conversation.StateAwaitingQuantity,
		conversation.EventFault:               conversation.StateFailed,
		conversation.EventReset:               conversation.StateIdle,
	},
	conversation.StateAwaitingQuantity: {
		conversation.EventQuantityProvided: conversation.StateComputing,
		conversation.EventFault:            conversation.StateFailed,
		conversation.EventReset:            conversation.StateIdle,
	},
	conversation.StateComputing: {
		conversation.EventComputeSucceeded: conversation.StateCompleted,
		conversation.EventComputeFailed:    conversation.StateFailed,
		conversation.EventReset:            conversation.StateIdle,
	},
	conversation.StateCompleted: {
		conversation.EventReset: conversation.StateIdle,
	},
	conversation.StateFailed: {
		conversation.EventReset: conversation.StateIdle,
	},
}

// Target returns the state an event leads to from a state.
func Target(from conversation.State, event conversation.Event) (conversation.State, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// StateFromMachine converts the machine state ID to domain State.
func StateFromMachine(stateID statekit.StateID) conversation.State {
	return conversation.State(stateID)
}

// Machine executes conversation transitions on session records.
// Transition is synchronous and never mutates its input.
type Machine struct {
	config      *statekit.MachineConfig[*Context]
	unitWeight  float64
	maxQuantity int
	observer    Observer
	now         func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithUnitWeight sets the weight in kg of one unit.
func WithUnitWeight(kg float64) Option {
	return func(m *Machine) {
		if kg > 0 {
			m.unitWeight = kg
		}
	}
}

// WithMaxQuantity sets the upper bound accepted for QUANTITY_PROVIDED.
func WithMaxQuantity(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxQuantity = n
		}
	}
}

// WithObserver replaces the transition observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithClock sets the time source used for UpdatedAt and transition records.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// New builds the statechart and returns a Machine.
func New(opts ...Option) (*Machine, error) {
	config, err := NewConversationMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}

	m := &Machine{
		config:      config,
		unitWeight:  DefaultUnitWeight,
		maxQuantity: freight.DefaultMaxQuantity,
		observer:    LogObserver(nil),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Transition applies an input to a record and returns the updated copy.
// An undefined (state, event) pair yields a conversation.StateError; a payload
// rejected by a guard yields a freight.ValidationError. In both cases the
// returned record equals the input.
func (m *Machine) Transition(record session.Record, in conversation.Input) (session.Record, error) {
	to, ok := Target(record.State, in.Event)
	if !ok {
		return record, &conversation.StateError{From: record.State, Event: in.Event}
	}
	if err := m.validate(in); err != nil {
		return record, err
	}

	ctx := &Context{
		Record:      record,
		UnitWeight:  m.unitWeight,
		MaxQuantity: m.maxQuantity,
	}
	interp := NewInterpreter(m.config, ctx)
	if err := interp.ResumeFrom(record.State); err != nil {
		return record, err
	}
	interp.Send(in, to)

	if interp.State() != to {
		return record, &conversation.StateError{From: record.State, Event: in.Event}
	}

	now := m.now()
	next := interp.Context().Record
	next.State = to
	next.UpdatedAt = now

	m.observer(conversation.TransitionRecord{
		From:     record.State,
		To:       to,
		Event:    in.Event,
		TenantID: record.TenantID,
		UserID:   record.UserID,
		At:       now,
	})
	return next, nil
}

// CanTransition reports whether event is defined in state. Guards are not evaluated.
func (m *Machine) CanTransition(state conversation.State, event conversation.Event) bool {
	_, ok := Target(state, event)
	return ok
}

// Allowed returns the events defined in state, in declaration order.
func (m *Machine) Allowed(state conversation.State) []conversation.Event {
	var events []conversation.Event
	for _, e := range conversation.AllEvents() {
		if _, ok := transitions[state][e]; ok {
			events = append(events, e)
		}
	}
	return events
}

// UnitWeight returns the configured weight of one unit.
func (m *Machine) UnitWeight() float64 {
	return m.unitWeight
}

func (m *Machine) validate(in conversation.Input) error {
	switch in.Event {
	case conversation.EventDestinationProvided:
		_, err := freight.NormalizeDestination(in.Destination)
		return err
	case conversation.EventQuantityProvided:
		return freight.ValidateQuantity(in.Quantity, m.maxQuantity)
	default:
		return nil
	}
}
