package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
)

// TransitionPayload carries the input and the expected target with an event.
type TransitionPayload struct {
	Input conversation.Input
	To    conversation.State
}

// Interpreter wraps the statekit interpreter for a single record.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the conversation machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Record.State = i.State()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() conversation.State {
	return StateFromMachine(i.interp.State().Value)
}

// Send delivers an input. Guards that reject the payload leave the state unchanged.
func (i *Interpreter) Send(in conversation.Input, to conversation.State) {
	i.interp.Send(statekit.Event{
		Type:    ev(in.Event),
		Payload: TransitionPayload{Input: in, To: to},
	})
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(state conversation.State) bool {
	return i.interp.Matches(statekit.StateID(state))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// ResumeFrom restores the interpreter to the state stored in a session record.
func (i *Interpreter) ResumeFrom(state conversation.State) error {
	if !state.IsValid() {
		return fmt.Errorf("failed to restore state: unknown state %q", state)
	}

	snapshot := statekit.Snapshot[*Context]{
		MachineID:    machineID,
		CurrentState: statekit.StateID(state),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}
	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	i.ctx.Record.State = state
	return nil
}
