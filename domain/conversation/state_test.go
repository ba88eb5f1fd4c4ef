package conversation

import (
	"errors"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range AllStates() {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if State("shipping").IsValid() {
		t.Error("unknown state should be invalid")
	}
}

func TestState_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  bool
	}{
		{StateIdle, false},
		{StateAwaitingDestination, false},
		{StateAwaitingQuantity, false},
		{StateComputing, false},
		{StateCompleted, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestEvent_IsValid(t *testing.T) {
	t.Parallel()

	for _, e := range AllEvents() {
		if !e.IsValid() {
			t.Errorf("%s should be valid", e)
		}
	}
	if Event("CANCEL").IsValid() {
		t.Error("unknown event should be invalid")
	}
}

func TestStateError(t *testing.T) {
	t.Parallel()

	err := error(&StateError{From: StateIdle, Event: EventQuantityProvided})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("StateError should match ErrInvalidTransition")
	}
	want := "transition idle --QUANTITY_PROVIDED--> is not allowed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
