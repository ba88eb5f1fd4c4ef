package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// guardValidDestination accepts destinations that normalize to an 8-digit postal code.
// In statekit, guards receive the context by value. Since our context is *Context,
// the guard receives *Context directly.
func guardValidDestination(_ *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return false
	}
	_, err := freight.NormalizeDestination(payload.Input.Destination)
	return err == nil
}

// guardValidQuantity accepts quantities in [1, MaxQuantity].
func guardValidQuantity(ctx *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(TransitionPayload)
	if !ok || ctx == nil {
		return false
	}
	return freight.ValidateQuantity(payload.Input.Quantity, ctx.MaxQuantity) == nil
}
