package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// Actions receive a pointer to the context. Since our context is *Context,
// actions receive **Context.

func payloadOf(ctx **Context, event statekit.Event) (*Context, TransitionPayload, bool) {
	if ctx == nil || *ctx == nil {
		return nil, TransitionPayload{}, false
	}
	payload, ok := event.Payload.(TransitionPayload)
	return *ctx, payload, ok
}

// recordTransition moves the record to the payload's target state.
func recordTransition(ctx **Context, event statekit.Event) {
	c, payload, ok := payloadOf(ctx, event)
	if !ok {
		return
	}
	c.Record.State = payload.To
}

// beginQuery starts a query from a clean slate.
func beginQuery(ctx **Context, event statekit.Event) {
	c, payload, ok := payloadOf(ctx, event)
	if !ok {
		return
	}
	c.Record.Destination = ""
	c.Record.Quantity = 0
	c.Record.TotalWeight = 0
	c.Record.State = payload.To
}

// storeDestination keeps the normalized postal code.
func storeDestination(ctx **Context, event statekit.Event) {
	c, payload, ok := payloadOf(ctx, event)
	if !ok {
		return
	}
	dest, err := freight.NormalizeDestination(payload.Input.Destination)
	if err != nil {
		return
	}
	c.Record.Destination = dest
	c.Record.State = payload.To
}

// storeQuantity keeps the quantity and derives the total weight from it.
func storeQuantity(ctx **Context, event statekit.Event) {
	c, payload, ok := payloadOf(ctx, event)
	if !ok {
		return
	}
	c.Record.Quantity = payload.Input.Quantity
	c.Record.TotalWeight = float64(payload.Input.Quantity) * c.UnitWeight
	c.Record.State = payload.To
}

// clearSession drops everything collected so far.
func clearSession(ctx **Context, event statekit.Event) {
	c, payload, ok := payloadOf(ctx, event)
	if !ok {
		return
	}
	c.Record.Destination = ""
	c.Record.Quantity = 0
	c.Record.TotalWeight = 0
	c.Record.ErrorCount = 0
	c.Record.State = payload.To
}
