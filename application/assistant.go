package application

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/intent"
	"github.com/felixgeelhaar/freight-agent/domain/session"
	"github.com/felixgeelhaar/freight-agent/domain/tenant"
	"github.com/felixgeelhaar/freight-agent/infrastructure/logging"
	"github.com/felixgeelhaar/freight-agent/infrastructure/statemachine"
)

// DefaultMaxErrors is the number of invalid answers tolerated per conversation.
const DefaultMaxErrors = 3

const msgStillComputing = "Ainda estou calculando sua cotação. Envie \"reiniciar\" para recomeçar."

// SessionStore persists conversation records.
type SessionStore interface {
	Get(ctx context.Context, tenantID, userID string) (session.Record, error)
	Create(ctx context.Context, tenantID, userID string) (session.Record, error)
	Update(ctx context.Context, tenantID, userID string, patch session.Patch) (session.Record, error)
	Delete(ctx context.Context, tenantID, userID string) error
}

// FreightCalculator computes ranked delivery options.
type FreightCalculator interface {
	CalculateFreight(ctx context.Context, req freight.Request) (*freight.Result, error)
}

// Reply is the answer to one inbound message.
type Reply struct {
	Text   string             `json:"text"`
	State  conversation.State `json:"state"`
	Intent intent.Intent      `json:"intent"`
	// Result is set when the message completed a quote.
	Result *freight.Result `json:"result,omitempty"`
}

// Assistant drives one conversation turn: classify, transition, quote, persist.
type Assistant struct {
	sessions   SessionStore
	machine    *statemachine.Machine
	classifier *intent.Classifier
	engine     FreightCalculator
	maxErrors  int
}

// AssistantConfig contains the assistant dependencies.
type AssistantConfig struct {
	Sessions   SessionStore
	Machine    *statemachine.Machine
	Classifier *intent.Classifier
	Engine     FreightCalculator
	MaxErrors  int
}

// NewAssistant creates an assistant.
func NewAssistant(config AssistantConfig) (*Assistant, error) {
	if config.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if config.Engine == nil {
		return nil, errors.New("freight calculator is required")
	}

	a := &Assistant{
		sessions:   config.Sessions,
		machine:    config.Machine,
		classifier: config.Classifier,
		engine:     config.Engine,
		maxErrors:  config.MaxErrors,
	}
	if a.machine == nil {
		m, err := statemachine.New()
		if err != nil {
			return nil, err
		}
		a.machine = m
	}
	if a.classifier == nil {
		a.classifier = intent.NewClassifier()
	}
	if a.maxErrors <= 0 {
		a.maxErrors = DefaultMaxErrors
	}
	return a, nil
}

// HandleMessage processes one inbound message for a user.
//
// Validation and conversation-flow problems are answered in the reply.
// Session backend failures and provider failures without any candidate are
// returned as errors; the reply still carries a user-safe text in the latter case.
func (a *Assistant) HandleMessage(ctx context.Context, tenantID, userID, text string) (Reply, error) {
	tenantID, err := tenant.Require(tenantID)
	if err != nil {
		return Reply{}, err
	}

	res := a.classifier.Classify(text)
	logging.Debug().
		Add(logging.TenantID(tenantID)).
		Add(logging.UserID(userID)).
		Add(logging.Intent(res)).
		Msg("message classified")
	if a.classifier.HasMultipleIntents(text) {
		logging.Debug().
			Add(logging.TenantID(tenantID)).
			Add(logging.UserID(userID)).
			Msg("message carries several intents, using the first")
	}

	switch res.Intent {
	case intent.Reset:
		return a.reset(ctx, tenantID, userID, res, msgReset)
	case intent.Cancel:
		return a.reset(ctx, tenantID, userID, res, msgCancelled)
	}

	rec, err := a.load(ctx, tenantID, userID)
	if err != nil {
		return Reply{}, err
	}

	switch res.Intent {
	case intent.Help:
		return a.reply(rec, res, msgHelp+"\n"+prompt(rec.State)), nil
	case intent.TrackOrder:
		return a.reply(rec, res, msgTrackOrder), nil
	case intent.PaymentStatus:
		return a.reply(rec, res, msgPaymentStatus), nil
	case intent.HumanSupport:
		return a.reply(rec, res, msgHumanSupport), nil
	}

	switch rec.State {
	case conversation.StateIdle:
		return a.onIdle(ctx, rec, res)
	case conversation.StateAwaitingDestination:
		if res.Intent == intent.FreightQuery {
			return a.reply(rec, res, msgAskDestination), nil
		}
		return a.onDestination(ctx, rec, res, text)
	case conversation.StateAwaitingQuantity:
		if res.Intent == intent.FreightQuery {
			return a.reply(rec, res, msgAskQuantity), nil
		}
		return a.onQuantity(ctx, rec, res)
	case conversation.StateComputing:
		return a.reply(rec, res, msgStillComputing), nil
	case conversation.StateCompleted, conversation.StateFailed:
		// A finished conversation that was not cleaned up starts over.
		next, err := a.machine.Transition(rec, conversation.Input{Event: conversation.EventReset})
		if err != nil {
			return a.resolve(ctx, rec, res, err)
		}
		return a.onIdle(ctx, next, res)
	default:
		return a.resolve(ctx, rec, res, &conversation.StateError{From: rec.State, Event: conversation.EventStartQuery})
	}
}

func (a *Assistant) onIdle(ctx context.Context, rec session.Record, res intent.Result) (Reply, error) {
	switch res.Intent {
	case intent.FreightQuery:
		next, err := a.machine.Transition(rec, conversation.Input{Event: conversation.EventStartQuery})
		if err != nil {
			return a.resolve(ctx, rec, res, err)
		}
		return a.saveAndReply(ctx, next, res, msgAskDestination)

	case intent.ProvideDestination:
		// A postal code alone is read as a request to quote to it.
		next, err := a.machine.Transition(rec, conversation.Input{Event: conversation.EventStartQuery})
		if err != nil {
			return a.resolve(ctx, rec, res, err)
		}
		return a.onDestination(ctx, next, res, res.Extracted.Destination)

	default:
		return a.saveAndReply(ctx, rec, res, msgGreeting)
	}
}

func (a *Assistant) onDestination(ctx context.Context, rec session.Record, res intent.Result, text string) (Reply, error) {
	destination := res.Extracted.Destination
	if destination == "" {
		destination = strings.TrimSpace(text)
	}

	next, err := a.machine.Transition(rec, conversation.Input{
		Event:       conversation.EventDestinationProvided,
		Destination: destination,
	})
	if err != nil {
		return a.resolve(ctx, rec, res, err)
	}
	return a.saveAndReply(ctx, next, res, msgAskQuantity)
}

func (a *Assistant) onQuantity(ctx context.Context, rec session.Record, res intent.Result) (Reply, error) {
	next, err := a.machine.Transition(rec, conversation.Input{
		Event:    conversation.EventQuantityProvided,
		Quantity: res.Extracted.Quantity,
	})
	if err != nil {
		return a.resolve(ctx, rec, res, err)
	}

	if _, err := a.save(ctx, next); err != nil {
		return Reply{}, err
	}
	return a.compute(ctx, next, res)
}

// compute runs the quote for a record in the computing state and ends the
// conversation either way.
func (a *Assistant) compute(ctx context.Context, rec session.Record, res intent.Result) (Reply, error) {
	unitWeight := a.machine.UnitWeight()
	result, calcErr := a.engine.CalculateFreight(ctx, freight.Request{
		TenantID:    rec.TenantID,
		Destination: rec.Destination,
		Quantity:    rec.Quantity,
		UnitWeight:  &unitWeight,
	})

	event := conversation.EventComputeSucceeded
	if calcErr != nil {
		event = conversation.EventComputeFailed
	}
	next, err := a.machine.Transition(rec, conversation.Input{Event: event})
	if err != nil {
		return a.resolve(ctx, rec, res, err)
	}
	if err := a.sessions.Delete(ctx, rec.TenantID, rec.UserID); err != nil {
		return Reply{}, err
	}

	switch {
	case calcErr == nil:
		reply := a.reply(next, res, formatResult(result))
		reply.Result = result
		return reply, nil
	case errors.Is(calcErr, freight.ErrNoOptions):
		return a.reply(next, res, msgNoOptions), nil
	default:
		logging.Error().
			Add(logging.TenantID(rec.TenantID)).
			Add(logging.UserID(rec.UserID)).
			Add(logging.ErrorField(calcErr)).
			Msg("freight calculation failed")
		return a.reply(next, res, msgTemporaryFailure), calcErr
	}
}

// resolve answers validation and flow errors and returns everything else.
func (a *Assistant) resolve(ctx context.Context, rec session.Record, res intent.Result, err error) (Reply, error) {
	var verr *freight.ValidationError
	switch {
	case errors.As(err, &verr):
		return a.invalidInput(ctx, rec, res, verr)

	case errors.Is(err, conversation.ErrInvalidTransition):
		logging.Warn().
			Add(logging.TenantID(rec.TenantID)).
			Add(logging.UserID(rec.UserID)).
			Add(logging.State(rec.State)).
			Add(logging.ErrorField(err)).
			Msg("conversation out of sync, starting over")
		if err := a.sessions.Delete(ctx, rec.TenantID, rec.UserID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: msgStartOver, State: conversation.StateIdle, Intent: res.Intent}, nil

	default:
		return Reply{}, err
	}
}

func (a *Assistant) invalidInput(ctx context.Context, rec session.Record, res intent.Result, verr *freight.ValidationError) (Reply, error) {
	rec.ErrorCount++
	if rec.ErrorCount < a.maxErrors {
		return a.saveAndReply(ctx, rec, res, correctiveMessage(verr))
	}

	next, err := a.machine.Transition(rec, conversation.Input{Event: conversation.EventFault})
	if err != nil {
		return Reply{}, err
	}
	if err := a.sessions.Delete(ctx, rec.TenantID, rec.UserID); err != nil {
		return Reply{}, err
	}
	return a.reply(next, res, msgTooManyErrors), nil
}

func (a *Assistant) reset(ctx context.Context, tenantID, userID string, res intent.Result, text string) (Reply, error) {
	rec, err := a.sessions.Get(ctx, tenantID, userID)
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		return Reply{}, err
	case a.machine.CanTransition(rec.State, conversation.EventReset):
		// Recorded for observability; the session is removed below either way.
		_, _ = a.machine.Transition(rec, conversation.Input{Event: conversation.EventReset})
	}

	if err := a.sessions.Delete(ctx, tenantID, userID); err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, State: conversation.StateIdle, Intent: res.Intent}, nil
}

func (a *Assistant) load(ctx context.Context, tenantID, userID string) (session.Record, error) {
	rec, err := a.sessions.Get(ctx, tenantID, userID)
	if errors.Is(err, session.ErrNotFound) {
		return a.sessions.Create(ctx, tenantID, userID)
	}
	return rec, err
}

func (a *Assistant) save(ctx context.Context, rec session.Record) (session.Record, error) {
	patch := session.PatchFrom(rec)
	patch.ExtendTTL = true
	return a.sessions.Update(ctx, rec.TenantID, rec.UserID, patch)
}

func (a *Assistant) saveAndReply(ctx context.Context, rec session.Record, res intent.Result, text string) (Reply, error) {
	saved, err := a.save(ctx, rec)
	if err != nil {
		return Reply{}, err
	}
	return a.reply(saved, res, text), nil
}

func (a *Assistant) reply(rec session.Record, res intent.Result, text string) Reply {
	return Reply{Text: text, State: rec.State, Intent: res.Intent}
}

// prompt asks for whatever the state is waiting on.
func prompt(state conversation.State) string {
	switch state {
	case conversation.StateAwaitingDestination:
		return msgAskDestination
	case conversation.StateAwaitingQuantity:
		return msgAskQuantity
	case conversation.StateComputing:
		return msgStillComputing
	case conversation.StateIdle, conversation.StateCompleted, conversation.StateFailed:
		return msgGreeting
	default:
		return msgGreeting
	}
}
