package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/freight-agent/domain/conversation"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/intent"
	"github.com/felixgeelhaar/freight-agent/domain/session"
	"github.com/felixgeelhaar/freight-agent/domain/tenant"
	sessionstore "github.com/felixgeelhaar/freight-agent/infrastructure/session"
	"github.com/felixgeelhaar/freight-agent/infrastructure/statemachine"
)

type transitionLog struct {
	mu      sync.Mutex
	records []conversation.TransitionRecord
}

func (l *transitionLog) observe(r conversation.TransitionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

func (l *transitionLog) events() []conversation.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]conversation.Event, len(l.records))
	for i, r := range l.records {
		out[i] = r.Event
	}
	return out
}

type assistantFixture struct {
	assistant *Assistant
	sessions  *sessionstore.Store
	log       *transitionLog
}

func newAssistantFixture(t *testing.T, calc FreightCalculator) assistantFixture {
	t.Helper()

	sessions, err := sessionstore.New()
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	log := &transitionLog{}
	machine, err := statemachine.New(statemachine.WithObserver(log.observe))
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	if calc == nil {
		light, heavy := lightAndHeavy()
		calc = newTestEngine(t, WithLightProviders(light), WithHeavyProviders(heavy))
	}

	a, err := NewAssistant(AssistantConfig{
		Sessions: sessions,
		Machine:  machine,
		Engine:   calc,
	})
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	return assistantFixture{assistant: a, sessions: sessions, log: log}
}

func (f assistantFixture) send(t *testing.T, text string) Reply {
	t.Helper()
	reply, err := f.assistant.HandleMessage(context.Background(), "acme", "5511999990000", text)
	if err != nil {
		t.Fatalf("HandleMessage(%q) error = %v", text, err)
	}
	return reply
}

type calcFunc func(ctx context.Context, req freight.Request) (*freight.Result, error)

func (f calcFunc) CalculateFreight(ctx context.Context, req freight.Request) (*freight.Result, error) {
	return f(ctx, req)
}

func TestNewAssistant_Requirements(t *testing.T) {
	t.Parallel()

	if _, err := NewAssistant(AssistantConfig{}); err == nil {
		t.Error("NewAssistant() without sessions should fail")
	}
	sessions, _ := sessionstore.New()
	defer sessions.Close()
	if _, err := NewAssistant(AssistantConfig{Sessions: sessions}); err == nil {
		t.Error("NewAssistant() without engine should fail")
	}
}

func TestAssistant_HappyPath(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)

	reply := f.send(t, "Quero calcular o frete")
	if reply.State != conversation.StateAwaitingDestination || reply.Intent != intent.FreightQuery {
		t.Fatalf("after query: %+v", reply)
	}

	reply = f.send(t, "meu cep é 01001-000")
	if reply.State != conversation.StateAwaitingQuantity {
		t.Fatalf("after destination: %+v", reply)
	}
	rec, err := f.sessions.Get(context.Background(), "acme", "5511999990000")
	if err != nil || rec.Destination != "01001000" {
		t.Fatalf("stored record = %+v, %v", rec, err)
	}

	reply = f.send(t, "5")
	if reply.State != conversation.StateCompleted {
		t.Fatalf("after quantity: %+v", reply)
	}
	if reply.Result == nil || reply.Result.Quantity != 5 || reply.Result.Destination != "01001000" {
		t.Fatalf("Result = %+v", reply.Result)
	}
	if !strings.Contains(reply.Text, "Correios") || !strings.Contains(reply.Text, "01001-000") {
		t.Errorf("reply text = %q", reply.Text)
	}

	if _, err := f.sessions.Get(context.Background(), "acme", "5511999990000"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session should be deleted after completion, got %v", err)
	}

	want := []conversation.Event{
		conversation.EventStartQuery,
		conversation.EventDestinationProvided,
		conversation.EventQuantityProvided,
		conversation.EventComputeSucceeded,
	}
	if got := f.log.events(); !equalEvents(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestAssistant_PostalCodeStartsQuote(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)

	reply := f.send(t, "01001000")
	if reply.State != conversation.StateAwaitingQuantity {
		t.Fatalf("reply = %+v, want awaiting_quantity", reply)
	}
}

func TestAssistant_Greeting(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)

	reply := f.send(t, "bom dia")
	if reply.State != conversation.StateIdle || reply.Intent != intent.Unknown {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Text != msgGreeting {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestAssistant_InvalidInputRetries(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	f.send(t, "frete")

	reply := f.send(t, "rua das flores")
	if reply.State != conversation.StateAwaitingDestination {
		t.Fatalf("reply = %+v, want awaiting_destination", reply)
	}
	if !strings.Contains(reply.Text, "CEP inválido") {
		t.Errorf("Text = %q, want corrective message", reply.Text)
	}
	rec, _ := f.sessions.Get(context.Background(), "acme", "5511999990000")
	if rec.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", rec.ErrorCount)
	}

	// A valid answer still moves on.
	reply = f.send(t, "01001-000")
	if reply.State != conversation.StateAwaitingQuantity {
		t.Fatalf("reply = %+v, want awaiting_quantity", reply)
	}

	reply = f.send(t, "nenhuma")
	if reply.State != conversation.StateAwaitingQuantity || !strings.Contains(reply.Text, "Quantidade inválida") {
		t.Errorf("reply = %+v", reply)
	}
}

func TestAssistant_TooManyErrorsFails(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	f.send(t, "frete")
	f.send(t, "abc")
	f.send(t, "def")

	reply := f.send(t, "ghi")
	if reply.State != conversation.StateFailed || reply.Text != msgTooManyErrors {
		t.Fatalf("reply = %+v, want failed", reply)
	}
	if _, err := f.sessions.Get(context.Background(), "acme", "5511999990000"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session should be deleted, got %v", err)
	}

	events := f.log.events()
	if events[len(events)-1] != conversation.EventFault {
		t.Errorf("last transition = %s, want FAULT", events[len(events)-1])
	}
}

func TestAssistant_Reset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "reset", text: "reiniciar", want: msgReset},
		{name: "cancel", text: "cancelar", want: msgCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newAssistantFixture(t, nil)
			f.send(t, "frete")
			f.send(t, "01001-000")

			reply := f.send(t, tt.text)
			if reply.State != conversation.StateIdle || reply.Text != tt.want {
				t.Errorf("reply = %+v", reply)
			}
			if _, err := f.sessions.Get(context.Background(), "acme", "5511999990000"); !errors.Is(err, session.ErrNotFound) {
				t.Errorf("session should be deleted, got %v", err)
			}
		})
	}
}

func TestAssistant_ResetWithoutSession(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	if reply := f.send(t, "reiniciar"); reply.State != conversation.StateIdle {
		t.Errorf("reply = %+v", reply)
	}
}

func TestAssistant_CannedReplies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		intent intent.Intent
		want   string
	}{
		{text: "quero rastrear meu pedido", intent: intent.TrackOrder, want: msgTrackOrder},
		{text: "status do pagamento", intent: intent.PaymentStatus, want: msgPaymentStatus},
		{text: "falar com atendente", intent: intent.HumanSupport, want: msgHumanSupport},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			t.Parallel()

			f := newAssistantFixture(t, nil)
			reply := f.send(t, tt.text)
			if reply.Intent != tt.intent || reply.Text != tt.want {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestAssistant_HelpPromptsForCurrentStep(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	f.send(t, "frete")

	reply := f.send(t, "ajuda")
	if reply.State != conversation.StateAwaitingDestination {
		t.Errorf("State = %s", reply.State)
	}
	if !strings.Contains(reply.Text, msgAskDestination) {
		t.Errorf("Text = %q, want destination prompt", reply.Text)
	}
}

func TestAssistant_NoOptions(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, calcFunc(func(context.Context, freight.Request) (*freight.Result, error) {
		return nil, freight.ErrNoOptions
	}))
	f.send(t, "frete")
	f.send(t, "69900-000")

	reply := f.send(t, "3")
	if reply.State != conversation.StateFailed || reply.Text != msgNoOptions {
		t.Errorf("reply = %+v", reply)
	}
}

func TestAssistant_ProviderFailureIsReturned(t *testing.T) {
	t.Parallel()

	perr := &freight.ProviderError{Sources: []freight.Source{freight.SourceLightAPI}, Retryable: true, Err: freight.ErrProviderUnavailable}
	f := newAssistantFixture(t, calcFunc(func(context.Context, freight.Request) (*freight.Result, error) {
		return nil, perr
	}))
	f.send(t, "frete")
	f.send(t, "01001-000")

	reply, err := f.assistant.HandleMessage(context.Background(), "acme", "5511999990000", "3")
	if !errors.Is(err, freight.ErrProvider) {
		t.Fatalf("HandleMessage() error = %v, want ErrProvider", err)
	}
	if reply.Text != msgTemporaryFailure || reply.State != conversation.StateFailed {
		t.Errorf("reply = %+v", reply)
	}
	if strings.Contains(reply.Text, "light_api") {
		t.Error("reply must not leak internal detail")
	}
}

func TestAssistant_PassesUnitWeight(t *testing.T) {
	t.Parallel()

	var got freight.Request
	f := newAssistantFixture(t, calcFunc(func(_ context.Context, req freight.Request) (*freight.Result, error) {
		got = req
		return nil, freight.ErrNoOptions
	}))
	f.send(t, "frete")
	f.send(t, "01001-000")
	f.send(t, "7")

	if got.TenantID != "acme" || got.Destination != "01001000" || got.Quantity != 7 {
		t.Errorf("request = %+v", got)
	}
	if got.UnitWeight == nil || *got.UnitWeight != statemachine.DefaultUnitWeight {
		t.Errorf("UnitWeight = %v, want %v", got.UnitWeight, statemachine.DefaultUnitWeight)
	}
}

func TestAssistant_RequiresTenant(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	if _, err := f.assistant.HandleMessage(context.Background(), " ", "u1", "frete"); !errors.Is(err, tenant.ErrTenantRequired) {
		t.Errorf("HandleMessage() error = %v, want ErrTenantRequired", err)
	}
}

func TestAssistant_StaleFinishedSessionStartsOver(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	state := conversation.StateCompleted
	if _, err := f.sessions.Update(context.Background(), "acme", "5511999990000", session.Patch{State: &state}); err != nil {
		t.Fatal(err)
	}

	reply := f.send(t, "frete")
	if reply.State != conversation.StateAwaitingDestination {
		t.Errorf("reply = %+v, want awaiting_destination", reply)
	}
}

func TestAssistant_ComputingSession(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	state := conversation.StateComputing
	f.sessions.Update(context.Background(), "acme", "5511999990000", session.Patch{State: &state})

	reply := f.send(t, "5")
	if reply.State != conversation.StateComputing || reply.Text != msgStillComputing {
		t.Errorf("reply = %+v", reply)
	}
}

func TestAssistant_TenantsAreIsolated(t *testing.T) {
	t.Parallel()

	f := newAssistantFixture(t, nil)
	ctx := context.Background()

	if _, err := f.assistant.HandleMessage(ctx, "acme", "u1", "frete"); err != nil {
		t.Fatal(err)
	}
	reply, err := f.assistant.HandleMessage(ctx, "globex", "u1", "01001-000")
	if err != nil {
		t.Fatal(err)
	}
	// globex has no conversation, so the postal code starts a fresh quote.
	if reply.State != conversation.StateAwaitingQuantity {
		t.Errorf("reply = %+v", reply)
	}
	rec, _ := f.sessions.Get(ctx, "acme", "u1")
	if rec.State != conversation.StateAwaitingDestination {
		t.Errorf("acme state = %s, want awaiting_destination", rec.State)
	}
}

func TestFormatResult(t *testing.T) {
	t.Parallel()

	light, _ := lightAndHeavy()
	e := newTestEngine(t, WithLightProviders(light))
	result, err := e.CalculateFreight(context.Background(), freight.Request{TenantID: "acme", Destination: "01001000", Quantity: 5})
	if err != nil {
		t.Fatal(err)
	}

	text := formatResult(result)
	for _, want := range []string{"01001-000", "1,50 kg", "R$ 24,90", "R$ 41,50", "Mais barata: Correios"} {
		if !strings.Contains(text, want) {
			t.Errorf("formatResult() missing %q in %q", want, text)
		}
	}
}

func equalEvents(a, b []conversation.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
