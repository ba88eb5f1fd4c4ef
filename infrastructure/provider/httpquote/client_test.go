package httpquote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(Config{
		URL:              server.URL,
		Token:            "secret",
		OriginPostalCode: "04538132",
		Timeout:          time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{URL: "  "}); !errors.Is(err, ErrURLRequired) {
		t.Errorf("New() error = %v, want ErrURLRequired", err)
	}
}

func TestConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := ConfigFrom(domainconfig.LightProviderConfig{
		URL:              "https://quotes.example.com",
		Token:            "t",
		OriginPostalCode: "01001000",
	}, 3*time.Second)

	if cfg.URL != "https://quotes.example.com" || cfg.Token != "t" || cfg.OriginPostalCode != "01001000" {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Timeout)
	}
}

func TestProvider_Quote(t *testing.T) {
	t.Parallel()

	var got quoteRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/quotes" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[
			{"id":"pac-1","carrier":"Correios","service":"PAC","price":"25.50","delivery_days":7},
			{"carrier":"Correios","service":"SEDEX","price":42.9,"delivery_days":2},
			{"carrier":"Jadlog","service":".Package","error":"destination not served"},
			{"carrier":"Loggi","service":"Express","price":"0","delivery_days":1}
		]}`))
	})

	candidates, err := p.Quote(context.Background(), freight.QuoteRequest{
		Destination: "01001000",
		TotalWeight: 1.5,
		Quantity:    5,
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	if got.From != "04538132" || got.To != "01001000" || got.Weight != 1.5 || got.Quantity != 5 {
		t.Errorf("request body = %+v", got)
	}

	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	if candidates[0].ID != "pac-1" || !candidates[0].Price.Equal(decimal.RequireFromString("25.50")) {
		t.Errorf("candidates[0] = %+v", candidates[0])
	}
	if candidates[1].ID == "" {
		t.Error("missing ID should be generated")
	}
	for _, c := range candidates {
		if c.Source != freight.SourceLightAPI {
			t.Errorf("Source = %s, want light_api", c.Source)
		}
	}
	if p.Source() != freight.SourceLightAPI {
		t.Errorf("Source() = %s", p.Source())
	}
}

func TestProvider_Quote_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "bad request", status: http.StatusBadRequest, want: freight.ErrProviderRejected},
		{name: "unauthorized", status: http.StatusUnauthorized, want: freight.ErrProviderRejected},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, want: freight.ErrProviderRejected},
		{name: "request timeout", status: http.StatusRequestTimeout, want: freight.ErrProviderUnavailable},
		{name: "throttled", status: http.StatusTooManyRequests, want: freight.ErrProviderUnavailable},
		{name: "server error", status: http.StatusInternalServerError, want: freight.ErrProviderUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, want: freight.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := p.Quote(context.Background(), freight.QuoteRequest{Destination: "01001000", TotalWeight: 1, Quantity: 1})
			if !errors.Is(err, tt.want) {
				t.Errorf("Quote() error = %v, want %v", err, tt.want)
			}
			if freight.IsRetryable(err) != errors.Is(tt.want, freight.ErrProviderUnavailable) {
				t.Errorf("IsRetryable(%v) mismatch", err)
			}
		})
	}
}

func TestProvider_Quote_MalformedBody(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>`))
	})
	_, err := p.Quote(context.Background(), freight.QuoteRequest{Destination: "01001000", TotalWeight: 1, Quantity: 1})
	if !errors.Is(err, freight.ErrProviderUnavailable) {
		t.Errorf("Quote() error = %v, want ErrProviderUnavailable", err)
	}
}

func TestProvider_Quote_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := newTestProvider(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Quote(ctx, freight.QuoteRequest{Destination: "01001000", TotalWeight: 1, Quantity: 1})
	if !errors.Is(err, freight.ErrProviderUnavailable) {
		t.Errorf("Quote() error = %v, want ErrProviderUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Quote() error = %v, want to wrap DeadlineExceeded", err)
	}
}

func TestProvider_Quote_Unreachable(t *testing.T) {
	t.Parallel()

	p, err := New(Config{URL: "http://127.0.0.1:1", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = p.Quote(context.Background(), freight.QuoteRequest{Destination: "01001000", TotalWeight: 1, Quantity: 1})
	if !errors.Is(err, freight.ErrProviderUnavailable) {
		t.Errorf("Quote() error = %v, want ErrProviderUnavailable", err)
	}
}
