// Package httpquote implements a freight.Provider over a parcel quote HTTP API.
package httpquote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// ErrURLRequired is returned when the provider has no endpoint.
var ErrURLRequired = errors.New("httpquote: url is required")

// maxBodySize bounds the response body read.
const maxBodySize = 1 << 20

// Config configures the HTTP provider.
type Config struct {
	URL              string // Required: quote endpoint
	Token            string // Optional bearer token
	OriginPostalCode string // Shipper's postal code
	Timeout          time.Duration
	Client           *http.Client
}

// ConfigFrom maps the application config section.
func ConfigFrom(cfg domainconfig.LightProviderConfig, timeout time.Duration) Config {
	return Config{
		URL:              cfg.URL,
		Token:            cfg.Token,
		OriginPostalCode: cfg.OriginPostalCode,
		Timeout:          timeout,
	}
}

// Provider quotes light parcels through an HTTP API.
type Provider struct {
	url    string
	token  string
	origin string
	client *http.Client
}

// New creates a provider.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrURLRequired
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Provider{
		url:    strings.TrimRight(cfg.URL, "/"),
		token:  cfg.Token,
		origin: cfg.OriginPostalCode,
		client: client,
	}, nil
}

// Source returns freight.SourceLightAPI.
func (p *Provider) Source() freight.Source {
	return freight.SourceLightAPI
}

type quoteRequest struct {
	From       string              `json:"from,omitempty"`
	To         string              `json:"to"`
	Weight     float64             `json:"weight"`
	Quantity   int                 `json:"quantity"`
	Dimensions *freight.Dimensions `json:"dimensions,omitempty"`
}

type quoteResponse struct {
	Quotes []quoteEntry `json:"quotes"`
}

type quoteEntry struct {
	ID           string          `json:"id"`
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"delivery_days"`
	Error        string          `json:"error,omitempty"`
}

// Quote posts the shipment and converts the offered services into candidates.
// Entries that carry an error or have no usable price are skipped.
func (p *Provider) Quote(ctx context.Context, req freight.QuoteRequest) ([]freight.QuoteCandidate, error) {
	body, err := json.Marshal(quoteRequest{
		From:       p.origin,
		To:         req.Destination,
		Weight:     req.TotalWeight,
		Quantity:   req.Quantity,
		Dimensions: req.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", freight.ErrProviderRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", freight.ErrProviderRejected, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", freight.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", freight.ErrProviderUnavailable, err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", freight.ErrProviderUnavailable, err)
	}

	out := make([]freight.QuoteCandidate, 0, len(parsed.Quotes))
	for _, q := range parsed.Quotes {
		if q.Error != "" || !q.Price.IsPositive() || q.DeliveryDays <= 0 {
			continue
		}
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, freight.QuoteCandidate{
			ID:           id,
			CarrierName:  q.Carrier,
			ServiceName:  q.Service,
			Price:        q.Price.Round(2),
			DeliveryDays: q.DeliveryDays,
			Source:       freight.SourceLightAPI,
		})
	}
	return out, nil
}

// statusError classifies non-2xx responses. Client errors are permanent except
// for request timeouts and throttling.
func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", freight.ErrProviderUnavailable, code)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: status %d: %s", freight.ErrProviderRejected, code, snippet(body))
	default:
		return fmt.Errorf("%w: status %d", freight.ErrProviderUnavailable, code)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
