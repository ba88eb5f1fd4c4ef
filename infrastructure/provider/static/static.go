// Package static implements a freight.Provider that returns fixed candidates.
package static

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

var candidateNamespace = uuid.MustParse("0c5d7a62-95a4-4a3f-8f0e-2b6b0e1d4c77")

// Provider returns the same candidates for every request.
type Provider struct {
	source     freight.Source
	candidates []freight.QuoteCandidate
}

// New creates a provider reporting as source. Candidates without an ID get a
// stable one derived from carrier and service.
func New(source freight.Source, candidates ...freight.QuoteCandidate) *Provider {
	if source == "" {
		source = freight.SourceStatic
	}
	out := make([]freight.QuoteCandidate, len(candidates))
	for i, c := range candidates {
		if c.ID == "" {
			c.ID = candidateID(source, c.CarrierName, c.ServiceName)
		}
		c.Source = source
		out[i] = c
	}
	return &Provider{source: source, candidates: out}
}

// Group builds one provider per source from mixed candidates.
func Group(candidates []freight.QuoteCandidate) map[freight.Source]*Provider {
	grouped := make(map[freight.Source][]freight.QuoteCandidate)
	for _, c := range candidates {
		grouped[c.Source] = append(grouped[c.Source], c)
	}
	out := make(map[freight.Source]*Provider, len(grouped))
	for source, cs := range grouped {
		out[source] = New(source, cs...)
	}
	return out
}

// Defaults returns development offers: two parcel services and one freight carrier.
func Defaults() map[freight.Source]*Provider {
	return map[freight.Source]*Provider{
		freight.SourceLightAPI: New(freight.SourceLightAPI,
			freight.QuoteCandidate{CarrierName: "Correios", ServiceName: "PAC", Price: decimal.RequireFromString("24.90"), DeliveryDays: 7},
			freight.QuoteCandidate{CarrierName: "Correios", ServiceName: "SEDEX", Price: decimal.RequireFromString("41.50"), DeliveryDays: 2},
		),
		freight.SourceHeavyTable: New(freight.SourceHeavyTable,
			freight.QuoteCandidate{CarrierName: "Braspress", ServiceName: "Rodoviario", Price: decimal.RequireFromString("89.00"), DeliveryDays: 4},
		),
	}
}

// Source returns the configured source.
func (p *Provider) Source() freight.Source {
	return p.source
}

// Quote returns a copy of the fixed candidates.
func (p *Provider) Quote(ctx context.Context, _ freight.QuoteRequest) ([]freight.QuoteCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", freight.ErrProviderUnavailable, err)
	}
	out := make([]freight.QuoteCandidate, len(p.candidates))
	copy(out, p.candidates)
	return out, nil
}

func candidateID(source freight.Source, carrier, service string) string {
	return uuid.NewSHA1(candidateNamespace, []byte(string(source)+"|"+carrier+"|"+service)).String()
}
