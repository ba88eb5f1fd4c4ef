// Package table implements a freight.Provider that prices heavy shipments from
// a rate table keyed by postal code range.
package table

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// ErrInvalidTable is returned for a malformed rate table.
var ErrInvalidTable = errors.New("invalid rate table")

// candidateNamespace derives stable candidate IDs from carrier, service and range.
var candidateNamespace = uuid.MustParse("6f1c1f3e-5b0a-4b5e-9d43-3c8f2a7e9b10")

// Table is the parsed rate table.
type Table struct {
	Carriers []Carrier `yaml:"carriers"`
}

// Carrier is one freight carrier service with its rates.
type Carrier struct {
	Name    string `yaml:"name"`
	Service string `yaml:"service"`
	// MinWeight and MaxWeight bound the accepted total weight in kg.
	// A zero MaxWeight means no upper bound.
	MinWeight float64 `yaml:"min_weight"`
	MaxWeight float64 `yaml:"max_weight"`
	Rates     []Rate  `yaml:"rates"`
}

// Rate prices destinations within an inclusive postal code range.
type Rate struct {
	From         string  `yaml:"from"`
	To           string  `yaml:"to"`
	BasePrice    float64 `yaml:"base_price"`
	PricePerKg   float64 `yaml:"price_per_kg"`
	DeliveryDays int     `yaml:"delivery_days"`
}

// Load reads and parses a YAML rate table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rate table and validates it.
func Parse(data []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the table for unusable entries.
func (t *Table) Validate() error {
	var errs []error
	for i, c := range t.Carriers {
		path := fmt.Sprintf("carriers[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		}
		if c.MinWeight < 0 || (c.MaxWeight != 0 && c.MaxWeight < c.MinWeight) {
			errs = append(errs, fmt.Errorf("%s: weight bounds [%g, %g] are invalid", path, c.MinWeight, c.MaxWeight))
		}
		for j, r := range c.Rates {
			rpath := fmt.Sprintf("%s.rates[%d]", path, j)
			from, ferr := freight.NormalizeDestination(r.From)
			to, terr := freight.NormalizeDestination(r.To)
			switch {
			case ferr != nil || terr != nil:
				errs = append(errs, fmt.Errorf("%s: range bounds must be 8-digit postal codes", rpath))
			case from > to:
				errs = append(errs, fmt.Errorf("%s: from %s is after to %s", rpath, from, to))
			}
			if r.BasePrice < 0 || r.PricePerKg < 0 {
				errs = append(errs, fmt.Errorf("%s: prices must not be negative", rpath))
			}
			if r.DeliveryDays <= 0 {
				errs = append(errs, fmt.Errorf("%s.delivery_days must be positive", rpath))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(errs...))
	}
	return nil
}

// Provider quotes from a rate table. It never calls the network.
type Provider struct {
	table *Table
}

// New creates a provider over a validated table.
func New(t *Table) *Provider {
	if t == nil {
		t = &Table{}
	}
	return &Provider{table: t}
}

// Source returns freight.SourceHeavyTable.
func (p *Provider) Source() freight.Source {
	return freight.SourceHeavyTable
}

// Quote returns one candidate per carrier whose weight band admits the shipment
// and whose first matching range covers the destination.
// price = base_price + price_per_kg * total_weight, rounded to cents.
func (p *Provider) Quote(ctx context.Context, req freight.QuoteRequest) ([]freight.QuoteCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", freight.ErrProviderUnavailable, err)
	}

	dest, err := freight.NormalizeDestination(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", freight.ErrProviderRejected, err)
	}

	weight := decimal.NewFromFloat(req.TotalWeight)
	var out []freight.QuoteCandidate
	for _, c := range p.table.Carriers {
		if req.TotalWeight < c.MinWeight || (c.MaxWeight > 0 && req.TotalWeight > c.MaxWeight) {
			continue
		}
		rate, ok := c.match(dest)
		if !ok {
			continue
		}
		price := decimal.NewFromFloat(rate.BasePrice).
			Add(decimal.NewFromFloat(rate.PricePerKg).Mul(weight)).
			Round(2)

		out = append(out, freight.QuoteCandidate{
			ID:           uuid.NewSHA1(candidateNamespace, []byte(c.Name+"|"+c.Service+"|"+rate.From)).String(),
			CarrierName:  c.Name,
			ServiceName:  c.Service,
			Price:        price,
			DeliveryDays: rate.DeliveryDays,
			Source:       freight.SourceHeavyTable,
		})
	}
	return out, nil
}

func (c Carrier) match(dest string) (Rate, bool) {
	for _, r := range c.Rates {
		from, _ := freight.NormalizeDestination(r.From)
		to, _ := freight.NormalizeDestination(r.To)
		if dest >= from && dest <= to {
			return r, true
		}
	}
	return Rate{}, false
}
