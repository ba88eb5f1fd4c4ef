// Package freight provides the domain model for freight quoting: quote candidates,
// weight-based strategy selection, validation rules, and the ranking engine.
package freight

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source identifies the pricing source that produced a candidate.
type Source string

// Known sources.
const (
	SourceLightAPI   Source = "light_api"   // Parcel carriers priced through an API
	SourceHeavyTable Source = "heavy_table" // Freight carriers priced from a rate table
	SourceStatic     Source = "static"      // Fixed offers (development profile)
)

// IsValid returns true if the source is recognized.
func (s Source) IsValid() bool {
	switch s {
	case SourceLightAPI, SourceHeavyTable, SourceStatic:
		return true
	default:
		return false
	}
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// QuoteCandidate is a single delivery option returned by a provider.
type QuoteCandidate struct {
	ID           string          `json:"id"`
	CarrierName  string          `json:"carrier_name"`
	ServiceName  string          `json:"service_name"`
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"delivery_days"`
	Source       Source          `json:"source"`
}

// Dimensions describes the package size in centimeters.
type Dimensions struct {
	Height float64 `json:"height" yaml:"height"`
	Width  float64 `json:"width" yaml:"width"`
	Length float64 `json:"length" yaml:"length"`
}

// QuoteRequest is what a provider receives.
type QuoteRequest struct {
	Destination string
	TotalWeight float64
	Quantity    int
	Dimensions  *Dimensions
}

// Provider is a pluggable source of quote candidates.
// Implementations wrap failures with ErrProviderRejected (do not retry)
// or ErrProviderUnavailable (retry).
type Provider interface {
	// Source identifies the provider in results and metrics.
	Source() Source

	// Quote returns the candidates for the request. An empty list is not an error.
	Quote(ctx context.Context, req QuoteRequest) ([]QuoteCandidate, error)
}
