// Package intent classifies inbound chat text into typed intents.
package intent

// Intent is the classified purpose of a message.
type Intent string

// Intent values.
const (
	FreightQuery       Intent = "freight_query"
	ProvideDestination Intent = "provide_destination"
	ProvideQuantity    Intent = "provide_quantity"
	Reset              Intent = "reset"
	Cancel             Intent = "cancel"
	Help               Intent = "help"
	TrackOrder         Intent = "track_order"
	PaymentStatus      Intent = "payment_status"
	HumanSupport       Intent = "human_support"
	Unknown            Intent = "unknown"
)

// AllIntents returns every intent value.
func AllIntents() []Intent {
	return []Intent{
		FreightQuery, ProvideDestination, ProvideQuantity, Reset, Cancel,
		Help, TrackOrder, PaymentStatus, HumanSupport, Unknown,
	}
}

// IsValid returns true if the intent is known.
func (i Intent) IsValid() bool {
	switch i {
	case FreightQuery, ProvideDestination, ProvideQuantity, Reset, Cancel,
		Help, TrackOrder, PaymentStatus, HumanSupport, Unknown:
		return true
	}
	return false
}

// String returns the string representation.
func (i Intent) String() string {
	return string(i)
}

// Confidence levels assigned by the classifier.
const (
	ConfidenceExact    = 1.0
	ConfidenceFreight  = 0.9
	ConfidenceTracking = 0.85
	ConfidencePayment  = 0.85
	ConfidenceHuman    = 0.8
	ConfidenceNone     = 0.0
)

// Extracted holds structured fields pulled out of the text.
// Destination is the digits-only postal code.
type Extracted struct {
	Destination string `json:"destination,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

// Result is the outcome of classifying one message.
type Result struct {
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Extracted  Extracted `json:"extracted"`
}

// Signal is one intent that fired during a non short-circuiting scan.
type Signal struct {
	Intent     Intent
	Confidence float64
}
