package freight

import (
	"regexp"
	"strconv"
	"strings"
)

// PostalCodeLength is the number of digits in a normalized postal code (CEP).
const PostalCodeLength = 8

// DefaultMaxQuantity is the upper bound for a quantity when none is configured.
const DefaultMaxQuantity = 9999

var postalCodePattern = regexp.MustCompile(`^(\d{5})-?(\d{3})$`)

// NormalizeDestination strips the CEP separator and validates the digit count.
// "01001-000" and "01001000" both normalize to "01001000".
func NormalizeDestination(raw string) (string, error) {
	m := postalCodePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", &ValidationError{
			Field:   "destination",
			Value:   raw,
			Message: "destination must be an 8-digit postal code",
		}
	}
	return m[1] + m[2], nil
}

// ValidateQuantity checks that a quantity is a positive integer within max.
// A non-positive max falls back to DefaultMaxQuantity.
func ValidateQuantity(quantity, max int) error {
	if max <= 0 {
		max = DefaultMaxQuantity
	}
	if quantity < 1 || quantity > max {
		return &ValidationError{
			Field:   "quantity",
			Value:   strconv.Itoa(quantity),
			Message: "quantity must be between 1 and " + strconv.Itoa(max),
		}
	}
	return nil
}
