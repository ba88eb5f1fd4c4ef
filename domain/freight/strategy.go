package freight

import "fmt"

// WeightStrategy selects which provider family is queried for a shipment.
type WeightStrategy string

// Strategies, ordered by total weight.
const (
	StrategyLightOnly WeightStrategy = "light_only"
	StrategyMixed     WeightStrategy = "mixed"
	StrategyHeavyOnly WeightStrategy = "heavy_only"
)

// Default weight thresholds in kilograms.
const (
	DefaultLightThreshold = 10.0
	DefaultHeavyThreshold = 15.0
)

// Thresholds bounds the mixed band: (Light, Heavy].
type Thresholds struct {
	Light float64 `json:"light" yaml:"light"`
	Heavy float64 `json:"heavy" yaml:"heavy"`
}

// DefaultThresholds returns the 10 kg / 15 kg bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Light: DefaultLightThreshold, Heavy: DefaultHeavyThreshold}
}

// Select derives the strategy for a total weight.
// weight <= Light is light-only, Light < weight <= Heavy is mixed, above Heavy is heavy-only.
func (t Thresholds) Select(totalWeight float64) WeightStrategy {
	switch {
	case totalWeight <= t.Light:
		return StrategyLightOnly
	case totalWeight <= t.Heavy:
		return StrategyMixed
	default:
		return StrategyHeavyOnly
	}
}

// Rationale explains the selection for logs and audit rows.
func (t Thresholds) Rationale(s WeightStrategy, totalWeight float64) string {
	switch s {
	case StrategyLightOnly:
		return fmt.Sprintf("%.2f kg <= %.2f kg: parcel carriers only", totalWeight, t.Light)
	case StrategyMixed:
		return fmt.Sprintf("%.2f kg in (%.2f, %.2f] kg: parcel and freight carriers", totalWeight, t.Light, t.Heavy)
	case StrategyHeavyOnly:
		return fmt.Sprintf("%.2f kg > %.2f kg: freight table only", totalWeight, t.Heavy)
	default:
		return "unknown strategy"
	}
}

// UsesLight returns true if the strategy queries light providers.
func (s WeightStrategy) UsesLight() bool {
	switch s {
	case StrategyLightOnly, StrategyMixed:
		return true
	case StrategyHeavyOnly:
		return false
	default:
		return false
	}
}

// UsesHeavy returns true if the strategy queries heavy providers.
func (s WeightStrategy) UsesHeavy() bool {
	switch s {
	case StrategyMixed, StrategyHeavyOnly:
		return true
	case StrategyLightOnly:
		return false
	default:
		return false
	}
}

// IsValid returns true if the strategy is recognized.
func (s WeightStrategy) IsValid() bool {
	switch s {
	case StrategyLightOnly, StrategyMixed, StrategyHeavyOnly:
		return true
	default:
		return false
	}
}

// String returns the string representation of the strategy.
func (s WeightStrategy) String() string {
	return string(s)
}
