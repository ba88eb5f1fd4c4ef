package freight

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Weights balances the ranking criteria. Scores are lower-is-better.
type Weights struct {
	Price  float64 `json:"price" yaml:"price"`
	Time   float64 `json:"time" yaml:"time"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// DefaultWeights returns price 0.6, time 0.4, margin 0.
func DefaultWeights() Weights {
	return Weights{Price: 0.6, Time: 0.4, Margin: 0}
}

// IsZero returns true when no weight was specified.
func (w Weights) IsZero() bool {
	return w.Price == 0 && w.Time == 0 && w.Margin == 0
}

// EconomicContext describes the sale a shipment belongs to.
type EconomicContext struct {
	ProductCost     decimal.Decimal `json:"product_cost" yaml:"product_cost"`
	SellingPrice    decimal.Decimal `json:"selling_price" yaml:"selling_price"`
	OperationalCost decimal.Decimal `json:"operational_cost" yaml:"operational_cost"`
}

// Economics is the per-candidate outcome of a sale under an EconomicContext.
type Economics struct {
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent float64         `json:"margin_percent"`
}

// ScoredCandidate is a candidate with its score and optional economics.
type ScoredCandidate struct {
	QuoteCandidate
	Economics *Economics `json:"economics,omitempty"`
	Score     float64    `json:"score"`
}

// RankingResult is the ordered candidate set plus independent extremes.
// Cheapest, Fastest and BestMargin do not depend on the weighted score.
type RankingResult struct {
	All        []ScoredCandidate `json:"all"`
	Best       ScoredCandidate   `json:"best"`
	Cheapest   ScoredCandidate   `json:"cheapest"`
	Fastest    ScoredCandidate   `json:"fastest"`
	BestMargin *ScoredCandidate  `json:"best_margin,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// ComputeEconomics derives net revenue, profit and margin for a freight price.
// The margin is 0 when the selling price is 0.
func ComputeEconomics(price decimal.Decimal, econ EconomicContext) Economics {
	netRevenue := econ.SellingPrice.Sub(price)
	profit := netRevenue.Sub(econ.ProductCost).Sub(econ.OperationalCost)

	var margin float64
	if !econ.SellingPrice.IsZero() {
		margin = profit.Div(econ.SellingPrice).Mul(hundred).InexactFloat64()
	}

	return Economics{
		NetRevenue:    netRevenue,
		Profit:        profit,
		MarginPercent: margin,
	}
}

// Rank scores and orders candidates. It is a pure function of its inputs.
//
//	score = (price/minPrice)*w.Price + (days/minDays)*w.Time + (1 - margin/maxMargin)*w.Margin
//
// maxMargin is 1 without economics or when the maximum margin is exactly zero.
// Rank returns the zero RankingResult for an empty candidate set.
func Rank(candidates []QuoteCandidate, w Weights, econ *EconomicContext) RankingResult {
	if len(candidates) == 0 {
		return RankingResult{}
	}
	if w.IsZero() {
		w = DefaultWeights()
	}

	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{QuoteCandidate: c}
		if econ != nil {
			e := ComputeEconomics(c.Price, *econ)
			scored[i].Economics = &e
		}
	}

	minPrice := scored[0].Price
	minDays := scored[0].DeliveryDays
	for _, s := range scored[1:] {
		if s.Price.LessThan(minPrice) {
			minPrice = s.Price
		}
		if s.DeliveryDays < minDays {
			minDays = s.DeliveryDays
		}
	}
	if !minPrice.IsPositive() {
		minPrice = decimal.NewFromInt(1)
	}
	if minDays <= 0 {
		minDays = 1
	}

	maxMargin := 1.0
	if econ != nil {
		maxMargin = marginOf(scored[0])
		for _, s := range scored[1:] {
			if m := marginOf(s); m > maxMargin {
				maxMargin = m
			}
		}
		if maxMargin == 0 {
			maxMargin = 1
		}
	}

	for i := range scored {
		s := &scored[i]
		priceTerm := s.Price.Div(minPrice).InexactFloat64() * w.Price
		timeTerm := float64(s.DeliveryDays) / float64(minDays) * w.Time
		marginTerm := (1 - marginOf(*s)/maxMargin) * w.Margin
		s.Score = priceTerm + timeTerm + marginTerm
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
		if a.DeliveryDays != b.DeliveryDays {
			return a.DeliveryDays < b.DeliveryDays
		}
		return a.ID < b.ID
	})

	result := RankingResult{
		All:      scored,
		Best:     scored[0],
		Cheapest: scored[0],
		Fastest:  scored[0],
	}
	for _, s := range scored[1:] {
		if s.Price.LessThan(result.Cheapest.Price) {
			result.Cheapest = s
		}
		if s.DeliveryDays < result.Fastest.DeliveryDays {
			result.Fastest = s
		}
	}

	if econ != nil {
		best := scored[0]
		for _, s := range scored[1:] {
			if marginOf(s) > marginOf(best) {
				best = s
			}
		}
		result.BestMargin = &best
	}

	return result
}

func marginOf(s ScoredCandidate) float64 {
	if s.Economics == nil {
		return 0
	}
	return s.Economics.MarginPercent
}
