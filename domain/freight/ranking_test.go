package freight

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func candidate(id string, price float64, days int) QuoteCandidate {
	return QuoteCandidate{
		ID:           id,
		CarrierName:  "carrier-" + id,
		ServiceName:  "service-" + id,
		Price:        decimal.NewFromFloat(price),
		DeliveryDays: days,
		Source:       SourceLightAPI,
	}
}

func scenarioCandidates() []QuoteCandidate {
	return []QuoteCandidate{
		candidate("a", 20, 10),
		candidate("b", 40, 3),
		candidate("c", 25, 8),
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRank_Empty(t *testing.T) {
	t.Parallel()

	result := Rank(nil, DefaultWeights(), nil)
	if len(result.All) != 0 {
		t.Errorf("Rank(nil) returned %d candidates, want 0", len(result.All))
	}
}

func TestRank_Extremes(t *testing.T) {
	t.Parallel()

	result := Rank(scenarioCandidates(), Weights{Price: 0.6, Time: 0.4}, nil)

	if result.Cheapest.ID != "a" {
		t.Errorf("Cheapest = %s, want a", result.Cheapest.ID)
	}
	if result.Fastest.ID != "b" {
		t.Errorf("Fastest = %s, want b", result.Fastest.ID)
	}
	if result.BestMargin != nil {
		t.Error("BestMargin should be nil without economics")
	}

	want := map[string]float64{
		"a": 1.0*0.6 + 10.0/3.0*0.4,
		"b": 2.0*0.6 + 1.0*0.4,
		"c": 1.25*0.6 + 8.0/3.0*0.4,
	}
	for _, s := range result.All {
		if !approxEqual(s.Score, want[s.ID]) {
			t.Errorf("score(%s) = %v, want %v", s.ID, s.Score, want[s.ID])
		}
	}
	if result.Best.ID != "b" {
		t.Errorf("Best = %s, want b", result.Best.ID)
	}
}

func TestRank_BestDiffersFromExtremes(t *testing.T) {
	t.Parallel()

	result := Rank(scenarioCandidates(), Weights{Price: 0.7, Time: 0.3}, nil)

	if result.Best.ID != "c" {
		t.Fatalf("Best = %s, want c", result.Best.ID)
	}
	if result.Best.ID == result.Cheapest.ID || result.Best.ID == result.Fastest.ID {
		t.Error("Best should differ from both cheapest and fastest")
	}
}

func TestRank_PriceOnly(t *testing.T) {
	t.Parallel()

	result := Rank(scenarioCandidates(), Weights{Price: 1.0, Time: 0.0}, nil)
	if result.Best.ID != result.Cheapest.ID {
		t.Errorf("Best = %s, want cheapest %s", result.Best.ID, result.Cheapest.ID)
	}
}

func TestRank_DefaultWeights(t *testing.T) {
	t.Parallel()

	explicit := Rank(scenarioCandidates(), DefaultWeights(), nil)
	implicit := Rank(scenarioCandidates(), Weights{}, nil)

	for i := range explicit.All {
		if explicit.All[i].ID != implicit.All[i].ID || explicit.All[i].Score != implicit.All[i].Score {
			t.Fatalf("zero weights should behave as defaults at index %d", i)
		}
	}
}

func TestRank_Idempotent(t *testing.T) {
	t.Parallel()

	econ := &EconomicContext{
		ProductCost:     decimal.NewFromInt(50),
		SellingPrice:    decimal.NewFromInt(120),
		OperationalCost: decimal.NewFromInt(5),
	}
	w := Weights{Price: 0.5, Time: 0.3, Margin: 0.2}

	first := Rank(scenarioCandidates(), w, econ)
	second := Rank(scenarioCandidates(), w, econ)

	for i := range first.All {
		if first.All[i].ID != second.All[i].ID {
			t.Errorf("order differs at %d: %s vs %s", i, first.All[i].ID, second.All[i].ID)
		}
		if first.All[i].Score != second.All[i].Score {
			t.Errorf("score differs at %d: %v vs %v", i, first.All[i].Score, second.All[i].Score)
		}
	}
}

func TestRank_PriceWeightMonotonicity(t *testing.T) {
	t.Parallel()

	cheap := candidate("cheap", 20, 5)
	pricey := candidate("pricey", 30, 5)

	rankOf := func(r RankingResult, id string) int {
		for i, s := range r.All {
			if s.ID == id {
				return i
			}
		}
		return -1
	}

	for _, pw := range []float64{0, 0.1, 0.4, 0.6, 0.9, 1.5} {
		r := Rank([]QuoteCandidate{pricey, cheap}, Weights{Price: pw, Time: 0.4}, nil)
		if pw > 0 && rankOf(r, "cheap") > rankOf(r, "pricey") {
			t.Errorf("priceWeight %v: cheaper candidate ranked below pricier one", pw)
		}
	}

	// Increasing price weight never worsens the cheaper candidate's relative rank.
	prev := -1
	for _, pw := range []float64{0.1, 0.5, 1.0, 2.0} {
		r := Rank([]QuoteCandidate{
			candidate("fast", 40, 2),
			candidate("cheap", 20, 6),
			candidate("mid", 30, 4),
		}, Weights{Price: pw, Time: 0.4}, nil)
		pos := rankOf(r, "cheap")
		if prev >= 0 && pos > prev {
			t.Errorf("priceWeight %v moved cheap from %d to %d", pw, prev, pos)
		}
		prev = pos
	}
}

func TestRank_Economics(t *testing.T) {
	t.Parallel()

	econ := &EconomicContext{
		ProductCost:     decimal.NewFromInt(50),
		SellingPrice:    decimal.NewFromInt(100),
		OperationalCost: decimal.NewFromInt(10),
	}

	result := Rank(scenarioCandidates(), Weights{Price: 0.6, Time: 0.4}, econ)
	if result.BestMargin == nil {
		t.Fatal("BestMargin should be set with economics")
	}
	if result.BestMargin.ID != "a" {
		t.Errorf("BestMargin = %s, want a (lowest freight price)", result.BestMargin.ID)
	}

	for _, s := range result.All {
		if s.Economics == nil {
			t.Fatalf("candidate %s has no economics", s.ID)
		}
	}

	// a: net revenue 80, profit 20, margin 20%.
	var a ScoredCandidate
	for _, s := range result.All {
		if s.ID == "a" {
			a = s
		}
	}
	if !a.Economics.NetRevenue.Equal(decimal.NewFromInt(80)) {
		t.Errorf("NetRevenue = %s, want 80", a.Economics.NetRevenue)
	}
	if !a.Economics.Profit.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Profit = %s, want 20", a.Economics.Profit)
	}
	if !approxEqual(a.Economics.MarginPercent, 20) {
		t.Errorf("MarginPercent = %v, want 20", a.Economics.MarginPercent)
	}
}

func TestRank_MarginWeightInvertsMargin(t *testing.T) {
	t.Parallel()

	econ := &EconomicContext{
		ProductCost:  decimal.NewFromInt(10),
		SellingPrice: decimal.NewFromInt(100),
	}

	// Margin-only weighting prefers the highest margin, i.e. the cheapest freight.
	result := Rank(scenarioCandidates(), Weights{Margin: 1}, econ)
	if result.Best.ID != result.BestMargin.ID {
		t.Errorf("Best = %s, want best margin %s", result.Best.ID, result.BestMargin.ID)
	}
	if !approxEqual(result.Best.Score, 0) {
		t.Errorf("best-margin score = %v, want 0", result.Best.Score)
	}
}

func TestComputeEconomics_ZeroSellingPrice(t *testing.T) {
	t.Parallel()

	e := ComputeEconomics(decimal.NewFromInt(10), EconomicContext{})
	if e.MarginPercent != 0 {
		t.Errorf("MarginPercent = %v, want 0", e.MarginPercent)
	}
	if !e.NetRevenue.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("NetRevenue = %s, want -10", e.NetRevenue)
	}
}

func TestRank_AllNegativeMargins(t *testing.T) {
	t.Parallel()

	// Every sale loses money: margins are -10% (a), -30% (b), -15% (c).
	econ := &EconomicContext{
		ProductCost:  decimal.NewFromInt(90),
		SellingPrice: decimal.NewFromInt(100),
	}
	w := Weights{Margin: 1}
	result := Rank(scenarioCandidates(), w, econ)

	// maxMargin is -10, so the term 1 - m/max grows negative for worse margins.
	// The worst margin therefore gets the lowest score. This is the preserved
	// degenerate ordering; BestMargin stays correct regardless.
	if result.BestMargin.ID != "a" {
		t.Errorf("BestMargin = %s, want a", result.BestMargin.ID)
	}
	if result.Best.ID != "b" {
		t.Errorf("Best = %s, want b under inverted negative margins", result.Best.ID)
	}
}

func TestRank_ZeroMaxMarginGuard(t *testing.T) {
	t.Parallel()

	// Selling price equal to costs leaves a zero margin for the free option.
	econ := &EconomicContext{
		ProductCost:  decimal.NewFromInt(100),
		SellingPrice: decimal.NewFromInt(100),
	}
	result := Rank([]QuoteCandidate{candidate("free", 0, 3), candidate("paid", 10, 3)}, Weights{Price: 0.5, Margin: 0.5}, econ)

	for _, s := range result.All {
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			t.Fatalf("score(%s) = %v, want finite", s.ID, s.Score)
		}
	}
	if result.Best.ID != "free" {
		t.Errorf("Best = %s, want free", result.Best.ID)
	}
}

func TestRank_TieBreak(t *testing.T) {
	t.Parallel()

	result := Rank([]QuoteCandidate{
		candidate("z", 20, 5),
		candidate("y", 20, 5),
	}, DefaultWeights(), nil)

	if result.All[0].ID != "y" {
		t.Errorf("tie should break by id, got %s first", result.All[0].ID)
	}
}
