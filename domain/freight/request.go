package freight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Request asks the decision engine for delivery options.
type Request struct {
	TenantID    string
	Destination string
	Quantity    int
	// UnitWeight overrides the configured default unit weight (kg).
	UnitWeight *float64
	Dimensions *Dimensions
	// Economics enables margin computation in the ranking.
	Economics *EconomicContext
}

// ResultSchemaVersion is the version of the cached Result payload.
const ResultSchemaVersion = 1

// Result is the ranked, capped outcome of a freight calculation.
type Result struct {
	SchemaVersion int               `json:"schema_version"`
	Options       []ScoredCandidate `json:"options"`
	Best          ScoredCandidate   `json:"best"`
	Cheapest      ScoredCandidate   `json:"cheapest"`
	Fastest       ScoredCandidate   `json:"fastest"`
	BestMargin    *ScoredCandidate  `json:"best_margin,omitempty"`
	Strategy      WeightStrategy    `json:"strategy"`
	Rationale     string            `json:"rationale"`
	TotalWeight   float64           `json:"total_weight"`
	Quantity      int               `json:"quantity"`
	Destination   string            `json:"destination"`
	Fingerprint   string            `json:"fingerprint"`
	CalculatedAt  time.Time         `json:"calculated_at"`
	Degraded      bool              `json:"degraded,omitempty"`
	FailedSources []Source          `json:"failed_sources,omitempty"`
	// Cached is set on read-through hits and never persisted.
	Cached bool `json:"-"`
}

// Fingerprint derives the cache key of a request from its normalized parameters.
func Fingerprint(destination string, totalWeight float64, quantity int) string {
	h := sha256.New()
	h.Write([]byte(destination))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatFloat(totalWeight, 'f', 3, 64)))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(quantity)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// SimulationRecord is the best-option summary written to the audit sink.
type SimulationRecord struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Destination string          `json:"destination"`
	TotalWeight float64         `json:"total_weight"`
	Quantity    int             `json:"quantity"`
	BestCarrier string          `json:"best_carrier"`
	BestService string          `json:"best_service"`
	BestPrice   decimal.Decimal `json:"best_price"`
	BestMargin  *float64        `json:"best_margin,omitempty"`
	Strategy    WeightStrategy  `json:"strategy"`
	Fingerprint string          `json:"fingerprint"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SimulationSink records simulations. It is write-only from the core's perspective;
// duplicate writes for the same fingerprint must be tolerated.
type SimulationSink interface {
	RecordSimulation(ctx context.Context, rec SimulationRecord) error
}
