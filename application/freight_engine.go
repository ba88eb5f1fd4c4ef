// Package application orchestrates quoting and the chat conversation flow.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/kv"
	"github.com/felixgeelhaar/freight-agent/domain/tenant"
	"github.com/felixgeelhaar/freight-agent/infrastructure/logging"
	"github.com/felixgeelhaar/freight-agent/infrastructure/resilience"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

const (
	// DefaultTopN caps the options returned to the caller.
	DefaultTopN = 5
	// DefaultCacheTTL is how long a computed result is reused.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultUnitWeight is the weight of one unit in kg.
	DefaultUnitWeight = 0.3

	persistErrorBuffer = 16
	tracerName         = "github.com/felixgeelhaar/freight-agent/application"
)

// FreightEngine selects a strategy by weight, fans out to the quote providers
// and ranks the merged candidates.
type FreightEngine struct {
	light       []freight.Provider
	heavy       []freight.Provider
	executor    *resilience.ProviderExecutor
	cache       kv.Backend
	cacheTTL    time.Duration
	sink        freight.SimulationSink
	thresholds  freight.Thresholds
	weights     freight.Weights
	economics   *freight.EconomicContext
	unitWeight  float64
	maxQuantity int
	topN        int
	metrics     telemetry.Metrics
	tracer      trace.Tracer
	now         func() time.Time

	persistErrs chan error
	dropped     sync.Once
}

// FreightEngineConfig contains the engine dependencies and policy.
type FreightEngineConfig struct {
	// LightProviders are queried for light_only and mixed strategies.
	LightProviders []freight.Provider
	// HeavyProviders are queried for mixed and heavy_only strategies.
	HeavyProviders []freight.Provider
	Executor       *resilience.ProviderExecutor
	// Cache is optional. Nil disables the read-through cache.
	Cache    kv.Backend
	CacheTTL time.Duration
	// Sink is optional. Nil disables simulation recording.
	Sink        freight.SimulationSink
	Thresholds  freight.Thresholds
	Weights     freight.Weights
	Economics   *freight.EconomicContext
	UnitWeight  float64
	MaxQuantity int
	TopN        int
	Metrics     telemetry.Metrics
	Tracer      trace.Tracer
	Clock       func() time.Time
}

// NewFreightEngine creates an engine. At least one provider is required.
func NewFreightEngine(config FreightEngineConfig) (*FreightEngine, error) {
	if len(config.LightProviders) == 0 && len(config.HeavyProviders) == 0 {
		return nil, errors.New("at least one quote provider is required")
	}

	e := &FreightEngine{
		light:       config.LightProviders,
		heavy:       config.HeavyProviders,
		executor:    config.Executor,
		cache:       config.Cache,
		cacheTTL:    config.CacheTTL,
		sink:        config.Sink,
		thresholds:  config.Thresholds,
		weights:     config.Weights,
		economics:   config.Economics,
		unitWeight:  config.UnitWeight,
		maxQuantity: config.MaxQuantity,
		topN:        config.TopN,
		metrics:     config.Metrics,
		tracer:      config.Tracer,
		now:         config.Clock,
		persistErrs: make(chan error, persistErrorBuffer),
	}

	// Set defaults
	if e.executor == nil {
		e.executor = resilience.NewDefaultProviderExecutor()
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = DefaultCacheTTL
	}
	if e.thresholds == (freight.Thresholds{}) {
		e.thresholds = freight.DefaultThresholds()
	}
	if e.thresholds.Heavy < e.thresholds.Light {
		return nil, fmt.Errorf("heavy threshold %.2f is below light threshold %.2f", e.thresholds.Heavy, e.thresholds.Light)
	}
	if e.weights.IsZero() {
		e.weights = freight.DefaultWeights()
	}
	if e.unitWeight <= 0 {
		e.unitWeight = DefaultUnitWeight
	}
	if e.maxQuantity <= 0 {
		e.maxQuantity = freight.DefaultMaxQuantity
	}
	if e.topN <= 0 {
		e.topN = DefaultTopN
	}
	if e.metrics == nil {
		e.metrics = telemetry.NoopMetrics{}
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e, nil
}

// PersistErrors delivers simulation recording failures. Sends never block;
// errors are dropped when nobody drains the channel.
func (e *FreightEngine) PersistErrors() <-chan error {
	return e.persistErrs
}

// CalculateFreight returns the ranked delivery options for a request.
//
// ErrNoOptions is returned when every queried provider answered with nothing.
// A *freight.ProviderError is returned when no candidate survived and at least
// one provider failed. Partial failures produce a Degraded result.
func (e *FreightEngine) CalculateFreight(ctx context.Context, req freight.Request) (*freight.Result, error) {
	start := e.now()

	tenantID, err := tenant.Require(req.TenantID)
	if err != nil {
		return nil, err
	}
	destination, err := freight.NormalizeDestination(req.Destination)
	if err != nil {
		return nil, err
	}
	if err := freight.ValidateQuantity(req.Quantity, e.maxQuantity); err != nil {
		return nil, err
	}

	unitWeight := e.unitWeight
	if req.UnitWeight != nil {
		if *req.UnitWeight <= 0 {
			return nil, &freight.ValidationError{
				Field:   "unit_weight",
				Value:   fmt.Sprintf("%g", *req.UnitWeight),
				Message: "unit weight must be positive",
			}
		}
		unitWeight = *req.UnitWeight
	}
	totalWeight := float64(req.Quantity) * unitWeight
	fingerprint := freight.Fingerprint(destination, totalWeight, req.Quantity)

	ctx, span := e.tracer.Start(ctx, "freight.calculate", trace.WithAttributes(
		attribute.String("freight.tenant_id", tenantID),
		attribute.String("freight.destination", destination),
		attribute.Int("freight.quantity", req.Quantity),
		attribute.Float64("freight.total_weight", totalWeight),
		attribute.String("freight.fingerprint", fingerprint),
	))
	defer span.End()

	// Request-level economics change the ranking, so those results are not shared.
	economics := e.economics
	cacheable := req.Economics == nil
	if req.Economics != nil {
		economics = req.Economics
	}

	if cacheable {
		if cached, ok := e.cached(ctx, fingerprint); ok {
			span.SetAttributes(attribute.Bool("freight.cached", true))
			logging.Info().
				Add(logging.TenantID(tenantID)).
				Add(logging.Fingerprint(fingerprint)).
				Add(logging.Cached(true)).
				Msg("freight quote served from cache")
			return cached, nil
		}
	}

	strategy := e.thresholds.Select(totalWeight)
	span.SetAttributes(attribute.String("freight.strategy", strategy.String()))

	quoteReq := freight.QuoteRequest{
		Destination: destination,
		TotalWeight: totalWeight,
		Quantity:    req.Quantity,
		Dimensions:  req.Dimensions,
	}
	candidates, failed, errs := e.fanOut(ctx, strategy, quoteReq)

	if len(candidates) == 0 {
		if len(failed) == 0 {
			logging.Info().
				Add(logging.TenantID(tenantID)).
				Add(logging.Strategy(strategy)).
				Add(logging.Fingerprint(fingerprint)).
				Msg("no freight options for destination")
			return nil, freight.ErrNoOptions
		}
		perr := &freight.ProviderError{
			Sources:   failed,
			Retryable: anyRetryable(errs),
			Err:       errors.Join(errs...),
		}
		span.RecordError(perr)
		span.SetStatus(codes.Error, "all providers failed")
		logging.Error().
			Add(logging.TenantID(tenantID)).
			Add(logging.Strategy(strategy)).
			Add(logging.ErrorField(perr)).
			Msg("freight quote failed")
		return nil, perr
	}

	ranking := freight.Rank(candidates, e.weights, economics)
	options := ranking.All
	if len(options) > e.topN {
		options = options[:e.topN]
	}

	result := &freight.Result{
		SchemaVersion: freight.ResultSchemaVersion,
		Options:       options,
		Best:          ranking.Best,
		Cheapest:      ranking.Cheapest,
		Fastest:       ranking.Fastest,
		BestMargin:    ranking.BestMargin,
		Strategy:      strategy,
		Rationale:     e.thresholds.Rationale(strategy, totalWeight),
		TotalWeight:   totalWeight,
		Quantity:      req.Quantity,
		Destination:   destination,
		Fingerprint:   fingerprint,
		CalculatedAt:  e.now(),
		Degraded:      len(failed) > 0,
		FailedSources: failed,
	}

	e.afterCommit(ctx, tenantID, result)
	if cacheable && !result.Degraded {
		e.store(ctx, result)
	}

	elapsed := e.now().Sub(start)
	e.metrics.RecordQuote(ctx, strategy.String(), len(result.Options), elapsed)
	span.SetAttributes(
		attribute.Int("freight.options", len(result.Options)),
		attribute.Bool("freight.degraded", result.Degraded),
	)
	logging.Info().
		Add(logging.TenantID(tenantID)).
		Add(logging.Strategy(strategy)).
		Add(logging.Weight(totalWeight)).
		Add(logging.Options(len(result.Options))).
		Add(logging.Degraded(result.Degraded)).
		Add(logging.Duration(elapsed)).
		Msg("freight quote calculated")

	return result, nil
}

// providersFor returns the provider families the strategy queries.
func (e *FreightEngine) providersFor(strategy freight.WeightStrategy) []freight.Provider {
	var out []freight.Provider
	if strategy.UsesLight() {
		out = append(out, e.light...)
	}
	if strategy.UsesHeavy() {
		out = append(out, e.heavy...)
	}
	return out
}

type providerOutcome struct {
	source     freight.Source
	candidates []freight.QuoteCandidate
	err        error
}

// fanOut queries every provider of the strategy concurrently.
// A failed provider is excluded from the merge and reported in failed.
func (e *FreightEngine) fanOut(ctx context.Context, strategy freight.WeightStrategy, req freight.QuoteRequest) ([]freight.QuoteCandidate, []freight.Source, []error) {
	providers := e.providersFor(strategy)
	outcomes := make([]providerOutcome, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			outcomes[i] = e.call(ctx, p, req)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged []freight.QuoteCandidate
		failed []freight.Source
		errs   []error
	)
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o.source)
			errs = append(errs, o.err)
			continue
		}
		merged = append(merged, o.candidates...)
	}
	return merged, failed, errs
}

func (e *FreightEngine) call(ctx context.Context, p freight.Provider, req freight.QuoteRequest) providerOutcome {
	source := p.Source()
	ctx, span := e.tracer.Start(ctx, "freight.provider.quote", trace.WithAttributes(
		attribute.String("freight.source", source.String()),
	))
	defer span.End()

	start := time.Now()
	candidates, err := e.executor.Quote(ctx, p, req)
	elapsed := time.Since(start)
	e.metrics.RecordProviderCall(ctx, source.String(), elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		logging.Warn().
			Add(logging.Source(source)).
			Add(logging.Duration(elapsed)).
			Add(logging.ErrorField(err)).
			Msg("quote provider failed")
		return providerOutcome{source: source, err: err}
	}

	span.SetAttributes(attribute.Int("freight.candidates", len(candidates)))
	return providerOutcome{source: source, candidates: candidates}
}

func anyRetryable(errs []error) bool {
	for _, err := range errs {
		if freight.IsRetryable(err) {
			return true
		}
	}
	return false
}

func cacheKey(fingerprint string) string {
	return "quote:" + fingerprint
}

// cached reads a result through the cache. Any cache problem is a miss.
func (e *FreightEngine) cached(ctx context.Context, fingerprint string) (*freight.Result, bool) {
	if e.cache == nil {
		return nil, false
	}

	data, found, err := e.cache.Get(ctx, cacheKey(fingerprint))
	if err != nil {
		logging.Warn().
			Add(logging.Fingerprint(fingerprint)).
			Add(logging.ErrorField(err)).
			Msg("quote cache read failed")
	}
	if err != nil || !found {
		e.metrics.RecordCacheMiss(ctx)
		return nil, false
	}

	var result freight.Result
	if err := json.Unmarshal(data, &result); err != nil || result.SchemaVersion != freight.ResultSchemaVersion {
		e.metrics.RecordCacheMiss(ctx)
		return nil, false
	}

	e.metrics.RecordCacheHit(ctx)
	result.Cached = true
	return &result, true
}

func (e *FreightEngine) store(ctx context.Context, result *freight.Result) {
	if e.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = e.cache.Set(ctx, cacheKey(result.Fingerprint), data, kv.SetOptions{TTL: e.cacheTTL})
	}
	if err != nil {
		logging.Warn().
			Add(logging.Fingerprint(result.Fingerprint)).
			Add(logging.ErrorField(err)).
			Msg("quote cache write failed")
	}
}

// afterCommit records the best option. Failures never reach the caller.
func (e *FreightEngine) afterCommit(ctx context.Context, tenantID string, result *freight.Result) {
	if e.sink == nil {
		return
	}

	rec := freight.SimulationRecord{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Destination: result.Destination,
		TotalWeight: result.TotalWeight,
		Quantity:    result.Quantity,
		BestCarrier: result.Best.CarrierName,
		BestService: result.Best.ServiceName,
		BestPrice:   result.Best.Price,
		Strategy:    result.Strategy,
		Fingerprint: result.Fingerprint,
		CreatedAt:   result.CalculatedAt,
	}
	if result.Best.Economics != nil {
		margin := result.Best.Economics.MarginPercent
		rec.BestMargin = &margin
	}

	if err := e.sink.RecordSimulation(ctx, rec); err != nil {
		e.metrics.RecordPersistFailure(ctx)
		logging.Error().
			Add(logging.TenantID(tenantID)).
			Add(logging.Fingerprint(result.Fingerprint)).
			Add(logging.ErrorField(err)).
			Msg("simulation recording failed")
		e.reportPersistError(fmt.Errorf("record simulation %s: %w", rec.ID, err))
	}
}

func (e *FreightEngine) reportPersistError(err error) {
	select {
	case e.persistErrs <- err:
	default:
		e.dropped.Do(func() {
			logging.Warn().Msg("persist error channel full, dropping errors")
		})
	}
}
