package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/freight-agent/application"
	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/domain/intent"
	"github.com/felixgeelhaar/freight-agent/domain/kv"
	infraconfig "github.com/felixgeelhaar/freight-agent/infrastructure/config"
	"github.com/felixgeelhaar/freight-agent/infrastructure/logging"
	"github.com/felixgeelhaar/freight-agent/infrastructure/observability"
	"github.com/felixgeelhaar/freight-agent/infrastructure/provider/httpquote"
	"github.com/felixgeelhaar/freight-agent/infrastructure/provider/static"
	"github.com/felixgeelhaar/freight-agent/infrastructure/provider/table"
	"github.com/felixgeelhaar/freight-agent/infrastructure/resilience"
	"github.com/felixgeelhaar/freight-agent/infrastructure/security/secrets"
	sessionstore "github.com/felixgeelhaar/freight-agent/infrastructure/session"
	"github.com/felixgeelhaar/freight-agent/infrastructure/statemachine"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/badger"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/redis"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/sqlite"
	"github.com/felixgeelhaar/freight-agent/infrastructure/telemetry"
)

// runtime holds the wired services for one command invocation.
type runtime struct {
	config     *domainconfig.AppConfig
	engine     *application.FreightEngine
	assistant  *application.Assistant
	classifier *intent.Classifier
	closers    []func(context.Context) error
}

// Close releases resources in reverse construction order.
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func (r *runtime) onClose(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}

func closer(c interface{ Close() error }) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}

// loadConfig reads a configuration file, or returns the defaults when path is empty.
func loadConfig(path string) (*domainconfig.AppConfig, error) {
	if path == "" {
		return domainconfig.DefaultAppConfig(), nil
	}
	loader := infraconfig.NewLoaderWithOptions(infraconfig.WithValidation(true))
	return loader.LoadFile(path)
}

// buildRuntime wires every service from configuration.
func (a *App) buildRuntime(ctx context.Context, cfg *domainconfig.AppConfig) (_ *runtime, err error) {
	if err := secrets.Apply(ctx, secrets.NewEnvSource(), cfg); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	logCfg := logging.ConfigFrom(cfg)
	logCfg.Output = a.stderr
	logging.Init(logCfg)

	settings, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		return nil, err
	}

	rt := &runtime{config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	tracing, err := observability.New(ctx, observability.FromAppConfig(cfg), observability.WithServiceVersion(Version))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	rt.onClose(tracing.Shutdown)

	var metrics telemetry.Metrics = telemetry.NoopMetrics{}
	if cfg.Telemetry.Enabled {
		mcfg := telemetry.DefaultMetricsConfig()
		if cfg.Telemetry.MeterName != "" {
			mcfg.MeterName = cfg.Telemetry.MeterName
		}
		mp, err := telemetry.NewMetricsProvider(mcfg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics = mp
	}

	primary, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := primary.(interface{ Close() error }); ok {
		rt.onClose(closer(c))
	}

	sessions, err := sessionstore.New(
		sessionstore.WithPrimary(primary),
		sessionstore.WithProfile(cfg.Profile),
		sessionstore.WithTTL(settings.SessionTTL),
		sessionstore.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	rt.onClose(closer(sessions))
	if settings.SweepInterval > 0 {
		sessions.StartSweeper(settings.SweepInterval)
	}

	sink, err := openSink(ctx, cfg.Audit)
	if err != nil {
		return nil, err
	}
	if c, ok := sink.(interface{ Close() error }); ok {
		rt.onClose(closer(c))
	}

	light, heavy, err := buildProviders(cfg, settings)
	if err != nil {
		return nil, err
	}

	// The quote cache shares the session backend; memory-only setups get a private store.
	cache := primary
	if cache == nil {
		mem := memory.NewKV()
		mem.StartSweeper(settings.SweepInterval)
		rt.onClose(closer(mem))
		cache = mem
	}

	engineOpts := []application.Option{
		application.WithLightProviders(light...),
		application.WithHeavyProviders(heavy...),
		application.WithExecutor(resilience.NewProviderExecutor(settings.Executor)),
		application.WithFreightConfig(cfg),
		application.WithCache(cache, settings.CacheTTL),
		application.WithMetrics(metrics),
		application.WithTracer(tracing.TracerProvider().Tracer("freight-agent")),
	}
	if sink != nil {
		engineOpts = append(engineOpts, application.WithSimulationSink(sink))
	}
	engine, err := application.New(engineOpts...)
	if err != nil {
		return nil, err
	}
	rt.engine = engine

	machine, err := statemachine.New(
		statemachine.WithUnitWeight(settings.DefaultUnitWeight),
		statemachine.WithMaxQuantity(settings.MaxQuantity),
		statemachine.WithObserver(statemachine.LogObserver(metrics)),
	)
	if err != nil {
		return nil, err
	}

	rt.classifier = intent.NewClassifier(intent.WithMaxQuantity(settings.MaxQuantity))
	rt.assistant, err = application.NewAssistant(application.AssistantConfig{
		Sessions:   sessions,
		Machine:    machine,
		Classifier: rt.classifier,
		Engine:     engine,
		MaxErrors:  settings.MaxErrors,
	})
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// openBackend connects the durable key-value backend. A nil backend means
// memory-only operation, which the session store refuses in production.
// Outside production an unreachable backend degrades to memory-only.
func openBackend(cfg *domainconfig.AppConfig) (kv.Backend, error) {
	var (
		backend kv.Backend
		err     error
	)
	switch cfg.Backend.Type {
	case "", "memory":
		return nil, nil
	case "redis":
		var s *redis.KV
		s, err = redis.NewKV(redis.ConfigFrom(cfg.Backend.Redis))
		if err == nil {
			backend = s
		}
	case "badger":
		var s *badger.KV
		s, err = badger.NewKV(badger.ConfigFrom(cfg.Backend.Badger))
		if err == nil {
			backend = s
		}
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}

	if err != nil {
		if cfg.Profile.IsProduction() {
			return nil, fmt.Errorf("%s backend: %w", cfg.Backend.Type, err)
		}
		logging.Warn().
			Add(logging.Component(cfg.Backend.Type)).
			Add(logging.ErrorField(err)).
			Msg("backend unavailable, running memory-only")
		return nil, nil
	}
	return backend, nil
}

// openSink opens the simulation audit sink. Nil means recording is disabled.
func openSink(ctx context.Context, cfg domainconfig.AuditConfig) (freight.SimulationSink, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "", "memory":
		return memory.NewSimulationStore(), nil
	case "sqlite":
		opts := []sqlite.Option{sqlite.WithDSN(cfg.DSN)}
		if cfg.Table != "" {
			opts = append(opts, sqlite.WithTable(cfg.Table))
		}
		store, err := sqlite.NewSimulationStore(sqlite.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		pool, err := postgres.Connect(ctx, postgres.DefaultConfig(), postgres.WithDSN(cfg.DSN))
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewSimulationStore(pool, postgres.DefaultConfig().Schema, cfg.Table)
		if err == nil {
			err = store.Migrate(ctx)
		}
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &pooledSink{SimulationStore: store, close: pool.Close}, nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}

// pooledSink closes the connection pool it was opened with.
type pooledSink struct {
	*postgres.SimulationStore
	close func()
}

func (s *pooledSink) Close() error {
	s.close()
	return nil
}

// buildProviders groups configured providers by family. Without any configured
// provider, development profiles quote from fixed offers.
func buildProviders(cfg *domainconfig.AppConfig, settings *infraconfig.BuildResult) (light, heavy []freight.Provider, err error) {
	if cfg.Providers.Light.URL != "" {
		p, err := httpquote.New(httpquote.ConfigFrom(cfg.Providers.Light, settings.Executor.AttemptTimeout))
		if err != nil {
			return nil, nil, err
		}
		light = append(light, p)
	}
	if path := cfg.Providers.HeavyTable.Path; path != "" {
		t, err := table.Load(path)
		if err != nil {
			return nil, nil, err
		}
		heavy = append(heavy, table.New(t))
	}

	staticProviders := static.Group(settings.StaticQuotes)
	if len(light) == 0 && len(heavy) == 0 && len(staticProviders) == 0 && !cfg.Profile.IsProduction() {
		staticProviders = static.Defaults()
	}
	if p, ok := staticProviders[freight.SourceLightAPI]; ok {
		light = append(light, p)
	}
	if p, ok := staticProviders[freight.SourceHeavyTable]; ok {
		heavy = append(heavy, p)
	}
	return light, heavy, nil
}
