package di

import (
	"context"
	"fmt"
	"time"

	domrepo "GammaDesk/internal/domain/repository"
	domsvc "GammaDesk/internal/domain/service"
	"GammaDesk/internal/handler/api"
	"GammaDesk/internal/jobs"
	internalrepo "GammaDesk/internal/repository"
	"GammaDesk/internal/service/metrics"
	"GammaDesk/internal/service/oplab"
	"GammaDesk/internal/service/ratelimit"
	"GammaDesk/internal/service/yahoo"
	"GammaDesk/internal/services/catalog"
	"GammaDesk/internal/usecase"
	"GammaDesk/pkg/cache"
	pkgch "GammaDesk/pkg/clickhouse"
	"GammaDesk/pkg/config"
	xhttp "GammaDesk/pkg/http"
	pkgkafka "GammaDesk/pkg/kafka"
	applogger "GammaDesk/pkg/logger"
	pkgmetrics "GammaDesk/pkg/metrics"
	pkgpg "GammaDesk/pkg/postgres"
	"GammaDesk/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	metrics.Register()
	return pkgmetrics.New()
}

// ProvideCache creates the in-memory cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(5000), cache.WithMemoryCleanup(time.Minute))
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("gammadesk"),
		cache.WithRedisPool(max(cfg.Cache.Redis.PoolSize, 2), 2, 30*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(2000),
		cache.WithLayeredL1TTL(cfg.Cache.Redis.L1TTL),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideOpenInterest opens the configured positions archive behind a read-through cache.
func ProvideOpenInterest(cfg *config.Config, c cache.Service, m domrepo.Metrics, l *applogger.Logger) (domrepo.OpenInterestSource, func(), error) {
	var (
		store   domrepo.OpenInterestSource
		cleanup func()
	)
	switch cfg.Positions.Backend {
	case "postgres":
		pg, err := pkgpg.NewClient(cfg.Postgres.DSN,
			pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
			pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres client: %w", err)
		}
		s, err := internalrepo.NewPGPositionsStore(pg, cfg.Positions.Table, cfg.Positions.Timeout)
		if err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		s.SetLogger(l)
		s.SetMetrics(m)
		store, cleanup = s, func() { _ = pg.Close() }
	default:
		ch, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithReadOnly(true),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		s, err := internalrepo.NewCHPositionsStore(ch, cfg.Positions.Table, cfg.Positions.Timeout)
		if err != nil {
			_ = ch.Close()
			return nil, nil, err
		}
		s.SetLogger(l)
		s.SetMetrics(m)
		store, cleanup = s, func() { _ = ch.Close() }
	}
	return internalrepo.NewCachedOpenInterest(store, c, cfg.Cache.Expirations, m), cleanup, nil
}

func breakerConfig(cfg *config.Config) *xhttp.BreakerConfig {
	return &xhttp.BreakerConfig{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		FailureRatio: cfg.Breaker.FailureRatio,
		MinRequests:  cfg.Breaker.MinRequests,
	}
}

// ProvideGreeksClient creates the greeks provider client.
func ProvideGreeksClient(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *oplab.Client {
	return oplab.NewClient(cfg.Greeks.BaseURL, cfg.Greeks.Token, cfg.Greeks.Timeout,
		cfg.Greeks.RPS, cfg.Greeks.Burst, breakerConfig(cfg), m, l)
}

// ProvideSources assembles the cached outbound ports. Spot prices fall back to the greeks provider quotes.
func ProvideSources(cfg *config.Config, greeks *oplab.Client, oi domrepo.OpenInterestSource, c cache.Service, m domrepo.Metrics, l *applogger.Logger) usecase.Sources {
	price := yahoo.NewClient(cfg.Price.BaseURL, cfg.Price.Timeout, cfg.Price.RPS, cfg.Price.Burst, breakerConfig(cfg), m)
	spot := internalrepo.NewFallbackPriceSource(price, greeks, l)
	return usecase.Sources{
		Spot:   internalrepo.NewCachedSpot(spot, c, cfg.Cache.PriceTTL, cfg.Cache.TTL, m),
		Greeks: internalrepo.NewCachedGreeks(greeks, c, cfg.Cache.TTL, m),
		OI:     oi,
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideAlertPublisher returns the kafka alert publisher, or nil when kafka is disabled.
func ProvideAlertPublisher(cfg *config.Config, producer *pkgkafka.Producer) domsvc.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
}

func ProvideExpirations(cfg *config.Config, src usecase.Sources, l *applogger.Logger) *usecase.ExpirationsUseCase {
	return usecase.NewExpirationsUseCase(catalog.Default(), src.OI, cfg.Analytics.ProbeWorkers, l)
}

func ProvideAnalysis(cfg *config.Config, src usecase.Sources, exp *usecase.ExpirationsUseCase, m domrepo.Metrics, l *applogger.Logger) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(src, exp, cfg.Greeks.LookbackBD, m, l)
}

func ProvideMacro(cfg *config.Config, analysis *usecase.AnalysisUseCase, pub domsvc.AlertPublisher, l *applogger.Logger) *usecase.MacroUseCase {
	return usecase.NewMacroUseCase(analysis, pub, cfg.Analytics.DimensionTimeout, cfg.Analytics.IVHistoryDays, l)
}

func ProvideHistorical(src usecase.Sources, m domrepo.Metrics, l *applogger.Logger) *usecase.HistoricalUseCase {
	return usecase.NewHistoricalUseCase(src, catalog.Default(), m, l)
}

func ProvideBands(src usecase.Sources, m domrepo.Metrics, l *applogger.Logger) *usecase.BandsUseCase {
	return usecase.NewBandsUseCase(src.Spot, m, l)
}

// ProvideLimiter returns the per-client limiter for analyze routes, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideHTTPHandler registers the analysis and health routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	exp *usecase.ExpirationsUseCase,
	analysis *usecase.AnalysisUseCase,
	macro *usecase.MacroUseCase,
	historical *usecase.HistoricalUseCase,
	bands *usecase.BandsUseCase,
	limiter *ratelimit.Limiter,
	src usecase.Sources,
	c cache.Service,
) xhttp.Handler {
	var mw []echo.MiddlewareFunc
	if limiter != nil {
		mw = append(mw, limiter.Middleware())
	}
	checks := map[string]api.Checker{"positions": src.OI}
	if p, ok := c.(interface{ Ping(context.Context) error }); ok {
		checks["cache"] = api.CheckerFunc(p.Ping)
	}
	return api.Routes{
		api.NewAnalysisHandler(l, exp, analysis, macro, historical, bands, mw...),
		api.NewHealthHandler(checks),
	}
}

// ProvideScheduler registers the expiration warm-up and limiter sweep jobs.
func ProvideScheduler(cfg *config.Config, exp *usecase.ExpirationsUseCase, limiter *ratelimit.Limiter, l *applogger.Logger) (*jobs.Runner, error) {
	r := jobs.NewRunner(l)
	if cfg.Jobs.WarmSchedule != "" && len(cfg.Jobs.Watchlist) > 0 {
		w := jobs.NewWarmer(exp, cfg.Jobs.Watchlist, l)
		if _, err := r.Add(cfg.Jobs.WarmSchedule, func(ctx context.Context) { w.Run(ctx) }); err != nil {
			return nil, fmt.Errorf("warm schedule %q: %w", cfg.Jobs.WarmSchedule, err)
		}
	}
	if limiter != nil {
		if _, err := r.Add("*/5 * * * *", func(context.Context) { limiter.Sweep() }); err != nil {
			return nil, fmt.Errorf("limiter sweep: %w", err)
		}
	}
	return r, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	scheduler *jobs.Runner,
	producer *pkgkafka.Producer,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, handler, scheduler)
}
