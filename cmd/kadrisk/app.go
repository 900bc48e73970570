package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"kadrisk/internal/cache"
	"kadrisk/internal/check"
	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/enrichment"
	"kadrisk/internal/kad"
	"kadrisk/internal/logger"
	"kadrisk/internal/pdftext"
	"kadrisk/internal/server"
	"kadrisk/internal/signals"
	"kadrisk/pkg/bootstrap"
	"kadrisk/pkg/circuitbreaker"
	"kadrisk/pkg/errors"
	"kadrisk/pkg/health"
	"kadrisk/pkg/metrics"
	"kadrisk/pkg/ratelimit"
	"kadrisk/pkg/retry"
	"kadrisk/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	redis          *redis.Client
	store          cache.Store
	breaker        *circuitbreaker.Wrapper
	site           *kad.Client
	runner         *check.Runner
	health         *health.CheckerRegistry
	server         *server.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:   bootstrap.NewBase(cfg, log),
		health: health.NewCheckerRegistry(),
	}
}

// Initialize wires the check pipeline. withServe adds the broker and the
// ops server on top.
func (a *App) Initialize(ctx context.Context, withServe bool) error {
	metrics.Register()

	tp, err := tracing.Init(a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp
	a.OnShutdown("tracer provider", tp.Shutdown)

	a.initCache(ctx)
	a.initBreaker()

	if err := a.initSite(); err != nil {
		return fmt.Errorf("failed to initialize site client: %w", err)
	}

	if err := a.initRunner(); err != nil {
		return fmt.Errorf("failed to initialize check runner: %w", err)
	}

	if !withServe {
		return nil
	}

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.server = server.New(server.Options{
		Config:  a.Config.Server,
		Tracing: a.Config.Tracing.Enabled,
		Health:  a.health,
		Checks:  a.runner,
		Logger:  a.Logger,
	})
	return nil
}

// initCache builds the in-process LRU and, when Redis is enabled and
// reachable, the shared second tier. An unreachable Redis is not fatal.
func (a *App) initCache(ctx context.Context) {
	local := cache.NewMemory(a.Config.Cache.MaxItems, a.Config.Cache.TTL)
	a.store = local

	rdb, err := bootstrap.InitRedis(ctx, a.Config.Cache.Redis, a.Logger)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Redis unavailable, using local cache only", "error", err)
		return
	}
	if rdb == nil {
		return
	}

	a.redis = rdb
	a.store = cache.NewTiered(local, cache.NewRedis(rdb, a.Config.Cache.Redis.TTL), a.Logger)
	a.health.Register(health.NewRedisChecker(rdb))
	a.OnShutdown("redis", func(context.Context) error {
		if errs := bootstrap.CloseRedis(a.redis); len(errs) > 0 {
			return errs[0]
		}
		return nil
	})
}

func (a *App) initBreaker() {
	cbCfg := a.Config.CircuitBreaker
	if !cbCfg.Enabled {
		return
	}

	bc := circuitbreaker.DefaultConfig(constants.BreakerName)
	if cbCfg.MaxRequests > 0 {
		bc.MaxRequests = cbCfg.MaxRequests
	}
	if cbCfg.Interval > 0 {
		bc.Interval = cbCfg.Interval
	}
	if cbCfg.Timeout > 0 {
		bc.Timeout = cbCfg.Timeout
	}
	if cbCfg.ConsecutiveFailures > 0 {
		threshold := cbCfg.ConsecutiveFailures
		bc.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		}
	}
	// A missing document is an answer from the site, not a site failure.
	bc.IsSuccessful = func(err error) bool {
		return err == nil || errors.IsNotSupported(err)
	}
	bc.OnStateChange = func(name string, from, to gobreaker.State) {
		a.Logger.Warnw("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
	}

	a.breaker = circuitbreaker.NewWrapper(bc)
	a.health.Register(health.BreakerChecker(constants.BreakerName, a.breaker.IsOpen))
}

func (a *App) initSite() error {
	kc := a.Config.Kad
	site, err := kad.NewClient(kad.Options{
		BaseURL:     kc.BaseURL,
		Timeout:     kc.RequestTimeout,
		VerifySSL:   kc.VerifySSL,
		UserAgent:   kc.UserAgent,
		Retry:       retry.Policy{MaxAttempts: kc.Retry.MaxAttempts, Delays: kc.Retry.Delays},
		Gate:        ratelimit.NewGate(kc.MinRequestInterval),
		Cache:       a.store,
		Breaker:     a.breaker,
		Logger:      a.Logger,
		MaxPDFBytes: a.Config.PDF.MaxBytes,
	})
	if err != nil {
		return err
	}
	a.site = site
	return nil
}

func (a *App) initRunner() error {
	extractors := []pdftext.Extractor{pdftext.NewNativeExtractor()}
	command := pdftext.NewCommandExtractor(a.Config.PDF.PdftotextPath)
	if command.Available() {
		extractors = append(extractors, command)
	} else {
		a.Logger.Warnw("pdftotext not found, native PDF extraction only", "path", a.Config.PDF.PdftotextPath)
	}
	pipeline := pdftext.NewPipeline(a.site, a.store, a.Config.PDF.MinTextChars, a.Logger, extractors...)

	svc := enrichment.NewService(a.site, pipeline, enrichment.ConfigFrom(a.Config.Enrichment, a.Config.PDF), a.Logger)

	deriver, err := signals.NewDeriver(a.Config.Signals, a.Logger)
	if err != nil {
		return err
	}

	a.runner = check.NewRunner(svc, deriver, a.Logger)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(gCtx)
		})
	}

	if a.Consumer != nil {
		kc := a.Config.Broker.Kafka
		handler := a.runner.Handler(a.Producer, kc.OutputTopic)
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Consuming check requests",
				"input_topic", kc.InputTopic,
				"output_topic", kc.OutputTopic,
			)
			return a.Consumer.Consume(gCtx, kc.InputTopic, handler)
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx)
}
