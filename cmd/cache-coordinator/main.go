// Command cache-coordinator runs the multi-tier cache coordinator with its
// ops HTTP surface, background monitoring, warmup and optimization tasks.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/advisor"
	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/config"
	"github.com/commerce-platform/cache-coordinator/internal/httpapi"
	"github.com/commerce-platform/cache-coordinator/internal/invalidation"
	"github.com/commerce-platform/cache-coordinator/internal/localcache"
	"github.com/commerce-platform/cache-coordinator/internal/monitor"
	"github.com/commerce-platform/cache-coordinator/internal/observability"
	"github.com/commerce-platform/cache-coordinator/internal/redis"
	"github.com/commerce-platform/cache-coordinator/internal/warmup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cache-coordinator:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded", zap.Any("config", cfg.LogSafe()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Distributed tier.
	client, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics("cache_coordinator")

	breakerCfg := redis.DefaultBreakerConfig()
	breakerCfg.OnStateChange = metrics.SetCircuitBreakerState
	protected := redis.NewProtectedClient(client, breakerCfg, logger)

	// Region registry and coordinator.
	policy := localcache.ParsePolicy(cfg.Cache.EvictionPolicy)
	regionConfigs := make([]cache.RegionConfig, 0, len(cfg.Cache.Regions))
	for _, spec := range cfg.Cache.Regions {
		regionConfigs = append(regionConfigs, cache.RegionConfig{
			Name:       spec.Name,
			MaxSize:    spec.MaxSize,
			DefaultTTL: spec.TTL,
			Policy:     policy,
		})
	}
	registry, err := cache.NewRegistry(regionConfigs)
	if err != nil {
		return err
	}

	coordinator := cache.NewCoordinator(registry, protected, logger).WithMetrics(metrics)
	defer func() { _ = coordinator.Close() }()

	// Invalidation fan-out.
	broker, err := invalidation.NewBroker(cfg.Broker, logger)
	if err != nil {
		return err
	}
	origin := uuid.NewString()
	engine := invalidation.NewEngine(cfg.Relationships, coordinator, broker, cfg.Broker.Topic, origin, logger).WithMetrics(metrics)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	// Warmup. Hot-set sources are registered by the embedding business
	// layer; the standalone binary starts without any.
	orchestrator := warmup.NewOrchestrator(coordinator, nil, cfg.Warmup.HotSetLimit, logger).WithMetrics(metrics)
	if cfg.Warmup.Enabled && len(orchestrator.Regions()) > 0 {
		go orchestrator.WarmupAll(ctx)
	}

	// Background tasks share one scheduler, off the request path.
	mon := monitor.New(coordinator, cfg.Monitor, monitor.NewLogSink(logger), metrics, logger)
	adv := advisor.New(registry, cfg.Advisor, cfg.Monitor.HitRatioThreshold, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+cfg.Monitor.Interval.String(), func() { mon.Tick() }); err != nil {
		return err
	}
	if _, err := scheduler.AddFunc("@every "+cfg.Advisor.Interval.String(), func() { adv.Tick() }); err != nil {
		return err
	}
	scheduler.Start()

	// Ops HTTP surface.
	handler := httpapi.NewHandler(coordinator, engine, orchestrator, broker, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		RequestTimeout: 30 * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
