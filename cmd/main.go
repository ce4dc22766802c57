package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/edge-gateway/config"
	"github.com/angeloszaimis/edge-gateway/internal/auth"
	"github.com/angeloszaimis/edge-gateway/internal/backend"
	"github.com/angeloszaimis/edge-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-gateway/internal/handler"
	"github.com/angeloszaimis/edge-gateway/internal/healthcheck"
	"github.com/angeloszaimis/edge-gateway/internal/httpserver"
	"github.com/angeloszaimis/edge-gateway/internal/loadbalancer"
	"github.com/angeloszaimis/edge-gateway/internal/metrics"
	"github.com/angeloszaimis/edge-gateway/internal/middleware"
	"github.com/angeloszaimis/edge-gateway/internal/strategy"
	"github.com/angeloszaimis/edge-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	out, closer := logger.Output(logger.Rotation{
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	log := logger.New(out, cfg.Logging.Level, true, cfg.Server.Environment)

	err = run(cfg, log)
	if err != nil {
		log.Error("Gateway stopped with error", slog.Any("err", err))
	}
	if closer != nil {
		closer.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exporter := metrics.NewExporter()
	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log, exporter)

	registry := circuitbreaker.NewRegistry(
		cfg.CircuitBreaker.FailureThreshold,
		cfg.CircuitBreaker.Cooldown,
		circuitbreaker.WithStateChangeListener(breakerListener(log, collector)),
	)

	routes, backends, err := buildRoutes(cfg.Routes, log)
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}
	seedHealth(collector, backends)

	router := setupRouter(routerDeps{
		cfg:       cfg,
		logger:    log,
		gateway:   handler.NewGatewayHandler(log, routes, collector),
		registry:  registry,
		collector: collector,
		exporter:  exporter,
		tokens:    auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL),
	})

	srv, err := httpserver.New(cfg.Server.Address, router, httpserver.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
		Idle:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return collector.Run(gctx)
	})

	g.Go(func() error {
		healthcheck.Run(gctx, backends, healthcheck.Config{
			Interval: cfg.HealthCheck.Interval,
			Path:     cfg.HealthCheck.Path,
			OnChange: healthListener(collector),
		}, log)
		return nil
	})

	g.Go(func() error {
		log.Info("Gateway listening",
			slog.String("address", srv.Addr()),
			slog.Int("routes", len(routes)),
			slog.Int("protected_routes", len(cfg.CircuitBreaker.Routes)))
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func buildRoutes(routeConfigs []config.RouteConfig, log *slog.Logger) ([]handler.Route, []*backend.Backend, error) {
	var (
		routes []handler.Route
		all    []*backend.Backend
	)

	for _, rc := range routeConfigs {
		strat, err := strategy.New(rc.Strategy)
		if err != nil {
			return nil, nil, fmt.Errorf("route %s: %w", rc.Prefix, err)
		}

		var pool []*backend.Backend
		for _, bc := range rc.Backends {
			u, err := url.Parse(bc.URL)
			if err != nil {
				log.Error("Failed to parse URL",
					slog.String("url", bc.URL),
					slog.String("error", err.Error()))
				continue
			}
			pool = append(pool, backend.New(u, bc.Weight, backend.WithLogger(log)))
		}

		if len(pool) == 0 {
			return nil, nil, fmt.Errorf("route %s: %w", rc.Prefix, errNoBackends)
		}

		routes = append(routes, handler.Route{
			Prefix:       rc.Prefix,
			UpstreamPath: rc.UpstreamPath,
			Balancer:     loadbalancer.NewLoadBalancer(strat, pool),
		})
		all = append(all, pool...)
	}

	return routes, all, nil
}

var errNoBackends = errors.New("no usable backends")

func breakerRoutes(cfg config.CircuitBreakerConfig) []middleware.BreakerRoute {
	routes := make([]middleware.BreakerRoute, len(cfg.Routes))
	for i, r := range cfg.Routes {
		routes[i] = middleware.BreakerRoute{Prefix: r.Prefix, Key: r.Key}
	}
	return routes
}

func breakerListener(log *slog.Logger, collector *metrics.Collector) circuitbreaker.StateChangeFunc {
	return func(routeKey string, from, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			log.Warn("Circuit opened",
				slog.String("route", routeKey),
				slog.String("from", from.String()))
		} else {
			log.Info("Circuit closed",
				slog.String("route", routeKey),
				slog.String("from", from.String()))
		}

		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventBreakerStateChanged,
			Timestamp: time.Now(),
			Route:     routeKey,
			Open:      to == circuitbreaker.StateOpen,
		})
	}
}

func healthListener(collector *metrics.Collector) func(*backend.Backend, bool) {
	return func(b *backend.Backend, healthy bool) {
		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Backend:   b.URL().String(),
			Healthy:   healthy,
		})
	}
}

// seedHealth reports every backend's starting health so the gauges exist
// before the first transition.
func seedHealth(collector *metrics.Collector, backends []*backend.Backend) {
	report := healthListener(collector)
	for _, b := range backends {
		report(b, b.IsHealthy())
	}
}
