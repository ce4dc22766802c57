package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/edge-gateway/config"
	"github.com/angeloszaimis/edge-gateway/internal/apierror"
	"github.com/angeloszaimis/edge-gateway/internal/auth"
	"github.com/angeloszaimis/edge-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-gateway/internal/metrics"
	"github.com/angeloszaimis/edge-gateway/internal/middleware"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *slog.Logger
	gateway   http.Handler
	registry  *circuitbreaker.Registry
	collector *metrics.Collector
	exporter  *metrics.Exporter
	tokens    *auth.TokenManager
}

// setupRouter serves proxied traffic on "/" behind the auth and breaker
// stages. Token, admin and metrics endpoints are served by the gateway itself.
func setupRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()

	proxied := middleware.NewChain(
		auth.Middleware(d.tokens, d.cfg.Auth.ProtectedPrefixes, d.logger),
		middleware.Breaker(middleware.BreakerConfig{
			Routes:        breakerRoutes(d.cfg.CircuitBreaker),
			FailureStatus: d.cfg.CircuitBreaker.FailureStatus,
			Registry:      d.registry,
			Logger:        d.logger,
			Collector:     d.collector,
		}),
	).Then(d.gateway)

	mux.Handle("/", proxied)
	mux.HandleFunc("/auth/token", auth.TokenHandler(d.tokens, d.cfg.Auth.ClientID, d.logger))
	mux.HandleFunc("GET /admin/metrics", d.collector.Handler())
	mux.HandleFunc("GET /admin/breakers", breakersHandler(d.registry))
	mux.Handle("GET /metrics", d.exporter.Handler())

	return middleware.NewChain(
		middleware.Recovery(d.logger),
		middleware.RequestID(),
		middleware.AccessLog(d.logger),
	).Then(mux)
}

func breakersHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, registry.Stats())
	}
}
