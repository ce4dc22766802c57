package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
	"github.com/angeloszaimis/edge-gateway/internal/loadbalancer"
	"github.com/angeloszaimis/edge-gateway/internal/metrics"
	"github.com/angeloszaimis/edge-gateway/pkg/pathutil"
)

// Route forwards every path under Prefix to a backend of Balancer, with the
// prefix replaced by UpstreamPath. An empty UpstreamPath keeps the path as is.
type Route struct {
	Prefix       string
	UpstreamPath string
	Balancer     *loadbalancer.LoadBalancer
}

// GatewayHandler is the proxy router at the end of the middleware chain.
type GatewayHandler struct {
	logger           *slog.Logger
	routes           []Route
	prefixes         []string
	metricsCollector *metrics.Collector
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func NewGatewayHandler(logger *slog.Logger, routes []Route, collector *metrics.Collector) *GatewayHandler {
	prefixes := make([]string, len(routes))
	for i, route := range routes {
		prefixes[i] = route.Prefix
	}

	return &GatewayHandler{
		logger:           logger,
		routes:           routes,
		prefixes:         prefixes,
		metricsCollector: collector,
	}
}

func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	idx := pathutil.LongestMatch(r.URL.Path, h.prefixes)
	if idx < 0 {
		h.logger.Debug("No route for path",
			slog.String("client", clientIP),
			slog.String("path", r.URL.Path))
		apierror.ErrNotFound.WriteJSON(w)
		return
	}
	route := h.routes[idx]

	nextServer, err := route.Balancer.Reserve()
	if err != nil {
		h.logger.Warn("No healthy backends available",
			slog.String("client", clientIP),
			slog.String("route", route.Prefix),
			slog.String("error", err.Error()))
		apierror.ErrNoHealthyBackend.WriteJSON(w)
		return
	}
	defer nextServer.DecrementConn()

	outbound := r
	if route.UpstreamPath != "" {
		outbound = r.Clone(r.Context())
		outbound.URL.Path = pathutil.Rewrite(r.URL.Path, route.Prefix, route.UpstreamPath)
		outbound.URL.RawPath = ""
	}

	h.logger.Info("Forwarding to backend",
		slog.String("client", clientIP),
		slog.String("route", route.Prefix),
		slog.String("backend", nextServer.URL().String()),
		slog.String("upstream_path", outbound.URL.Path))

	w.Header().Set("X-Backend-Server", nextServer.URL().String())

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	nextServer.ReverseProxy().ServeHTTP(wrapped, outbound)
	duration := time.Since(start)

	nextServer.RecordResponse(duration)
	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventRequestCompleted,
		Timestamp:  time.Now(),
		Route:      route.Prefix,
		Backend:    nextServer.URL().String(),
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (r *statusRecorder) WriteHeader(code int) {
	if code >= 200 || code == http.StatusSwitchingProtocols {
		r.statusCode = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
