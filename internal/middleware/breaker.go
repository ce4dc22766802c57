package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
	"github.com/angeloszaimis/edge-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-gateway/internal/metrics"
	"github.com/angeloszaimis/edge-gateway/pkg/pathutil"
)

// BreakerRoute protects every path under Prefix with the breaker named Key.
// An empty Key uses the prefix itself.
type BreakerRoute struct {
	Prefix string
	Key    string
}

type BreakerConfig struct {
	Routes []BreakerRoute
	// FailureStatus is the lowest status code counted as a failure. Defaults to 500.
	FailureStatus int
	Registry      *circuitbreaker.Registry
	Logger        *slog.Logger
	Collector     *metrics.Collector
}

// Breaker rejects requests to routes whose breaker is open and feeds the
// outcome of every forwarded request back into that breaker. Responses on
// protected routes are buffered so the status can be inspected before
// anything reaches the client.
func Breaker(cfg BreakerConfig) Middleware {
	if cfg.FailureStatus <= 0 {
		cfg.FailureStatus = http.StatusInternalServerError
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	prefixes := make([]string, len(cfg.Routes))
	keys := make([]string, len(cfg.Routes))
	for i, route := range cfg.Routes {
		prefixes[i] = route.Prefix
		keys[i] = route.Key
		if keys[i] == "" {
			keys[i] = route.Prefix
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idx := pathutil.LongestMatch(r.URL.Path, prefixes)
			if idx < 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := keys[idx]
			cb := cfg.Registry.GetOrCreate(key)

			if cb.IsOpen() {
				cfg.Logger.Warn("Circuit open, rejecting request",
					slog.String("route", key),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())))
				cfg.Collector.Emit(metrics.MetricEvent{
					Type:      metrics.EventBreakerRejected,
					Timestamp: time.Now(),
					Route:     key,
				})
				apierror.ErrServiceUnavailable.WriteJSON(w)
				return
			}

			buf := newBufferedWriter()
			completed := false
			defer func() {
				if completed {
					return
				}
				// Downstream panicked: drop the partial response and count it.
				cb.RecordFailure()
				cfg.Logger.Error("Downstream panicked on protected route",
					slog.String("route", key),
					slog.String("path", r.URL.Path))
			}()

			next.ServeHTTP(buf, r)
			completed = true

			if err := r.Context().Err(); err != nil {
				// The client gave up, so the status says nothing about the backend.
				cfg.Logger.Debug("Client went away, outcome not recorded",
					slog.String("route", key),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
			} else if buf.statusCode >= cfg.FailureStatus {
				cb.RecordFailure()
				cfg.Logger.Debug("Recorded failure",
					slog.String("route", key),
					slog.Int("status", buf.statusCode),
					slog.Int("failures", cb.Failures()))
			} else {
				cb.Reset()
			}

			if err := buf.flushTo(w); err != nil {
				cfg.Logger.Debug("Failed to write buffered response",
					slog.String("route", key),
					slog.String("error", err.Error()))
			}
		})
	}
}
