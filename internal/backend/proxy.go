package backend

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
)

// Backend is one instance of an upstream service with health status,
// connection tracking and response time monitoring.
type Backend struct {
	url               *url.URL
	weight            int
	proxy             *httputil.ReverseProxy
	mutex             sync.Mutex
	isHealthy         bool
	activeConnections int
	ewmaResponseTime  time.Duration
	hasEWMA           bool
	logger            *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used to report proxy transport errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

const ewmaAlpha = 0.2

// ReverseProxy returns the HTTP reverse proxy for this backend. Transport
// failures are answered with 502 so callers can classify them by status.
func (b *Backend) ReverseProxy() *httputil.ReverseProxy {
	return b.proxy
}

// IncrementConn increments the active connection count.
func (b *Backend) IncrementConn() {
	b.mutex.Lock()
	b.activeConnections++
	b.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (b *Backend) DecrementConn() {
	b.mutex.Lock()
	if b.activeConnections > 0 {
		b.activeConnections--
	}
	b.mutex.Unlock()
}

// ActiveConnections returns the current number of active connections.
func (b *Backend) ActiveConnections() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.activeConnections
}

// URL returns the backend server URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// Weight returns the configured weight used by weighted strategies.
func (b *Backend) Weight() int {
	return b.weight
}

// IsHealthy returns true if the backend is currently healthy.
func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isHealthy
}

// SetHealthy updates the backend's health status.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.isHealthy == healthy {
		return false
	}

	b.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest request duration.
func (b *Backend) RecordResponse(duration time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		b.ewmaResponseTime = duration
		b.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	b.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(b.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (b *Backend) EWMATime() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		return 0
	}

	return b.ewmaResponseTime
}

// New creates a Backend for u. Weights below 1 are raised to 1.
// The backend starts healthy; the health checker demotes it on failed probes.
func New(u *url.URL, weight int, opts ...Option) *Backend {
	if weight < 1 {
		weight = 1
	}

	b := &Backend{
		url:       u,
		weight:    weight,
		isHealthy: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = b.handleProxyError
	b.proxy = proxy

	return b
}

func (b *Backend) handleProxyError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		b.logger.Debug("Client went away before backend answered",
			slog.String("server", b.url.String()),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		apierror.ErrBadGateway.WriteJSON(w)
		return
	}

	b.logger.Error("Backend request failed",
		slog.String("server", b.url.String()),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	apierror.ErrBadGateway.WriteJSON(w)
}
