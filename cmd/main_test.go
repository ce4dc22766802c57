package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-gateway/config"
	"github.com/angeloszaimis/edge-gateway/internal/backend"
	"github.com/angeloszaimis/edge-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-gateway/internal/metrics"
	"github.com/angeloszaimis/edge-gateway/internal/middleware"
)

var _ = Describe("buildRoutes", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("should build one balancer per route", func() {
		routes, backends, err := buildRoutes([]config.RouteConfig{
			{
				Prefix:       "/v1/orders",
				UpstreamPath: "/orders",
				Backends: []config.BackendConfig{
					{URL: "http://localhost:5001", Weight: 1},
					{URL: "http://localhost:5002", Weight: 3},
				},
			},
			{
				Prefix:   "/v1/sales",
				Strategy: "least-conn",
				Backends: []config.BackendConfig{{URL: "https://sales.example.com"}},
			},
		}, log)

		Expect(err).NotTo(HaveOccurred())
		Expect(routes).To(HaveLen(2))
		Expect(backends).To(HaveLen(3))
		Expect(routes[0].UpstreamPath).To(Equal("/orders"))
		Expect(routes[0].Balancer.Backends()).To(HaveLen(2))
		Expect(routes[0].Balancer.Backends()[1].Weight()).To(Equal(3))
		Expect(routes[1].Balancer.Backends()[0].Weight()).To(Equal(1))
	})

	It("should reject unknown strategies", func() {
		_, _, err := buildRoutes([]config.RouteConfig{{
			Prefix:   "/v1/orders",
			Strategy: "consistent_hash",
			Backends: []config.BackendConfig{{URL: "http://localhost:5001"}},
		}}, log)
		Expect(err).To(MatchError(ContainSubstring("unknown strategy")))
	})

	It("should fail when no backend URL parses", func() {
		_, _, err := buildRoutes([]config.RouteConfig{{
			Prefix:   "/v1/orders",
			Backends: []config.BackendConfig{{URL: "http://[::1"}},
		}}, log)
		Expect(err).To(MatchError(errNoBackends))
	})
})

var _ = Describe("breakerRoutes", func() {
	It("should map configured prefixes to route keys", func() {
		routes := breakerRoutes(config.CircuitBreakerConfig{
			Routes: []config.BreakerRouteConfig{
				{Prefix: "/v1/orders", Key: "/orders"},
				{Prefix: "/v1/sales"},
			},
		})
		Expect(routes).To(Equal([]middleware.BreakerRoute{
			{Prefix: "/v1/orders", Key: "/orders"},
			{Prefix: "/v1/sales"},
		}))
	})
})

var _ = Describe("breakerListener", func() {
	It("should log transitions", func() {
		var buf bytes.Buffer
		listener := breakerListener(slog.New(slog.NewTextHandler(&buf, nil)), nil)

		listener("/orders", circuitbreaker.StateClosed, circuitbreaker.StateOpen)
		Expect(buf.String()).To(ContainSubstring("Circuit opened"))
		Expect(buf.String()).To(ContainSubstring("route=/orders"))

		listener("/orders", circuitbreaker.StateOpen, circuitbreaker.StateClosed)
		Expect(buf.String()).To(ContainSubstring("Circuit closed"))
	})
})

var _ = Describe("seedHealth", func() {
	It("should report every backend before any health transition", func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		collector := metrics.NewCollector(10, log, metrics.NewExporter())
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		go collector.Run(ctx)

		up := backend.New(&url.URL{Scheme: "http", Host: "localhost:5001"}, 1)
		down := backend.New(&url.URL{Scheme: "http", Host: "localhost:5002"}, 1)
		down.SetHealthy(false)

		seedHealth(collector, []*backend.Backend{up, down})

		Eventually(func() map[string]bool {
			return collector.Snapshot().Backends
		}).Should(Equal(map[string]bool{
			"http://localhost:5001": true,
			"http://localhost:5002": false,
		}))
	})
})
