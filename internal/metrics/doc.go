// Package metrics collects gateway metrics off the request path.
//
// Request handling emits MetricEvent values through Collector.Emit, which never
// blocks: a full buffer drops the event. A single goroutine folds events into:
//   - per-route request counts, status codes and response time percentiles
//   - per-route breaker rejections, state and trip counts
//   - per-backend health
//
// The same events feed an optional Prometheus Exporter with a private registry.
//
// Example usage:
//
//	exporter := metrics.NewExporter()
//	collector := metrics.NewCollector(1000, logger, exporter)
//	go collector.Run(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventRequestCompleted,
//		Route:      "/v1/orders",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// On shutdown the collector drains buffered events before returning.
package metrics
