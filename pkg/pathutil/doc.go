// Package pathutil provides request path helpers shared by the routing,
// authentication and circuit breaker stages.
package pathutil
