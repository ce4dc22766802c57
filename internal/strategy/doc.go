// Package strategy selects a backend instance for a route:
//
//   - round-robin: sequential distribution
//   - random: uniform random pick
//   - least-conn: fewest in-flight requests
//   - least-response: lowest EWMA response time weighted by in-flight requests
//   - weighted-round-robin: smooth distribution proportional to backend weights
//
// Strategies only see backends the load balancer has already filtered for health.
package strategy
