// Package config loads the gateway configuration from config.yaml, a local
// .env file and environment variables, and validates it. It covers the
// server, logging, health checks, the auth stage, the circuit breaker and
// the proxy route table.
package config
