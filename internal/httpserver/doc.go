// Package httpserver wraps net/http's server with address validation,
// connection timeouts and bounded graceful shutdown.
package httpserver
