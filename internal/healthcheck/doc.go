// Package healthcheck implements periodic health checking for backend servers.
// It monitors backend availability and updates their health status based on
// HTTP health endpoint responses, reporting transitions through a callback.
package healthcheck
