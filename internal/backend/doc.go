// Package backend models a single upstream service instance: its reverse
// proxy, health flag, active connection count and EWMA response time.
package backend
