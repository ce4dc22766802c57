// Package loadbalancer spreads one route's traffic over its healthy backend
// instances using a pluggable strategy.
package loadbalancer
