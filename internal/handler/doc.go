// Package handler implements the proxy router of the gateway. It resolves
// the route for a request path, rewrites the path for the upstream service,
// picks a backend through the route's load balancer and forwards the request.
package handler
