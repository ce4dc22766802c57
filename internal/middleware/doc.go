// Package middleware holds the HTTP stages that sit in front of the proxy
// router: panic recovery, request IDs, access logging and the circuit
// breaker.
//
// The breaker stage maps a request path to a route key, rejects the request
// with 503 while that key's breaker is open and otherwise buffers the
// downstream response, classifies its status and releases it unchanged.
//
//	chain := middleware.NewChain(
//		middleware.Recovery(logger),
//		middleware.RequestID(),
//		middleware.AccessLog(logger),
//		middleware.Breaker(middleware.BreakerConfig{
//			Routes:   []middleware.BreakerRoute{{Prefix: "/v1/orders", Key: "/orders"}},
//			Registry: registry,
//		}),
//	)
//	handler := chain.Then(router)
package middleware
