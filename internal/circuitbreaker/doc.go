// Package circuitbreaker tracks per-route backend failures and decides whether
// calls to a protected route should be rejected.
//
// A breaker has two states:
//
//   - CLOSED: calls are forwarded and qualifying failures are counted
//   - OPEN: the failure threshold was reached, calls are rejected
//
// An open breaker closes lazily: the first IsOpen call after the cool-down
// clears it and zeroes the counter, letting the next request through. Any
// successful response closes it immediately via Reset.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 10*time.Second)
//	cb := registry.GetOrCreate("/orders")
//	if !cb.IsOpen() {
//	    // Forward request...
//	    if status >= 500 {
//	        cb.RecordFailure()
//	    } else {
//	        cb.Reset()
//	    }
//	}
package circuitbreaker
