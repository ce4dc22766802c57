package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-gateway/internal/circuitbreaker"
)

type transition struct {
	key  string
	from circuitbreaker.State
	to   circuitbreaker.State
}

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(3, 10*time.Second)
	})

	Describe("GetOrCreate", func() {
		It("should create a closed breaker for an unknown key", func() {
			cb := registry.GetOrCreate("/orders")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same key", func() {
			cb1 := registry.GetOrCreate("/orders")
			cb2 := registry.GetOrCreate("/orders")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return independent breakers for different keys", func() {
			orders := registry.GetOrCreate("/orders")
			sales := registry.GetOrCreate("/sales")
			Expect(orders).NotTo(BeIdenticalTo(sales))

			orders.RecordFailure()
			orders.RecordFailure()
			orders.RecordFailure()
			Expect(orders.IsOpen()).To(BeTrue())
			Expect(sales.IsOpen()).To(BeFalse())
		})

		It("should use the registry threshold for new breakers", func() {
			registry = circuitbreaker.NewRegistry(2, time.Second)
			cb := registry.GetOrCreate("/orders")

			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.IsOpen()).To(BeTrue())
		})

		It("should create a single instance under concurrent first access", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			results := make([]*circuitbreaker.CircuitBreaker, goroutines)
			for i := 0; i < goroutines; i++ {
				go func(i int) {
					defer wg.Done()
					results[i] = registry.GetOrCreate("/orders")
				}(i)
			}

			wg.Wait()

			Expect(registry.Len()).To(Equal(1))
			for _, cb := range results {
				Expect(cb).To(BeIdenticalTo(results[0]))
			}
		})
	})

	Describe("WithStateChangeListener", func() {
		var (
			mutex       sync.Mutex
			transitions []transition
			clock       *fakeClock
		)

		BeforeEach(func() {
			transitions = nil
			clock = newFakeClock()
			registry = circuitbreaker.NewRegistry(3, 10*time.Second,
				circuitbreaker.WithClock(clock.Now),
				circuitbreaker.WithStateChangeListener(func(key string, from, to circuitbreaker.State) {
					mutex.Lock()
					defer mutex.Unlock()
					transitions = append(transitions, transition{key: key, from: from, to: to})
				}))
		})

		recorded := func() []transition {
			mutex.Lock()
			defer mutex.Unlock()
			return append([]transition(nil), transitions...)
		}

		It("should report the trip with the route key", func() {
			cb := registry.GetOrCreate("/orders")
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(recorded()).To(BeEmpty())

			cb.RecordFailure()
			Expect(recorded()).To(ConsistOf(transition{"/orders", circuitbreaker.StateClosed, circuitbreaker.StateOpen}))
		})

		It("should report the lazy close after the cool-down", func() {
			cb := registry.GetOrCreate("/orders")
			for i := 0; i < 3; i++ {
				cb.RecordFailure()
			}

			clock.Advance(10 * time.Second)
			Expect(cb.IsOpen()).To(BeFalse())
			Expect(recorded()).To(HaveLen(2))
			Expect(recorded()[1]).To(Equal(transition{"/orders", circuitbreaker.StateOpen, circuitbreaker.StateClosed}))
		})

		It("should not report a reset of a closed breaker", func() {
			cb := registry.GetOrCreate("/orders")
			cb.RecordFailure()
			cb.Reset()
			Expect(recorded()).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("should return a snapshot of every breaker", func() {
			registry.GetOrCreate("/orders")
			sales := registry.GetOrCreate("/sales")
			for i := 0; i < 3; i++ {
				sales.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["/orders"].State).To(Equal("CLOSED"))
			Expect(stats["/orders"].OpenedAt.IsZero()).To(BeTrue())
			Expect(stats["/sales"].State).To(Equal("OPEN"))
			Expect(stats["/sales"].Failures).To(Equal(3))
			Expect(stats["/sales"].FailureThreshold).To(Equal(3))
		})

		It("should be empty for a fresh registry", func() {
			Expect(registry.Stats()).To(BeEmpty())
		})
	})
})
