package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type routeStats struct {
	requests      int64
	rejections    int64
	trips         int64
	open          bool
	responseTimes []time.Duration
	statusCodes   map[int]int64
}

// Metrics is the in-memory aggregate served by the admin endpoint.
type Metrics struct {
	mutex        sync.RWMutex
	routes       map[string]*routeStats
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	TotalRequests   int64                   `json:"total_requests"`
	TotalRejections int64                   `json:"total_rejections"`
	Uptime          time.Duration           `json:"uptime"`
	Routes          map[string]RouteMetrics `json:"routes"`
	Backends        map[string]bool         `json:"backends"`
}

type RouteMetrics struct {
	Requests     int64         `json:"requests"`
	Rejections   int64         `json:"rejections"`
	BreakerOpen  bool          `json:"breaker_open"`
	BreakerTrips int64         `json:"breaker_trips"`
	AvgResponse  time.Duration `json:"avg_response"`
	P50Response  time.Duration `json:"p50_response"`
	P95Response  time.Duration `json:"p95_response"`
	P99Response  time.Duration `json:"p99_response"`
	StatusCodes  map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		routes:       make(map[string]*routeStats),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func (m *Metrics) RecordRequest(route string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rs := m.route(route)
	rs.requests++
	rs.statusCodes[statusCode]++

	rs.responseTimes = append(rs.responseTimes, duration)
	if len(rs.responseTimes) > maxSamples {
		rs.responseTimes = rs.responseTimes[1:]
	}
}

func (m *Metrics) RecordRejection(route string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.route(route).rejections++
}

func (m *Metrics) UpdateBreakerState(route string, open bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rs := m.route(route)
	if open && !rs.open {
		rs.trips++
	}
	rs.open = open
}

func (m *Metrics) UpdateHealthStatus(backend string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[backend] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Routes:   make(map[string]RouteMetrics, len(m.routes)),
		Backends: make(map[string]bool, len(m.healthStatus)),
	}

	for name, rs := range m.routes {
		snap.TotalRequests += rs.requests
		snap.TotalRejections += rs.rejections

		rm := RouteMetrics{
			Requests:     rs.requests,
			Rejections:   rs.rejections,
			BreakerOpen:  rs.open,
			BreakerTrips: rs.trips,
			StatusCodes:  make(map[int]int64, len(rs.statusCodes)),
		}
		for code, n := range rs.statusCodes {
			rm.StatusCodes[code] = n
		}

		if len(rs.responseTimes) > 0 {
			sorted := make([]time.Duration, len(rs.responseTimes))
			copy(sorted, rs.responseTimes)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[name] = rm
	}

	for backend, healthy := range m.healthStatus {
		snap.Backends[backend] = healthy
	}

	return snap
}

// route must be called with the write lock held.
func (m *Metrics) route(name string) *routeStats {
	rs, ok := m.routes[name]
	if !ok {
		rs = &routeStats{statusCodes: make(map[int]int64)}
		m.routes[name] = rs
	}
	return rs
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
