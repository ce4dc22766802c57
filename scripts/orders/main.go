// orders is a demo upstream for the gateway. It serves /orders and /sales
// and fails /orders on a schedule so the circuit breaker has something to
// trip on.
//
// Usage:
//
//	go run ./scripts/orders -port 5001 -fail even-minute
//
// Failure modes: even-minute (500 on even minutes), always, never, and
// every-N (every Nth request fails, e.g. every-3).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

type Sale struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Region string  `json:"region"`
}

type failurePolicy func(n int64, now time.Time) bool

func parsePolicy(mode string) (failurePolicy, error) {
	switch {
	case mode == "even-minute":
		return func(_ int64, now time.Time) bool { return now.Minute()%2 == 0 }, nil
	case mode == "always":
		return func(int64, time.Time) bool { return true }, nil
	case mode == "never":
		return func(int64, time.Time) bool { return false }, nil
	case strings.HasPrefix(mode, "every-"):
		every, err := strconv.ParseInt(strings.TrimPrefix(mode, "every-"), 10, 64)
		if err != nil || every < 1 {
			return nil, fmt.Errorf("invalid failure mode %q", mode)
		}
		return func(n int64, _ time.Time) bool { return n%every == 0 }, nil
	default:
		return nil, fmt.Errorf("unknown failure mode %q", mode)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	var (
		port = flag.Int("port", 5001, "Port to listen on")
		mode = flag.String("fail", "even-minute", "Failure mode for /orders")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.Int("port", *port))

	shouldFail, err := parsePolicy(*mode)
	if err != nil {
		log.Error("Invalid flags", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var requests atomic.Int64
	mux := http.NewServeMux()

	orders := func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if shouldFail(n, time.Now()) {
			log.Warn("Failing request", slog.Int64("request", n), slog.String("mode", *mode))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Service temporarily unavailable (testing circuit breaker)",
			})
			return
		}

		log.Info("Serving orders", slog.Int64("request", n), slog.String("request_id", r.Header.Get("X-Request-ID")))
		writeJSON(w, http.StatusOK, map[string][]Order{"orders": {
			{ID: uuid.NewString(), Amount: 120.50, Status: "CREATED"},
			{ID: uuid.NewString(), Amount: 89.99, Status: "PAID"},
			{ID: uuid.NewString(), Amount: 45.00, Status: "SHIPPED"},
		}})
	}
	mux.HandleFunc("GET /orders", orders)
	mux.HandleFunc("GET /orders/", orders)

	mux.HandleFunc("GET /sales", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]Sale{"sales": {
			{ID: uuid.NewString(), Amount: 310.00, Region: "NORTH"},
			{ID: uuid.NewString(), Amount: 75.25, Region: "SOUTH"},
		}})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("Orders service running", slog.String("fail", *mode))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
