// breakercheck drives a breaker-protected route through the gateway and
// prints which requests were forwarded and which were rejected while the
// circuit was open.
//
// Usage:
//
//	go run ./scripts/breakercheck -gateway http://localhost:8080 -path /v1/orders
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type breakerStats struct {
	State            string    `json:"state"`
	Failures         int       `json:"failures"`
	FailureThreshold int       `json:"failure_threshold"`
	OpenedAt         time.Time `json:"opened_at"`
}

func main() {
	var (
		gatewayURL = flag.String("gateway", "http://localhost:8080", "Gateway URL")
		path       = flag.String("path", "/v1/orders", "Protected path to call")
		requests   = flag.Int("requests", 10, "Requests per phase")
		interval   = flag.Duration("interval", 200*time.Millisecond, "Delay between requests")
		cooldown   = flag.Duration("cooldown", 10*time.Second, "Breaker cool-down to wait out before the recovery phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorCyan + "━━━ CIRCUIT BREAKER CHECK ━━━" + colorReset)
	fmt.Printf("Target: %s%s\n\n", *gatewayURL, *path)

	fmt.Println(colorBlue + "PHASE 1: Drive the route" + colorReset)
	forwarded, rejected, failed := drive(client, *gatewayURL+*path, *requests, *interval)
	fmt.Printf("\n  forwarded=%d failed=%d rejected=%d\n\n", forwarded, failed, rejected)

	fmt.Println(colorBlue + "PHASE 2: Breaker state" + colorReset)
	if err := printBreakers(client, *gatewayURL+"/admin/breakers"); err != nil {
		fmt.Printf(colorYellow+"  Could not fetch breaker state: %v\n"+colorReset, err)
	}
	fmt.Println()

	if rejected == 0 {
		fmt.Println(colorGreen + "No rejections observed, skipping recovery phase." + colorReset)
		return
	}

	fmt.Printf(colorBlue+"PHASE 3: Recovery after %s\n"+colorReset, *cooldown)
	time.Sleep(*cooldown)
	forwarded, rejected, failed = drive(client, *gatewayURL+*path, *requests, *interval)
	fmt.Printf("\n  forwarded=%d failed=%d rejected=%d\n", forwarded, failed, rejected)

	if err := printBreakers(client, *gatewayURL+"/admin/breakers"); err != nil {
		fmt.Printf(colorYellow+"  Could not fetch breaker state: %v\n"+colorReset, err)
		os.Exit(1)
	}
}

func drive(client *http.Client, target string, n int, interval time.Duration) (forwarded, rejected, failed int) {
	for i := 0; i < n; i++ {
		resp, err := client.Get(target)
		if err != nil {
			fmt.Printf(colorRed+"  Request %2d: ERROR - %v\n"+colorReset, i+1, err)
			failed++
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusServiceUnavailable && resp.Header.Get("X-Backend-Server") == "":
			fmt.Printf(colorYellow+"  Request %2d: 503 rejected (circuit open)\n"+colorReset, i+1)
			rejected++
		case resp.StatusCode >= 500:
			fmt.Printf(colorRed+"  Request %2d: %d from %s\n"+colorReset, i+1, resp.StatusCode, resp.Header.Get("X-Backend-Server"))
			failed++
		default:
			fmt.Printf(colorGreen+"  Request %2d: %d from %s\n"+colorReset, i+1, resp.StatusCode, resp.Header.Get("X-Backend-Server"))
			forwarded++
		}

		time.Sleep(interval)
	}
	return forwarded, rejected, failed
}

func printBreakers(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var stats map[string]breakerStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return err
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := stats[k]
		color := colorGreen
		if s.State == "OPEN" {
			color = colorRed
		}
		fmt.Printf("  %s → %s%s%s (failures %d/%d)\n", k, color, s.State, colorReset, s.Failures, s.FailureThreshold)
	}
	return nil
}
