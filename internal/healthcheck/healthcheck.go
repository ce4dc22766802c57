package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/angeloszaimis/edge-gateway/internal/backend"
)

const (
	DefaultPath    = "/health"
	defaultTimeout = 5 * time.Second
)

// Config controls how backends are probed. OnChange, when set, is called
// after every health transition.
type Config struct {
	Interval time.Duration
	Path     string
	Timeout  time.Duration
	OnChange func(b *backend.Backend, healthy bool)
}

// Run probes every backend on its own goroutine until ctx is cancelled.
func Run(ctx context.Context, backends []*backend.Backend, cfg Config, logger *slog.Logger) {
	var wg sync.WaitGroup
	for _, b := range backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			HealthCheck(ctx, b, cfg, logger)
		}()
	}
	wg.Wait()
}

// HealthCheck periodically sends GET <backend><cfg.Path> and marks the
// backend healthy on 200 and unhealthy otherwise.
func HealthCheck(ctx context.Context, b *backend.Backend, cfg Config, logger *slog.Logger) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}
	healthURL := b.URL().JoinPath(cfg.Path)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("server", b.URL().String()))
			return

		case <-ticker.C:
			healthy := probe(ctx, client, healthURL.String())
			if ctx.Err() != nil {
				continue
			}
			if !b.SetHealthy(healthy) {
				continue
			}

			if healthy {
				logger.Info("Server is back up",
					slog.String("server", b.URL().String()))
			} else {
				logger.Warn("Server is down",
					slog.String("server", b.URL().String()))
			}

			if cfg.OnChange != nil {
				cfg.OnChange(b, healthy)
			}
		}
	}
}

func probe(ctx context.Context, client *http.Client, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode == http.StatusOK
}
