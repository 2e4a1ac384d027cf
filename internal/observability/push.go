package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushConfig contains Pushgateway configuration.
type PushConfig struct {
	Enabled bool
	URL     string
	Job     string
}

// PushMetrics pushes every metric in registry to a Pushgateway.
// A batch job exits before it can be scraped, so this runs once at the end.
func PushMetrics(ctx context.Context, cfg PushConfig, registry *prometheus.Registry, runID string, logger *slog.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	pusher := push.New(cfg.URL, cfg.Job).
		Gatherer(registry).
		Grouping("run_id", runID)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", cfg.URL, err)
	}

	logger.Info("metrics pushed", "url", cfg.URL, "job", cfg.Job)
	return nil
}
