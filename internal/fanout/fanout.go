// Package fanout runs every format sink concurrently against one dataset.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jittakal/jpostcode/internal/partition"
	"github.com/jittakal/jpostcode/internal/sink"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Runner is a unit of fan-out work. *sink.Sink implements it.
type Runner interface {
	Format() postal.FileFormat
	Run(ctx context.Context, records []postal.Record, idx *partition.Index) sink.Result
}

var _ Runner = (*sink.Sink)(nil)

// Coordinator starts one goroutine per runner and waits for all of them.
// A failing runner never cancels its siblings.
type Coordinator struct {
	logger *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// Run writes records and idx through every runner and returns once all of
// them reached a terminal state. Results keep the order of runners.
func (c *Coordinator) Run(ctx context.Context, records []postal.Record, idx *partition.Index, runners []Runner) *Report {
	start := time.Now()
	results := make([]sink.Result, len(runners))

	c.logger.Info("fan-out started", "sinks", len(runners), "records", len(records))

	var wg sync.WaitGroup
	for i, r := range runners {
		wg.Add(1)
		go func(i int, r Runner) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[i] = sink.Result{
						Format: r.Format(),
						Status: sink.StatusFailed,
						Err:    fmt.Errorf("sink %s panicked: %v", r.Format(), p),
					}
					c.logger.Error("sink panicked", "format", r.Format(), "panic", p)
				}
			}()
			results[i] = r.Run(ctx, records, idx)
		}(i, r)
	}
	wg.Wait()

	report := &Report{Results: results, Duration: time.Since(start)}

	c.logger.Info("fan-out finished",
		"completed", report.Count(sink.StatusCompleted),
		"skipped", report.Count(sink.StatusSkipped),
		"failed", report.Count(sink.StatusFailed),
		"files", report.TotalFiles(),
		"bytes", report.TotalBytes(),
		"duration_ms", report.Duration.Milliseconds(),
	)

	return report
}

// Sinks adapts sinks to runners.
func Sinks(sinks []*sink.Sink) []Runner {
	runners := make([]Runner, len(sinks))
	for i, s := range sinks {
		runners[i] = s
	}
	return runners
}
