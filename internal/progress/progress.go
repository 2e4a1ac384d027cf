// Package progress reports per-task completion counts.
//
// Reporting is cosmetic: it never affects write outcomes. A Reporter is
// injected into the components that make progress; Noop is the default.
package progress

import (
	"log/slog"
	"sync"

	"github.com/jittakal/jpostcode/internal/observability"
)

// Reporter receives monotonically increasing completion counts per named task.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// AddTask registers a task with its total number of units.
	AddTask(name string, total int)

	// Advance marks n more units of the task as completed.
	Advance(name string, n int)
}

// Noop discards all progress.
type Noop struct{}

// AddTask implements Reporter.
func (Noop) AddTask(string, int) {}

// Advance implements Reporter.
func (Noop) Advance(string, int) {}

type task struct {
	total     int
	completed int
	lastStep  int
}

// LogReporter logs each task when it starts, every time it crosses another
// tenth of its total, and when it finishes.
type LogReporter struct {
	logger *slog.Logger
	mu     sync.Mutex
	tasks  map[string]*task
}

// NewLogReporter creates a reporter that writes to logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// AddTask implements Reporter.
func (r *LogReporter) AddTask(name string, total int) {
	r.mu.Lock()
	r.tasks[name] = &task{total: total}
	r.mu.Unlock()

	r.logger.Debug("task started", "task", name, "total", total)
}

// Advance implements Reporter.
func (r *LogReporter) Advance(name string, n int) {
	r.mu.Lock()
	t, ok := r.tasks[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	t.completed += n
	if t.completed > t.total {
		t.completed = t.total
	}
	completed, total := t.completed, t.total

	step := 10
	if total > 0 {
		step = completed * 10 / total
	}
	crossed := step > t.lastStep
	if crossed {
		t.lastStep = step
	}
	r.mu.Unlock()

	switch {
	case completed == total:
		r.logger.Info("task completed", "task", name, "total", total)
	case crossed:
		r.logger.Info("task progress", "task", name, "completed", completed, "total", total, "percent", step*10)
	}
}

// Snapshot returns completed and total for a task.
func (r *LogReporter) Snapshot(name string) (completed, total int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[name]
	if !ok {
		return 0, 0, false
	}
	return t.completed, t.total, true
}

// MetricsReporter exports progress as Prometheus gauges.
type MetricsReporter struct {
	metrics *observability.Metrics
}

// NewMetricsReporter creates a reporter backed by metrics.
func NewMetricsReporter(metrics *observability.Metrics) *MetricsReporter {
	return &MetricsReporter{metrics: metrics}
}

// AddTask implements Reporter.
func (r *MetricsReporter) AddTask(name string, total int) {
	r.metrics.ProgressTotal.WithLabelValues(name).Set(float64(total))
	r.metrics.ProgressCompleted.WithLabelValues(name).Set(0)
}

// Advance implements Reporter.
func (r *MetricsReporter) Advance(name string, n int) {
	r.metrics.ProgressCompleted.WithLabelValues(name).Add(float64(n))
}

// Multi fans every call out to several reporters.
type Multi []Reporter

// AddTask implements Reporter.
func (m Multi) AddTask(name string, total int) {
	for _, r := range m {
		r.AddTask(name, total)
	}
}

// Advance implements Reporter.
func (m Multi) Advance(name string, n int) {
	for _, r := range m {
		r.Advance(name, n)
	}
}

var (
	_ Reporter = Noop{}
	_ Reporter = (*LogReporter)(nil)
	_ Reporter = (*MetricsReporter)(nil)
	_ Reporter = Multi(nil)
)
