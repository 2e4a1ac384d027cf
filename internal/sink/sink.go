// Package sink writes the postal dataset in one output format.
//
// A Sink owns one encoder, one concurrency limiter and one state machine.
// It writes the monolithic all_data file and, when grouped output is
// enabled, one file per prefix and one per postal code. Every error is turned
// into a terminal status at the Run boundary; a sink never affects another.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internalencoder "github.com/jittakal/jpostcode/internal/encoder"
	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/limiter"
	"github.com/jittakal/jpostcode/internal/partition"
	"github.com/jittakal/jpostcode/internal/progress"
	internalstorage "github.com/jittakal/jpostcode/internal/storage"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// Status is the lifecycle state of a sink.
type Status string

// Sink states. Completed, skipped and failed are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusFailed
}

// AllStatuses lists every status as a string, for metric labels.
func AllStatuses() []string {
	return []string{
		string(StatusPending),
		string(StatusRunning),
		string(StatusCompleted),
		string(StatusSkipped),
		string(StatusFailed),
	}
}

// File kinds used in metrics labels.
const (
	KindAllData = "all_data"
	KindPrefix  = "prefix"
	KindCode    = "code"
)

// MetricsCollector defines metrics operations for sinks.
type MetricsCollector interface {
	IncFilesWritten(format, kind, status string)
	ObserveFileSize(format, kind string, size float64)
	SetWritesInFlight(format string, active int)
	SetSinkStatus(format, status string, all []string)
	ObserveSinkDuration(format string, seconds float64)
}

// Config controls one sink.
type Config struct {
	// Grouped enables the prefix and per-code files.
	Grouped bool

	// Concurrency caps in-flight file writes. Zero selects the format default.
	Concurrency int

	// Layout places files in the tree. Nil selects the default tree layout.
	Layout storage.Layout
}

// WriteStats summarizes the files written by one phase.
type WriteStats struct {
	Files   int
	Bytes   int64
	Records int
}

func (s *WriteStats) add(stats *postal.FileStats) {
	s.Files++
	s.Bytes += stats.SizeBytes
	s.Records += stats.RecordCount
}

// Result is the outcome of Run.
type Result struct {
	Format          postal.FileFormat
	Status          Status
	Files           int
	Bytes           int64
	Records         int
	PeakConcurrency int
	Duration        time.Duration
	Err             error
}

// Sink writes the dataset in one format.
type Sink struct {
	enc      encoder.Encoder
	writer   storage.Writer
	layout   storage.Layout
	limiter  *limiter.Limiter
	grouped  bool
	reporter progress.Reporter
	logger   *slog.Logger
	metrics  MetricsCollector

	// unavailable is set when the encoder failed its startup probe.
	unavailable error

	mu      sync.Mutex
	status  Status
	started bool
	done    chan struct{}
	result  *Result
}

// New creates a sink in the pending state.
func New(
	enc encoder.Encoder,
	writer storage.Writer,
	cfg Config,
	reporter progress.Reporter,
	logger *slog.Logger,
	metrics MetricsCollector,
) *Sink {
	if cfg.Layout == nil {
		cfg.Layout = internalstorage.NewLayout()
	}
	if reporter == nil {
		reporter = progress.Noop{}
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = internalencoder.DefaultConcurrency(enc.Format())
	}

	lim := limiter.New(cfg.Concurrency)
	s := &Sink{
		enc:      enc,
		writer:   writer,
		layout:   cfg.Layout,
		limiter:  lim,
		grouped:  cfg.Grouped,
		reporter: reporter,
		logger:   logger.With("format", enc.Format()),
		metrics:  metrics,
		status:   StatusPending,
		done:     make(chan struct{}),
	}

	if metrics != nil {
		format := string(enc.Format())
		lim.OnChange(func(active int) {
			metrics.SetWritesInFlight(format, active)
		})
		metrics.SetSinkStatus(format, string(StatusPending), AllStatuses())
	}

	return s
}

// Format returns the format this sink writes.
func (s *Sink) Format() postal.FileFormat {
	return s.enc.Format()
}

// Grouped reports whether prefix and per-code files are written.
func (s *Sink) Grouped() bool {
	return s.grouped
}

// Encoder returns the sink's encoder.
func (s *Sink) Encoder() encoder.Encoder {
	return s.enc
}

// Status returns the current state.
func (s *Sink) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Limiter returns the sink's concurrency limiter.
func (s *Sink) Limiter() *limiter.Limiter {
	return s.limiter
}

// AllDataPath returns the relative path of the all_data file.
func (s *Sink) AllDataPath() string {
	return s.layout.AllData(s.enc.FileExtension())
}

func (s *Sink) allDataTask() string {
	return s.AllDataPath()
}

func (s *Sink) groupedTask() string {
	return strings.ToUpper(string(s.enc.Format()))
}

// transition moves the sink to next. Terminal states are never left.
func (s *Sink) transition(next Status) bool {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.status = next
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetSinkStatus(string(s.enc.Format()), string(next), AllStatuses())
	}
	return true
}

// Run writes all_data and, if enabled, the grouped tree. It never returns
// an error: failures are reported through Result.Status and Result.Err.
// A sink runs once: any later or concurrent call waits for the first run
// and returns its result without writing again.
func (s *Sink) Run(ctx context.Context, records []postal.Record, idx *partition.Index) (res Result) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		<-s.done
		s.mu.Lock()
		defer s.mu.Unlock()
		return *s.result
	}
	s.started = true
	s.mu.Unlock()

	start := time.Now()
	res = Result{Format: s.enc.Format()}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		s.mu.Lock()
		finished := s.result != nil
		s.mu.Unlock()
		if finished {
			panic(p)
		}
		res = s.finish(res, StatusFailed, fmt.Errorf("sink %s panicked: %v", s.enc.Format(), p), start)
	}()

	if s.unavailable != nil {
		s.logger.Warn("format unavailable, skipping", "error", s.unavailable)
		return s.finish(res, StatusSkipped, s.unavailable, start)
	}

	s.transition(StatusRunning)
	s.logger.Info("sink started", "grouped", s.grouped, "max_concurrent", s.limiter.MaxConcurrent())

	all, err := s.WriteAll(ctx, records)
	res.Files += all.Files
	res.Bytes += all.Bytes
	res.Records = all.Records
	if err != nil {
		return s.finish(res, statusFor(err), err, start)
	}

	if s.grouped && idx != nil {
		grouped, err := s.WriteGrouped(ctx, idx)
		res.Files += grouped.Files
		res.Bytes += grouped.Bytes
		if err != nil {
			return s.finish(res, statusFor(err), err, start)
		}
	}

	return s.finish(res, StatusCompleted, nil, start)
}

func statusFor(err error) Status {
	if apperrors.IsFatal(err) {
		return StatusFailed
	}
	return StatusSkipped
}

func (s *Sink) finish(res Result, status Status, err error, start time.Time) Result {
	s.transition(status)

	res.Status = status
	res.Err = err
	res.Duration = time.Since(start)
	res.PeakConcurrency = s.limiter.Peak()

	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	close(s.done)

	if s.metrics != nil {
		s.metrics.ObserveSinkDuration(string(res.Format), res.Duration.Seconds())
	}

	attrs := []any{
		"status", status,
		"files", res.Files,
		"bytes", res.Bytes,
		"peak_concurrency", res.PeakConcurrency,
		"duration_ms", res.Duration.Milliseconds(),
	}
	switch status {
	case StatusFailed:
		s.logger.Error("sink failed", append(attrs, "error", err)...)
	case StatusSkipped:
		s.logger.Warn("sink skipped", append(attrs, "error", err)...)
	default:
		s.logger.Info("sink completed", attrs...)
	}

	return res
}

// WriteAll writes every record, in source order, to all_data.<ext>.
func (s *Sink) WriteAll(ctx context.Context, records []postal.Record) (WriteStats, error) {
	var ws WriteStats
	task := s.allDataTask()
	s.reporter.AddTask(task, 1)

	if err := ctx.Err(); err != nil {
		return ws, fmt.Errorf("write %s: %w", task, err)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return ws, fmt.Errorf("write %s: %w", task, err)
	}
	stats, err := s.writeFile(ctx, records, s.AllDataPath(), KindAllData)
	s.limiter.Release()
	if err != nil {
		return ws, err
	}

	ws.add(stats)
	s.reporter.Advance(task, 1)
	return ws, nil
}

// WriteGrouped writes <prefix>.<ext> holding every record of the prefix and
// <prefix>/<suffix>.<ext> per postal code. A slot is acquired before each
// file goroutine starts. The first error stops further admissions.
func (s *Sink) WriteGrouped(ctx context.Context, idx *partition.Index) (WriteStats, error) {
	var (
		mu sync.Mutex
		ws WriteStats
	)

	task := s.groupedTask()
	s.reporter.AddTask(task, idx.FileCount())

	g, gctx := errgroup.WithContext(ctx)
	ext := s.enc.FileExtension()

	dispatch := func(records []postal.Record, relPath, kind string) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		if err := s.limiter.Acquire(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			defer s.limiter.Release()

			stats, err := s.writeFile(gctx, records, relPath, kind)
			if err != nil {
				return err
			}

			mu.Lock()
			ws.add(stats)
			mu.Unlock()
			s.reporter.Advance(task, 1)
			return nil
		})
		return nil
	}

dispatchLoop:
	for _, prefix := range idx.Prefixes() {
		if err := dispatch(idx.PrefixRecords(prefix), s.layout.Prefix(prefix, ext), KindPrefix); err != nil {
			break
		}
		for _, suffix := range idx.Suffixes(prefix) {
			if err := dispatch(idx.Bucket(prefix, suffix), s.layout.Suffix(prefix, suffix, ext), KindCode); err != nil {
				break dispatchLoop
			}
		}
	}

	err := g.Wait()
	if err == nil {
		// Admission stopped by cancellation without any write failing.
		err = ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		return ws, fmt.Errorf("write grouped %s: %w", s.enc.Format(), err)
	}
	return ws, nil
}

// writeFile writes one file. A panic in the encoder or writer becomes an
// EncodeError for that file so it fails this sink only.
func (s *Sink) writeFile(ctx context.Context, records []postal.Record, relPath, kind string) (stats *postal.FileStats, err error) {
	format := string(s.enc.Format())

	defer func() {
		if p := recover(); p != nil {
			stats = nil
			err = &apperrors.EncodeError{Format: format, Path: relPath, Err: fmt.Errorf("panic: %v", p)}
			if s.metrics != nil {
				s.metrics.IncFilesWritten(format, kind, "error")
			}
		}
	}()

	stats, err = s.writer.Write(ctx, records, relPath, s.enc)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFilesWritten(format, kind, "error")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncFilesWritten(format, kind, "success")
		s.metrics.ObserveFileSize(format, kind, float64(stats.SizeBytes))
	}
	return stats, nil
}
