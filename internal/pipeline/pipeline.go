// Package pipeline runs one conversion: load the registry, partition it,
// fan the records out to every format sink and report the outcome.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/fanout"
	"github.com/jittakal/jpostcode/internal/observability"
	"github.com/jittakal/jpostcode/internal/partition"
	"github.com/jittakal/jpostcode/internal/progress"
	"github.com/jittakal/jpostcode/internal/repository"
	"github.com/jittakal/jpostcode/internal/server"
	"github.com/jittakal/jpostcode/internal/sink"
	"github.com/jittakal/jpostcode/internal/source"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// RecordSource produces the validated registry records.
type RecordSource interface {
	Load(ctx context.Context) (*source.Result, int64, error)
}

// DatabaseLoader replaces a table's contents with the full record set.
type DatabaseLoader interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context, records []postal.Record) (int64, error)
}

var (
	_ RecordSource   = (*source.Loader)(nil)
	_ DatabaseLoader = (*repository.PostgresLoader)(nil)
)

// Options wires a Pipeline. Source and Writer are required.
type Options struct {
	Source   RecordSource
	Writer   storage.Writer
	Formats  map[postal.FileFormat]sink.FormatConfig
	Encoders sink.EncoderFactory
	Database DatabaseLoader
	Verify   bool
	Reporter progress.Reporter
	State    *server.RunState
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Pipeline runs conversions.
type Pipeline struct {
	source   RecordSource
	writer   storage.Writer
	formats  map[postal.FileFormat]sink.FormatConfig
	encoders sink.EncoderFactory
	database DatabaseLoader
	verify   bool
	reporter progress.Reporter
	state    *server.RunState
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline source is required")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("pipeline writer is required")
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Noop{}
	}

	return &Pipeline{
		source:   opts.Source,
		writer:   opts.Writer,
		formats:  opts.Formats,
		encoders: opts.Encoders,
		database: opts.Database,
		verify:   opts.Verify,
		reporter: opts.Reporter,
		state:    opts.State,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Run executes one conversion. It returns an error only when the run
// could not start writing: the destination root is not writable, the
// source is unreadable or holds no valid record, or the sink registry
// could not be built. Sink failures are reported in the Summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary, err := p.run(ctx)
	if err != nil {
		p.setPhase(server.PhaseFailed)
		p.recordRun(false, start)
		return nil, err
	}

	summary.Duration = time.Since(start)
	if summary.Fatal() {
		p.setPhase(server.PhaseFailed)
	} else {
		p.setPhase(server.PhaseFinished)
	}
	p.recordRun(!summary.Fatal(), start)
	summary.Log(p.logger)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context) (*Summary, error) {
	p.setPhase(server.PhaseLoading)

	if err := p.writer.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare destination: %w", err)
	}

	loaded, size, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if p.metrics != nil {
		p.metrics.SourceBytes.Add(float64(size))
		p.metrics.IncRecords("valid", len(loaded.Records))
		p.metrics.IncRecords("invalid", loaded.Invalid.Count())
	}
	if len(loaded.Records) == 0 {
		return nil, fmt.Errorf("load source: %w (%d rows, %d invalid)",
			apperrors.ErrNoRecords, loaded.Rows, loaded.Invalid.Count())
	}

	idx, stats := partition.Partition(loaded.Records)
	if p.metrics != nil {
		p.metrics.SetPartition(stats.Prefixes, stats.Codes, stats.Skipped)
	}
	p.logger.Info("records partitioned",
		"records", stats.Indexed,
		"skipped", stats.Skipped,
		"prefixes", stats.Prefixes,
		"codes", stats.Codes,
		"avg_per_prefix", fmt.Sprintf("%.1f", stats.AvgPerPrefix()),
	)

	registry, err := sink.NewRegistry(p.formats, p.writer, p.reporter, p.logger, p.sinkMetrics(),
		sink.WithEncoderFactory(p.encoders))
	if err != nil {
		return nil, fmt.Errorf("build sink registry: %w", err)
	}

	p.setPhase(server.PhaseWriting)
	report := fanout.NewCoordinator(p.logger).Run(ctx, loaded.Records, idx, fanout.Sinks(registry.Sinks()))

	summary := &Summary{
		Rows:            loaded.Rows,
		Records:         len(loaded.Records),
		Invalid:         loaded.Invalid.Count(),
		InvalidMessages: loaded.Invalid.Messages(),
		Partition:       stats,
		Report:          report,
	}

	if p.database != nil {
		p.setPhase(server.PhaseDatabase)
		summary.DatabaseRows, summary.DatabaseErr = p.loadDatabase(ctx, loaded.Records)
	}

	if p.verify {
		p.setPhase(server.PhaseVerifying)
		summary.Verifications = p.verifyAllData(registry, report)
	}

	return summary, nil
}

func (p *Pipeline) loadDatabase(ctx context.Context, records []postal.Record) (int64, error) {
	if err := p.database.EnsureSchema(ctx); err != nil {
		p.logger.Error("database schema failed", "error", err)
		return 0, err
	}
	rows, err := p.database.Load(ctx, records)
	if err != nil {
		p.logger.Error("database load failed", "error", err)
		return rows, err
	}
	return rows, nil
}

// verifyAllData decodes each completed all_data file and checks its record
// count. Only local files whose encoder can decode are verified.
func (p *Pipeline) verifyAllData(registry *sink.Registry, report *fanout.Report) []Verification {
	locator, ok := p.writer.(storage.Locator)
	if !ok {
		p.logger.Info("verification skipped", "backend", p.writer.Backend())
		return nil
	}

	var out []Verification
	for _, s := range registry.Sinks() {
		res, ok := report.Result(s.Format())
		if !ok || res.Status != sink.StatusCompleted {
			continue
		}
		dec, ok := s.Encoder().(encoder.Decoder)
		if !ok {
			continue
		}

		v := Verification{
			Format: s.Format(),
			Path:   locator.Locate(s.AllDataPath()),
			Want:   res.Records,
		}
		records, err := dec.Decode(v.Path)
		if err != nil {
			v.Err = err
		} else {
			v.Got = len(records)
		}

		if v.OK() {
			p.logger.Debug("all_data verified", "format", v.Format, "records", v.Got)
		} else {
			p.logger.Error("all_data verification failed",
				"format", v.Format, "path", v.Path, "want", v.Want, "got", v.Got, "error", v.Err)
		}
		out = append(out, v)
	}
	return out
}

func (p *Pipeline) sinkMetrics() sink.MetricsCollector {
	if p.metrics == nil && p.state == nil {
		return nil
	}
	t := &statusTracker{state: p.state}
	if p.metrics != nil {
		t.next = p.metrics
	}
	return t
}

func (p *Pipeline) setPhase(phase server.Phase) {
	if p.state != nil {
		p.state.SetPhase(phase)
	}
}

func (p *Pipeline) recordRun(success bool, start time.Time) {
	if p.metrics == nil {
		return
	}
	now := time.Now()
	p.metrics.SetRunResult(success, now.Sub(start).Seconds(), float64(now.Unix()))
}
