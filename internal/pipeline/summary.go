package pipeline

import (
	"log/slog"
	"time"

	"github.com/jittakal/jpostcode/internal/fanout"
	"github.com/jittakal/jpostcode/internal/partition"
	"github.com/jittakal/jpostcode/internal/sink"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Verification is the read-back check of one all_data file.
type Verification struct {
	Format postal.FileFormat
	Path   string
	Want   int
	Got    int
	Err    error
}

// OK reports whether the file decoded to the expected record count.
func (v Verification) OK() bool {
	return v.Err == nil && v.Got == v.Want
}

// Summary is the outcome of one run.
type Summary struct {
	Rows            int
	Records         int
	Invalid         int
	InvalidMessages []string
	Partition       partition.Stats
	Report          *fanout.Report
	DatabaseRows    int64
	DatabaseErr     error
	Verifications   []Verification
	Duration        time.Duration
}

// Fatal reports whether the run must exit non-zero: a sink failed, the
// database load failed or an all_data file did not read back.
// Skipped sinks are not fatal.
func (s *Summary) Fatal() bool {
	if s.Report != nil && s.Report.Fatal() {
		return true
	}
	if s.DatabaseErr != nil {
		return true
	}
	for _, v := range s.Verifications {
		if !v.OK() {
			return true
		}
	}
	return false
}

// Log writes the end-of-run summary: one line per format, the invalid
// row messages and a totals line.
func (s *Summary) Log(logger *slog.Logger) {
	if s.Report != nil {
		for _, res := range s.Report.Results {
			attrs := []any{
				"format", res.Format,
				"status", res.Status,
				"files", res.Files,
				"bytes", res.Bytes,
				"duration_ms", res.Duration.Milliseconds(),
			}
			if res.Err != nil {
				attrs = append(attrs, "error", res.Err)
			}
			logger.Info("format summary", attrs...)
		}
	}

	if s.Invalid > 0 {
		logger.Warn("invalid rows skipped",
			"count", s.Invalid,
			"first", s.InvalidMessages,
			"not_shown", s.Invalid-len(s.InvalidMessages),
		)
	}

	attrs := []any{
		"rows", s.Rows,
		"records", s.Records,
		"invalid", s.Invalid,
		"partition_skipped", s.Partition.Skipped,
		"prefixes", s.Partition.Prefixes,
		"codes", s.Partition.Codes,
		"duration_ms", s.Duration.Milliseconds(),
		"fatal", s.Fatal(),
	}
	if s.Report != nil {
		attrs = append(attrs,
			"files", s.Report.TotalFiles(),
			"bytes", s.Report.TotalBytes(),
			"completed", s.Report.Count(sink.StatusCompleted),
			"skipped", s.Report.Count(sink.StatusSkipped),
			"failed", s.Report.Count(sink.StatusFailed),
		)
	}
	if s.DatabaseRows > 0 || s.DatabaseErr != nil {
		attrs = append(attrs, "database_rows", s.DatabaseRows)
	}
	logger.Info("conversion finished", attrs...)
}
