package fanout

import (
	"time"

	"github.com/jittakal/jpostcode/internal/sink"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Report collects the outcome of every sink of one run.
type Report struct {
	Results  []sink.Result
	Duration time.Duration
}

// Fatal reports whether any sink failed. Skipped sinks are not fatal.
func (r *Report) Fatal() bool {
	return r.Count(sink.StatusFailed) > 0
}

// Count returns the number of sinks that ended in status.
func (r *Report) Count(status sink.Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Result returns the result for format.
func (r *Report) Result(format postal.FileFormat) (sink.Result, bool) {
	for _, res := range r.Results {
		if res.Format == format {
			return res, true
		}
	}
	return sink.Result{}, false
}

// Failed returns the failed results.
func (r *Report) Failed() []sink.Result {
	var out []sink.Result
	for _, res := range r.Results {
		if res.Status == sink.StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// TotalFiles sums files written across sinks.
func (r *Report) TotalFiles() int {
	n := 0
	for _, res := range r.Results {
		n += res.Files
	}
	return n
}

// TotalBytes sums bytes written across sinks.
func (r *Report) TotalBytes() int64 {
	var n int64
	for _, res := range r.Results {
		n += res.Bytes
	}
	return n
}
