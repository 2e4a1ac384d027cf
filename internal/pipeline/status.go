package pipeline

import (
	"github.com/jittakal/jpostcode/internal/server"
	"github.com/jittakal/jpostcode/internal/sink"
)

// statusTracker forwards sink metrics and mirrors sink status changes into
// the run state served by the readiness endpoint.
type statusTracker struct {
	next  sink.MetricsCollector
	state *server.RunState
}

var _ sink.MetricsCollector = (*statusTracker)(nil)

func (t *statusTracker) IncFilesWritten(format, kind, status string) {
	if t.next != nil {
		t.next.IncFilesWritten(format, kind, status)
	}
}

func (t *statusTracker) ObserveFileSize(format, kind string, size float64) {
	if t.next != nil {
		t.next.ObserveFileSize(format, kind, size)
	}
}

func (t *statusTracker) SetWritesInFlight(format string, active int) {
	if t.next != nil {
		t.next.SetWritesInFlight(format, active)
	}
}

func (t *statusTracker) SetSinkStatus(format, status string, all []string) {
	if t.state != nil {
		t.state.SetSinkStatus(format, status)
	}
	if t.next != nil {
		t.next.SetSinkStatus(format, status, all)
	}
}

func (t *statusTracker) ObserveSinkDuration(format string, seconds float64) {
	if t.next != nil {
		t.next.ObserveSinkDuration(format, seconds)
	}
}
