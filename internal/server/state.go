package server

import (
	"context"
	"sync"
)

// Phase is the coarse stage a conversion run is in.
type Phase string

const (
	PhaseStarting  Phase = "starting"
	PhaseLoading   Phase = "loading"
	PhaseWriting   Phase = "writing"
	PhaseDatabase  Phase = "database"
	PhaseVerifying Phase = "verifying"
	PhaseFinished  Phase = "finished"
	PhaseFailed    Phase = "failed"
)

// RunState tracks run progress for the health endpoints.
// It is safe for concurrent use.
type RunState struct {
	mu    sync.RWMutex
	phase Phase
	sinks map[string]string
}

var _ HealthChecker = (*RunState)(nil)

// NewRunState returns a RunState in the starting phase.
func NewRunState() *RunState {
	return &RunState{
		phase: PhaseStarting,
		sinks: make(map[string]string),
	}
}

// SetPhase moves the run to phase. A failed run stays failed.
func (s *RunState) SetPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFailed {
		return
	}
	s.phase = phase
}

// Phase returns the current phase.
func (s *RunState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// SetSinkStatus records the latest status of a format sink.
func (s *RunState) SetSinkStatus(format, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks[format] = status
}

// Liveness reports whether the process is alive. A batch run never needs
// a restart, so this is always true.
func (s *RunState) Liveness() bool {
	return true
}

// Readiness reports whether the source has been loaded and the run has
// not failed.
func (s *RunState) Readiness(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	switch s.Phase() {
	case PhaseStarting, PhaseLoading, PhaseFailed:
		return false
	default:
		return true
	}
}

// IsHealthy reports whether the run has not failed.
func (s *RunState) IsHealthy() bool {
	return s.Phase() != PhaseFailed
}

// GetStatus returns the phase and every known sink status, keyed
// "phase" and "sink.<format>".
func (s *RunState) GetStatus() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := make(map[string]string, len(s.sinks)+1)
	status["phase"] = string(s.phase)
	for format, st := range s.sinks {
		status["sink."+format] = st
	}
	return status
}
