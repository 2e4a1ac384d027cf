package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns a handler for liveness probes.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker.Liveness() {
			writeHealth(w, http.StatusOK, HealthResponse{Status: "alive"}, logger)
			return
		}
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: "not alive"}, logger)
	}
}

// ReadinessHandler returns a handler for readiness probes. The body carries
// the run phase and per-format sink statuses.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status: "ready",
			Checks: checker.GetStatus(),
		}
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			response.Status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, response, logger)
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, response HealthResponse, logger *slog.Logger) {
	response.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", "status", response.Status, "error", err)
	}
}
