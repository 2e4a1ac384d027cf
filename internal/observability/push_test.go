package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPushMetrics(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.IncRecords("valid", 1)

	cfg := PushConfig{Enabled: true, URL: server.URL, Job: "jpostcode"}
	if err := PushMetrics(context.Background(), cfg, registry, "run-1", NopLogger()); err != nil {
		t.Fatalf("PushMetrics() error = %v", err)
	}

	path, _ := gotPath.Load().(string)
	if !strings.Contains(path, "/job/jpostcode") || !strings.Contains(path, "/run_id/run-1") {
		t.Errorf("push path = %q", path)
	}
}

func TestPushMetrics_Disabled(t *testing.T) {
	cfg := PushConfig{Enabled: false, URL: "http://127.0.0.1:1"}
	if err := PushMetrics(context.Background(), cfg, prometheus.NewRegistry(), "run", NopLogger()); err != nil {
		t.Errorf("disabled push returned %v", err)
	}
}

func TestPushMetrics_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	NewMetrics(registry).IncRecords("valid", 1)

	cfg := PushConfig{Enabled: true, URL: server.URL, Job: "jpostcode"}
	if err := PushMetrics(context.Background(), cfg, registry, "run", NopLogger()); err == nil {
		t.Error("expected error from failing gateway")
	}
}
