// Package server exposes health and metrics endpoints while a conversion
// run is in progress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	IsHealthy() bool
	GetStatus() map[string]string
}

// Config contains listener settings. A zero port disables that endpoint.
// When both ports are equal a single listener serves every path.
type Config struct {
	HealthPort    int
	MetricsPort   int
	LivenessPath  string
	ReadinessPath string
	MetricsPath   string
}

func (c Config) withDefaults() Config {
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	return c
}

// Server represents the HTTP server for health and metrics.
type Server struct {
	servers []*http.Server
	logger  *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg Config,
	healthChecker HealthChecker,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	cfg = cfg.withDefaults()

	muxes := make(map[int]*http.ServeMux)
	mux := func(port int) *http.ServeMux {
		if m, ok := muxes[port]; ok {
			return m
		}
		m := http.NewServeMux()
		muxes[port] = m
		return m
	}

	if cfg.HealthPort > 0 && healthChecker != nil {
		m := mux(cfg.HealthPort)
		m.HandleFunc(cfg.LivenessPath, LivenessHandler(healthChecker, logger))
		m.HandleFunc(cfg.ReadinessPath, ReadinessHandler(healthChecker, logger))
	}

	if cfg.MetricsPort > 0 && registry != nil {
		mux(cfg.MetricsPort).Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s := &Server{logger: logger}
	for _, port := range []int{cfg.HealthPort, cfg.MetricsPort} {
		m, ok := muxes[port]
		if !ok {
			continue
		}
		delete(muxes, port)
		s.servers = append(s.servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      m,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		})
	}
	return s
}

// Addrs returns the listen address of every configured listener.
func (s *Server) Addrs() []string {
	addrs := make([]string, len(s.servers))
	for i, srv := range s.servers {
		addrs[i] = srv.Addr
	}
	return addrs
}

// Start starts every configured listener in the background.
func (s *Server) Start() error {
	for _, srv := range s.servers {
		go func(srv *http.Server) {
			s.logger.Info("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server failed", "addr", srv.Addr, "error", err)
			}
		}(srv)
	}
	return nil
}

// Shutdown gracefully shuts down every listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if len(s.servers) == 0 {
		return nil
	}
	s.logger.Info("shutting down HTTP servers")

	errChan := make(chan error, len(s.servers))
	for _, srv := range s.servers {
		go func(srv *http.Server) {
			errChan <- srv.Shutdown(ctx)
		}(srv)
	}

	var lastErr error
	for range s.servers {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			lastErr = err
		}
	}

	return lastErr
}
