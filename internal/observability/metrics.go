package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of a conversion run.
type Metrics struct {
	// Source metrics
	RecordsProcessed *prometheus.CounterVec
	SourceBytes      prometheus.Counter

	// Partition metrics
	PartitionPrefixes prometheus.Gauge
	PartitionCodes    prometheus.Gauge
	PartitionSkipped  prometheus.Counter

	// Sink metrics
	FilesWritten   *prometheus.CounterVec
	FileSize       *prometheus.HistogramVec
	SinkStatus     *prometheus.GaugeVec
	SinkDuration   *prometheus.HistogramVec
	WritesInFlight *prometheus.GaugeVec

	// Progress metrics
	ProgressCompleted *prometheus.GaugeVec
	ProgressTotal     *prometheus.GaugeVec

	// Storage metrics
	FileWriteDuration *prometheus.HistogramVec
	StorageErrors     *prometheus.CounterVec

	// Run metrics
	RunDuration     prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	LastRunFinished prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpostcode_records_processed_total",
				Help: "Total number of registry rows read, by validation status",
			},
			[]string{"status"},
		),
		SourceBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jpostcode_source_bytes_total",
				Help: "Bytes downloaded or read from the registry source",
			},
		),

		PartitionPrefixes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jpostcode_partition_prefixes",
				Help: "Number of distinct 3-digit prefixes in the last run",
			},
		),
		PartitionCodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jpostcode_partition_codes",
				Help: "Number of distinct 7-digit postal codes in the last run",
			},
		),
		PartitionSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jpostcode_partition_skipped_total",
				Help: "Records excluded from the index because their key was malformed",
			},
		),

		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpostcode_files_written_total",
				Help: "Total number of output files written",
			},
			[]string{"format", "kind", "status"},
		),
		FileSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jpostcode_file_size_bytes",
				Help:    "Size of output files",
				Buckets: prometheus.ExponentialBuckets(256, 4, 10), // 256B to 64MB
			},
			[]string{"format", "kind"},
		),
		SinkStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jpostcode_sink_status",
				Help: "Terminal status of each format sink (1 for the current status)",
			},
			[]string{"format", "status"},
		),
		SinkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jpostcode_sink_duration_seconds",
				Help:    "Wall time of each format sink",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"format"},
		),
		WritesInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jpostcode_writes_in_flight",
				Help: "File writes currently holding a limiter slot",
			},
			[]string{"format"},
		),

		ProgressCompleted: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jpostcode_progress_completed",
				Help: "Completed units per progress task",
			},
			[]string{"task"},
		),
		ProgressTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jpostcode_progress_total",
				Help: "Total units per progress task",
			},
			[]string{"task"},
		),

		FileWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jpostcode_file_write_duration_seconds",
				Help:    "Duration of file write operations including encoding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "format"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpostcode_storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "operation"},
		),

		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jpostcode_run_duration_seconds",
				Help: "Wall time of the last conversion run",
			},
		),
		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jpostcode_last_run_success",
				Help: "1 if the last run finished without a failed sink",
			},
		),
		LastRunFinished: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jpostcode_last_run_finished_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// IncRecords increments the processed rows counter.
func (m *Metrics) IncRecords(status string, n int) {
	m.RecordsProcessed.WithLabelValues(status).Add(float64(n))
}

// SetPartition records the shape of the partitioned index.
func (m *Metrics) SetPartition(prefixes, codes, skipped int) {
	m.PartitionPrefixes.Set(float64(prefixes))
	m.PartitionCodes.Set(float64(codes))
	m.PartitionSkipped.Add(float64(skipped))
}

// IncFilesWritten increments files written counter.
func (m *Metrics) IncFilesWritten(format, kind, status string) {
	m.FilesWritten.WithLabelValues(format, kind, status).Inc()
}

// ObserveFileSize observes file size.
func (m *Metrics) ObserveFileSize(format, kind string, size float64) {
	m.FileSize.WithLabelValues(format, kind).Observe(size)
}

// ObserveFileWriteDuration observes the duration of one file write.
func (m *Metrics) ObserveFileWriteDuration(backend, format string, seconds float64) {
	m.FileWriteDuration.WithLabelValues(backend, format).Observe(seconds)
}

// SetSinkStatus marks status as the current state of a format sink.
func (m *Metrics) SetSinkStatus(format, status string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		m.SinkStatus.WithLabelValues(format, s).Set(v)
	}
}

// ObserveSinkDuration observes the wall time of a format sink.
func (m *Metrics) ObserveSinkDuration(format string, seconds float64) {
	m.SinkDuration.WithLabelValues(format).Observe(seconds)
}

// SetWritesInFlight sets the in-flight writes gauge.
func (m *Metrics) SetWritesInFlight(format string, active int) {
	m.WritesInFlight.WithLabelValues(format).Set(float64(active))
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

// SetRunResult records the outcome of a finished run.
func (m *Metrics) SetRunResult(success bool, seconds float64, finishedUnix float64) {
	m.RunDuration.Set(seconds)
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunFinished.Set(finishedUnix)
}
