package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/jpostcode/internal/config"
	"github.com/jittakal/jpostcode/internal/config/dto"
	internalencoder "github.com/jittakal/jpostcode/internal/encoder"
	"github.com/jittakal/jpostcode/internal/observability"
	"github.com/jittakal/jpostcode/internal/pipeline"
	"github.com/jittakal/jpostcode/internal/progress"
	"github.com/jittakal/jpostcode/internal/repository"
	"github.com/jittakal/jpostcode/internal/server"
	"github.com/jittakal/jpostcode/internal/sink"
	"github.com/jittakal/jpostcode/internal/source"
	internalstorage "github.com/jittakal/jpostcode/internal/storage"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// errRunFailed marks a run that finished with a failed sink.
var errRunFailed = errors.New("conversion finished with failures")

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to configuration file")
	csvPath := flag.String("csv", "", "read the registry from this CSV file")
	zipPath := flag.String("zip", "", "read the registry from this zip archive")
	outDir := flag.String("out", "", "destination directory (file backend)")
	formats := flag.String("formats", "", "comma-separated formats to write (default: all enabled)")
	listFormats := flag.Bool("list-formats", false, "print supported formats and exit")
	flag.Parse()

	if *listFormats {
		printFormats()
		return nil
	}

	// Load configuration
	// Priority: CLI flag > CONFIG_PATH env var > default path
	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/application.yaml"
	}

	loader := config.NewLoader()
	if *csvPath != "" {
		loader.Set("source.csv_path", *csvPath)
	}
	if *zipPath != "" {
		loader.Set("source.zip_path", *zipPath)
	}
	if *outDir != "" {
		loader.Set("storage.backend", "file")
		loader.Set("storage.file.base_path", *outDir)
	}
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *formats != "" {
		if err := config.SelectFormats(cfg, strings.Split(*formats, ",")); err != nil {
			return fmt.Errorf("invalid -formats: %w", err)
		}
	}

	// Initialize observability
	runID := uuid.NewString()
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	}).With("run_id", runID)
	logger.Info("starting jpostcode",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
		"backend", cfg.Storage.Backend,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	state := server.NewRunState()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Track cleanup functions
	var cleanupFuncs []func() error
	addCleanup := func(name string, fn func() error) {
		cleanupFuncs = append(cleanupFuncs, func() error {
			if err := fn(); err != nil {
				logger.Warn("cleanup failed", "component", name, "error", err)
				return err
			}
			return nil
		})
		logger.Debug("registered cleanup", "component", name)
	}
	defer func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			_ = cleanupFuncs[i]()
		}
	}()

	// Start HTTP server
	httpServer := server.NewServer(serverConfig(cfg), state, registry, logger)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	addCleanup("http-server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	reporter := progress.Multi{
		progress.NewLogReporter(logger),
		progress.NewMetricsReporter(metrics),
	}

	writer, err := newWriter(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	addCleanup("storage-writer", writer.Close)

	src, err := source.NewLoader(source.Config{
		URL:              cfg.Source.URL,
		ZipPath:          cfg.Source.ZipPath,
		CSVPath:          cfg.Source.CSVPath,
		CSVName:          cfg.Source.CSVName,
		Encoding:         cfg.Source.Encoding,
		WorkDir:          cfg.Source.WorkDir,
		Timeout:          cfg.Source.Timeout(),
		MaxErrorMessages: cfg.Output.MaxErrorMessages,
		KeepDownload:     cfg.Source.KeepDownload,
	}, reporter, logger)
	if err != nil {
		return fmt.Errorf("failed to create source loader: %w", err)
	}

	opts := pipeline.Options{
		Source:   src,
		Writer:   writer,
		Formats:  formatConfigs(cfg),
		Verify:   cfg.Output.Verify,
		Reporter: reporter,
		State:    state,
		Metrics:  metrics,
		Logger:   logger,
	}

	if cfg.Database.Enabled {
		db, err := repository.NewPostgresLoader(ctx, repository.Config{
			DSN:      cfg.Database.DSN,
			Table:    cfg.Database.Table,
			MaxConns: cfg.Database.MaxConns,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		addCleanup("postgres", func() error {
			db.Close()
			return nil
		})
		opts.Database = db
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	summary, runErr := p.Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.PushMetrics(pushCtx, observability.PushConfig{
		Enabled: cfg.Observability.Metrics.Push.Enabled,
		URL:     cfg.Observability.Metrics.Push.URL,
		Job:     cfg.Observability.Metrics.Push.Job,
	}, registry, runID, logger); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("conversion aborted: %w", runErr)
	}
	if summary.Fatal() {
		return errRunFailed
	}

	logger.Info("application stopped successfully")
	return nil
}

// newWriter creates the storage writer for the configured backend.
func newWriter(ctx context.Context, cfg *dto.ApplicationConfig, logger *slog.Logger, metrics *observability.Metrics) (storage.Writer, error) {
	switch cfg.Storage.Backend {
	case "file":
		w, err := internalstorage.NewFileWriter(internalstorage.FileConfig{
			BasePath: cfg.Storage.File.BasePath,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem writer: %w", err)
		}
		return w, nil
	case "s3":
		w, err := internalstorage.NewS3Writer(ctx, internalstorage.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Prefix:          cfg.Storage.S3.Prefix,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
			SSEEnabled:      cfg.Storage.S3.SSEEnabled,
			SSEKMSKeyID:     cfg.Storage.S3.SSEKMSKeyID,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 writer: %w", err)
		}
		return w, nil
	case "azure":
		accountKey := cfg.Storage.Azure.AccountKey
		if accountKey == "" {
			accountKey = os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
		}
		w, err := internalstorage.NewAzureWriter(internalstorage.AzureConfig{
			AccountName:   cfg.Storage.Azure.AccountName,
			AccountKey:    accountKey,
			ContainerName: cfg.Storage.Azure.Container,
			Prefix:        cfg.Storage.Azure.Prefix,
			Endpoint:      cfg.Storage.Azure.Endpoint,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob writer: %w", err)
		}
		return w, nil
	case "gcs":
		credentialsJSON := cfg.Storage.GCS.CredentialsJSON
		if credentialsJSON == "" {
			credentialsJSON = os.Getenv("GCP_CREDENTIALS_JSON")
		}
		w, err := internalstorage.NewGCSWriter(ctx, internalstorage.GCSConfig{
			Bucket:               cfg.Storage.GCS.Bucket,
			Prefix:               cfg.Storage.GCS.Prefix,
			ProjectID:            cfg.Storage.GCS.ProjectID,
			CredentialsFile:      cfg.Storage.GCS.CredentialsFile,
			CredentialsJSON:      credentialsJSON,
			Endpoint:             cfg.Storage.GCS.Endpoint,
			UseDefaultCredential: cfg.Storage.GCS.UseDefaultCredential,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: file, s3, azure, gcs)", cfg.Storage.Backend)
	}
}

// formatConfigs converts the per-format configuration, keyed by name, to
// sink settings. Validation has already rejected unknown names.
func formatConfigs(cfg *dto.ApplicationConfig) map[postal.FileFormat]sink.FormatConfig {
	out := make(map[postal.FileFormat]sink.FormatConfig, len(cfg.Formats))
	for name, fc := range cfg.Formats {
		out[postal.FileFormat(name)] = sink.FormatConfig{
			Enabled:     fc.Enabled,
			Grouped:     fc.Grouped,
			Concurrency: fc.Concurrency,
			Compression: fc.Compression,
		}
	}
	return out
}

func serverConfig(cfg *dto.ApplicationConfig) server.Config {
	sc := server.Config{
		LivenessPath:  cfg.Observability.Health.LivenessPath,
		ReadinessPath: cfg.Observability.Health.ReadinessPath,
		MetricsPath:   cfg.Observability.Metrics.Path,
	}
	if cfg.Observability.Health.Enabled {
		sc.HealthPort = cfg.Observability.Health.Port
	}
	if cfg.Observability.Metrics.Enabled {
		sc.MetricsPort = cfg.Observability.Metrics.Port
	}
	return sc
}

func printFormats() {
	for _, format := range postal.AllFormats() {
		enc, err := internalencoder.NewFactory(format, "").CreateEncoder()
		if err != nil {
			fmt.Printf("%-8s  unavailable: %v\n", format, err)
			continue
		}
		fmt.Printf("%-8s  %-9s  compression: %s (default %s)\n",
			format,
			enc.FileExtension(),
			strings.Join(internalencoder.SupportedCompressions(format), ", "),
			internalencoder.DefaultCompression(format),
		)
	}
}
