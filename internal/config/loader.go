package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jittakal/jpostcode/internal/config/dto"
	internalencoder "github.com/jittakal/jpostcode/internal/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Set overrides a key, for command-line flags.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load loads configuration from file and environment variables
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references in string values.
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "jpostcode")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Source defaults
	l.v.SetDefault("source.url", "https://www.post.japanpost.jp/zipcode/dl/utf/zip/utf_ken_all.zip")
	l.v.SetDefault("source.csv_name", "utf_ken_all.csv")
	l.v.SetDefault("source.encoding", "utf-8")
	l.v.SetDefault("source.timeout_seconds", 300)
	l.v.SetDefault("source.keep_download", false)

	// Output defaults
	l.v.SetDefault("output.max_error_messages", 10)
	l.v.SetDefault("output.verify", true)

	// Format defaults. SQLite writes only all_data.db.
	for _, format := range postal.AllFormats() {
		prefix := "formats." + string(format) + "."
		l.v.SetDefault(prefix+"enabled", true)
		l.v.SetDefault(prefix+"grouped", format != postal.FormatSQLite)
		l.v.SetDefault(prefix+"concurrency", internalencoder.DefaultConcurrency(format))
		l.v.SetDefault(prefix+"compression", internalencoder.DefaultCompression(format))
	}

	// Storage defaults
	l.v.SetDefault("storage.backend", "file")
	l.v.SetDefault("storage.file.base_path", "data")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)

	// Database defaults
	l.v.SetDefault("database.enabled", false)
	l.v.SetDefault("database.table", "postal_codes")
	l.v.SetDefault("database.max_conns", 4)

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", false)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.metrics.push.enabled", false)
	l.v.SetDefault("observability.metrics.push.job", "jpostcode")
	l.v.SetDefault("observability.health.enabled", false)
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if config.Application.Name == "" {
		return errors.New("application.name is required")
	}

	// Source validation
	if config.Source.CSVPath == "" && config.Source.ZipPath == "" && config.Source.URL == "" {
		return errors.New("one of source.csv_path, source.zip_path or source.url is required")
	}
	switch strings.ToLower(config.Source.Encoding) {
	case "", "utf-8", "utf8", "shift_jis", "shift-jis", "sjis", "cp932":
	default:
		return fmt.Errorf("unsupported source encoding: %s", config.Source.Encoding)
	}

	if config.Output.MaxErrorMessages < 0 {
		return fmt.Errorf("invalid output.max_error_messages: %d", config.Output.MaxErrorMessages)
	}

	// Format validation
	enabled := 0
	for name, fc := range config.Formats {
		format, err := postal.ParseFormat(name)
		if err != nil {
			return fmt.Errorf("formats.%s: %w", name, err)
		}
		if fc.Concurrency < 0 {
			return fmt.Errorf("formats.%s.concurrency must not be negative", name)
		}
		if fc.Compression != "" && !internalencoder.IsSupportedCompression(format, fc.Compression) {
			return fmt.Errorf("formats.%s.compression %q not supported (supported: %v)",
				name, fc.Compression, internalencoder.SupportedCompressions(format))
		}
		if fc.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("at least one format must be enabled")
	}

	// Storage validation
	switch config.Storage.Backend {
	case "s3":
		if config.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for S3 backend")
		}
		if config.Storage.S3.Region == "" {
			return errors.New("storage.s3.region is required for S3 backend")
		}
	case "azure":
		if config.Storage.Azure.AccountName == "" {
			return errors.New("storage.azure.account_name is required for Azure backend")
		}
		if config.Storage.Azure.Container == "" {
			return errors.New("storage.azure.container is required for Azure backend")
		}
	case "gcs":
		if config.Storage.GCS.Bucket == "" {
			return errors.New("storage.gcs.bucket is required for GCS backend")
		}
	case "file":
		if config.Storage.File.BasePath == "" {
			return errors.New("storage.file.base_path is required for file backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", config.Storage.Backend)
	}

	// Database validation
	if config.Database.Enabled && config.Database.DSN == "" {
		return errors.New("database.dsn is required when database.enabled is true")
	}

	// Port validation
	if config.Observability.Metrics.Enabled {
		if config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", config.Observability.Metrics.Port)
		}
	}
	if config.Observability.Health.Enabled {
		if config.Observability.Health.Port < 1 || config.Observability.Health.Port > 65535 {
			return fmt.Errorf("invalid health port: %d", config.Observability.Health.Port)
		}
	}
	if config.Observability.Metrics.Push.Enabled && config.Observability.Metrics.Push.URL == "" {
		return errors.New("observability.metrics.push.url is required when push is enabled")
	}

	return nil
}

// SelectFormats disables every format not named in names. An empty list
// leaves the configuration unchanged.
func SelectFormats(config *dto.ApplicationConfig, names []string) error {
	if len(names) == 0 {
		return nil
	}

	selected := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, err := postal.ParseFormat(name); err != nil {
			return err
		}
		selected[name] = true
	}

	if config.Formats == nil {
		config.Formats = make(map[string]dto.FormatConfig)
	}
	for _, format := range postal.AllFormats() {
		fc := config.Formats[string(format)]
		fc.Enabled = selected[string(format)]
		config.Formats[string(format)] = fc
	}
	return nil
}
