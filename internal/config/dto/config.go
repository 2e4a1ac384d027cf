package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo         `mapstructure:"application"`
	Source        SourceConfig            `mapstructure:"source"`
	Output        OutputConfig            `mapstructure:"output"`
	Formats       map[string]FormatConfig `mapstructure:"formats"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// SourceConfig selects the registry snapshot. The first non-empty of
// csv_path, zip_path and url is used.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	ZipPath        string `mapstructure:"zip_path"`
	CSVPath        string `mapstructure:"csv_path"`
	CSVName        string `mapstructure:"csv_name"`
	Encoding       string `mapstructure:"encoding"`
	WorkDir        string `mapstructure:"work_dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	KeepDownload   bool   `mapstructure:"keep_download"`
}

// Timeout returns the download timeout.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OutputConfig contains run-wide output settings
type OutputConfig struct {
	MaxErrorMessages int  `mapstructure:"max_error_messages"`
	Verify           bool `mapstructure:"verify"`
}

// FormatConfig contains per-format settings
type FormatConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Grouped     bool   `mapstructure:"grouped"`
	Concurrency int    `mapstructure:"concurrency"`
	Compression string `mapstructure:"compression"`
}

// StorageConfig contains storage backend configuration
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	File    FileConfig  `mapstructure:"file"`
	S3      S3Config    `mapstructure:"s3"`
	GCS     GCSConfig   `mapstructure:"gcs"`
	Azure   AzureConfig `mapstructure:"azure"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	SSEEnabled      bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID     string `mapstructure:"sse_kms_key_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	Prefix               string `mapstructure:"prefix"`
	ProjectID            string `mapstructure:"project_id"`
	Endpoint             string `mapstructure:"endpoint"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Prefix      string `mapstructure:"prefix"`
	Endpoint    string `mapstructure:"endpoint"`
}

// DatabaseConfig contains the optional PostgreSQL load settings
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	Port    int        `mapstructure:"port"`
	Path    string     `mapstructure:"path"`
	Push    PushConfig `mapstructure:"push"`
}

// PushConfig contains Pushgateway settings
type PushConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Job     string `mapstructure:"job"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if c.Storage.Backend == "" {
		return fmt.Errorf("storage backend is required")
	}
	return nil
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("file base path is required")
	}
	return nil
}
