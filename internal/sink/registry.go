package sink

import (
	"fmt"
	"log/slog"

	internalencoder "github.com/jittakal/jpostcode/internal/encoder"
	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/progress"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// FormatConfig is the per-format configuration read from formats.<name>.
type FormatConfig struct {
	Enabled     bool
	Grouped     bool
	Concurrency int
	Compression string
}

// DefaultFormatConfig returns the configuration used when a format has no
// explicit settings. SQLite writes only all_data.db.
func DefaultFormatConfig(format postal.FileFormat) FormatConfig {
	return FormatConfig{
		Enabled:     true,
		Grouped:     format != postal.FormatSQLite,
		Concurrency: internalencoder.DefaultConcurrency(format),
		Compression: internalencoder.DefaultCompression(format),
	}
}

// EncoderFactory creates the encoder for one format and compression.
type EncoderFactory func(format postal.FileFormat, compression string) (encoder.Encoder, error)

// DefaultEncoderFactory builds the stock encoder for format.
func DefaultEncoderFactory(format postal.FileFormat, compression string) (encoder.Encoder, error) {
	return internalencoder.NewFactory(format, compression).CreateEncoder()
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	encoders EncoderFactory
}

// WithEncoderFactory replaces the encoder constructor. Nil keeps the default.
func WithEncoderFactory(f EncoderFactory) RegistryOption {
	return func(o *registryOptions) {
		if f != nil {
			o.encoders = f
		}
	}
}

// Registry builds one sink per enabled format and probes every encoder once.
type Registry struct {
	sinks  []*Sink
	byName map[postal.FileFormat]*Sink
}

// NewRegistry creates sinks for the enabled formats, in postal.AllFormats
// order. Formats missing from formats use DefaultFormatConfig. An unknown
// format name or unsupported compression is a configuration error; an
// encoder that fails its probe yields a sink that will be skipped.
func NewRegistry(
	formats map[postal.FileFormat]FormatConfig,
	writer storage.Writer,
	reporter progress.Reporter,
	logger *slog.Logger,
	metrics MetricsCollector,
	opts ...RegistryOption,
) (*Registry, error) {
	o := registryOptions{encoders: DefaultEncoderFactory}
	for _, opt := range opts {
		opt(&o)
	}

	for format := range formats {
		if _, err := postal.ParseFormat(string(format)); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownFormat, format)
		}
	}

	r := &Registry{byName: make(map[postal.FileFormat]*Sink)}

	for _, format := range postal.AllFormats() {
		cfg, ok := formats[format]
		if !ok {
			cfg = DefaultFormatConfig(format)
		}
		if !cfg.Enabled {
			logger.Debug("format disabled", "format", format)
			continue
		}

		if cfg.Compression != "" && !internalencoder.IsSupportedCompression(format, cfg.Compression) {
			return nil, fmt.Errorf("unsupported compression %q for format %s (supported: %v)",
				cfg.Compression, format, internalencoder.SupportedCompressions(format))
		}

		enc, err := o.encoders(format, cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s encoder: %w", format, err)
		}

		s := New(enc, writer, Config{
			Grouped:     cfg.Grouped,
			Concurrency: cfg.Concurrency,
		}, reporter, logger, metrics)

		if err := probe(enc); err != nil {
			s.unavailable = &apperrors.UnavailableError{Format: string(format), Err: err}
			logger.Warn("encoder probe failed", "format", format, "error", err)
		}

		r.sinks = append(r.sinks, s)
		r.byName[format] = s
	}

	logger.Info("sink registry built", "formats", r.Formats())
	return r, nil
}

func probe(enc encoder.Encoder) (err error) {
	p, ok := enc.(encoder.Prober)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return p.Probe()
}

// Sinks returns the registered sinks in format order.
func (r *Registry) Sinks() []*Sink {
	out := make([]*Sink, len(r.sinks))
	copy(out, r.sinks)
	return out
}

// Get returns the sink for format.
func (r *Registry) Get(format postal.FileFormat) (*Sink, bool) {
	s, ok := r.byName[format]
	return s, ok
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.sinks))
	for _, s := range r.sinks {
		names = append(names, string(s.Format()))
	}
	return names
}

// Available returns the formats whose encoder passed its probe.
func (r *Registry) Available() []postal.FileFormat {
	var out []postal.FileFormat
	for _, s := range r.sinks {
		if s.unavailable == nil {
			out = append(out, s.Format())
		}
	}
	return out
}
