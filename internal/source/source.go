package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/progress"
)

// Config selects where the registry comes from. The first non-empty of
// CSVPath, ZipPath and URL wins.
type Config struct {
	URL              string
	ZipPath          string
	CSVPath          string
	CSVName          string
	Encoding         string
	WorkDir          string
	Timeout          time.Duration
	MaxErrorMessages int
	KeepDownload     bool
}

// Loader reads the registry from the configured location.
type Loader struct {
	cfg      Config
	client   *http.Client
	reader   *Reader
	reporter progress.Reporter
	logger   *slog.Logger
}

// NewLoader creates a source loader.
func NewLoader(cfg Config, reporter progress.Reporter, logger *slog.Logger) (*Loader, error) {
	if cfg.CSVPath == "" && cfg.ZipPath == "" && cfg.URL == "" {
		return nil, fmt.Errorf("one of source csv path, zip path or url is required")
	}

	reader, err := NewReader(cfg.Encoding, cfg.MaxErrorMessages)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if reporter == nil {
		reporter = progress.Noop{}
	}

	return &Loader{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		reader:   reader,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// Load reads and validates every registry row. It returns the valid records
// and a summary of the invalid ones, plus the number of source bytes read.
func (l *Loader) Load(ctx context.Context) (*Result, int64, error) {
	in, size, err := l.open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer in.Close()

	start := time.Now()
	res, err := l.reader.Read(in)
	if err != nil {
		return nil, size, err
	}

	l.logger.Info("registry read",
		"rows", res.Rows,
		"valid", len(res.Records),
		"invalid", res.Invalid.Count(),
		"bytes", size,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, size, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, int64, error) {
	switch {
	case l.cfg.CSVPath != "":
		file, err := os.Open(l.cfg.CSVPath)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, 0, fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
		}
		l.logger.Info("reading registry csv", "path", l.cfg.CSVPath)
		return file, info.Size(), nil

	case l.cfg.ZipPath != "":
		l.logger.Info("reading registry archive", "path", l.cfg.ZipPath, "member", l.memberName())
		return OpenZip(l.cfg.ZipPath, l.memberName())

	default:
		dest := filepath.Join(l.cfg.WorkDir, "utf_ken_all.zip")
		l.logger.Info("downloading registry archive", "url", l.cfg.URL, "dest", dest)

		n, err := Download(ctx, l.client, l.cfg.URL, dest, l.reporter)
		if err != nil {
			return nil, 0, err
		}
		l.logger.Info("download completed", "bytes", n)

		rc, size, err := OpenZip(dest, l.memberName())
		if err != nil {
			return nil, 0, err
		}
		if l.cfg.KeepDownload {
			return rc, size, nil
		}
		return &removeOnClose{ReadCloser: rc, path: dest}, size, nil
	}
}

func (l *Loader) memberName() string {
	if l.cfg.CSVName != "" {
		return l.cfg.CSVName
	}
	return DefaultCSVName
}

// removeOnClose deletes the downloaded archive once it has been read.
type removeOnClose struct {
	io.ReadCloser
	path string
}

func (r *removeOnClose) Close() error {
	err := r.ReadCloser.Close()
	os.Remove(r.path)
	return err
}
