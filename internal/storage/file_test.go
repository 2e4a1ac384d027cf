package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	internalencoder "github.com/jittakal/jpostcode/internal/encoder"
	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/observability"
	"github.com/jittakal/jpostcode/internal/testutil"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// mockMetricsCollector implements MetricsCollector for testing
type mockMetricsCollector struct {
	mu                 sync.Mutex
	durations          []float64
	lastFormat         string
	storageErrors      int
	lastErrorBackend   string
	lastErrorOperation string
}

func (m *mockMetricsCollector) ObserveFileWriteDuration(backend string, format string, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, duration)
	m.lastFormat = format
}

func (m *mockMetricsCollector) IncStorageErrors(backend string, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageErrors++
	m.lastErrorBackend = backend
	m.lastErrorOperation = operation
}

func newEncoder(t *testing.T, format postal.FileFormat) encoder.Encoder {
	t.Helper()
	enc, err := internalencoder.NewFactory(format, "").CreateEncoder()
	if err != nil {
		t.Fatalf("CreateEncoder(%s) error = %v", format, err)
	}
	return enc
}

func TestNewFileWriter(t *testing.T) {
	tests := []struct {
		name     string
		config   FileConfig
		wantErr  bool
		wantBase string
	}{
		{name: "plain path", config: FileConfig{BasePath: "/tmp/out"}, wantBase: "/tmp/out"},
		{name: "file scheme", config: FileConfig{BasePath: "file:///tmp/out"}, wantBase: "/tmp/out"},
		{name: "empty path", config: FileConfig{BasePath: "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewFileWriter(tt.config, observability.NopLogger(), nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFileWriter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && w.basePath != tt.wantBase {
				t.Errorf("basePath = %q, want %q", w.basePath, tt.wantBase)
			}
		})
	}
}

func TestFileWriter_Prepare(t *testing.T) {
	t.Run("creates missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "out")
		w, _ := NewFileWriter(FileConfig{BasePath: root}, observability.NopLogger(), nil)

		if err := w.Prepare(context.Background()); err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			t.Fatalf("root not created: %v", err)
		}
		entries, _ := os.ReadDir(root)
		if len(entries) != 0 {
			t.Errorf("Prepare() left %d entries behind", len(entries))
		}
	})

	t.Run("root under a regular file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		metrics := &mockMetricsCollector{}
		w, _ := NewFileWriter(FileConfig{BasePath: filepath.Join(blocker, "out")}, observability.NopLogger(), metrics)

		err := w.Prepare(context.Background())
		if !errors.Is(err, apperrors.ErrRootNotWritable) {
			t.Fatalf("Prepare() error = %v, want ErrRootNotWritable", err)
		}
		var storageErr *apperrors.StorageError
		if !errors.As(err, &storageErr) {
			t.Errorf("Prepare() error type = %T, want *StorageError", err)
		}
		if !apperrors.IsFatal(err) {
			t.Error("unwritable root should be fatal")
		}
		if metrics.storageErrors != 1 || metrics.lastErrorBackend != "file" {
			t.Errorf("storage errors = %d backend = %q", metrics.storageErrors, metrics.lastErrorBackend)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		w, _ := NewFileWriter(FileConfig{BasePath: t.TempDir()}, observability.NopLogger(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.Prepare(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Prepare() error = %v, want context.Canceled", err)
		}
	})
}

func TestFileWriter_Write(t *testing.T) {
	root := t.TempDir()
	metrics := &mockMetricsCollector{}
	w, err := NewFileWriter(FileConfig{BasePath: root}, observability.NopLogger(), metrics)
	if err != nil {
		t.Fatal(err)
	}
	layout := NewLayout()
	records := testutil.Records(7, 3)

	tests := []struct {
		name    string
		format  postal.FileFormat
		relPath string
	}{
		{name: "all data", format: postal.FormatJSON, relPath: layout.AllData(".json")},
		{name: "prefix union", format: postal.FormatCSV, relPath: layout.Prefix("176", ".csv")},
		{name: "leaf creates directory", format: postal.FormatNDJSON, relPath: layout.Suffix("176", "0005", ".ndjson")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := w.Write(context.Background(), records, tt.relPath, newEncoder(t, tt.format))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if stats.RecordCount != len(records) {
				t.Errorf("RecordCount = %d, want %d", stats.RecordCount, len(records))
			}

			fullPath := w.Locate(tt.relPath)
			info, err := os.Stat(fullPath)
			if err != nil {
				t.Fatalf("file not written: %v", err)
			}
			if info.Size() != stats.SizeBytes {
				t.Errorf("SizeBytes = %d, file size = %d", stats.SizeBytes, info.Size())
			}
		})
	}

	if len(metrics.durations) != len(tests) {
		t.Errorf("observed %d durations, want %d", len(metrics.durations), len(tests))
	}
}

func TestFileWriter_WriteReplacesExisting(t *testing.T) {
	w, _ := NewFileWriter(FileConfig{BasePath: t.TempDir()}, observability.NopLogger(), nil)
	enc := newEncoder(t, postal.FormatCSV)

	if _, err := w.Write(context.Background(), testutil.Records(1, 10), "001.csv", enc); err != nil {
		t.Fatal(err)
	}
	stats, err := w.Write(context.Background(), testutil.Records(2, 1), "001.csv", enc)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := enc.(encoder.Decoder).Decode(w.Locate("001.csv"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded) != 1 || stats.RecordCount != 1 {
		t.Errorf("decoded %d records, want 1", len(decoded))
	}
}

func TestFileWriter_WriteEncodeError(t *testing.T) {
	metrics := &mockMetricsCollector{}
	w, _ := NewFileWriter(FileConfig{BasePath: t.TempDir()}, observability.NopLogger(), metrics)

	_, err := w.Write(context.Background(), nil, "all_data.json", newEncoder(t, postal.FormatJSON))
	var encodeErr *apperrors.EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("Write() error = %v, want *EncodeError", err)
	}
	if encodeErr.Format != "json" || encodeErr.Path != "all_data.json" {
		t.Errorf("EncodeError = %+v", encodeErr)
	}
	if metrics.lastErrorOperation != "encode" {
		t.Errorf("lastErrorOperation = %q, want encode", metrics.lastErrorOperation)
	}
}

func TestFileWriter_Concurrent(t *testing.T) {
	w, _ := NewFileWriter(FileConfig{BasePath: t.TempDir()}, observability.NopLogger(), nil)
	enc := newEncoder(t, postal.FormatYAML)
	layout := NewLayout()
	record := testutil.Record("1760005")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suffix := []string{"0000", "0001", "0002", "0003"}[i%4]
			if _, err := w.Write(context.Background(), []postal.Record{record}, layout.Suffix("176", suffix, ".yaml"), enc); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Write() error = %v", err)
	}

	entries, err := os.ReadDir(w.Locate("176"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("files = %d, want 4", len(entries))
	}
}

func TestFileWriter_Close(t *testing.T) {
	w, _ := NewFileWriter(FileConfig{BasePath: t.TempDir()}, observability.NopLogger(), nil)
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if w.Backend() != "file" {
		t.Errorf("Backend() = %q", w.Backend())
	}
}
