package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/observability"
	"github.com/jittakal/jpostcode/internal/progress"
	"github.com/jittakal/jpostcode/internal/testutil"
)

func sampleCSV(n int) string {
	var b strings.Builder
	for _, rec := range testutil.Records(9, n) {
		b.WriteString(strings.Join(rec.Values(), ","))
		b.WriteString("\n")
	}
	return b.String()
}

func TestNewLoader_RequiresLocation(t *testing.T) {
	if _, err := NewLoader(Config{}, nil, observability.NopLogger()); err == nil {
		t.Error("NewLoader() with no location should fail")
	}
	if _, err := NewLoader(Config{CSVPath: "x.csv", Encoding: "latin1"}, nil, observability.NopLogger()); err == nil {
		t.Error("NewLoader() with unknown encoding should fail")
	}
}

func TestLoader_CSVPath(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "utf_ken_all.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV(25)), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLoader(Config{CSVPath: csvPath}, nil, observability.NopLogger())
	if err != nil {
		t.Fatal(err)
	}
	res, size, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Records) != 25 {
		t.Errorf("Records = %d, want 25 (invalid %v)", len(res.Records), res.Invalid.Messages())
	}
	if size == 0 {
		t.Error("size = 0")
	}
}

func TestLoader_ZipPath(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"utf_ken_all.csv": sampleCSV(10)})

	l, _ := NewLoader(Config{ZipPath: zipPath}, nil, observability.NopLogger())
	res, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Records) != 10 {
		t.Errorf("Records = %d, want 10", len(res.Records))
	}
}

func TestLoader_Download(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"utf_ken_all.csv": sampleCSV(5)})
	archive, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/utf_ken_all.zip" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
		w.Write(archive)
	}))
	defer server.Close()

	workDir := t.TempDir()
	reporter := progress.NewLogReporter(observability.NopLogger())

	l, _ := NewLoader(Config{URL: server.URL + "/utf_ken_all.zip", WorkDir: workDir}, reporter, observability.NopLogger())
	res, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Records) != 5 {
		t.Errorf("Records = %d, want 5", len(res.Records))
	}

	completed, total, ok := reporter.Snapshot(DownloadTask)
	if !ok || completed != total || total != len(archive) {
		t.Errorf("download progress = %d/%d ok=%v, want %d", completed, total, ok, len(archive))
	}

	if _, err := os.Stat(filepath.Join(workDir, "utf_ken_all.zip")); !os.IsNotExist(err) {
		t.Errorf("downloaded archive should be removed after reading, stat err = %v", err)
	}
}

func TestDownload_Errors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "data.zip")
	_, err := Download(context.Background(), server.Client(), server.URL+"/missing.zip", dest, nil)
	if !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("Download() error = %v, want ErrSourceUnreadable", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download left a file behind")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Download(ctx, nil, server.URL, dest, nil); !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("cancelled Download() error = %v", err)
	}
}
