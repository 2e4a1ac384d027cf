package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/progress"
)

// DefaultURL is where Japan Post publishes the UTF-8 registry.
const DefaultURL = "https://www.post.japanpost.jp/zipcode/dl/utf/zip/utf_ken_all.zip"

// DownloadTask is the progress task name of the archive download.
const DownloadTask = "Download"

// progressWriter advances a progress task by the bytes written.
type progressWriter struct {
	reporter progress.Reporter
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.reporter.Advance(DownloadTask, len(p))
	return len(p), nil
}

// Download fetches url into dest, creating parent directories. Progress is
// reported in bytes against Content-Length when the server sends it.
func Download(ctx context.Context, client *http.Client, url, dest string, reporter progress.Reporter) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if reporter == nil {
		reporter = progress.Noop{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %v", apperrors.ErrSourceUnreadable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: download %s: unexpected status %s", apperrors.ErrSourceUnreadable, url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if resp.ContentLength > 0 {
		reporter.AddTask(DownloadTask, int(resp.ContentLength))
	}

	n, err := io.Copy(io.MultiWriter(file, progressWriter{reporter: reporter}), resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("%w: download %s: %v", apperrors.ErrSourceUnreadable, url, err)
	}

	return n, nil
}
